// Package payload holds the loosely-typed JSON shapes returned by the gig
// backend and converts them into model records. Nothing past this package
// sees raw API data.
package payload

import (
	"encoding/json"
	"strings"

	"github.com/samber/lo"

	"github.com/cdtdelta/gigtrack/internal/model"
)

// ArtistSeen is one row of /api/artists_seen/.
type ArtistSeen struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Genre       string `json:"genre"`
	ArtistImage string `json:"artist_image"`
	TimesSeen   Int    `json:"times_seen"`
	LastSeen    string `json:"last_seen"`
	Favourited  Flag   `json:"favourited"`
}

// Model converts the row. The remote id is kept; the local id is left zero.
func (a ArtistSeen) Model() model.Artist {
	return model.Artist{
		RemoteID:  a.ID,
		Name:      strings.TrimSpace(a.Name),
		Genre:     model.StringPtr(strings.TrimSpace(a.Genre)),
		ImageURL:  a.ArtistImage,
		Favourite: bool(a.Favourited),
		TimesSeen: a.TimesSeen.Or(0),
		LastSeen:  model.ParseDate(a.LastSeen),
	}
}

// ArtistRef is an artist as embedded in gigs and search results.
type ArtistRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Genre string `json:"genre"`
	Image string `json:"image"`
}

// Model converts a search suggestion.
func (a ArtistRef) Model() model.Artist {
	return model.Artist{
		RemoteID: a.ID,
		Name:     strings.TrimSpace(a.Name),
		Genre:    model.StringPtr(strings.TrimSpace(a.Genre)),
		ImageURL: a.Image,
	}
}

// Venue is a venue as embedded in gigs.
type Venue struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// Model converts the embedded venue.
func (v Venue) Model() model.Venue {
	return model.Venue{
		RemoteID: v.ID,
		Name:     strings.TrimSpace(v.Name),
		City:     strings.TrimSpace(v.City),
		Country:  strings.TrimSpace(v.Country),
	}
}

// VenueVisited is one row of /api/venues_visited/.
type VenueVisited struct {
	Venue
	Address      string `json:"address"`
	Capacity     Int    `json:"capacity"`
	VenueType    string `json:"venue_type"`
	TimesVisited Int    `json:"times_visited"`
}

// Model converts the row, keeping the backend's visit count.
func (v VenueVisited) Model() model.Venue {
	out := v.Venue.Model()
	out.Address = strings.TrimSpace(v.Address)
	out.TimesVisited = v.TimesVisited.Or(0)
	return out
}

// Gig is the backend's gig record, shared by /api/usergigs/ and
// /api/gigs/search.
type Gig struct {
	ID              int64       `json:"id"`
	Title           string      `json:"title"`
	Date            string      `json:"date"`
	Venue           *Venue      `json:"venue"`
	Artists         []ArtistRef `json:"artists"`
	Genre           string      `json:"genre"`
	Festival        Flag        `json:"festival"`
	Rating          Int         `json:"rating"`
	AlreadyAttended Flag        `json:"already_attended"`
}

// Model converts the record. Missing venues become the zero Venue.
func (g Gig) Model() model.Gig {
	out := model.Gig{
		RemoteID: g.ID,
		Title:    strings.TrimSpace(g.Title),
		Date:     model.ParseDate(g.Date),
		Genre:    model.StringPtr(strings.TrimSpace(g.Genre)),
		Festival: bool(g.Festival),
		Rating:   g.Rating.Ptr(),
		Artists: lo.FilterMap(g.Artists, func(a ArtistRef, _ int) (string, bool) {
			name := strings.TrimSpace(a.Name)
			return name, name != ""
		}),
	}
	if g.Venue != nil {
		out.Venue = g.Venue.Model()
	}
	return out
}

// UserGig is an attendance record wrapping a Gig. The user's own rating
// takes precedence over the gig's.
type UserGig struct {
	ID     int64 `json:"id"`
	Rating Int   `json:"rating"`
	Gig    *Gig  `json:"gig"`
}

// Model converts the attendance record. ok is false when no gig is embedded.
func (u UserGig) Model() (model.Gig, bool) {
	if u.Gig == nil {
		return model.Gig{}, false
	}
	g := u.Gig.Model()
	if u.Rating.Set {
		g.Rating = u.Rating.Ptr()
	}
	return g, true
}

// UserGigPage is one page of /api/usergigs/.
type UserGigPage struct {
	Count   int       `json:"count"`
	Next    *string   `json:"next"`
	Results []UserGig `json:"results"`
}

// MostSeen names the artist seen most often.
type MostSeen struct {
	Name  string `json:"name"`
	Count Int    `json:"count"`
}

// UserStats is the /api/userstats summary.
type UserStats struct {
	ConcertsAttended Int       `json:"concerts_attended"`
	ArtistsSeen      Int       `json:"artists_seen"`
	GenresSeen       Int       `json:"genres_seen"`
	MostSeenArtist   *MostSeen `json:"most_seen_artist"`
	MemoriesCount    Int       `json:"memories_count"`
	UniqueVenues     Int       `json:"unique_venues"`
}

// Genre is a node of the /api/genres tree.
type Genre struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	Description       *string     `json:"description"`
	GenreImage        *string     `json:"genre_image"`
	ParentGenre       *int64      `json:"parent_genre"`
	Subgenres         []Genre     `json:"subgenres"`
	Artists           []ArtistRef `json:"artists"`
	ArtistsCount      Int         `json:"artists_count"`
	GigsAttendedCount Int         `json:"gigs_attended_count"`
}

// ArtistTotal prefers the precomputed count over the embedded list.
func (g Genre) ArtistTotal() int {
	return g.ArtistsCount.Or(len(g.Artists))
}

// Attended reports whether the user has seen anything in the genre.
func (g Genre) Attended() bool {
	return g.ArtistTotal() > 0 || g.GigsAttendedCount.Or(0) > 0
}

// BulkAddRequest is the body of POST /api/gigs/bulk_add/.
type BulkAddRequest struct {
	GigIDs []int64 `json:"gig_ids"`
}

// BulkAddResponse reports how many attendances were created. Errors may be
// strings or objects depending on the backend version.
type BulkAddResponse struct {
	Created Int               `json:"created"`
	Errors  []json.RawMessage `json:"errors"`
}

// ErrorMessages renders each error entry as text.
func (r BulkAddResponse) ErrorMessages() []string {
	return lo.Map(r.Errors, func(raw json.RawMessage, _ int) string {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return string(raw)
	})
}

// Artists converts a batch of artists_seen rows, dropping nameless entries.
func Artists(rows []ArtistSeen) []model.Artist {
	return lo.FilterMap(rows, func(r ArtistSeen, _ int) (model.Artist, bool) {
		a := r.Model()
		return a, a.Name != ""
	})
}

// Gigs converts attendance records, dropping those without a gig.
func Gigs(rows []UserGig) []model.Gig {
	return lo.FilterMap(rows, func(r UserGig, _ int) (model.Gig, bool) {
		return r.Model()
	})
}

// Venues converts venues_visited rows, dropping nameless entries.
func Venues(rows []VenueVisited) []model.Venue {
	return lo.FilterMap(rows, func(r VenueVisited, _ int) (model.Venue, bool) {
		v := r.Model()
		return v, v.Name != ""
	})
}
