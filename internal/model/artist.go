package model

import "time"

// Artist is a performer together with the user's history of seeing them.
// TimesSeen and LastSeen are derived from attended gigs.
type Artist struct {
	ID        int64      `json:"id" db:"id"`
	RemoteID  int64      `json:"remote_id,omitempty" db:"remote_id"`
	Name      string     `json:"name" db:"name"`
	Genre     *string    `json:"genre" db:"genre"`
	ImageURL  string     `json:"image_url" db:"image_url"`
	Favourite bool       `json:"favourite" db:"favourite"`
	TimesSeen int        `json:"times_seen" db:"times_seen"`
	LastSeen  *time.Time `json:"last_seen" db:"last_seen"`
}

// ListItem returns the artist in curation shape.
func (a *Artist) ListItem() ListItem {
	return ListItem{
		ID:          a.ID,
		DisplayName: a.Name,
		Timestamp:   a.LastSeen,
		Frequency:   a.TimesSeen,
		Category:    a.Genre,
		Favourite:   a.Favourite,
	}
}

// ArtistDetail is one artist with the gigs they played, newest first.
type ArtistDetail struct {
	Artist Artist `json:"artist"`
	Gigs   []Gig  `json:"gigs"`
}
