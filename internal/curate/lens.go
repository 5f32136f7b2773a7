package curate

import (
	"fmt"
	"time"

	"github.com/cdtdelta/gigtrack/internal/model"
)

// Lens maps a record type onto the attributes the engine reads.
// Every field must be set.
type Lens[T any] struct {
	Name      func(T) string
	Timestamp func(T) *time.Time
	Frequency func(T) int
	Category  func(T) *string
	Favourite func(T) bool
}

// ItemLens reads model.ListItem directly.
var ItemLens = Lens[model.ListItem]{
	Name:      func(it model.ListItem) string { return it.DisplayName },
	Timestamp: func(it model.ListItem) *time.Time { return it.Timestamp },
	Frequency: func(it model.ListItem) int { return it.Frequency },
	Category:  func(it model.ListItem) *string { return it.Category },
	Favourite: func(it model.ListItem) bool { return it.Favourite },
}

// ArtistLens orders artists by name, last seen and times seen, and
// filters by genre.
var ArtistLens = Lens[model.Artist]{
	Name:      func(a model.Artist) string { return a.Name },
	Timestamp: func(a model.Artist) *time.Time { return a.LastSeen },
	Frequency: func(a model.Artist) int { return a.TimesSeen },
	Category:  func(a model.Artist) *string { return a.Genre },
	Favourite: func(a model.Artist) bool { return a.Favourite },
}

// GigLens orders gigs by title, date and rating, and filters by genre.
var GigLens = Lens[model.Gig]{
	Name:      func(g model.Gig) string { return g.DisplayName() },
	Timestamp: func(g model.Gig) *time.Time { return g.Date },
	Frequency: gigRating,
	Category:  func(g model.Gig) *string { return g.Genre },
	Favourite: func(model.Gig) bool { return false },
}

// GigYearLens is GigLens with the category replaced by the gig's year,
// for the timeline's year chips.
var GigYearLens = Lens[model.Gig]{
	Name:      GigLens.Name,
	Timestamp: GigLens.Timestamp,
	Frequency: GigLens.Frequency,
	Category:  gigYear,
	Favourite: GigLens.Favourite,
}

// VenueLens orders venues by name, last visit and times visited, and
// filters by country.
var VenueLens = Lens[model.Venue]{
	Name:      func(v model.Venue) string { return v.Name },
	Timestamp: func(v model.Venue) *time.Time { return v.LastVisit },
	Frequency: func(v model.Venue) int { return v.TimesVisited },
	Category:  func(v model.Venue) *string { return nonEmpty(v.Country) },
	Favourite: func(model.Venue) bool { return false },
}

// VenueCityLens is VenueLens with the city as the category, for drilling
// from a country down to its cities.
var VenueCityLens = Lens[model.Venue]{
	Name:      VenueLens.Name,
	Timestamp: VenueLens.Timestamp,
	Frequency: VenueLens.Frequency,
	Category:  func(v model.Venue) *string { return nonEmpty(v.City) },
	Favourite: VenueLens.Favourite,
}

// Venue chip levels accepted by VenueLensBy.
const (
	VenuesByCountry = "country"
	VenuesByCity    = "city"
)

// VenueLensBy picks the venue lens whose category is level. An empty level
// means VenuesByCountry.
func VenueLensBy(level string) (Lens[model.Venue], error) {
	switch level {
	case VenuesByCountry, "":
		return VenueLens, nil
	case VenuesByCity:
		return VenueCityLens, nil
	}
	return Lens[model.Venue]{}, fmt.Errorf("invalid venue level %q: want country or city", level)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func gigRating(g model.Gig) int {
	if g.Rating == nil {
		return 0
	}
	return *g.Rating
}

func gigYear(g model.Gig) *string {
	if g.Date == nil {
		return nil
	}
	y := fmt.Sprintf("%04d", g.Date.Year())
	return &y
}
