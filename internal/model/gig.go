package model

import "time"

// GigFields is the list of filterable columns on the gigs table.
// Used for predicate validation when building SQL.
var GigFields = []string{
	"title", "gig_date", "genre", "festival", "rating", "notes",
	"venue_name", "city", "country",
}

// DateLayout is the canonical storage format for gig dates.
const DateLayout = "2006-01-02"

// Venue is a place a gig happened. TimesVisited and LastVisit are derived
// from attended gigs and only filled by venue listings.
type Venue struct {
	ID           int64      `json:"id" db:"id"`
	RemoteID     int64      `json:"remote_id,omitempty" db:"remote_id"`
	Name         string     `json:"name" db:"name"`
	City         string     `json:"city" db:"city"`
	Country      string     `json:"country" db:"country"`
	Address      string     `json:"address,omitempty" db:"address"`
	TimesVisited int        `json:"times_visited,omitempty" db:"times_visited"`
	LastVisit    *time.Time `json:"last_visit,omitempty" db:"last_visit"`
}

// Location is one country of the venue drill-down.
type Location struct {
	Country string         `json:"country"`
	Visits  int            `json:"visits"`
	Cities  []CityLocation `json:"cities"`
}

// CityLocation is one city of a Location with the venues visited there.
type CityLocation struct {
	City   string   `json:"city"`
	Visits int      `json:"visits"`
	Venues []string `json:"venues"`
}

// ListItem returns the venue in curation shape, classified by country.
func (v *Venue) ListItem() ListItem {
	item := ListItem{
		ID:          v.ID,
		DisplayName: v.Name,
		Timestamp:   v.LastVisit,
		Frequency:   v.TimesVisited,
	}
	if v.Country != "" {
		item.Category = StringPtr(v.Country)
	}
	return item
}

// Label renders the venue as "Name, City", dropping empty parts.
func (v Venue) Label() string {
	switch {
	case v.Name == "":
		return v.City
	case v.City == "":
		return v.Name
	}
	return v.Name + ", " + v.City
}

// Gig is one attended concert or festival day.
// Date is nil when the source record had no usable date.
type Gig struct {
	ID       int64      `json:"id" db:"id"`
	RemoteID int64      `json:"remote_id,omitempty" db:"remote_id"`
	Title    string     `json:"title" db:"title"`
	Date     *time.Time `json:"date" db:"gig_date"`
	Venue    Venue      `json:"venue"`
	Artists  []string   `json:"artists"`
	Genre    *string    `json:"genre" db:"genre"`
	Festival bool       `json:"festival" db:"festival"`
	Rating   *int       `json:"rating" db:"rating"`
	Notes    string     `json:"notes" db:"notes"`
}

// Headliner returns the first artist on the bill, or the title when the
// lineup is empty.
func (g *Gig) Headliner() string {
	if len(g.Artists) > 0 {
		return g.Artists[0]
	}
	return g.Title
}

// DisplayName is the name gig lists are searched and sorted by.
func (g *Gig) DisplayName() string {
	if g.Title != "" {
		return g.Title
	}
	return g.Headliner()
}

// ListItem returns the gig in curation shape. The rating stands in for
// frequency so timeline views can order by it.
func (g *Gig) ListItem() ListItem {
	item := ListItem{
		ID:          g.ID,
		DisplayName: g.DisplayName(),
		Timestamp:   g.Date,
		Category:    g.Genre,
	}
	if g.Rating != nil {
		item.Frequency = *g.Rating
	}
	return item
}

// FormatDate renders a nullable date in DateLayout, or "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// ParseDate parses the date formats seen in imports, API payloads and
// database rows. Empty or unparseable input yields nil.
func ParseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
