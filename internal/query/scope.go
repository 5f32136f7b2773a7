package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cdtdelta/gigtrack/internal/model"
)

// Scope narrows the gigs loaded from the store before they are curated.
// Its zero value loads every gig.
type Scope struct {
	Year      int    `json:"year,omitempty"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
	Place     string `json:"place,omitempty"`
	Festivals bool   `json:"festivals,omitempty"`
	MinRating int    `json:"min_rating,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
}

// IsZero reports whether s restricts nothing.
func (s Scope) IsZero() bool {
	return s == Scope{}
}

// Validate checks the date bounds are YYYY-MM-DD.
func (s Scope) Validate() error {
	for _, d := range []string{s.From, s.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, d); err != nil {
			return fmt.Errorf("invalid date %q: want YYYY-MM-DD", d)
		}
	}
	return nil
}

// Selection turns s into a store selection in insertion order.
// City and Country match case-insensitive substrings; Place matches the
// venue name, city or country. From and To bound the date inclusively,
// either may be empty.
func (s Scope) Selection() *Selection {
	sel := NewSelection()
	if s.Year > 0 {
		sel.AddPredicate(Year(s.Year))
	}
	if s.From != "" || s.To != "" {
		from, to := s.From, s.To
		if from == "" {
			from = "0001-01-01"
		}
		if to == "" {
			to = "9999-12-31"
		}
		sel.AddPredicate(DateRange(from, to))
	}
	if city := strings.TrimSpace(s.City); city != "" {
		sel.AddPredicate(Simple("city", Like, city))
	}
	if country := strings.TrimSpace(s.Country); country != "" {
		sel.AddPredicate(Simple("country", Like, country))
	}
	if place := strings.TrimSpace(s.Place); place != "" {
		sel.AddPredicate(Combine([]*Predicate{
			Simple("venue_name", Like, place),
			Simple("city", Like, place),
			Simple("country", Like, place),
		}, OR))
	}
	if s.Festivals {
		sel.AddPredicate(Simple("festival", Equal, true))
	}
	if s.MinRating > 0 {
		sel.AddPredicate(Simple("rating", GreaterOrEqual, s.MinRating))
	}
	return sel
}

// ScopeFromValues reads a Scope from the year, city, country, place,
// festivals, min_rating, from and to parameters. A malformed number or
// date is an error.
func ScopeFromValues(v url.Values) (Scope, error) {
	s := Scope{
		City:    v.Get("city"),
		Country: v.Get("country"),
		Place:   v.Get("place"),
		From:    v.Get("from"),
		To:      v.Get("to"),
	}
	if y := v.Get("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil || n < 1 || n > 9999 {
			return Scope{}, fmt.Errorf("invalid year %q", y)
		}
		s.Year = n
	}
	if r := v.Get("min_rating"); r != "" {
		n, err := strconv.Atoi(r)
		if err != nil || n < 0 {
			return Scope{}, fmt.Errorf("invalid min_rating %q", r)
		}
		s.MinRating = n
	}
	if f := v.Get("festivals"); f != "" {
		on, err := strconv.ParseBool(f)
		if err != nil {
			return Scope{}, fmt.Errorf("invalid festivals flag %q: %w", f, err)
		}
		s.Festivals = on
	}
	if err := s.Validate(); err != nil {
		return Scope{}, err
	}
	return s, nil
}
