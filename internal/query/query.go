package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// AllCategories is the category filter value meaning "no restriction".
const AllCategories = "All"

// SortKey selects the attribute a curated list is ordered by.
type SortKey string

const (
	SortName      SortKey = "name"
	SortRecency   SortKey = "recency"
	SortFrequency SortKey = "frequency"
)

// Direction selects ascending or descending order.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

var (
	ErrInvalidSortKey   = errors.New("invalid sort key")
	ErrInvalidDirection = errors.New("invalid sort direction")
)

// sortKeyAliases maps the names used by screens, URLs and saved queries
// onto the canonical keys.
var sortKeyAliases = map[string]SortKey{
	"name":       SortName,
	"recency":    SortRecency,
	"lastseen":   SortRecency,
	"last_seen":  SortRecency,
	"date":       SortRecency,
	"frequency":  SortFrequency,
	"timesseen":  SortFrequency,
	"times_seen": SortFrequency,
	"count":      SortFrequency,
	"rating":     SortFrequency,
}

var directionAliases = map[string]Direction{
	"ascending":  Ascending,
	"asc":        Ascending,
	"descending": Descending,
	"desc":       Descending,
}

// ParseSortKey resolves a sort key name, case-insensitively.
func ParseSortKey(s string) (SortKey, error) {
	if k, ok := sortKeyAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSortKey, s)
}

// ParseDirection resolves a direction name, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	if d, ok := directionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Next returns the sort key after k in name, recency, frequency order.
func (k SortKey) Next() SortKey {
	switch k {
	case SortName:
		return SortRecency
	case SortRecency:
		return SortFrequency
	default:
		return SortName
	}
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Ascending {
		return Descending
	}
	return Ascending
}

// Query holds every parameter of one curation run. It is a plain value:
// screens build a new one on each interaction instead of mutating flags.
type Query struct {
	SearchText     string    `json:"searchText"`
	Category       string    `json:"categoryFilter"`
	SortKey        SortKey   `json:"sortKey"`
	Direction      Direction `json:"sortDirection"`
	FavouritesOnly bool      `json:"favouritesOnly"`
}

// Default returns the query the artist list opens with: no filters,
// most recently seen first.
func Default() Query {
	return Query{
		Category:  AllCategories,
		SortKey:   SortRecency,
		Direction: Descending,
	}
}

// WithSearch returns a copy of q with the search text replaced.
func (q Query) WithSearch(text string) Query {
	q.SearchText = text
	return q
}

// WithCategory returns a copy of q restricted to category. An empty
// category resets the restriction.
func (q Query) WithCategory(category string) Query {
	if category == "" {
		category = AllCategories
	}
	q.Category = category
	return q
}

// WithSort returns a copy of q ordered by key in direction dir.
func (q Query) WithSort(key SortKey, dir Direction) Query {
	q.SortKey = key
	q.Direction = dir
	return q
}

// WithFavouritesOnly returns a copy of q with the favourites toggle set.
func (q Query) WithFavouritesOnly(on bool) Query {
	q.FavouritesOnly = on
	return q
}

// FromValues builds a query from URL parameters (search, category, sort,
// order, favourites). Missing parameters keep the values from Default.
func FromValues(v url.Values) (Query, error) {
	q := Default()

	q.SearchText = v.Get("search")
	q = q.WithCategory(v.Get("category"))

	if s := v.Get("sort"); s != "" {
		key, err := ParseSortKey(s)
		if err != nil {
			return Query{}, err
		}
		q.SortKey = key
	}

	if s := v.Get("order"); s != "" {
		dir, err := ParseDirection(s)
		if err != nil {
			return Query{}, err
		}
		q.Direction = dir
	}

	if s := v.Get("favourites"); s != "" {
		on, err := strconv.ParseBool(s)
		if err != nil {
			return Query{}, fmt.Errorf("invalid favourites flag %q: %w", s, err)
		}
		q.FavouritesOnly = on
	}

	return q, nil
}

// Values is the inverse of FromValues.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.SearchText != "" {
		v.Set("search", q.SearchText)
	}
	if q.Category != "" && q.Category != AllCategories {
		v.Set("category", q.Category)
	}
	v.Set("sort", string(q.SortKey))
	v.Set("order", string(q.Direction))
	if q.FavouritesOnly {
		v.Set("favourites", "true")
	}
	return v
}
