package curate

import (
	"github.com/samber/lo"

	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/query"
)

// UnknownPlace labels venues with no recorded country or city.
const UnknownPlace = "Unknown"

// Top returns the first n items ordered by key, largest first. Ties keep
// input order. n <= 0 or n beyond the length returns every item.
func Top[T any](items []T, key query.SortKey, n int, lens Lens[T]) []T {
	sorted := Sort(items, key, query.Descending, lens)
	if n <= 0 || n >= len(sorted) {
		return sorted
	}
	return sorted[:n]
}

// Categories lists "All" followed by each distinct non-empty category in
// order of first appearance, for building filter chips.
func Categories[T any](items []T, lens Lens[T]) []string {
	found := lo.FilterMap(items, func(item T, _ int) (string, bool) {
		c := lens.Category(item)
		if c == nil || *c == "" {
			return "", false
		}
		return *c, true
	})
	return append([]string{query.AllCategories}, lo.Uniq(found)...)
}

// Locations groups venues by country and then city, each level in order of
// first appearance, summing TimesVisited at every level. Venues without a
// country or city are listed under UnknownPlace.
func Locations(venues []model.Venue) []model.Location {
	place := func(s string) string {
		if s == "" {
			return UnknownPlace
		}
		return s
	}
	visits := func(vs []model.Venue) int {
		return lo.SumBy(vs, func(v model.Venue) int { return v.TimesVisited })
	}

	byCountry := lo.GroupBy(venues, func(v model.Venue) string { return place(v.Country) })
	countries := lo.Uniq(lo.Map(venues, func(v model.Venue, _ int) string { return place(v.Country) }))

	return lo.Map(countries, func(country string, _ int) model.Location {
		inCountry := byCountry[country]
		byCity := lo.GroupBy(inCountry, func(v model.Venue) string { return place(v.City) })
		cities := lo.Uniq(lo.Map(inCountry, func(v model.Venue, _ int) string { return place(v.City) }))
		return model.Location{
			Country: country,
			Visits:  visits(inCountry),
			Cities: lo.Map(cities, func(city string, _ int) model.CityLocation {
				return model.CityLocation{
					City:   city,
					Visits: visits(byCity[city]),
					Venues: lo.Map(byCity[city], func(v model.Venue, _ int) string { return v.Name }),
				}
			}),
		}
	})
}
