package curate

import (
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cdtdelta/gigtrack/internal/query"
)

// lowerer returns a locale-independent lowercasing function. A Caser keeps
// state between calls, so each pipeline run gets its own.
func lowerer() func(string) string {
	c := cases.Lower(language.Und)
	return c.String
}

// Filter keeps the items matching every active predicate of q: the search
// text is a case-insensitive literal substring of the name, the category
// filter (unless "All") is a case-insensitive substring of the item's
// category, and FavouritesOnly requires the favourite flag. Surviving items
// keep their input order.
func Filter[T any](items []T, q query.Query, lens Lens[T]) []T {
	lower := lowerer()
	needle := lower(q.SearchText)
	restrictCategory := q.Category != query.AllCategories
	category := lower(q.Category)

	return lo.Filter(items, func(item T, _ int) bool {
		if needle != "" && !strings.Contains(lower(lens.Name(item)), needle) {
			return false
		}
		if restrictCategory {
			c := lens.Category(item)
			if c == nil || !strings.Contains(lower(*c), category) {
				return false
			}
		}
		if q.FavouritesOnly && !lens.Favourite(item) {
			return false
		}
		return true
	})
}
