package curate

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/cdtdelta/gigtrack/internal/query"
)

// sortEntry carries an item with its precomputed sort key.
type sortEntry[T any] struct {
	item T
	name string
	ts   *time.Time
	freq int
}

// Sort returns a new slice ordered by key in direction dir. The sort is
// stable: items with equal keys keep their input order in both directions.
// Names compare lowercased in code-point order, nil timestamps compare as
// the earliest possible date. An unknown key leaves the order unchanged.
func Sort[T any](items []T, key query.SortKey, dir query.Direction, lens Lens[T]) []T {
	entries := make([]sortEntry[T], len(items))
	lower := lowerer()
	for i, item := range items {
		e := sortEntry[T]{item: item}
		switch key {
		case query.SortName:
			e.name = lower(lens.Name(item))
		case query.SortRecency:
			e.ts = lens.Timestamp(item)
		case query.SortFrequency:
			e.freq = lens.Frequency(item)
		}
		entries[i] = e
	}

	compare := comparator[T](key)
	if dir == query.Descending {
		asc := compare
		compare = func(a, b sortEntry[T]) int { return asc(b, a) }
	}
	slices.SortStableFunc(entries, compare)

	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.item
	}
	return out
}

func comparator[T any](key query.SortKey) func(a, b sortEntry[T]) int {
	switch key {
	case query.SortName:
		return func(a, b sortEntry[T]) int { return strings.Compare(a.name, b.name) }
	case query.SortRecency:
		return func(a, b sortEntry[T]) int { return compareTime(a.ts, b.ts) }
	case query.SortFrequency:
		return func(a, b sortEntry[T]) int { return cmp.Compare(a.freq, b.freq) }
	default:
		return func(a, b sortEntry[T]) int { return 0 }
	}
}

// compareTime orders nil before every non-nil time.
func compareTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}
