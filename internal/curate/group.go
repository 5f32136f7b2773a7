package curate

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/samber/lo"
)

// UnknownYear is the bucket key for items without a timestamp.
const UnknownYear = "Unknown"

// unknownYear sorts below every real year, so descending order puts the
// Unknown bucket last.
const unknownYear = math.MinInt

// Group is one year bucket of a grouped view.
type Group[T any] struct {
	Key   string `json:"key"`
	Items []T    `json:"items"`
}

// GroupByYear partitions an already sorted sequence into year buckets.
// Buckets come out newest year first with Unknown last; items inside a
// bucket keep their input order. Empty buckets are never produced.
func GroupByYear[T any](sorted []T, lens Lens[T]) []Group[T] {
	buckets := lo.GroupBy(sorted, func(item T) int {
		ts := lens.Timestamp(item)
		if ts == nil {
			return unknownYear
		}
		return ts.Year()
	})

	years := lo.Keys(buckets)
	slices.SortFunc(years, func(a, b int) int { return cmp.Compare(b, a) })

	groups := make([]Group[T], 0, len(years))
	for _, y := range years {
		groups = append(groups, Group[T]{Key: yearKey(y), Items: buckets[y]})
	}
	return groups
}

func yearKey(y int) string {
	if y == unknownYear {
		return UnknownYear
	}
	return fmt.Sprintf("%04d", y)
}

// Keys returns the bucket keys in order.
func Keys[T any](groups []Group[T]) []string {
	return lo.Map(groups, func(g Group[T], _ int) string { return g.Key })
}

// Flatten concatenates the buckets in order.
func Flatten[T any](groups []Group[T]) []T {
	return lo.FlatMap(groups, func(g Group[T], _ int) []T { return g.Items })
}
