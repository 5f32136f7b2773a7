package curate

import "github.com/cdtdelta/gigtrack/internal/query"

// Result is the output of one pipeline run. Items is always the filtered
// and sorted sequence; Groups is set only when grouping was requested.
type Result[T any] struct {
	Items  []T        `json:"items"`
	Groups []Group[T] `json:"groups,omitempty"`
}

// Grouped reports whether the result carries year buckets.
func (r Result[T]) Grouped() bool {
	return r.Groups != nil
}

// Curate runs filter then sort, and groups by year last when group is set.
func Curate[T any](items []T, q query.Query, group bool, lens Lens[T]) Result[T] {
	sorted := Sort(Filter(items, q, lens), q.SortKey, q.Direction, lens)
	res := Result[T]{Items: sorted}
	if group {
		res.Groups = GroupByYear(sorted, lens)
	}
	return res
}
