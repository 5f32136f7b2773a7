// Package curate turns an in-memory collection into an ordered view for
// display: filter by search text, category and favourites, stable sort by
// name, recency or frequency, and optionally group by year.
//
// Every function is pure. Inputs are never modified, and the same items and
// query always produce the same result, so callers may run the pipeline on
// every keystroke and from any goroutine.
//
// The engine is generic over the record type. A Lens supplies the five
// attributes it reads, so artist, gig and plain ListItem views share the
// same comparator logic.
package curate
