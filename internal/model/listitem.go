package model

import "time"

// ListItem is the normalized record the curation engine works on.
// A nil Timestamp sorts as the earliest possible date; a nil Category
// fails every category filter other than "All".
type ListItem struct {
	ID          int64      `json:"id"`
	DisplayName string     `json:"displayName"`
	Timestamp   *time.Time `json:"timestamp"`
	Frequency   int        `json:"frequency"`
	Category    *string    `json:"category"`
	Favourite   bool       `json:"favourite"`
}

// StringPtr returns a pointer to s, or nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
