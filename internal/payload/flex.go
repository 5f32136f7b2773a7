package payload

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Flag decodes the backend's assorted truthy encodings: true, "y", "yes",
// "true", "1" and 1. Anything else, including null, is false.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = false
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "y", "yes", "true", "1":
			*f = true
		default:
			*f = false
		}
	default:
		s := string(data)
		*f = Flag(s == "true" || s == "1")
	}
	return nil
}

// Int decodes a count or rating sent either as a JSON number or a numeric
// string. Null, empty and unparsable values leave it unset.
type Int struct {
	Value int
	Set   bool
}

func (n *Int) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*n = Int{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	*n = Int{Value: int(f), Set: true}
	return nil
}

func (n Int) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(n.Value)), nil
}

// Ptr returns the value as a pointer, nil when unset.
func (n Int) Ptr() *int {
	if !n.Set {
		return nil
	}
	v := n.Value
	return &v
}

// Or returns the value, or def when unset.
func (n Int) Or(def int) int {
	if !n.Set {
		return def
	}
	return n.Value
}
