package jsonlparser

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"

	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/payload"
)

// ReadResult contains the outcome of a JSONL import operation.
type ReadResult struct {
	Gigs     []*model.Gig
	Artists  []model.Artist
	Count    int
	Excluded int
}

// Record kinds recognised on a line.
const (
	kindUnknown = iota
	kindUserGig
	kindGig
	kindArtist
)

// ValidateFile checks that the first line of a file is a recognisable
// gig, attendance or artist record.
func ValidateFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	scanner := newScanner(f)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading first line: %w", err)
		}
		return fmt.Errorf("empty file")
	}

	line := strings.TrimSpace(scanner.Text())
	if len(line) == 0 || line[0] != '{' {
		return fmt.Errorf("first line is not a JSON object")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return fmt.Errorf("first line is not valid JSON: %w", err)
	}
	if classify(raw) == kindUnknown {
		return fmt.Errorf("first line is not a gig, attendance or artist record")
	}
	return nil
}

// ReadFile reads every record from a JSONL dump of the backend API.
// onProgress, if non-nil, is called every 1000 records.
func ReadFile(path string, onProgress func(count int)) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return Read(f, onProgress)
}

// Read is ReadFile over an arbitrary reader. Blank lines are skipped;
// invalid or unrecognised lines are counted as excluded.
func Read(r io.Reader, onProgress func(count int)) (*ReadResult, error) {
	scanner := newScanner(r)
	result := &ReadResult{}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var raw map[string]json.RawMessage
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			result.Excluded++
			continue
		}

		if !decodeLine([]byte(line), classify(raw), result) {
			result.Excluded++
			continue
		}
		result.Count++

		if onProgress != nil && result.Count%1000 == 0 {
			onProgress(result.Count)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading line %d: %w", result.Count+result.Excluded+1, err)
	}

	return result, nil
}

// decodeLine appends the record on line to result and reports success.
func decodeLine(line []byte, kind int, result *ReadResult) bool {
	switch kind {
	case kindUserGig:
		var ug payload.UserGig
		if json.Unmarshal(line, &ug) != nil {
			return false
		}
		g, ok := ug.Model()
		if !ok {
			return false
		}
		result.Gigs = append(result.Gigs, &g)
	case kindGig:
		var pg payload.Gig
		if json.Unmarshal(line, &pg) != nil {
			return false
		}
		g := pg.Model()
		if g.Title == "" && len(g.Artists) == 0 {
			return false
		}
		result.Gigs = append(result.Gigs, &g)
	case kindArtist:
		var as payload.ArtistSeen
		if json.Unmarshal(line, &as) != nil {
			return false
		}
		a := as.Model()
		if a.Name == "" {
			return false
		}
		result.Artists = append(result.Artists, a)
	default:
		return false
	}
	return true
}

// classify decides what a line holds from the keys present.
func classify(raw map[string]json.RawMessage) int {
	has := func(keys ...string) bool {
		return lo.SomeBy(keys, func(k string) bool {
			_, ok := raw[k]
			return ok
		})
	}
	switch {
	case has("gig"):
		return kindUserGig
	case has("artists", "venue", "date"):
		return kindGig
	case has("times_seen", "last_seen", "favourited"):
		return kindArtist
	default:
		return kindUnknown
	}
}

// WriteGigs writes gigs as one backend-shaped gig object per line.
func WriteGigs(path string, gigs []model.Gig) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, g := range gigs {
		if err := enc.Encode(toPayload(g)); err != nil {
			return fmt.Errorf("writing gig %d: %w", g.ID, err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func toPayload(g model.Gig) payload.Gig {
	out := payload.Gig{
		ID:       g.RemoteID,
		Title:    g.Title,
		Date:     model.FormatDate(g.Date),
		Genre:    model.Deref(g.Genre),
		Festival: payload.Flag(g.Festival),
		Artists: lo.Map(g.Artists, func(name string, _ int) payload.ArtistRef {
			return payload.ArtistRef{Name: name}
		}),
	}
	if g.Rating != nil {
		out.Rating = payload.Int{Value: *g.Rating, Set: true}
	}
	if g.Venue != (model.Venue{}) {
		out.Venue = &payload.Venue{Name: g.Venue.Name, City: g.Venue.City, Country: g.Venue.Country}
	}
	return out
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)
	return scanner
}
