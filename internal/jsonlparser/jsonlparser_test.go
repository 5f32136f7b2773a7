package jsonlparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cdtdelta/gigtrack/internal/model"
)

func writeTempJSONL(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.jsonl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp JSONL: %v", err)
	}
	return path
}

const sampleJSONL = `{"id": 1, "rating": 5, "gig": {"id": 10, "title": "Group Therapy 500", "date": "2022-10-15", "venue": {"name": "Ally Pally", "city": "London", "country": "UK"}, "artists": [{"id": 1, "name": "Above & Beyond"}]}}
{"id": 11, "title": "", "date": "2023-08-12", "artists": [{"name": "Fisherman"}], "festival": "y"}

{"id": 7, "name": "Lane 8", "times_seen": "3", "last_seen": "2024-02-10", "favourited": "y"}
not json at all
{"id": 2, "gig": null}
{"something": "else"}
`

func TestValidateFile(t *testing.T) {
	if err := ValidateFile(writeTempJSONL(t, sampleJSONL)); err != nil {
		t.Errorf("expected valid file, got: %v", err)
	}

	bad := map[string]string{
		"empty":      "",
		"not object": "[1,2,3]\n",
		"invalid":    "{nope\n",
		"unknown":    `{"hello": "world"}` + "\n",
	}
	for name, content := range bad {
		if err := ValidateFile(writeTempJSONL(t, content)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestReadFile(t *testing.T) {
	result, err := ReadFile(writeTempJSONL(t, sampleJSONL), nil)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if result.Count != 3 {
		t.Errorf("Count = %d, want 3", result.Count)
	}
	if result.Excluded != 3 {
		t.Errorf("Excluded = %d, want 3", result.Excluded)
	}
	if len(result.Gigs) != 2 || len(result.Artists) != 1 {
		t.Fatalf("gigs = %d, artists = %d", len(result.Gigs), len(result.Artists))
	}

	ug := result.Gigs[0]
	if ug.Title != "Group Therapy 500" || ug.RemoteID != 10 || ug.Rating == nil || *ug.Rating != 5 {
		t.Errorf("attendance gig = %+v", ug)
	}

	plain := result.Gigs[1]
	if !plain.Festival || plain.Headliner() != "Fisherman" || model.FormatDate(plain.Date) != "2023-08-12" {
		t.Errorf("plain gig = %+v", plain)
	}

	a := result.Artists[0]
	if a.Name != "Lane 8" || a.TimesSeen != 3 || !a.Favourite {
		t.Errorf("artist = %+v", a)
	}
}

func TestReadProgress(t *testing.T) {
	line := `{"title": "Night", "date": "2020-01-01"}` + "\n"
	var calls []int
	result, err := Read(strings.NewReader(strings.Repeat(line, 2001)), func(n int) { calls = append(calls, n) })
	if err != nil {
		t.Fatal(err)
	}
	if result.Count != 2001 || len(calls) != 2 || calls[0] != 1000 || calls[1] != 2000 {
		t.Errorf("count = %d, progress = %v", result.Count, calls)
	}
}

func TestWriteGigsRoundTrip(t *testing.T) {
	rating := 3
	gigs := []model.Gig{
		{
			ID: 1, RemoteID: 44, Title: "Anjunadeep Open Air",
			Date:    model.ParseDate("2023-06-03"),
			Venue:   model.Venue{Name: "Drumsheds", City: "London", Country: "UK"},
			Artists: []string{"Jody Wisternoff", "James Grant"},
			Genre:   model.StringPtr("Deep House"), Festival: true, Rating: &rating,
		},
		{ID: 2, Title: "Undated", Artists: []string{"Someone"}},
	}

	path := filepath.Join(t.TempDir(), "out.jsonl")
	if err := WriteGigs(path, gigs); err != nil {
		t.Fatalf("WriteGigs failed: %v", err)
	}

	result, err := ReadFile(path, nil)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("Count = %d, want 2", result.Count)
	}

	first := result.Gigs[0]
	if first.RemoteID != 44 || first.Venue.Name != "Drumsheds" || len(first.Artists) != 2 ||
		!first.Festival || *first.Rating != 3 || model.Deref(first.Genre) != "Deep House" {
		t.Errorf("first = %+v", first)
	}
	second := result.Gigs[1]
	if second.Date != nil || second.Rating != nil || second.Venue != (model.Venue{}) {
		t.Errorf("second = %+v", second)
	}
}
