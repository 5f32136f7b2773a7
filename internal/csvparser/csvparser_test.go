package csvparser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cdtdelta/gigtrack/internal/curate"
	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/query"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp CSV: %v", err)
	}
	return path
}

const sampleCSV = `Date,Artist,Venue,City,Country,Genre,Festival,Rating,Notes
2024-03-09,Above & Beyond; Lane 8,Brixton Academy,London,UK,Trance,,5,great
09/07/2022,Yotto,Printworks,London,UK,Progressive,,4.0,
,Mystery Act,,,,,,,
,,Empty Venue,Leeds,UK,,,,
2023-08-12,Fisherman | Tinlicker,Creamfields,Daresbury,UK,House,yes,,
`

func TestValidateHeader(t *testing.T) {
	if err := ValidateHeader(writeTempCSV(t, sampleCSV)); err != nil {
		t.Errorf("expected valid header, got: %v", err)
	}
	if err := ValidateHeader(writeTempCSV(t, "date,venue\n2024-01-01,Somewhere\n")); err == nil {
		t.Error("expected error for header without artist or title")
	}
}

func TestReadGigs(t *testing.T) {
	result, err := ReadGigs(writeTempCSV(t, sampleCSV), 0, nil)
	if err != nil {
		t.Fatalf("ReadGigs failed: %v", err)
	}
	if result.Count != 4 {
		t.Errorf("Count = %d, want 4", result.Count)
	}
	if result.Excluded != 1 {
		t.Errorf("Excluded = %d, want 1 (row with no artist or title)", result.Excluded)
	}

	first := result.Gigs[0]
	if model.FormatDate(first.Date) != "2024-03-09" {
		t.Errorf("Date = %q", model.FormatDate(first.Date))
	}
	if len(first.Artists) != 2 || first.Artists[0] != "Above & Beyond" || first.Artists[1] != "Lane 8" {
		t.Errorf("Artists = %v", first.Artists)
	}
	if first.Venue != (model.Venue{Name: "Brixton Academy", City: "London", Country: "UK"}) {
		t.Errorf("Venue = %+v", first.Venue)
	}
	if first.Rating == nil || *first.Rating != 5 || first.Notes != "great" {
		t.Errorf("Rating/Notes = %v/%q", first.Rating, first.Notes)
	}

	second := result.Gigs[1]
	want := time.Date(2022, 7, 9, 0, 0, 0, 0, time.UTC)
	if second.Date == nil || !second.Date.Equal(want) {
		t.Errorf("DD/MM/YYYY date = %v, want %v", second.Date, want)
	}
	if second.Rating == nil || *second.Rating != 4 {
		t.Errorf("decimal rating = %v, want 4", second.Rating)
	}

	undated := result.Gigs[2]
	if undated.Date != nil || undated.Genre != nil || undated.Rating != nil {
		t.Errorf("empty cells should be nil: %+v", undated)
	}

	fest := result.Gigs[3]
	if !fest.Festival || len(fest.Artists) != 2 {
		t.Errorf("festival row = %+v", fest)
	}
}

func TestReadGigsHeaderAliases(t *testing.T) {
	csv := "Event , Band, Venue Name, Town, Stars\nWeekender,Kasablanca,Ally Pally,London,3\n"
	result, err := Read(strings.NewReader(csv), 0, nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	g := result.Gigs[0]
	if g.Title != "Weekender" || g.Artists[0] != "Kasablanca" || g.Venue.Name != "Ally Pally" ||
		g.Venue.City != "London" || *g.Rating != 3 {
		t.Errorf("aliased gig = %+v", g)
	}
}

func TestReadGigsLimitAndProgress(t *testing.T) {
	var b strings.Builder
	b.WriteString("artist,date\n")
	for i := 0; i < 2500; i++ {
		b.WriteString("Someone,2020-01-01\n")
	}

	var calls []int
	result, err := Read(strings.NewReader(b.String()), 0, func(n int) { calls = append(calls, n) })
	if err != nil {
		t.Fatal(err)
	}
	if result.Count != 2500 || len(calls) != 2 || calls[1] != 2000 {
		t.Errorf("count = %d, progress = %v", result.Count, calls)
	}

	limited, err := Read(strings.NewReader(b.String()), 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if limited.Count != 10 {
		t.Errorf("limited Count = %d, want 10", limited.Count)
	}
}

func TestReadStripsNullBytes(t *testing.T) {
	result, err := Read(strings.NewReader("artist\x00,date\nLane\x00 8,2021-05-05\n"), 0, nil)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if result.Gigs[0].Artists[0] != "Lane 8" {
		t.Errorf("Artists = %q", result.Gigs[0].Artists)
	}
}

func TestWriteGigsRoundTrip(t *testing.T) {
	rating := 4
	gigs := []model.Gig{{
		Title:    "Group Therapy",
		Date:     model.ParseDate("2022-10-15"),
		Artists:  []string{"Above & Beyond", "Ilan Bluestone"},
		Venue:    model.Venue{Name: "Ally Pally", City: "London", Country: "UK"},
		Genre:    model.StringPtr("Trance"),
		Festival: true,
		Rating:   &rating,
		Notes:    "with, commas",
	}}

	path := filepath.Join(t.TempDir(), "export.csv")
	if err := WriteGigs(path, gigs); err != nil {
		t.Fatalf("WriteGigs failed: %v", err)
	}

	result, err := ReadGigs(path, 0, nil)
	if err != nil {
		t.Fatalf("ReadGigs failed: %v", err)
	}
	if result.Count != 1 {
		t.Fatalf("Count = %d", result.Count)
	}
	got := result.Gigs[0]
	if got.Title != "Group Therapy" || len(got.Artists) != 2 || !got.Festival ||
		*got.Rating != 4 || got.Notes != "with, commas" || model.Deref(got.Genre) != "Trance" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestWriteItemsAndGroups(t *testing.T) {
	items := []model.ListItem{
		{ID: 2, DisplayName: "Lane 8", Timestamp: model.ParseDate("2024-02-10"), Frequency: 3, Category: model.StringPtr("House"), Favourite: true},
		{ID: 5, DisplayName: "Yotto", Frequency: 1},
	}

	dir := t.TempDir()
	flat := filepath.Join(dir, "items.csv")
	if err := WriteItems(flat, items); err != nil {
		t.Fatalf("WriteItems failed: %v", err)
	}
	data, _ := os.ReadFile(flat)
	want := "id,name,date,count,category,favourite\n2,Lane 8,2024-02-10,3,House,true\n5,Yotto,,1,,false\n"
	if string(data) != want {
		t.Errorf("items CSV =\n%s\nwant\n%s", data, want)
	}

	grouped := filepath.Join(dir, "groups.csv")
	groups := curate.GroupByYear(items, curate.ItemLens)
	if err := WriteGroups(grouped, groups); err != nil {
		t.Fatalf("WriteGroups failed: %v", err)
	}
	data, _ = os.ReadFile(grouped)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], "2024,2,") || !strings.HasPrefix(lines[2], curate.UnknownYear+",5,") {
		t.Errorf("groups CSV = %q", lines)
	}
}

func TestSavedQueriesRoundTrip(t *testing.T) {
	entries := []SavedQueryEntry{
		{Name: "faves", Query: query.Default().WithFavouritesOnly(true)},
		{Name: "house a-z", Query: query.Default().WithCategory("House").WithSort(query.SortName, query.Ascending)},
	}
	path := filepath.Join(t.TempDir(), "queries.csv")
	if err := WriteSavedQueries(path, entries); err != nil {
		t.Fatalf("WriteSavedQueries failed: %v", err)
	}

	got, err := ReadSavedQueries(path)
	if err != nil {
		t.Fatalf("ReadSavedQueries failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries", len(got))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestReadSavedQueriesRejectsBadSort(t *testing.T) {
	path := writeTempCSV(t, "name,search,category,sort,order,favourites\nx,,All,loudness,desc,false\n")
	if _, err := ReadSavedQueries(path); err == nil {
		t.Error("expected error for unknown sort key")
	}
}
