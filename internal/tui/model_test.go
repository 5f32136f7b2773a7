package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/query"
)

type fakeSource struct {
	artists []model.Artist
	gigs    []model.Gig
	err     error
	toggled []int64
}

func (f *fakeSource) ArtistLibrary() ([]model.Artist, error) { return f.artists, f.err }
func (f *fakeSource) GigLibrary() ([]model.Gig, error)       { return f.gigs, nil }

func (f *fakeSource) ToggleFavourite(id int64) (bool, error) {
	f.toggled = append(f.toggled, id)
	return true, nil
}

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func newSource() *fakeSource {
	rock, electronic := "Rock", "Electronic"
	return &fakeSource{
		artists: []model.Artist{
			{ID: 1, Name: "Arctic Monkeys", Genre: &rock, TimesSeen: 3, LastSeen: day("2023-06-01")},
			{ID: 2, Name: "Bicep", Genre: &electronic, TimesSeen: 1, LastSeen: day("2024-02-10"), Favourite: true},
			{ID: 3, Name: "Wet Leg", Genre: &rock, TimesSeen: 2, LastSeen: day("2022-09-30")},
		},
		gigs: []model.Gig{
			{ID: 10, Title: "Glastonbury", Date: day("2024-06-28"), Festival: true},
			{ID: 11, Title: "Brixton night", Date: day("2023-11-04"), Venue: model.Venue{Name: "O2 Academy", City: "London"}},
			{ID: 12, Title: "Lost ticket"},
		},
	}
}

// loaded returns a model with the library delivered.
func loaded(t *testing.T, src Source) Model {
	t.Helper()
	m := New(src)
	m.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return send(t, m, m.load())
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return out
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func artistNames(m Model) []string {
	var names []string
	for _, r := range m.rows {
		if r.artist != nil {
			names = append(names, r.artist.Name)
		}
	}
	return names
}

func equal(a, b []string) bool {
	return strings.Join(a, "|") == strings.Join(b, "|")
}

func TestLoadedOpensOnArtistsByRecency(t *testing.T) {
	m := loaded(t, newSource())

	if m.Query() != query.Default() {
		t.Errorf("Query() = %+v, want default", m.Query())
	}
	want := []string{"Bicep", "Arctic Monkeys", "Wet Leg"}
	if got := artistNames(m); !equal(got, want) {
		t.Errorf("artists = %v, want %v", got, want)
	}
	if got := strings.Join(m.categories, ","); got != "All,Rock,Electronic" {
		t.Errorf("categories = %s", got)
	}
}

func TestTypingFiltersEveryKeystroke(t *testing.T) {
	m := loaded(t, newSource())

	m = typeText(t, m, "c")
	if got := artistNames(m); !equal(got, []string{"Bicep", "Arctic Monkeys"}) {
		t.Errorf("after 'c': %v", got)
	}
	m = typeText(t, m, "E")
	if got := artistNames(m); !equal(got, []string{"Bicep"}) {
		t.Errorf("after 'cE': %v", got)
	}
	if m.Query().SearchText != "cE" {
		t.Errorf("SearchText = %q", m.Query().SearchText)
	}

	m = send(t, m, key(tea.KeyBackspace))
	m = send(t, m, key(tea.KeyBackspace))
	if got := artistNames(m); len(got) != 3 {
		t.Errorf("cleared search shows %v", got)
	}
}

func TestSortKeysAndDirection(t *testing.T) {
	m := loaded(t, newSource())

	m = send(t, m, key(tea.KeyTab))
	if m.Query().SortKey == query.SortRecency {
		t.Fatal("tab did not change the sort key")
	}

	for m.Query().SortKey != query.SortFrequency {
		m = send(t, m, key(tea.KeyTab))
	}
	if got := artistNames(m); !equal(got, []string{"Arctic Monkeys", "Wet Leg", "Bicep"}) {
		t.Errorf("by frequency: %v", got)
	}

	m = send(t, m, key(tea.KeyCtrlR))
	if m.Query().Direction != query.Ascending {
		t.Errorf("Direction = %s, want ascending", m.Query().Direction)
	}
	if got := artistNames(m); !equal(got, []string{"Bicep", "Wet Leg", "Arctic Monkeys"}) {
		t.Errorf("by frequency ascending: %v", got)
	}
}

func TestFavouritesAndChips(t *testing.T) {
	m := loaded(t, newSource())

	m = send(t, m, key(tea.KeyCtrlF))
	if got := artistNames(m); !equal(got, []string{"Bicep"}) {
		t.Errorf("favourites only: %v", got)
	}
	m = send(t, m, key(tea.KeyCtrlF))

	m = send(t, m, key(tea.KeyRight))
	if m.Query().Category != "Rock" {
		t.Errorf("Category = %q, want Rock", m.Query().Category)
	}
	if got := artistNames(m); !equal(got, []string{"Arctic Monkeys", "Wet Leg"}) {
		t.Errorf("Rock chip: %v", got)
	}

	m = send(t, m, key(tea.KeyLeft))
	m = send(t, m, key(tea.KeyLeft))
	if m.Query().Category != "Electronic" {
		t.Errorf("left wraps to %q, want Electronic", m.Query().Category)
	}
}

func TestTimelineGroupsByYear(t *testing.T) {
	m := loaded(t, newSource())
	m = send(t, m, key(tea.KeyRight))
	m = send(t, m, key(tea.KeyCtrlT))

	if m.view != viewTimeline {
		t.Fatal("ctrl+t did not switch to the timeline")
	}
	if m.Query().Category != query.AllCategories {
		t.Errorf("switching view kept category %q", m.Query().Category)
	}
	if got := strings.Join(m.categories, ","); got != "All,2024,2023" {
		t.Errorf("year chips = %s", got)
	}

	var headers []string
	for _, r := range m.rows {
		if r.header != "" {
			headers = append(headers, r.header)
		}
	}
	if got := strings.Join(headers, ","); got != "2024,2023,Unknown" {
		t.Errorf("headers = %s", got)
	}
	if m.rows[m.cursor].gig == nil || m.rows[m.cursor].gig.ID != 10 {
		t.Errorf("cursor should rest on the first gig, got row %d", m.cursor)
	}

	m = send(t, m, key(tea.KeyDown))
	if m.rows[m.cursor].gig == nil || m.rows[m.cursor].gig.ID != 11 {
		t.Errorf("down should skip the year header, got row %d", m.cursor)
	}

	view := m.View()
	for _, want := range []string{"Timeline", "Glastonbury", "O2 Academy, London", "undated"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestEnterTogglesFavourite(t *testing.T) {
	src := newSource()
	m := loaded(t, src)
	m = send(t, m, key(tea.KeyDown))

	next, cmd := m.Update(key(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("enter on an artist returned no command")
	}
	m = send(t, next.(Model), cmd())
	if len(src.toggled) != 1 || src.toggled[0] != 1 {
		t.Fatalf("toggled = %v, want [1]", src.toggled)
	}
	for _, a := range m.artists {
		if a.ID == 1 && !a.Favourite {
			t.Error("artist 1 should now be a favourite")
		}
	}
}

func TestViewRendersArtistMeta(t *testing.T) {
	m := loaded(t, newSource())
	view := m.View()
	for _, want := range []string{"Artists", "Bicep", "seen once", "3 times", "sorted by recency"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestLoadError(t *testing.T) {
	src := newSource()
	src.err = errors.New("no database open")
	m := loaded(t, src)
	if !strings.Contains(m.View(), "no database open") {
		t.Error("View() should show the load error")
	}
}

func TestEscQuits(t *testing.T) {
	m := loaded(t, newSource())
	_, cmd := m.Update(key(tea.KeyEsc))
	if cmd == nil {
		t.Fatal("esc returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("esc should quit")
	}
}
