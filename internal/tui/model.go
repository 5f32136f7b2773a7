// Package tui is an interactive terminal browser over the artist list and
// the year-grouped gig timeline. Every keystroke re-curates the library
// held in memory.
package tui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/cdtdelta/gigtrack/internal/curate"
	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/query"
)

// Source supplies the library being browsed.
type Source interface {
	ArtistLibrary() ([]model.Artist, error)
	GigLibrary() ([]model.Gig, error)
	ToggleFavourite(artistID int64) (bool, error)
}

type view int

const (
	viewArtists view = iota
	viewTimeline
)

func (v view) String() string {
	if v == viewTimeline {
		return "Timeline"
	}
	return "Artists"
}

type loadedMsg struct {
	artists []model.Artist
	gigs    []model.Gig
	err     error
}

type favouriteMsg struct {
	id        int64
	favourite bool
	err       error
}

// row is one rendered line: either a year header or a record.
type row struct {
	header string
	artist *model.Artist
	gig    *model.Gig
}

// Model is the bubbletea model of the browser.
type Model struct {
	src    Source
	styles Styles
	now    func() time.Time

	input      textinput.Model
	view       view
	query      query.Query
	categories []string
	catIdx     int

	artists []model.Artist
	gigs    []model.Gig
	rows    []row
	shown   int
	cursor  int
	loaded  bool
	err     error

	width  int
	height int
}

// New creates a browser over src, opening on the artist list.
func New(src Source) Model {
	in := textinput.New()
	in.Placeholder = "Search..."
	in.Prompt = "/ "
	in.CharLimit = 100
	in.Focus()

	return Model{
		src:    src,
		styles: DefaultStyles(),
		now:    time.Now,
		input:  in,
		query:  query.Default(),
		height: 24,
	}
}

// Query returns the query currently applied.
func (m Model) Query() query.Query {
	return m.query
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.load)
}

func (m Model) load() tea.Msg {
	artists, err := m.src.ArtistLibrary()
	if err != nil {
		return loadedMsg{err: err}
	}
	gigs, err := m.src.GigLibrary()
	return loadedMsg{artists: artists, gigs: gigs, err: err}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case loadedMsg:
		m.err = msg.err
		m.artists, m.gigs = msg.artists, msg.gigs
		m.loaded = true
		m.resetCategories()
		m.recurate()
		return m, nil

	case favouriteMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		for i := range m.artists {
			if m.artists[i].ID == msg.id {
				m.artists[i].Favourite = msg.favourite
			}
		}
		m.recurate()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			m.query = m.query.WithSort(m.query.SortKey.Next(), m.query.Direction)
			m.recurate()
			return m, nil
		case "ctrl+r":
			m.query = m.query.WithSort(m.query.SortKey, m.query.Direction.Flip())
			m.recurate()
			return m, nil
		case "ctrl+f":
			m.query = m.query.WithFavouritesOnly(!m.query.FavouritesOnly)
			m.recurate()
			return m, nil
		case "left", "right":
			m.cycleCategory(msg.String() == "right")
			m.recurate()
			return m, nil
		case "ctrl+t":
			m.view = 1 - m.view
			m.resetCategories()
			m.recurate()
			return m, nil
		case "up", "ctrl+p":
			m.moveCursor(-1)
			return m, nil
		case "down", "ctrl+n":
			m.moveCursor(1)
			return m, nil
		case "enter":
			return m, m.toggleSelected()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != m.query.SearchText {
		m.query = m.query.WithSearch(m.input.Value())
		m.recurate()
	}
	return m, cmd
}

func (m *Model) resetCategories() {
	if m.view == viewTimeline {
		m.categories = curate.Categories(m.gigs, curate.GigYearLens)
		// Year chips read newest first.
		slices.SortFunc(m.categories[1:], func(a, b string) int { return strings.Compare(b, a) })
	} else {
		m.categories = curate.Categories(m.artists, curate.ArtistLens)
	}
	m.catIdx = 0
	m.query = m.query.WithCategory(query.AllCategories)
}

func (m *Model) cycleCategory(forward bool) {
	n := len(m.categories)
	if n == 0 {
		return
	}
	if forward {
		m.catIdx = (m.catIdx + 1) % n
	} else {
		m.catIdx = (m.catIdx + n - 1) % n
	}
	m.query = m.query.WithCategory(m.categories[m.catIdx])
}

// recurate rebuilds the visible rows from the library and the query.
func (m *Model) recurate() {
	m.rows = nil
	m.shown = 0
	if m.view == viewTimeline {
		res := curate.Curate(m.gigs, m.query, true, curate.GigYearLens)
		for _, g := range res.Groups {
			m.rows = append(m.rows, row{header: g.Key})
			for i := range g.Items {
				m.rows = append(m.rows, row{gig: &g.Items[i]})
			}
		}
		m.shown = len(res.Items)
	} else {
		res := curate.Curate(m.artists, m.query, false, curate.ArtistLens)
		for i := range res.Items {
			m.rows = append(m.rows, row{artist: &res.Items[i]})
		}
		m.shown = len(res.Items)
	}
	m.cursor = 0
	m.moveCursor(0)
}

// moveCursor steps over year headers.
func (m *Model) moveCursor(delta int) {
	if len(m.rows) == 0 {
		m.cursor = 0
		return
	}
	step := delta
	if step == 0 {
		step = 1
	}
	next := m.cursor + delta
	for next >= 0 && next < len(m.rows) && m.rows[next].header != "" {
		next += step
	}
	if next >= 0 && next < len(m.rows) {
		m.cursor = next
	}
}

func (m Model) selected() *row {
	if m.cursor < 0 || m.cursor >= len(m.rows) || m.rows[m.cursor].header != "" {
		return nil
	}
	return &m.rows[m.cursor]
}

func (m Model) toggleSelected() tea.Cmd {
	r := m.selected()
	if r == nil || r.artist == nil {
		return nil
	}
	id, src := r.artist.ID, m.src
	return func() tea.Msg {
		fav, err := src.ToggleFavourite(id)
		return favouriteMsg{id: id, favourite: fav, err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("gigtrack · " + m.view.String()))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.renderChips())
	b.WriteString("\n")
	b.WriteString(m.renderSort())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(m.styles.Error.Render("error: " + m.err.Error()))
	case !m.loaded:
		b.WriteString(m.styles.Meta.Render("Loading library..."))
	case len(m.rows) == 0:
		b.WriteString(m.styles.Meta.Render("Nothing matches."))
	default:
		b.WriteString(m.renderRows())
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render("tab sort · ctrl+r order · ctrl+f favourites · ←/→ chip · ctrl+t view · enter ♥ · esc quit"))
	return b.String()
}

func (m Model) renderChips() string {
	chips := make([]string, len(m.categories))
	for i, c := range m.categories {
		if i == m.catIdx {
			chips[i] = m.styles.ChipOn.Render(c)
		} else {
			chips[i] = m.styles.Chip.Render(c)
		}
	}
	return strings.Join(chips, " ")
}

func (m Model) renderSort() string {
	arrow := "↓"
	if m.query.Direction == query.Ascending {
		arrow = "↑"
	}
	s := fmt.Sprintf("sorted by %s %s · %d shown", m.query.SortKey, arrow, m.shown)
	if m.query.FavouritesOnly {
		s += " · favourites only"
	}
	return m.styles.Sort.Render(s)
}

// renderRows draws a window of rows that keeps the cursor visible.
func (m Model) renderRows() string {
	visible := max(m.height-9, 3)
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(m.rows))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		r := m.rows[i]
		var line string
		switch {
		case r.header != "":
			lines = append(lines, m.styles.Year.Render(r.header))
			continue
		case r.artist != nil:
			line = m.artistLine(r.artist)
		default:
			line = m.gigLine(r.gig)
		}
		if i == m.cursor {
			lines = append(lines, m.styles.Selected.Render(line))
		} else {
			lines = append(lines, m.styles.Row.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) artistLine(a *model.Artist) string {
	name := a.Name
	if a.Favourite {
		name += " " + m.styles.Favourite.Render("♥")
	}
	meta := fmt.Sprintf("seen %s", timesSeen(a.TimesSeen))
	if a.LastSeen != nil {
		meta += ", last " + humanize.RelTime(*a.LastSeen, m.now(), "ago", "from now")
	}
	if a.Genre != nil {
		meta += " · " + *a.Genre
	}
	return name + "  " + m.styles.Meta.Render(meta)
}

func (m Model) gigLine(g *model.Gig) string {
	date := model.FormatDate(g.Date)
	if date == "" {
		date = "undated"
	}
	meta := date
	if venue := g.Venue.Label(); venue != "" {
		meta += " · " + venue
	}
	if g.Festival {
		meta += " · festival"
	}
	return g.DisplayName() + "  " + m.styles.Meta.Render(meta)
}

func timesSeen(n int) string {
	if n == 1 {
		return "once"
	}
	return humanize.Comma(int64(n)) + " times"
}
