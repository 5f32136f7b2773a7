// Package addflow drives the "add a gig" interaction: type an artist name,
// pick a suggestion, narrow by location and year, tick the gigs attended
// and submit them in one request.
package addflow

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bep/debounce"

	"github.com/cdtdelta/gigtrack/internal/logging"
	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/remote"
)

var (
	ErrNoSelection = errors.New("no gigs selected")
	ErrNoArtist    = errors.New("no artist selected")
	// ErrSuperseded is returned by a gig lookup that finished after a newer
	// one started. Its results are discarded.
	ErrSuperseded = errors.New("gig lookup superseded")
)

// Backend is the subset of the remote client the flow needs.
type Backend interface {
	SearchArtists(ctx context.Context, q string) ([]model.Artist, error)
	SearchGigs(ctx context.Context, s remote.GigSearch) ([]remote.GigResult, error)
	BulkAdd(ctx context.Context, gigIDs []int64) (*remote.BulkAddResult, error)
}

type Options struct {
	// Debounce delays the artist search until typing pauses.
	Debounce time.Duration
	// MinChars is the trimmed query length below which no search runs.
	MinChars int
	// OnSuggestions receives each settled suggestion list. A nil slice
	// means suggestions were cleared. It is called without the flow lock
	// held, from the debounce timer goroutine or the caller's goroutine.
	OnSuggestions func(query string, suggestions []model.Artist, err error)
}

// Flow holds the state of one add-gig session. It is safe for concurrent use.
type Flow struct {
	backend  Backend
	log      logging.Logger
	minChars int
	debounce func(func())
	notify   func(string, []model.Artist, error)

	// ctx bounds the debounced searches.
	ctx context.Context

	mu          sync.Mutex
	query       string
	seq         uint64
	suggestions []model.Artist
	artist      *model.Artist
	location    string
	year        string
	gigSeq      uint64
	gigs        []remote.GigResult
	selected    map[int64]bool
}

// New starts a session. Debounced searches run with ctx.
func New(ctx context.Context, backend Backend, opts Options, log logging.Logger) *Flow {
	if log == nil {
		log = logging.Discard()
	}
	if opts.MinChars < 1 {
		opts.MinChars = 1
	}
	notify := opts.OnSuggestions
	if notify == nil {
		notify = func(string, []model.Artist, error) {}
	}
	return &Flow{
		backend:  backend,
		log:      log.With("component", "addflow"),
		minChars: opts.MinChars,
		debounce: debounce.New(opts.Debounce),
		notify:   notify,
		ctx:      ctx,
		selected: make(map[int64]bool),
	}
}

// SetArtistQuery records the artist search text. Short queries clear the
// suggestions immediately; longer ones schedule a debounced search whose
// result is dropped if the text changes before it returns.
func (f *Flow) SetArtistQuery(text string) {
	f.mu.Lock()
	f.query = text
	f.seq++
	seq := f.seq
	trimmed := strings.TrimSpace(text)
	short := utf8.RuneCountInString(trimmed) < f.minChars
	if short {
		f.suggestions = nil
	}
	f.mu.Unlock()

	if short {
		f.notify(text, nil, nil)
		return
	}
	f.debounce(func() { f.searchArtists(text, trimmed, seq) })
}

func (f *Flow) searchArtists(text, trimmed string, seq uint64) {
	artists, err := f.backend.SearchArtists(f.ctx, trimmed)

	f.mu.Lock()
	if seq != f.seq {
		f.mu.Unlock()
		return
	}
	if err != nil {
		f.log.Warn("artist search failed", "query", trimmed, "err", err)
	} else {
		f.suggestions = artists
	}
	f.mu.Unlock()

	f.notify(text, artists, err)
}

// Suggestions returns the current artist suggestions.
func (f *Flow) Suggestions() []model.Artist {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.suggestions)
}

// SelectArtist picks a suggestion, clears the gig selection and looks up
// the artist's gigs with the current filters.
func (f *Flow) SelectArtist(ctx context.Context, a model.Artist) ([]remote.GigResult, error) {
	f.mu.Lock()
	f.artist = &a
	f.query = a.Name
	f.seq++ // drop any in-flight suggestion search
	f.suggestions = nil
	f.selected = make(map[int64]bool)
	f.mu.Unlock()

	return f.lookupGigs(ctx)
}

// SetFilters changes the location and year and repeats the gig lookup.
func (f *Flow) SetFilters(ctx context.Context, location, year string) ([]remote.GigResult, error) {
	f.mu.Lock()
	f.location = strings.TrimSpace(location)
	f.year = strings.TrimSpace(year)
	hasArtist := f.artist != nil
	f.mu.Unlock()

	if !hasArtist {
		return nil, ErrNoArtist
	}
	return f.lookupGigs(ctx)
}

func (f *Flow) lookupGigs(ctx context.Context) ([]remote.GigResult, error) {
	f.mu.Lock()
	if f.artist == nil {
		f.mu.Unlock()
		return nil, ErrNoArtist
	}
	search := remote.GigSearch{ArtistID: f.artist.RemoteID, Location: f.location, Year: f.year}
	f.gigSeq++
	seq := f.gigSeq
	f.mu.Unlock()

	results, err := f.backend.SearchGigs(ctx, search)

	f.mu.Lock()
	if seq != f.gigSeq {
		f.mu.Unlock()
		f.log.Debug("dropping stale gig lookup", "artist_id", search.ArtistID, "location", search.Location)
		return nil, ErrSuperseded
	}
	if err != nil {
		f.gigs = nil
		f.mu.Unlock()
		return nil, err
	}
	f.gigs = results
	// Selections that are no longer listed are dropped.
	listed := make(map[int64]bool, len(results))
	for _, r := range results {
		listed[r.Gig.RemoteID] = true
	}
	for id := range f.selected {
		if !listed[id] {
			delete(f.selected, id)
		}
	}
	f.mu.Unlock()

	f.log.Debug("gig lookup", "artist_id", search.ArtistID, "location", search.Location,
		"year", search.Year, "results", len(results))
	return slices.Clone(results), nil
}

// Gigs returns the last gig lookup results.
func (f *Flow) Gigs() []remote.GigResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.gigs)
}

// Toggle flips the selection of a listed gig and returns whether it is now
// selected. Gigs already attended, or not in the results, cannot be selected.
func (f *Flow) Toggle(gigID int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := slices.IndexFunc(f.gigs, func(r remote.GigResult) bool { return r.Gig.RemoteID == gigID })
	if idx < 0 || f.gigs[idx].AlreadyAttended {
		return false
	}
	if f.selected[gigID] {
		delete(f.selected, gigID)
		return false
	}
	f.selected[gigID] = true
	return true
}

// Selected returns the selected gig ids in ascending order.
func (f *Flow) Selected() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.selected))
	for id := range f.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SelectedGigs returns the selected gig records in result order, with the
// chosen artist as lineup where the result carried none.
func (f *Flow) SelectedGigs() []model.Gig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Gig
	for _, r := range f.gigs {
		if !f.selected[r.Gig.RemoteID] {
			continue
		}
		g := r.Gig
		if len(g.Artists) == 0 && f.artist != nil {
			g.Artists = []string{f.artist.Name}
		}
		out = append(out, g)
	}
	return out
}

// Confirm submits the selected gigs. On success with at least one gig
// created the selection is cleared.
func (f *Flow) Confirm(ctx context.Context) (*remote.BulkAddResult, error) {
	ids := f.Selected()
	if len(ids) == 0 {
		return nil, ErrNoSelection
	}

	res, err := f.backend.BulkAdd(ctx, ids)
	if err != nil {
		return nil, err
	}
	f.log.Info("gigs submitted", "selected", len(ids), "created", res.Created, "errors", len(res.Errors))

	if res.Created > 0 {
		f.mu.Lock()
		f.selected = make(map[int64]bool)
		f.mu.Unlock()
	}
	return res, nil
}
