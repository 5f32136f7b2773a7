package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"

	"github.com/cdtdelta/gigtrack/internal/achievements"
	"github.com/cdtdelta/gigtrack/internal/addflow"
	"github.com/cdtdelta/gigtrack/internal/config"
	"github.com/cdtdelta/gigtrack/internal/csvparser"
	"github.com/cdtdelta/gigtrack/internal/curate"
	"github.com/cdtdelta/gigtrack/internal/database"
	"github.com/cdtdelta/gigtrack/internal/jsonlparser"
	"github.com/cdtdelta/gigtrack/internal/logging"
	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/payload"
	"github.com/cdtdelta/gigtrack/internal/query"
	"github.com/cdtdelta/gigtrack/internal/remote"
)

var (
	ErrNoDatabase = errors.New("no database open")
	ErrNoRemote   = errors.New("no remote API configured (set api.base_url)")
)

// Views accepted by ExportView.
const (
	ViewArtists  = "artists"
	ViewGigs     = "gigs"
	ViewTimeline = "timeline"
	ViewVenues   = "venues"
)

// App is the application facade. The CLI, the HTTP server and the TUI
// all go through it.
type App struct {
	cfg *config.Config
	log logging.Logger
	db  database.Store
	api *remote.Client
}

// NewApp creates a new App. The remote client is built only when an API
// base URL is configured.
func NewApp(cfg *config.Config, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Discard()
	}
	a := &App{cfg: cfg, log: log}
	if cfg.API.BaseURL != "" {
		api, err := remote.New(remote.Config{
			BaseURL:       cfg.API.BaseURL,
			Username:      cfg.API.Username,
			Password:      cfg.API.Password,
			Timeout:       cfg.API.Timeout,
			RatePerSecond: cfg.API.RatePerSecond,
			Retries:       cfg.API.Retries,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("configuring remote API: %w", err)
		}
		a.api = api
	}
	return a, nil
}

// -- Database Operations --

// OpenDatabase opens the configured store, creating the schema when the
// SQLite file does not exist yet. PostgreSQL schemas are always ensured.
func (a *App) OpenDatabase() (*DBInfo, error) {
	return a.loadDatabase(a.cfg.Database.Driver, a.cfg.Database.DSN)
}

// CloseDatabase closes the current database.
func (a *App) CloseDatabase() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("closing database", "err", err)
		}
		a.db = nil
	}
}

// DBInfo contains summary info about the loaded database.
type DBInfo struct {
	Path     string                `json:"path"`
	Driver   string                `json:"driver"`
	GigCount int64                 `json:"gigCount"`
	Years    []database.YearBucket `json:"years"`
}

func (a *App) loadDatabase(driver, dsn string) (*DBInfo, error) {
	a.CloseDatabase()

	var (
		db  database.Store
		err error
	)
	if driver == "sqlite" && !fileExists(dsn) {
		a.log.Info("creating database", "path", dsn)
		db, err = database.CreateStore(driver, dsn)
	} else if driver == "postgres" {
		db, err = database.CreateStore(driver, dsn)
	} else {
		db, err = database.OpenStore(driver, dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a.db = db
	return a.getDBInfo()
}

func (a *App) getDBInfo() (*DBInfo, error) {
	years, err := a.db.GigsPerYear()
	if err != nil {
		return nil, err
	}
	var count int64
	for _, y := range years {
		count += y.Count
	}
	return &DBInfo{
		Path:     a.db.Path(),
		Driver:   a.cfg.Database.Driver,
		GigCount: count,
		Years:    years,
	}, nil
}

func (a *App) store() (database.Store, error) {
	if a.db == nil {
		return nil, ErrNoDatabase
	}
	return a.db, nil
}

// -- File Operations --

// ImportSummary reports the outcome of an import.
type ImportSummary struct {
	Path     string `json:"path"`
	Read     int    `json:"read"`
	Excluded int    `json:"excluded"`
	Created  int    `json:"created"`
	Artists  int    `json:"artists"`
}

// Progress receives import progress. Phase is "reading", "inserting" or
// "done"; total is zero while the total is not yet known.
type Progress func(phase string, count, total int)

// Import reads a CSV or JSONL gig history, chosen by extension, and adds
// it to the library. Records already in the library are skipped.
func (a *App) Import(path string, progress Progress) (*ImportSummary, error) {
	db, err := a.store()
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = func(string, int, int) {}
	}

	reading := func(count int) { progress("reading", count, 0) }
	summary := &ImportSummary{Path: path}
	var (
		gigs    []*model.Gig
		artists []model.Artist
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		if err := csvparser.ValidateHeader(path); err != nil {
			return nil, fmt.Errorf("invalid CSV file: %w", err)
		}
		result, err := csvparser.ReadGigs(path, 0, reading)
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		gigs, summary.Read, summary.Excluded = result.Gigs, result.Count, result.Excluded
	case ".jsonl", ".ndjson":
		if err := jsonlparser.ValidateFile(path); err != nil {
			return nil, fmt.Errorf("invalid JSONL file: %w", err)
		}
		result, err := jsonlparser.ReadFile(path, reading)
		if err != nil {
			return nil, fmt.Errorf("reading JSONL: %w", err)
		}
		gigs, artists = result.Gigs, result.Artists
		summary.Read, summary.Excluded = result.Count, result.Excluded
	default:
		return nil, fmt.Errorf("unsupported import file %q: expected .csv or .jsonl", path)
	}

	progress("reading", summary.Read, summary.Read)

	for i := range artists {
		if _, err := db.UpsertArtist(&artists[i]); err != nil {
			return nil, fmt.Errorf("importing artist %q: %w", artists[i].Name, err)
		}
	}
	summary.Artists = len(artists)

	total := len(gigs)
	progress("inserting", 0, total)
	created, err := db.InsertGigs(gigs, func(count int) {
		progress("inserting", count, total)
	})
	if err != nil {
		return nil, fmt.Errorf("inserting gigs: %w", err)
	}
	summary.Created = created
	progress("done", total, total)

	a.log.Info("import complete", "path", path, "read", summary.Read,
		"created", created, "excluded", summary.Excluded, "artists", summary.Artists)
	return summary, nil
}

// ExportGigs writes the gigs in scope in import format, CSV or JSONL by
// extension, oldest first. It returns the number of gigs written.
func (a *App) ExportGigs(path string, scope query.Scope) (int, error) {
	gigs, err := a.scopedGigs(scope, "gig_date")
	if err != nil {
		return 0, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		err = csvparser.WriteGigs(path, gigs)
	case ".jsonl", ".ndjson":
		err = jsonlparser.WriteGigs(path, gigs)
	default:
		return 0, fmt.Errorf("unsupported export file %q: expected .csv or .jsonl", path)
	}
	if err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	a.log.Info("exported gigs", "path", path, "count", len(gigs))
	return len(gigs), nil
}

// ExportView writes a curated view as CSV. The timeline is written with a
// leading year column. scope narrows the gig views. It returns the number
// of rows written.
func (a *App) ExportView(path, view string, q query.Query, scope query.Scope) (int, error) {
	var (
		items []model.ListItem
		err   error
	)
	switch view {
	case ViewArtists:
		var res curate.Result[model.Artist]
		if res, err = a.Artists(q); err == nil {
			items = lo.Map(res.Items, func(ar model.Artist, _ int) model.ListItem { return ar.ListItem() })
			err = csvparser.WriteItems(path, items)
		}
	case ViewGigs:
		var res curate.Result[model.Gig]
		if res, err = a.Gigs(q, scope); err == nil {
			items = lo.Map(res.Items, func(g model.Gig, _ int) model.ListItem { return g.ListItem() })
			err = csvparser.WriteItems(path, items)
		}
	case ViewTimeline:
		var res curate.Result[model.Gig]
		if res, err = a.Timeline(q, scope); err == nil {
			groups := lo.Map(res.Groups, func(g curate.Group[model.Gig], _ int) curate.Group[model.ListItem] {
				return curate.Group[model.ListItem]{
					Key:   g.Key,
					Items: lo.Map(g.Items, func(gig model.Gig, _ int) model.ListItem { return gig.ListItem() }),
				}
			})
			items = curate.Flatten(groups)
			err = csvparser.WriteGroups(path, groups)
		}
	case ViewVenues:
		var res curate.Result[model.Venue]
		if res, err = a.Venues(q, curate.VenuesByCountry); err == nil {
			items = lo.Map(res.Items, func(v model.Venue, _ int) model.ListItem { return v.ListItem() })
			err = csvparser.WriteItems(path, items)
		}
	default:
		return 0, fmt.Errorf("unknown view %q", view)
	}
	if err != nil {
		return 0, err
	}
	a.log.Info("exported view", "view", view, "path", path, "count", len(items))
	return len(items), nil
}

// -- Curated Views --

// Artists returns the artists seen, filtered and sorted by q.
func (a *App) Artists(q query.Query) (curate.Result[model.Artist], error) {
	artists, err := a.ArtistLibrary()
	if err != nil {
		return curate.Result[model.Artist]{}, err
	}
	return curate.Curate(artists, q, false, curate.ArtistLens), nil
}

// ArtistLibrary returns every artist seen, uncurated.
func (a *App) ArtistLibrary() ([]model.Artist, error) {
	db, err := a.store()
	if err != nil {
		return nil, err
	}
	artists, err := db.ListArtistsSeen()
	if err != nil {
		return nil, fmt.Errorf("listing artists: %w", err)
	}
	return artists, nil
}

// Gigs returns the gigs in scope, filtered by genre chip and sorted by q.
func (a *App) Gigs(q query.Query, scope query.Scope) (curate.Result[model.Gig], error) {
	gigs, err := a.scopedGigs(scope, "")
	if err != nil {
		return curate.Result[model.Gig]{}, err
	}
	return curate.Curate(gigs, q, false, curate.GigLens), nil
}

// Timeline returns the gigs in scope grouped by year. The category of q
// selects a single year chip; scope.Year narrows the store query instead.
func (a *App) Timeline(q query.Query, scope query.Scope) (curate.Result[model.Gig], error) {
	gigs, err := a.scopedGigs(scope, "")
	if err != nil {
		return curate.Result[model.Gig]{}, err
	}
	return curate.Curate(gigs, q, true, curate.GigYearLens), nil
}

// GigLibrary returns every gig, uncurated.
func (a *App) GigLibrary() ([]model.Gig, error) {
	return a.scopedGigs(query.Scope{}, "")
}

// scopedGigs loads the gigs matching scope, in insertion order unless
// orderBy names a gig column.
func (a *App) scopedGigs(scope query.Scope, orderBy string) ([]model.Gig, error) {
	db, err := a.store()
	if err != nil {
		return nil, err
	}
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	sel := scope.Selection()
	if err := sel.OrderBy(orderBy); err != nil {
		return nil, err
	}
	if !scope.IsZero() {
		a.log.Debug("loading gigs", "fields", sel.Fields())
	}
	gigs, err := db.ListGigs(sel)
	if err != nil {
		return nil, fmt.Errorf("listing gigs: %w", err)
	}
	return gigs, nil
}

// Venues returns the venues visited, filtered and sorted by q. by picks
// what the category chip matches: curate.VenuesByCountry or
// curate.VenuesByCity.
func (a *App) Venues(q query.Query, by string) (curate.Result[model.Venue], error) {
	lens, err := curate.VenueLensBy(by)
	if err != nil {
		return curate.Result[model.Venue]{}, err
	}
	venues, err := a.VenueLibrary()
	if err != nil {
		return curate.Result[model.Venue]{}, err
	}
	return curate.Curate(venues, q, false, lens), nil
}

// VenueLibrary returns every venue with its visit counts, uncurated.
func (a *App) VenueLibrary() ([]model.Venue, error) {
	db, err := a.store()
	if err != nil {
		return nil, err
	}
	venues, err := db.ListVenuesVisited()
	if err != nil {
		return nil, fmt.Errorf("listing venues: %w", err)
	}
	return venues, nil
}

// Locations returns the venue drill-down: countries, then cities, then
// the venues visited in each.
func (a *App) Locations() ([]model.Location, error) {
	venues, err := a.VenueLibrary()
	if err != nil {
		return nil, err
	}
	return curate.Locations(venues), nil
}

// Highlights holds the home screen carousels.
type Highlights struct {
	MostSeen   []model.Artist `json:"mostSeen"`
	MostRecent []model.Artist `json:"mostRecent"`
}

// Highlights returns the five most seen and three most recently seen artists.
func (a *App) Highlights() (*Highlights, error) {
	artists, err := a.ArtistLibrary()
	if err != nil {
		return nil, err
	}
	return &Highlights{
		MostSeen:   curate.Top(artists, query.SortFrequency, 5, curate.ArtistLens),
		MostRecent: curate.Top(artists, query.SortRecency, 3, curate.ArtistLens),
	}, nil
}

// -- Metadata Operations --

// Genres returns the genre chips: "All" and every genre in the library.
func (a *App) Genres() ([]string, error) {
	db, err := a.store()
	if err != nil {
		return nil, err
	}
	genres, err := db.DistinctGenres()
	if err != nil {
		return nil, fmt.Errorf("listing genres: %w", err)
	}
	return append([]string{query.AllCategories}, genres...), nil
}

// YearHistogram returns gig counts per year.
func (a *App) YearHistogram() ([]database.YearBucket, error) {
	db, err := a.store()
	if err != nil {
		return nil, err
	}
	return db.GigsPerYear()
}

// Stats returns the counters derived from the gig history.
func (a *App) Stats() (achievements.Stats, error) {
	gigs, err := a.GigLibrary()
	if err != nil {
		return achievements.Stats{}, err
	}
	return achievements.Compute(gigs), nil
}

// Achievements returns progress on every milestone.
func (a *App) Achievements() ([]achievements.Achievement, error) {
	stats, err := a.Stats()
	if err != nil {
		return nil, err
	}
	return achievements.Evaluate(stats), nil
}

// -- Artist Operations --

// ToggleFavourite flips an artist's favourite flag and returns the new value.
func (a *App) ToggleFavourite(artistID int64) (bool, error) {
	db, err := a.store()
	if err != nil {
		return false, err
	}
	fav, err := db.ToggleFavourite(artistID)
	if err != nil {
		return false, err
	}
	a.log.Debug("toggled favourite", "artist", artistID, "favourite", fav)
	return fav, nil
}

// Artist returns an artist with their gig history.
func (a *App) Artist(id int64) (*model.ArtistDetail, error) {
	db, err := a.store()
	if err != nil {
		return nil, err
	}
	artist, err := db.GetArtist(id)
	if err != nil {
		return nil, err
	}
	gigs, err := a.GigLibrary()
	if err != nil {
		return nil, err
	}
	played := lo.Filter(gigs, func(g model.Gig, _ int) bool {
		return lo.ContainsBy(g.Artists, func(name string) bool { return strings.EqualFold(name, artist.Name) })
	})
	return &model.ArtistDetail{
		Artist: *artist,
		Gigs:   curate.Sort(played, query.SortRecency, query.Descending, curate.GigLens),
	}, nil
}

// -- Saved Queries --

// GetSavedQueries returns all saved queries.
func (a *App) GetSavedQueries() ([]database.SavedQuery, error) {
	db, err := a.store()
	if err != nil {
		return nil, err
	}
	return db.GetSavedQueries()
}

// SaveQuery stores a named query, replacing any query with the same name.
func (a *App) SaveQuery(name string, q query.Query) error {
	db, err := a.store()
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("query name is required")
	}
	return db.SaveQuery(name, q)
}

// DeleteSavedQuery removes a saved query.
func (a *App) DeleteSavedQuery(name string) error {
	db, err := a.store()
	if err != nil {
		return err
	}
	return db.DeleteQuery(name)
}

// SavedQuery looks up one saved query by name.
func (a *App) SavedQuery(name string) (query.Query, error) {
	saved, err := a.GetSavedQueries()
	if err != nil {
		return query.Query{}, err
	}
	for _, s := range saved {
		if s.Name == name {
			return s.Query, nil
		}
	}
	return query.Query{}, fmt.Errorf("saved query %q: %w", name, database.ErrNotFound)
}

// ImportSavedQueries loads saved queries from a CSV file and returns how
// many were stored.
func (a *App) ImportSavedQueries(path string) (int, error) {
	entries, err := csvparser.ReadSavedQueries(path)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := a.SaveQuery(e.Name, e.Query); err != nil {
			return 0, fmt.Errorf("saving query %q: %w", e.Name, err)
		}
	}
	return len(entries), nil
}

// ExportSavedQueries writes all saved queries to a CSV file.
func (a *App) ExportSavedQueries(path string) (int, error) {
	saved, err := a.GetSavedQueries()
	if err != nil {
		return 0, err
	}
	entries := lo.Map(saved, func(s database.SavedQuery, _ int) csvparser.SavedQueryEntry {
		return csvparser.SavedQueryEntry{Name: s.Name, Query: s.Query}
	})
	if err := csvparser.WriteSavedQueries(path, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// -- Remote Operations --

// SyncSummary reports the outcome of a pull from the remote API.
type SyncSummary struct {
	Artists int `json:"artists"`
	Venues  int `json:"venues"`
	Gigs    int `json:"gigs"`
	Created int `json:"created"`
}

// Sync pulls the artists seen, the venues visited and the attended gigs
// from the remote API into the local library. A backend without the
// venues endpoint is skipped.
func (a *App) Sync(ctx context.Context) (*SyncSummary, error) {
	db, err := a.store()
	if err != nil {
		return nil, err
	}
	if a.api == nil {
		return nil, ErrNoRemote
	}

	artists, err := a.api.ArtistsSeen(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching artists seen: %w", err)
	}
	for i := range artists {
		if _, err := db.UpsertArtist(&artists[i]); err != nil {
			return nil, fmt.Errorf("storing artist %q: %w", artists[i].Name, err)
		}
	}

	venues, err := a.api.VenuesVisited(ctx)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		a.log.Warn("remote API has no venues endpoint, skipping venues")
	case err != nil:
		return nil, fmt.Errorf("fetching venues visited: %w", err)
	}
	for i := range venues {
		if _, err := db.UpsertVenue(&venues[i]); err != nil {
			return nil, fmt.Errorf("storing venue %q: %w", venues[i].Name, err)
		}
	}

	gigs, err := a.api.UserGigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching gigs: %w", err)
	}
	created, err := db.InsertGigs(lo.ToSlicePtr(gigs), nil)
	if err != nil {
		return nil, fmt.Errorf("storing gigs: %w", err)
	}

	summary := &SyncSummary{Artists: len(artists), Venues: len(venues), Gigs: len(gigs), Created: created}
	a.log.Info("sync complete", "artists", summary.Artists, "venues", summary.Venues,
		"gigs", summary.Gigs, "created", created)
	return summary, nil
}

// RecordGigs stores gigs just marked attended on the remote API in the
// local library and returns how many were new.
func (a *App) RecordGigs(gigs []model.Gig) (int, error) {
	db, err := a.store()
	if err != nil {
		return 0, err
	}
	created := 0
	for i := range gigs {
		_, isNew, err := db.InsertGig(&gigs[i])
		if err != nil {
			return created, fmt.Errorf("recording gig %d: %w", gigs[i].RemoteID, err)
		}
		if isNew {
			created++
		}
	}
	a.log.Debug("recorded added gigs", "gigs", len(gigs), "created", created)
	return created, nil
}

// RemoteGenres lists the genres known to the remote API.
func (a *App) RemoteGenres(ctx context.Context) ([]string, error) {
	if a.api == nil {
		return nil, ErrNoRemote
	}
	genres, err := a.api.Genres(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(genres, func(g payload.Genre, _ int) string { return g.Name }), nil
}

// RemoteStats is the backend's own view of the user's history.
type RemoteStats struct {
	Stats     *payload.UserStats `json:"stats"`
	LatestGig *model.Gig         `json:"latest_gig,omitempty"`
}

// RemoteStats fetches the remote summary counters and the most recent gig.
// A user with no gigs yields a nil LatestGig.
func (a *App) RemoteStats(ctx context.Context) (*RemoteStats, error) {
	if a.api == nil {
		return nil, ErrNoRemote
	}
	stats, err := a.api.UserStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching user stats: %w", err)
	}
	latest, err := a.api.LatestGig(ctx)
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		return nil, fmt.Errorf("fetching latest gig: %w", err)
	}
	return &RemoteStats{Stats: stats, LatestGig: latest}, nil
}

// NewAddFlow starts an add-gig session against the remote API.
func (a *App) NewAddFlow(ctx context.Context, onSuggestions func(string, []model.Artist, error)) (*addflow.Flow, error) {
	if a.api == nil {
		return nil, ErrNoRemote
	}
	return addflow.New(ctx, a.api, addflow.Options{
		Debounce:      a.cfg.Search.Debounce,
		MinChars:      a.cfg.Search.MinChars,
		OnSuggestions: onSuggestions,
	}, a.log), nil
}

// -- Internal Helpers --

// GetVersion returns the application version string.
func (a *App) GetVersion() string {
	return Version
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
