package database

import (
	"errors"

	"github.com/cdtdelta/gigtrack/internal/model"
	"github.com/cdtdelta/gigtrack/internal/query"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// YearBucket is one bar of the gigs-per-year histogram.
type YearBucket struct {
	Year  string `json:"year"`
	Count int64  `json:"count"`
}

// SavedQuery is a named curation query stored in the database.
type SavedQuery struct {
	Name  string      `json:"name"`
	Query query.Query `json:"query"`
}

// Store defines the interface for all database operations.
// Every method that the application needs is captured here so that
// app.go depends on the interface, not on a concrete database type.
type Store interface {
	// Library records
	UpsertArtist(a *model.Artist) (int64, error)
	UpsertVenue(v *model.Venue) (int64, error)
	InsertGig(g *model.Gig) (id int64, created bool, err error)
	InsertGigs(gigs []*model.Gig, onProgress func(int)) (int, error)
	ToggleFavourite(artistID int64) (bool, error)

	// Reads
	ListArtistsSeen() ([]model.Artist, error)
	GetArtist(id int64) (*model.Artist, error)
	ListVenuesVisited() ([]model.Venue, error)
	ListGigs(sel *query.Selection) ([]model.Gig, error)
	DistinctGenres() ([]string, error)
	GigsPerYear() ([]YearBucket, error)

	// Saved queries
	GetSavedQueries() ([]SavedQuery, error)
	SaveQuery(name string, q query.Query) error
	DeleteQuery(name string) error

	// Schema and lifecycle
	Migrate() error
	Close() error
	Path() string
}
