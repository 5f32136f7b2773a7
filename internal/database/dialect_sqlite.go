package database

import (
	"fmt"
	"time"

	"github.com/cdtdelta/gigtrack/internal/model"
)

// SQLiteDialect implements the Dialect interface for SQLite databases.
// It also satisfies query.QueryDialect through structural typing.
// Dates are stored as TEXT in model.DateLayout, which sorts correctly.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string             { return "sqlite" }
func (d *SQLiteDialect) DSN(pathOrConnStr string) string { return pathOrConnStr }
func (d *SQLiteDialect) Placeholder(index int) string    { return "?" }
func (d *SQLiteDialect) Rebind(query string) string      { return query }

func (d *SQLiteDialect) DateBetweenSQL(column string, paramIdx1, paramIdx2 int) string {
	return fmt.Sprintf("(%s BETWEEN ? AND ?)", column)
}

func (d *SQLiteDialect) YearSQL(column string) string {
	return fmt.Sprintf("strftime('%%Y', %s)", column)
}

func (d *SQLiteDialect) DateParam(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(model.DateLayout)
}

func (d *SQLiteDialect) SchemaCheckColumnSQL(table, column string) string {
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM pragma_table_info('%s') WHERE name='%s'", table, column)
}

func (d *SQLiteDialect) CreateArtistsTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS artists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		remote_id INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL,
		genre TEXT,
		image_url TEXT NOT NULL DEFAULT '',
		favourite INTEGER NOT NULL DEFAULT 0
	)`
}

func (d *SQLiteDialect) CreateVenuesTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS venues (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		remote_id INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT ''
	)`
}

func (d *SQLiteDialect) CreateGigsTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS gigs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		remote_id INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT '',
		gig_date TEXT,
		venue_id INTEGER REFERENCES venues(id),
		genre TEXT,
		festival INTEGER NOT NULL DEFAULT 0,
		rating INTEGER,
		notes TEXT NOT NULL DEFAULT ''
	)`
}

func (d *SQLiteDialect) CreateGigArtistsTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS gig_artists (
		gig_id INTEGER NOT NULL REFERENCES gigs(id),
		artist_id INTEGER NOT NULL REFERENCES artists(id),
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (gig_id, artist_id)
	)`
}

func (d *SQLiteDialect) CreateSavedQueryTableSQL() string {
	return "CREATE TABLE IF NOT EXISTS saved_queries (name TEXT PRIMARY KEY, query TEXT NOT NULL)"
}

func (d *SQLiteDialect) CreateIndexSQL(indexName, tableName, column string) string {
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)", indexName, tableName, column)
}
