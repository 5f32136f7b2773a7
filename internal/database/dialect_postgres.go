package database

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PostgresDialect implements the Dialect interface for PostgreSQL databases.
// It also satisfies query.QueryDialect through structural typing.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string             { return "pgx" }
func (d *PostgresDialect) DSN(pathOrConnStr string) string { return pathOrConnStr }
func (d *PostgresDialect) Placeholder(index int) string    { return fmt.Sprintf("$%d", index) }

// Rebind numbers each "?" in order: "a = ? AND b = ?" becomes "a = $1 AND b = $2".
func (d *PostgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d *PostgresDialect) DateBetweenSQL(column string, paramIdx1, paramIdx2 int) string {
	return fmt.Sprintf("(%s BETWEEN %s::date AND %s::date)",
		column, d.Placeholder(paramIdx1), d.Placeholder(paramIdx2))
}

func (d *PostgresDialect) YearSQL(column string) string {
	return fmt.Sprintf("to_char(%s, 'YYYY')", column)
}

func (d *PostgresDialect) DateParam(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func (d *PostgresDialect) SchemaCheckColumnSQL(table, column string) string {
	return fmt.Sprintf(
		"SELECT COUNT(*) FROM information_schema.columns WHERE table_name='%s' AND column_name='%s'",
		table, column)
}

func (d *PostgresDialect) CreateArtistsTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS artists (
		id BIGSERIAL PRIMARY KEY,
		remote_id BIGINT NOT NULL DEFAULT 0,
		name TEXT NOT NULL,
		genre TEXT,
		image_url TEXT NOT NULL DEFAULT '',
		favourite BOOLEAN NOT NULL DEFAULT FALSE
	)`
}

func (d *PostgresDialect) CreateVenuesTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS venues (
		id BIGSERIAL PRIMARY KEY,
		remote_id BIGINT NOT NULL DEFAULT 0,
		name TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT ''
	)`
}

func (d *PostgresDialect) CreateGigsTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS gigs (
		id BIGSERIAL PRIMARY KEY,
		remote_id BIGINT NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT '',
		gig_date DATE,
		venue_id BIGINT REFERENCES venues(id),
		genre TEXT,
		festival BOOLEAN NOT NULL DEFAULT FALSE,
		rating INT,
		notes TEXT NOT NULL DEFAULT ''
	)`
}

func (d *PostgresDialect) CreateGigArtistsTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS gig_artists (
		gig_id BIGINT NOT NULL REFERENCES gigs(id),
		artist_id BIGINT NOT NULL REFERENCES artists(id),
		position INT NOT NULL DEFAULT 0,
		PRIMARY KEY (gig_id, artist_id)
	)`
}

func (d *PostgresDialect) CreateSavedQueryTableSQL() string {
	return "CREATE TABLE IF NOT EXISTS saved_queries (name TEXT PRIMARY KEY, query TEXT NOT NULL)"
}

func (d *PostgresDialect) CreateIndexSQL(indexName, tableName, column string) string {
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)", indexName, tableName, column)
}
