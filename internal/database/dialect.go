package database

import "time"

// Dialect abstracts all database-specific SQL generation.
// Each database backend (SQLite, PostgreSQL) implements this interface.
// Placeholder and DateBetweenSQL match the query.QueryDialect interface
// through Go structural typing, so a Dialect can also serve as a QueryDialect.
type Dialect interface {
	// DriverName returns the database/sql driver name (e.g. "sqlite", "pgx").
	DriverName() string

	// DSN returns the data source name for opening a connection.
	DSN(pathOrConnStr string) string

	// Placeholder returns the parameter placeholder for the given 1-based index.
	// SQLite: "?" (ignoring index), PostgreSQL: "$1", "$2", etc.
	Placeholder(index int) string

	// Rebind rewrites a statement written with "?" placeholders into the
	// dialect's placeholder style.
	Rebind(query string) string

	// DateBetweenSQL returns the SQL fragment for an inclusive date range.
	DateBetweenSQL(column string, paramIdx1, paramIdx2 int) string

	// YearSQL returns an expression extracting the four-digit year of a
	// date column as text.
	YearSQL(column string) string

	// DateParam converts a nullable date into the driver argument for a
	// gig_date column.
	DateParam(t *time.Time) any

	// SchemaCheckColumnSQL returns a SQL query that counts how many times a column
	// appears in a table's schema. Used for migration checks.
	SchemaCheckColumnSQL(table, column string) string

	// Table DDL.
	CreateArtistsTableSQL() string
	CreateVenuesTableSQL() string
	CreateGigsTableSQL() string
	CreateGigArtistsTableSQL() string
	CreateSavedQueryTableSQL() string

	// CreateIndexSQL returns DDL to create an index on a table column.
	CreateIndexSQL(indexName, tableName, column string) string
}
