package query

// QueryDialect abstracts SQL syntax differences needed for query building.
// Each database backend provides an implementation.
type QueryDialect interface {
	// Placeholder returns the parameter placeholder for the given 1-based index.
	// SQLite returns "?" (ignoring the index), PostgreSQL returns "$1", "$2", etc.
	Placeholder(index int) string

	// DateBetweenSQL returns the SQL fragment for an inclusive date range
	// on column, using the parameters at paramIdx1 and paramIdx2.
	DateBetweenSQL(column string, paramIdx1, paramIdx2 int) string
}
