package database

import (
	"testing"
	"time"

	"github.com/cdtdelta/gigtrack/internal/query"
)

// Both dialects must be usable wherever the query builder expects one.
var (
	_ query.QueryDialect = (*SQLiteDialect)(nil)
	_ query.QueryDialect = (*PostgresDialect)(nil)
)

func TestPostgresRebind(t *testing.T) {
	d := &PostgresDialect{}
	got := d.Rebind("SELECT id FROM gigs WHERE title = ? AND venue_id = ?")
	want := "SELECT id FROM gigs WHERE title = $1 AND venue_id = $2"
	if got != want {
		t.Errorf("Rebind = %q, want %q", got, want)
	}
	if s := (&SQLiteDialect{}).Rebind("a = ?"); s != "a = ?" {
		t.Errorf("sqlite Rebind changed query: %q", s)
	}
}

func TestPostgresSelection(t *testing.T) {
	sel := query.NewSelection()
	sel.AddPredicate(query.Simple("city", query.Equal, "Leeds"))
	sel.AddPredicate(query.Year(2019))

	sql, args := sel.Build(&PostgresDialect{})
	want := "SELECT " + joinColumns() +
		" FROM gigs g LEFT JOIN venues v ON v.id = g.venue_id" +
		" WHERE ((v.city = $1) AND (g.gig_date BETWEEN $2::date AND $3::date)) ORDER BY g.id"
	if sql != want {
		t.Errorf("sql =\n%s\nwant\n%s", sql, want)
	}
	if len(args) != 3 || args[0] != "Leeds" || args[1] != "2019-01-01" || args[2] != "2019-12-31" {
		t.Errorf("args = %v", args)
	}
}

func TestDialectDateParam(t *testing.T) {
	day := time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)

	if got := (&SQLiteDialect{}).DateParam(&day); got != "2020-02-29" {
		t.Errorf("sqlite DateParam = %v", got)
	}
	if got := (&PostgresDialect{}).DateParam(&day); got != day {
		t.Errorf("postgres DateParam = %v", got)
	}
	if (&SQLiteDialect{}).DateParam(nil) != nil || (&PostgresDialect{}).DateParam(nil) != nil {
		t.Error("nil dates must bind as NULL")
	}
}

func TestDialectYearSQL(t *testing.T) {
	if got := (&SQLiteDialect{}).YearSQL("gig_date"); got != "strftime('%Y', gig_date)" {
		t.Errorf("sqlite YearSQL = %q", got)
	}
	if got := (&PostgresDialect{}).YearSQL("gig_date"); got != "to_char(gig_date, 'YYYY')" {
		t.Errorf("postgres YearSQL = %q", got)
	}
}

func joinColumns() string {
	s := ""
	for i, c := range query.GigColumns {
		if i > 0 {
			s += ", "
		}
		s += c
	}
	return s
}
