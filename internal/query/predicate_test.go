package query

import (
	"fmt"
	"strings"
	"testing"
)

// questionDialect renders placeholders the way SQLite does.
type questionDialect struct{}

func (questionDialect) Placeholder(int) string { return "?" }

func (questionDialect) DateBetweenSQL(column string, _, _ int) string {
	return fmt.Sprintf("(%s BETWEEN ? AND ?)", column)
}

func where(p *Predicate) (string, []any) {
	return p.WhereClauseFor(questionDialect{}, 1)
}

type numberedDialect struct{}

func (numberedDialect) Placeholder(index int) string { return fmt.Sprintf("$%d", index) }

func (numberedDialect) DateBetweenSQL(column string, i1, i2 int) string {
	return fmt.Sprintf("(%s BETWEEN $%d::date AND $%d::date)", column, i1, i2)
}

func TestSimplePredicate(t *testing.T) {
	p := Simple("city", Equal, "London")
	if p == nil {
		t.Fatal("expected non-nil predicate")
	}

	sql, args := where(p)
	if sql != "(v.city = ?)" {
		t.Errorf("expected '(v.city = ?)', got '%s'", sql)
	}
	if len(args) != 1 || args[0] != "London" {
		t.Errorf("expected args ['London'], got %v", args)
	}
}

func TestSimplePredicateInvalidField(t *testing.T) {
	if p := Simple("DROP TABLE", Equal, "oops"); p != nil {
		t.Error("expected nil for invalid field name")
	}
}

func TestSimplePredicateInvalidOperator(t *testing.T) {
	if p := Simple("city", "HACK", "value"); p != nil {
		t.Error("expected nil for invalid operator")
	}
}

func TestLikePredicateIsCaseInsensitive(t *testing.T) {
	sql, args := where(Simple("title", Like, "Beyond"))

	if sql != "(LOWER(g.title) LIKE LOWER(?))" {
		t.Errorf("unexpected sql: %s", sql)
	}
	if len(args) != 1 || args[0] != "%Beyond%" {
		t.Errorf("expected args ['%%Beyond%%'], got %v", args)
	}
}

func TestYearPredicate(t *testing.T) {
	sql, args := where(Year(2024))

	if sql != "(g.gig_date BETWEEN ? AND ?)" {
		t.Errorf("unexpected sql: %s", sql)
	}
	if len(args) != 2 || args[0] != "2024-01-01" || args[1] != "2024-12-31" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestCombineNumbersPlaceholders(t *testing.T) {
	combined := Combine([]*Predicate{
		Simple("country", Equal, "UK"),
		Year(2023),
		Simple("festival", Equal, true),
	}, AND)

	sql, args := combined.WhereClauseFor(numberedDialect{}, 1)
	want := "(((v.country = $1) AND (g.gig_date BETWEEN $2::date AND $3::date)) AND (g.festival = $4))"
	if sql != want {
		t.Errorf("unexpected sql:\n got %s\nwant %s", sql, want)
	}
	if len(args) != 4 {
		t.Errorf("expected 4 args, got %d", len(args))
	}
}

func TestCombineOR(t *testing.T) {
	combined := Combine([]*Predicate{
		Simple("city", Equal, "London"),
		Simple("city", Equal, "Berlin"),
	}, OR)
	sql, _ := where(combined)

	if sql != "((v.city = ?) OR (v.city = ?))" {
		t.Errorf("unexpected sql: %s", sql)
	}
}

func TestCombineSkipsNilAndEmpty(t *testing.T) {
	if Combine([]*Predicate{}, AND) != nil {
		t.Error("expected nil for empty combine")
	}
	p := Simple("city", Equal, "Leeds")
	if Combine([]*Predicate{nil, p, nil}, AND) != p {
		t.Error("expected the single non-nil predicate back")
	}
}

func TestPredicateFields(t *testing.T) {
	combined := Combine([]*Predicate{
		Simple("city", Equal, "London"),
		Year(2020),
		Simple("city", Like, "Par"),
	}, AND)

	fields := combined.Fields()
	if strings.Join(fields, ",") != "city,gig_date" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestSelectionBuild(t *testing.T) {
	s := NewSelection()
	s.AddPredicate(Simple("country", Equal, "UK"))
	s.AddPredicate(nil)
	if err := s.OrderBy("gig_date"); err != nil {
		t.Fatalf("OrderBy failed: %v", err)
	}

	sql, args := s.Build(questionDialect{})

	if !strings.HasPrefix(sql, "SELECT g.id, g.remote_id, g.title") {
		t.Errorf("unexpected select list: %s", sql)
	}
	if !strings.Contains(sql, "WHERE (v.country = ?)") {
		t.Errorf("missing where clause: %s", sql)
	}
	if !strings.HasSuffix(sql, "ORDER BY g.gig_date, g.id") {
		t.Errorf("missing order by: %s", sql)
	}
	if len(args) != 1 {
		t.Errorf("expected 1 arg, got %d", len(args))
	}
	if got := strings.Join(s.Fields(), ","); got != "country" {
		t.Errorf("Fields = %s", got)
	}
}

func TestSelectionOrderByInvalid(t *testing.T) {
	s := NewSelection()
	if err := s.OrderBy("rowid; DROP TABLE gigs"); err == nil {
		t.Error("expected error for invalid order by field")
	}
	sql, args := s.Build(questionDialect{})
	if strings.Contains(sql, "WHERE") || len(args) != 0 {
		t.Errorf("empty selection should not filter: %s %v", sql, args)
	}
	if !strings.HasSuffix(sql, "ORDER BY g.id") {
		t.Errorf("default order = %s", sql)
	}
	if len(s.Fields()) != 0 {
		t.Errorf("Fields = %v, want none", s.Fields())
	}
}
