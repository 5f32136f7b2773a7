package query

import (
	"net/url"
	"strings"
	"testing"
)

func TestZeroScopeSelectsEverything(t *testing.T) {
	var s Scope
	if !s.IsZero() {
		t.Fatal("zero scope should report IsZero")
	}
	sql, args := s.Selection().Build(questionDialect{})
	if strings.Contains(sql, "WHERE") || len(args) != 0 {
		t.Errorf("zero scope filtered: %s %v", sql, args)
	}
	if !strings.HasSuffix(sql, "ORDER BY g.id") {
		t.Errorf("zero scope order = %s", sql)
	}
}

func TestScopeSelection(t *testing.T) {
	s := Scope{Year: 2023, Country: " uk ", Festivals: true, MinRating: 4}
	sql, args := s.Selection().Build(numberedDialect{})

	want := "WHERE ((((g.gig_date BETWEEN $1::date AND $2::date)" +
		" AND (LOWER(v.country) LIKE LOWER($3)))" +
		" AND (g.festival = $4)) AND (g.rating >= $5))"
	if !strings.Contains(sql, want) {
		t.Errorf("sql =\n%s\nwant it to contain\n%s", sql, want)
	}
	if len(args) != 5 || args[0] != "2023-01-01" || args[1] != "2023-12-31" ||
		args[2] != "%uk%" || args[3] != true || args[4] != 4 {
		t.Errorf("args = %v", args)
	}
	if got := strings.Join(s.Selection().Fields(), ","); got != "gig_date,country,festival,rating" {
		t.Errorf("Fields = %s", got)
	}
}

func TestScopePlaceMatchesAnyLocationColumn(t *testing.T) {
	sql, args := Scope{Place: "brix", City: "London"}.Selection().Build(questionDialect{})

	want := "WHERE ((LOWER(v.city) LIKE LOWER(?)) AND " +
		"(((LOWER(v.name) LIKE LOWER(?)) OR (LOWER(v.city) LIKE LOWER(?))) OR (LOWER(v.country) LIKE LOWER(?))))"
	if !strings.Contains(sql, want) {
		t.Errorf("sql =\n%s\nwant it to contain\n%s", sql, want)
	}
	if len(args) != 4 || args[0] != "%London%" || args[3] != "%brix%" {
		t.Errorf("args = %v", args)
	}
}

func TestScopeDateBounds(t *testing.T) {
	_, args := Scope{From: "2023-01-01"}.Selection().Build(questionDialect{})
	if len(args) != 2 || args[0] != "2023-01-01" || args[1] != "9999-12-31" {
		t.Errorf("open upper bound args = %v", args)
	}
	_, args = Scope{To: "2020-06-30"}.Selection().Build(questionDialect{})
	if len(args) != 2 || args[0] != "0001-01-01" || args[1] != "2020-06-30" {
		t.Errorf("open lower bound args = %v", args)
	}

	if err := (Scope{From: "2023-01-01", To: "2023-12-31"}).Validate(); err != nil {
		t.Errorf("valid bounds rejected: %v", err)
	}
	if err := (Scope{From: "last year"}).Validate(); err == nil {
		t.Error("expected an error for a malformed date")
	}
}

func TestScopeFromValues(t *testing.T) {
	s, err := ScopeFromValues(url.Values{
		"year":       {"2024"},
		"city":       {"Leeds"},
		"festivals":  {"true"},
		"min_rating": {"3"},
		"to":         {"2024-06-30"},
	})
	if err != nil {
		t.Fatalf("ScopeFromValues failed: %v", err)
	}
	if s != (Scope{Year: 2024, City: "Leeds", Festivals: true, MinRating: 3, To: "2024-06-30"}) {
		t.Errorf("scope = %+v", s)
	}

	empty, err := ScopeFromValues(url.Values{})
	if err != nil || !empty.IsZero() {
		t.Errorf("empty values = %+v, %v", empty, err)
	}

	for _, bad := range []url.Values{
		{"year": {"twenty"}},
		{"year": {"0"}},
		{"min_rating": {"-1"}},
		{"festivals": {"maybe"}},
		{"from": {"01/02/2023"}},
	} {
		if _, err := ScopeFromValues(bad); err == nil {
			t.Errorf("expected an error for %v", bad)
		}
	}
}
