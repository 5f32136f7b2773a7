package query

import (
	"fmt"
	"strings"

	"github.com/cdtdelta/gigtrack/internal/model"
)

// Logic determines how multiple predicates are combined.
type Logic int

const (
	AND Logic = iota
	OR
)

// Operator represents a SQL comparison operator.
type Operator string

const (
	Equal          Operator = "="
	Like           Operator = "LIKE"
	GreaterOrEqual Operator = ">="
)

// validOperators is the set of allowed operators for validation.
var validOperators = map[Operator]bool{
	Equal: true, Like: true, GreaterOrEqual: true,
}

// columns maps filterable field names onto the joined gigs/venues select.
var columns = map[string]string{
	"title":      "g.title",
	"gig_date":   "g.gig_date",
	"genre":      "g.genre",
	"festival":   "g.festival",
	"rating":     "g.rating",
	"notes":      "g.notes",
	"venue_name": "v.name",
	"city":       "v.city",
	"country":    "v.country",
}

// Predicate represents a single filter condition or a composite of conditions.
// Predicates use parameterized values to prevent SQL injection.
type Predicate struct {
	kind  predicateKind
	field string
	op    Operator
	value any
	date1 string
	date2 string
	left  *Predicate
	right *Predicate
	logic Logic
}

type predicateKind int

const (
	predNone predicateKind = iota
	predSimple
	predDate
	predComposite
)

// Simple creates a predicate that compares a field to a value.
// Returns nil if the field name is invalid or the operator is unrecognized.
// LIKE comparisons are case-insensitive on every backend.
func Simple(field string, op Operator, value any) *Predicate {
	if !isValidField(field) || !validOperators[op] {
		return nil
	}
	return &Predicate{
		kind:  predSimple,
		field: field,
		op:    op,
		value: value,
	}
}

// DateRange creates a predicate filtering gigs between two dates (inclusive).
// Dates use model.DateLayout.
func DateRange(date1, date2 string) *Predicate {
	return &Predicate{
		kind:  predDate,
		date1: date1,
		date2: date2,
	}
}

// Year restricts gigs to a single calendar year.
func Year(year int) *Predicate {
	return DateRange(fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year))
}

// Combine joins multiple predicates with the given logic (AND or OR).
// Returns nil for an empty slice. Returns the single predicate if only one is given.
// Nil predicates in the slice are skipped.
func Combine(preds []*Predicate, logic Logic) *Predicate {
	filtered := make([]*Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			filtered = append(filtered, p)
		}
	}

	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}

	// Left-leaning tree: ((p1 op p2) op p3) ...
	result := &Predicate{
		kind:  predComposite,
		left:  filtered[0],
		right: filtered[1],
		logic: logic,
	}

	for i := 2; i < len(filtered); i++ {
		result = &Predicate{
			kind:  predComposite,
			left:  result,
			right: filtered[i],
			logic: logic,
		}
	}

	return result
}

// WhereClauseFor renders the predicate for dialect d, numbering parameters
// from startIdx. For example: "(v.city = ?)", []any{"London"}
func (p *Predicate) WhereClauseFor(d QueryDialect, startIdx int) (string, []any) {
	idx := startIdx
	return p.build(d, &idx)
}

func (p *Predicate) build(d QueryDialect, idx *int) (string, []any) {
	if p == nil {
		return "", nil
	}

	switch p.kind {
	case predSimple:
		col := columns[p.field]
		ph := d.Placeholder(*idx)
		*idx++
		if p.op == Like {
			return fmt.Sprintf("(LOWER(%s) %s LOWER(%s))", col, p.op, ph),
				[]any{"%" + fmt.Sprint(p.value) + "%"}
		}
		return fmt.Sprintf("(%s %s %s)", col, p.op, ph), []any{p.value}

	case predDate:
		sql := d.DateBetweenSQL(columns["gig_date"], *idx, *idx+1)
		*idx += 2
		return sql, []any{p.date1, p.date2}

	case predComposite:
		leftSQL, leftArgs := p.left.build(d, idx)
		rightSQL, rightArgs := p.right.build(d, idx)

		if leftSQL == "" && rightSQL == "" {
			return "", nil
		}
		if leftSQL == "" {
			return rightSQL, rightArgs
		}
		if rightSQL == "" {
			return leftSQL, leftArgs
		}

		logicStr := "AND"
		if p.logic == OR {
			logicStr = "OR"
		}

		sql := fmt.Sprintf("(%s %s %s)", leftSQL, logicStr, rightSQL)
		args := append(leftArgs, rightArgs...)
		return sql, args

	default:
		return "", nil
	}
}

// Fields returns the list of field names referenced by this predicate tree.
func (p *Predicate) Fields() []string {
	if p == nil {
		return nil
	}

	switch p.kind {
	case predSimple:
		return []string{p.field}
	case predDate:
		return []string{"gig_date"}
	case predComposite:
		seen := make(map[string]bool)
		var result []string
		for _, f := range append(p.left.Fields(), p.right.Fields()...) {
			if !seen[f] {
				seen[f] = true
				result = append(result, f)
			}
		}
		return result
	default:
		return nil
	}
}

// GigColumns is the select list Selection.Build produces, in scan order.
var GigColumns = []string{
	"g.id", "g.remote_id", "g.title", "g.gig_date", "g.genre", "g.festival",
	"g.rating", "g.notes", "v.id", "v.name", "v.city", "v.country",
}

// Selection builds a gigs SELECT from AND-ed predicates and an ordering.
type Selection struct {
	predicates []*Predicate
	orderBy    string
}

// NewSelection creates an empty Selection matching every gig.
func NewSelection() *Selection {
	return &Selection{}
}

// AddPredicate appends a predicate. Nil predicates are ignored.
func (s *Selection) AddPredicate(p *Predicate) {
	if p != nil {
		s.predicates = append(s.predicates, p)
	}
}

// OrderBy sets the field to sort results by. Pass an empty string to clear
// ordering. Returns an error if the field name is not valid.
func (s *Selection) OrderBy(field string) error {
	if field == "" {
		s.orderBy = ""
		return nil
	}
	if !isValidField(field) {
		return fmt.Errorf("invalid order by field: %s", field)
	}
	s.orderBy = field
	return nil
}

// Fields lists the columns the selection filters on.
func (s *Selection) Fields() []string {
	return Combine(s.predicates, AND).Fields()
}

// Build generates the SQL SELECT statement and its parameter values for d.
func (s *Selection) Build(d QueryDialect) (string, []any) {
	sql := "SELECT " + strings.Join(GigColumns, ", ") +
		" FROM gigs g LEFT JOIN venues v ON v.id = g.venue_id"

	var args []any
	if combined := Combine(s.predicates, AND); combined != nil {
		whereSQL, whereArgs := combined.WhereClauseFor(d, 1)
		if whereSQL != "" {
			sql += " WHERE " + whereSQL
			args = append(args, whereArgs...)
		}
	}

	if s.orderBy != "" {
		sql += " ORDER BY " + columns[s.orderBy] + ", g.id"
	} else {
		sql += " ORDER BY g.id"
	}
	return sql, args
}

// isValidField checks a field name against the known gig columns.
func isValidField(name string) bool {
	for _, f := range model.GigFields {
		if f == name {
			return true
		}
	}
	return false
}
