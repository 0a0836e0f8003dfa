package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/queryir"
)

// SQLCompiler compiles a queryir.Select to parameterized SQL for SQLite.
//
// CRITICAL: ALL queries include ORDER BY for deterministic results.
// CRITICAL: All values are parameterized (never interpolated).
//
// Relationship fields ("Folder.DeveloperName") are resolved with a LEFT
// JOIN on the parent collection through the "<Rel>Id" column of the
// queried collection, so rows without a parent still come back.
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// compilation accumulates joins and parameters for one Select.
type compilation struct {
	from   string
	joins  []string
	joined map[string]bool
	params []any
}

// Compile converts a Select to parameterized SQL.
// Returns (sql, params, error) tuple. Result columns are aliased to the
// declared field names, in declaration order.
func (c *SQLCompiler) Compile(sel queryir.Select) (string, []any, error) {
	if err := queryir.Validate(sel); err != nil {
		return "", nil, err
	}

	comp := &compilation{from: sel.From, joined: make(map[string]bool)}

	columns := make([]string, len(sel.Fields))
	for i, f := range sel.Fields {
		columns[i] = comp.column(f) + " AS " + quoteIdent(f)
	}

	var whereClause string
	if sel.Filter != nil {
		filterSQL, err := comp.compilePredicate(sel.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		if filterSQL != "" {
			whereClause = " WHERE " + filterSQL
		}
	}

	var joinClause string
	if len(comp.joins) > 0 {
		joinClause = " " + strings.Join(comp.joins, " ")
	}

	// MANDATORY: Always add ORDER BY
	orderByClause := " ORDER BY " + quoteIdent(sel.From) + "." + quoteIdent(ir.FieldID) + " COLLATE BINARY ASC"

	sql := fmt.Sprintf("SELECT %s FROM %s%s%s%s",
		strings.Join(columns, ", "),
		quoteIdent(sel.From),
		joinClause,
		whereClause,
		orderByClause)

	return sql, comp.params, nil
}

// column returns the qualified column expression for a field, registering
// a join when the field goes through a relationship.
func (comp *compilation) column(field string) string {
	rel, name, ok := strings.Cut(field, ".")
	if !ok {
		return quoteIdent(comp.from) + "." + quoteIdent(field)
	}
	if !comp.joined[rel] {
		comp.joined[rel] = true
		comp.joins = append(comp.joins, fmt.Sprintf("LEFT JOIN %s ON %s.%s = %s.%s",
			quoteIdent(rel),
			quoteIdent(rel), quoteIdent(ir.FieldID),
			quoteIdent(comp.from), quoteIdent(rel+"Id")))
	}
	return quoteIdent(rel) + "." + quoteIdent(name)
}

// compilePredicate compiles a predicate to a WHERE clause fragment.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (comp *compilation) compilePredicate(p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case nil:
		return "", nil
	case queryir.In:
		return comp.compileIn(pred)
	case *queryir.In:
		return comp.compileIn(*pred)
	case queryir.Equals:
		return comp.compileEquals(pred)
	case *queryir.Equals:
		return comp.compileEquals(*pred)
	case queryir.And:
		return comp.compileAnd(pred)
	case *queryir.And:
		return comp.compileAnd(*pred)
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileIn compiles an In predicate to "col IN (?, ?, ...)".
func (comp *compilation) compileIn(in queryir.In) (string, error) {
	if len(in.Values) == 0 {
		return "", fmt.Errorf("%s: %w", in.Field, ErrEmptyValueSet)
	}
	placeholders := make([]string, len(in.Values))
	for i, v := range in.Values {
		placeholders[i] = "?"
		comp.params = append(comp.params, v)
	}
	return fmt.Sprintf("%s IN (%s)", comp.column(in.Field), strings.Join(placeholders, ", ")), nil
}

// compileEquals compiles an Equals predicate to "col = ?".
// A null value compiles to "col IS NULL" with no parameter.
func (comp *compilation) compileEquals(eq queryir.Equals) (string, error) {
	if ir.IsNull(eq.Value) {
		return comp.column(eq.Field) + " IS NULL", nil
	}
	param, err := ir.ToNative(eq.Value)
	if err != nil {
		return "", fmt.Errorf("convert value: %w", err)
	}
	comp.params = append(comp.params, param)
	return comp.column(eq.Field) + " = ?", nil
}

// compileAnd compiles an And predicate to a conjunction.
func (comp *compilation) compileAnd(and queryir.And) (string, error) {
	var parts []string
	for _, sub := range and.Predicates {
		s, err := comp.compilePredicate(sub)
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", nil
	}
	return "(" + strings.Join(parts, " AND ") + ")", nil
}

// quoteIdent double-quotes an identifier for SQLite.
// Identifiers are validated by queryir.Validate before reaching here.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
