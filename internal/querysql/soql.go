package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/queryir"
)

// ErrEmptyValueSet is returned by BuildInClause for an empty value set.
// It is the same sentinel queryir.Validate reports.
var ErrEmptyValueSet = queryir.ErrEmptyValueSet

// Limits bounds the size of a single rendered IN predicate.
type Limits struct {
	// MaxValues is the most literals one IN clause may carry.
	MaxValues int

	// MaxPredicateLength is the longest rendered IN clause, in bytes.
	MaxPredicateLength int
}

// DefaultLimits keeps every rendered query well under the remote query
// surface's URI and statement length limits.
var DefaultLimits = Limits{MaxValues: 200, MaxPredicateLength: 3500}

// soqlEscaper backslash-escapes every character that can terminate or
// corrupt a single-quoted SOQL literal.
var soqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\b", `\b`,
	"\f", `\f`,
)

// QuoteLiteral renders s as a single-quoted, escaped string literal.
func QuoteLiteral(s string) string {
	return "'" + soqlEscaper.Replace(s) + "'"
}

// BuildInClause renders "field IN ('v1','v2',...)".
// Returns ErrEmptyValueSet when values is empty; "IN ()" is never produced.
func BuildInClause(field string, values []string) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("%s: %w", field, ErrEmptyValueSet)
	}
	if !queryir.IsValidIdentifier(field) {
		return "", fmt.Errorf("invalid field name %q", field)
	}

	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = QuoteLiteral(v)
	}
	return field + " IN (" + strings.Join(quoted, ",") + ")", nil
}

// BuildSelect renders "SELECT f1, f2 FROM collection WHERE predicate".
// The WHERE clause is omitted when predicate is empty.
func BuildSelect(collection string, fields []string, predicate string) string {
	q := "SELECT " + strings.Join(fields, ", ") + " FROM " + collection
	if predicate != "" {
		q += " WHERE " + predicate
	}
	return q
}

// ChunkValues splits values so that each chunk, rendered as an IN clause
// on field, stays within limits. Order is preserved. A single value that
// exceeds MaxPredicateLength on its own still gets a chunk of its own.
// Returns nil for an empty value set.
func ChunkValues(field string, values []string, limits Limits) [][]string {
	if len(values) == 0 {
		return nil
	}
	if limits.MaxValues <= 0 {
		limits.MaxValues = DefaultLimits.MaxValues
	}
	if limits.MaxPredicateLength <= 0 {
		limits.MaxPredicateLength = DefaultLimits.MaxPredicateLength
	}

	// len("field IN (") + len(")")
	overhead := len(field) + len(" IN (") + 1

	var chunks [][]string
	var current []string
	length := overhead
	for _, v := range values {
		size := len(QuoteLiteral(v))
		if len(current) > 0 {
			size++ // separating comma
		}
		if len(current) > 0 && (len(current) >= limits.MaxValues || length+size > limits.MaxPredicateLength) {
			chunks = append(chunks, current)
			current = nil
			length = overhead
			size = len(QuoteLiteral(v))
		}
		current = append(current, v)
		length += size
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// SOQLCompiler renders a queryir.Select as remote query text.
// Every literal goes through QuoteLiteral; identifiers are validated first.
type SOQLCompiler struct{}

// NewSOQLCompiler creates a new SOQLCompiler.
func NewSOQLCompiler() *SOQLCompiler {
	return &SOQLCompiler{}
}

// Compile renders sel as SOQL text.
func (c *SOQLCompiler) Compile(sel queryir.Select) (string, error) {
	if err := queryir.Validate(sel); err != nil {
		return "", err
	}

	predicate, err := c.compilePredicate(sel.Filter)
	if err != nil {
		return "", fmt.Errorf("compile filter: %w", err)
	}
	return BuildSelect(sel.From, sel.Fields, predicate), nil
}

func (c *SOQLCompiler) compilePredicate(p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case nil:
		return "", nil
	case queryir.In:
		return BuildInClause(pred.Field, pred.Values)
	case *queryir.In:
		return BuildInClause(pred.Field, pred.Values)
	case queryir.Equals:
		return c.compileEquals(pred)
	case *queryir.Equals:
		return c.compileEquals(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (c *SOQLCompiler) compileEquals(eq queryir.Equals) (string, error) {
	lit, err := soqlLiteral(eq.Value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", eq.Field, err)
	}
	return eq.Field + " = " + lit, nil
}

func (c *SOQLCompiler) compileAnd(and queryir.And) (string, error) {
	var parts []string
	for _, sub := range and.Predicates {
		s, err := c.compilePredicate(sub)
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " AND "), nil
}

// soqlLiteral renders a scalar value as a SOQL literal.
func soqlLiteral(v ir.Value) (string, error) {
	switch val := v.(type) {
	case nil, ir.Null:
		return "null", nil
	case ir.String:
		return QuoteLiteral(string(val)), nil
	case ir.Int:
		return fmt.Sprintf("%d", int64(val)), nil
	case ir.Bool:
		if val {
			return "true", nil
		}
		return "false", nil
	default:
		return "", fmt.Errorf("unsupported literal type: %T", v)
	}
}
