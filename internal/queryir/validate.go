package queryir

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrEmptyValueSet is returned when an In predicate has no values.
// Callers must short-circuit instead of issuing the query.
var ErrEmptyValueSet = errors.New("empty value set")

// identPattern matches a field or collection name, optionally qualified by
// one relationship name ("Folder.DeveloperName").
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// collectionPattern matches an unqualified collection name.
var collectionPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidationError lists every problem found in a query.
type ValidationError struct {
	Problems []string
	empty    bool
}

func (e *ValidationError) Error() string {
	return "invalid query: " + strings.Join(e.Problems, "; ")
}

// Is reports ErrEmptyValueSet when any In predicate had no values, so
// errors.Is(err, ErrEmptyValueSet) works on the aggregate.
func (e *ValidationError) Is(target error) bool {
	return e.empty && target == ErrEmptyValueSet
}

// IsValidIdentifier reports whether name is safe to render unquoted as a
// field reference.
func IsValidIdentifier(name string) bool {
	return identPattern.MatchString(name)
}

// Validate checks a Select before it is rendered by any backend.
//
// Rules:
//  1. From is a plain identifier
//  2. At least one field is selected; every field is an identifier
//  3. Every In predicate carries at least one value
//
// Validate is a pure function with no side effects.
func Validate(sel Select) error {
	v := &validator{}
	v.validateSelect(sel)
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems, empty: v.empty}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
	empty    bool
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateSelect(sel Select) {
	if !collectionPattern.MatchString(sel.From) {
		v.addProblem("invalid collection name %q", sel.From)
	}
	if len(sel.Fields) == 0 {
		v.addProblem("no fields selected from %s", sel.From)
	}
	for _, f := range sel.Fields {
		v.validateField(f)
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validateField(name string) {
	if !IsValidIdentifier(name) {
		v.addProblem("invalid field name %q", name)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case In:
		v.validateIn(pred)
	case *In:
		v.validateIn(*pred)
	case Equals:
		v.validateField(pred.Field)
	case *Equals:
		v.validateField(pred.Field)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	case nil:
	default:
		v.addProblem("unsupported predicate type %T", p)
	}
}

func (v *validator) validateIn(in In) {
	v.validateField(in.Field)
	if len(in.Values) == 0 {
		v.empty = true
		v.addProblem("%s IN (): %v", in.Field, ErrEmptyValueSet)
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}
