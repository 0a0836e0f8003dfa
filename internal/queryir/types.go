package queryir

import "github.com/roach88/macromover/internal/ir"

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select reads rows from one collection.
//
// Semantics:
//
//	SELECT <fields> FROM <from> WHERE <filter>
//
// Example:
//
//	Select{
//	  From:   "Macro",
//	  Fields: []string{"Id", "Name", "Folder.DeveloperName"},
//	  Filter: In{Field: "Name", Values: []string{"Greet", "Close"}},
//	}
//
// Fields are returned in the order declared. A field of the form
// "Rel.Field" reads Field from the parent row referenced by RelId.
type Select struct {
	From   string    // Collection name (e.g., "Macro")
	Fields []string  // Selected fields, in output order
	Filter Predicate // WHERE condition (nil = no filter)
}

// In is a field-in-literal-set predicate.
//
//	<field> IN ('v1', 'v2', ...)
//
// Values must be non-empty.
type In struct {
	Field  string
	Values []string
}

func (In) predicateNode() {}

// Equals is a field-equals-literal predicate.
//
//	<field> = <value>
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// And is a conjunction of predicates. Empty means always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Fields collects every field a predicate references, in traversal order.
func Fields(p Predicate) []string {
	var out []string
	var walk func(Predicate)
	walk = func(p Predicate) {
		switch pred := p.(type) {
		case In:
			out = append(out, pred.Field)
		case *In:
			out = append(out, pred.Field)
		case Equals:
			out = append(out, pred.Field)
		case *Equals:
			out = append(out, pred.Field)
		case And:
			for _, sub := range pred.Predicates {
				walk(sub)
			}
		case *And:
			for _, sub := range pred.Predicates {
				walk(sub)
			}
		}
	}
	walk(p)
	return out
}
