// Package queryir provides the abstract query representation the migration
// engine hands to its query collaborator.
//
// The engine never concatenates query text. It builds a Select whose filter
// is a small tree of predicates, and each backend renders that tree its own
// way:
//
//	[engine] → [queryir.Select] → [querysql.SOQLCompiler] (remote text, escaped literals)
//	                            → [querysql.SQLCompiler]  (local SQLite, bound parameters)
//
// SUPPORTED FRAGMENT:
//   - Select(from, fields, filter)
//   - Predicates: In, Equals, And
//   - Relationship fields one level deep ("Folder.DeveloperName")
//
// An In predicate with no values is invalid: "Field IN ()" must never reach
// a remote query surface. Validate reports it as ErrEmptyValueSet so
// callers can skip the query entirely.
//
// SEALED INTERFACES:
//
// Predicate is sealed with the marker method pattern, so backends can use
// exhaustive type switches:
//
//	switch p := pred.(type) {
//	case In:
//	case Equals:
//	case And:
//	}
package queryir
