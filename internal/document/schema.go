package document

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaSource string

// ValidationError is one schema violation in a document.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SchemaError collects every violation found in one document.
type SchemaError struct {
	Problems []ValidationError
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "invalid document: " + strings.Join(msgs, "; ")
}

// Validate checks data against the embedded CUE schema.
// Returns all violations found (does not fail-fast) as a *SchemaError.
func Validate(data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile document schema: %w", err)
	}

	expr, err := cuejson.Extract("document.json", data)
	if err != nil {
		return &SchemaError{Problems: []ValidationError{{Field: "$", Message: err.Error()}}}
	}

	doc := schema.LookupPath(cue.ParsePath("#Document")).Unify(ctx.BuildExpr(expr))
	if err := doc.Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{Problems: problems(err)}
	}
	return nil
}

// problems flattens a CUE error list into ValidationErrors, one per path.
func problems(err error) []ValidationError {
	var out []ValidationError
	seen := make(map[string]bool)
	for _, e := range cueerrors.Errors(err) {
		field := strings.Join(e.Path(), ".")
		if field == "" {
			field = "$"
		}
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if seen[field+msg] {
			continue
		}
		seen[field+msg] = true

		ve := ValidationError{Field: field, Message: msg}
		if pos := e.Position(); pos.IsValid() && pos.Filename() == "document.json" {
			ve.Line = pos.Line()
		}
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Field: "$", Message: err.Error()})
	}
	return out
}
