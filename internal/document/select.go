package document

import (
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// Select narrows a raw document to the macros matched by a JSONPath
// expression evaluated against the whole document, e.g.
//
//	$.Macros[?(@.Folder.DeveloperName == 'Sales')]
//
// Every match must be a macro object. The result is a new raw document
// holding only the matches, in match order.
func Select(data []byte, selector string) ([]byte, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}

	root, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	results := x.Get(root)
	macros := make([]any, 0, len(results))
	for i, r := range results {
		if _, ok := r.(map[string]any); !ok {
			return nil, fmt.Errorf("jsonpath '%s': match %d is %T, not a macro object", selector, i, r)
		}
		macros = append(macros, r)
	}

	out, err := json.Marshal(map[string]any{"Macros": macros})
	if err != nil {
		return nil, fmt.Errorf("encode selection: %w", err)
	}
	return out, nil
}
