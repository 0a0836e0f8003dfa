package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// FieldID is the field every collection uses for its environment-assigned id.
const FieldID = "Id"

// Field is a single named value within a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is an ordered mapping from field name to scalar value.
//
// Field order is preserved through JSON encoding and decoding so that
// payloads and query rows read the same way they were declared. A field
// name appears at most once; Set replaces an existing value in place.
type Record []Field

// NewRecord builds a Record from fields. A repeated name keeps the last value.
func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// F is a shorthand for Field for ergonomic construction.
// Example: NewRecord(F("Name", String("Sales")), F("IsReadonly", Bool(true)))
func F(name string, value Value) Field {
	return Field{Name: name, Value: value}
}

// Get returns the value stored under name.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Has reports whether the record declares name, even with a null value.
func (r Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Text returns the field rendered as text, or "" when absent or null.
func (r Record) Text(name string) string {
	v, ok := r.Get(name)
	if !ok {
		return ""
	}
	return Text(v)
}

// ID returns the record's environment-assigned id, or "" when absent.
func (r Record) ID() string {
	return r.Text(FieldID)
}

// Set stores value under name, replacing any existing value in place.
func (r *Record) Set(name string, value Value) {
	if value == nil {
		value = Null{}
	}
	for i := range *r {
		if (*r)[i].Name == name {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Field{Name: name, Value: value})
}

// Names returns field names in declaration order.
func (r Record) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Clone returns a copy that shares no backing array with r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	copy(out, r)
	return out
}

// Merge returns a copy of r extended with every field of extra that r does
// not already declare. Fields already present in r are never overwritten.
func (r Record) Merge(extra Record) Record {
	out := r.Clone()
	for _, f := range extra {
		if !out.Has(f.Name) {
			out = append(out, f)
		}
	}
	return out
}

// Without returns a copy of r with the named fields removed.
func (r Record) Without(names ...string) Record {
	out := make(Record, 0, len(r))
	for _, f := range r {
		drop := false
		for _, n := range names {
			if f.Name == n {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, f)
		}
	}
	return out
}

// NormalizeNulls returns a copy of r with every null value replaced by the
// empty-string sentinel. The target environment treats absent text as "".
func (r Record) NormalizeNulls() Record {
	out := r.Clone()
	for i := range out {
		if IsNull(out[i].Value) {
			out[i].Value = String("")
		}
	}
	return out
}

// Object converts the record into an unordered Object.
func (r Record) Object() Object {
	obj := make(Object, len(r))
	for _, f := range r {
		obj[f.Name] = f.Value
	}
	return obj
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(f.Name)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", f.Name, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", f.Name, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the order keys appear in.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object")
	}

	var out Record
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("record key must be a string, got %T", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("record key %q: %w", key, err)
		}
		val, err := unmarshalValue(raw)
		if err != nil {
			return fmt.Errorf("record key %q: %w", key, err)
		}
		out.Set(key, val)
	}

	if _, err := dec.Token(); err != nil && err != io.EOF {
		return err
	}
	*r = out
	return nil
}
