package engine

import (
	"slices"

	"github.com/roach88/macromover/internal/ir"
)

// Index maps a tier's natural keys to the ids the target assigned.
//
// An Index only grows: Merge and Put add or overwrite entries and nothing
// removes them. A repeated key is last-write-wins.
type Index struct {
	ids map[string]string
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{ids: make(map[string]string)}
}

// BuildIndex creates an index from query rows keyed by keyField.
// Rows lacking the key or an Id are skipped.
func BuildIndex(records []ir.Record, keyField string) *Index {
	idx := NewIndex()
	idx.Merge(records, keyField)
	return idx
}

// Has reports whether key has an assigned id.
func (x *Index) Has(key string) bool {
	_, ok := x.ids[key]
	return ok
}

// Get returns the id assigned to key.
func (x *Index) Get(key string) (string, bool) {
	id, ok := x.ids[key]
	return id, ok
}

// Put records id for key. Empty keys and ids are ignored.
func (x *Index) Put(key, id string) {
	if key == "" || id == "" {
		return
	}
	x.ids[key] = id
}

// Merge extends the index with rows keyed by keyField.
func (x *Index) Merge(records []ir.Record, keyField string) {
	x.MergeKeys(records, fieldKeys(keyField))
}

// MergeKeys extends the index with rows whose keys are computed by keyOf.
// keyOf must return one key per record, in order.
func (x *Index) MergeKeys(records []ir.Record, keyOf KeyFunc) {
	keys := keyOf(records)
	for i, r := range records {
		x.Put(keys[i], r.ID())
	}
}

// Len returns the number of keys in the index.
func (x *Index) Len() int {
	return len(x.ids)
}

// Keys returns all keys in sorted order.
func (x *Index) Keys() []string {
	keys := make([]string, 0, len(x.ids))
	for k := range x.ids {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Map returns a copy of the key → id mapping.
func (x *Index) Map() map[string]string {
	out := make(map[string]string, len(x.ids))
	for k, v := range x.ids {
		out[k] = v
	}
	return out
}
