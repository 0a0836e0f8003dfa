package engine

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/goleak"

	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/queryir"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeTarget is an in-memory target that records every call.
// Only In filters on plain fields are supported.
type fakeTarget struct {
	rows    map[string][]ir.Record
	nextID  int
	queries []queryir.Select
	inserts map[string][][]ir.Record

	// refuse returns row errors for payloads the target should reject.
	refuse func(collection string, payload ir.Record) []string

	// queryErrs fails the next len(queryErrs) queries, in order.
	queryErrs []error
	insertErr error
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		rows:    make(map[string][]ir.Record),
		inserts: make(map[string][][]ir.Record),
	}
}

// seed adds a row with a fixed id.
func (f *fakeTarget) seed(collection, id string, fields ...ir.Field) {
	r := ir.NewRecord(append([]ir.Field{ir.F(ir.FieldID, ir.String(id))}, fields...)...)
	f.rows[collection] = append(f.rows[collection], r)
}

func (f *fakeTarget) Query(ctx context.Context, sel queryir.Select) ([]ir.Record, error) {
	f.queries = append(f.queries, sel)
	if len(f.queryErrs) > 0 {
		err := f.queryErrs[0]
		f.queryErrs = f.queryErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	in, ok := sel.Filter.(queryir.In)
	if !ok {
		return nil, fmt.Errorf("fake target: unsupported filter %T", sel.Filter)
	}
	want := make(map[string]bool, len(in.Values))
	for _, v := range in.Values {
		want[v] = true
	}

	var out []ir.Record
	for _, row := range f.rows[sel.From] {
		if !want[row.Text(in.Field)] {
			continue
		}
		var projected ir.Record
		for _, field := range sel.Fields {
			v, ok := row.Get(field)
			if !ok {
				v = ir.Null{}
			}
			projected.Set(field, v)
		}
		out = append(out, projected)
	}
	return out, nil
}

func (f *fakeTarget) BulkInsert(ctx context.Context, collection string, payloads []ir.Record) ([]InsertResult, error) {
	f.inserts[collection] = append(f.inserts[collection], payloads)
	if f.insertErr != nil {
		return nil, f.insertErr
	}

	results := make([]InsertResult, len(payloads))
	for i, p := range payloads {
		if f.refuse != nil {
			if errs := f.refuse(collection, p); len(errs) > 0 {
				results[i] = InsertResult{Success: false, Errors: errs}
				continue
			}
		}
		f.nextID++
		id := fmt.Sprintf("%s-%04d", collection, f.nextID)
		row := ir.NewRecord(ir.F(ir.FieldID, ir.String(id)))
		row = row.Merge(p)
		f.rows[collection] = append(f.rows[collection], row)
		results[i] = InsertResult{Success: true, ID: id}
	}
	return results, nil
}

// queriesOn counts queries issued against collection.
func (f *fakeTarget) queriesOn(collection string) int {
	n := 0
	for _, q := range f.queries {
		if q.From == collection {
			n++
		}
	}
	return n
}

// insertCalls returns the payload batches sent to collection.
func (f *fakeTarget) insertCalls(collection string) [][]ir.Record {
	return f.inserts[collection]
}

// graph builds a MacroGraph with instructions at the given sort orders.
func graph(name, folderDev string, sortOrders ...int64) MacroGraph {
	g := MacroGraph{Macro: ir.Macro{
		Name:        name,
		Description: name + " macro",
		Folder:      ir.Folder{Name: folderDev + " Folder", DeveloperName: folderDev},
	}}
	if folderDev == "" {
		g.Macro.Folder = ir.Folder{}
	}
	for _, so := range sortOrders {
		g.Instructions = append(g.Instructions, ir.MacroInstruction{
			Operation: "Select",
			SortOrder: so,
			Target:    fmt.Sprintf("Field%d", so),
		})
	}
	return g
}
