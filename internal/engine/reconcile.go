package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/macromover/internal/ir"
	"github.com/roach88/macromover/internal/queryir"
	"github.com/roach88/macromover/internal/querysql"
)

// Missing is a natural key absent from the target, with the first source
// record that carried it.
type Missing struct {
	Key    string
	Record ir.Record
}

// RowFailure is a payload the target refused.
type RowFailure struct {
	Key    string   `json:"key"`
	Errors []string `json:"errors"`
}

// TierResult is the outcome of reconciling one tier.
type TierResult struct {
	Tier      ir.Tier      `json:"tier"`
	Attempted int          `json:"attempted"`
	Succeeded int          `json:"succeeded"`
	Failures  []RowFailure `json:"failures,omitempty"`

	// Queries and Inserts count collaborator calls (retries excluded).
	Queries int `json:"queries"`
	Inserts int `json:"inserts"`
}

// Failed returns the number of payloads the target refused.
func (r TierResult) Failed() int {
	return len(r.Failures)
}

// Option configures a Reconciler or Cascade.
type Option func(*options)

type options struct {
	limits  querysql.Limits
	retries int
	logger  *slog.Logger
}

func defaultOptions() options {
	return options{
		limits: querysql.DefaultLimits,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithQueryRetries retries a failed lookup query up to n more times.
// Bulk inserts are never retried.
func WithQueryRetries(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.retries = n
		}
	}
}

// WithLimits sets the IN-clause chunking limits for lookups.
func WithLimits(l querysql.Limits) Option {
	return func(o *options) {
		o.limits = l
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Reconciler finds which records of a tier are missing from the target
// and inserts them.
type Reconciler struct {
	client Client
	soql   *querysql.SOQLCompiler
	opts   options
}

// NewReconciler creates a Reconciler over client.
func NewReconciler(client Client, opts ...Option) *Reconciler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Reconciler{client: client, soql: querysql.NewSOQLCompiler(), opts: o}
}

// FindMissing returns the distinct keys of source absent from idx, in
// first-seen order. Records without a key are ignored.
func FindMissing(source []ir.Record, idx *Index, keyOf KeyFunc) []Missing {
	keys := keyOf(source)
	seen := make(map[string]bool)
	var missing []Missing
	for i, r := range source {
		key := keys[i]
		if key == "" || seen[key] || idx.Has(key) {
			continue
		}
		seen[key] = true
		missing = append(missing, Missing{Key: key, Record: r})
	}
	return missing
}

// ToInsertPayload builds the insert payload for a missing record: its
// fields without Id, extended with the tier defaults.
func ToInsertPayload(m Missing, tier TierConfig) ir.Record {
	return m.Record.Without(ir.FieldID).Merge(tier.Defaults)
}

// Diff looks up source in the target, merges what exists into idx and
// returns what is still missing. Nothing is inserted.
func (r *Reconciler) Diff(ctx context.Context, source []ir.Record, idx *Index, tier TierConfig) ([]Missing, TierResult, error) {
	result := TierResult{Tier: tier.Tier}
	values := tier.lookupValues(source)
	if len(values) == 0 {
		return nil, result, nil
	}
	if err := r.lookup(ctx, tier, values, idx, &result); err != nil {
		return nil, result, err
	}
	return FindMissing(source, idx, tier.KeyOf), result, nil
}

// Reconcile ensures every key of source exists in the target.
//
// One lookup query is issued per value chunk (one for ordinary inputs),
// then one bulk insert with exactly the missing payloads. A tier with
// nothing missing issues no insert. Ids of inserted rows are taken from
// the positionally aligned insert results; Refresh reads them back.
func (r *Reconciler) Reconcile(ctx context.Context, source []ir.Record, idx *Index, tier TierConfig) (TierResult, error) {
	missing, result, err := r.Diff(ctx, source, idx, tier)
	if err != nil {
		return result, err
	}
	if len(missing) == 0 {
		r.opts.logger.Info("tier up to date", "tier", tier.Tier, "existing", idx.Len())
		return result, nil
	}

	payloads := make([]ir.Record, len(missing))
	for i, m := range missing {
		payloads[i] = ToInsertPayload(m, tier)
	}

	if err := ctx.Err(); err != nil {
		return result, NewInsertError(tier.Tier, err)
	}
	results, err := r.client.BulkInsert(ctx, tier.Tier.Collection(), payloads)
	result.Inserts++
	if err != nil {
		return result, NewInsertError(tier.Tier, err)
	}
	if len(results) != len(payloads) {
		return result, NewInsertError(tier.Tier,
			fmt.Errorf("got %d results for %d payloads", len(results), len(payloads)))
	}

	result.Attempted = len(payloads)
	for i, res := range results {
		if !res.Success {
			result.Failures = append(result.Failures, RowFailure{Key: missing[i].Key, Errors: res.Errors})
			r.opts.logger.Warn("insert refused",
				"tier", tier.Tier,
				"key", missing[i].Key,
				"errors", res.Errors)
			continue
		}
		result.Succeeded++
		idx.Put(missing[i].Key, res.ID)
	}

	r.opts.logger.Info("tier inserted",
		"tier", tier.Tier,
		"attempted", result.Attempted,
		"succeeded", result.Succeeded)

	return result, nil
}

// Refresh re-queries every key of source and merges the rows into idx, so
// idx holds ids as the target reports them after an insert.
func (r *Reconciler) Refresh(ctx context.Context, source []ir.Record, idx *Index, tier TierConfig) (int, error) {
	values := tier.lookupValues(source)
	if len(values) == 0 {
		return 0, nil
	}
	var result TierResult
	err := r.lookup(ctx, tier, values, idx, &result)
	return result.Queries, err
}

// lookup queries the target for values, one query per chunk, merging rows
// into idx.
func (r *Reconciler) lookup(ctx context.Context, tier TierConfig, values []string, idx *Index, result *TierResult) error {
	for _, chunk := range querysql.ChunkValues(tier.LookupField, values, r.opts.limits) {
		sel := queryir.Select{
			From:   tier.Tier.Collection(),
			Fields: tier.Fields,
			Filter: queryir.In{Field: tier.LookupField, Values: chunk},
		}
		text, err := r.soql.Compile(sel)
		if err != nil {
			if errors.Is(err, queryir.ErrEmptyValueSet) {
				return NewEmptyValueSetError(tier.Tier, err)
			}
			return NewQueryError(tier.Tier, err)
		}
		r.opts.logger.Debug("lookup", "tier", tier.Tier, "values", len(chunk), "soql", text)

		rows, err := r.query(ctx, sel)
		result.Queries++
		if err != nil {
			return NewQueryError(tier.Tier, err)
		}
		idx.MergeKeys(rows, tier.KeyOf)
	}
	return nil
}

// query runs sel, retrying up to the configured count. Context
// cancellation stops retries.
func (r *Reconciler) query(ctx context.Context, sel queryir.Select) ([]ir.Record, error) {
	var lastErr error
	for attempt := 0; attempt <= r.opts.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := r.client.Query(ctx, sel)
		if err == nil {
			return rows, nil
		}
		lastErr = err
		r.opts.logger.Debug("lookup failed", "collection", sel.From, "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}
