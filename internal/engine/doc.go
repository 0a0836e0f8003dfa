// Package engine implements the three-tier migration engine.
//
// A run walks the Folder → Macro → MacroInstruction hierarchy top-down.
// Each tier is reconciled against the target the same way:
//
//  1. Look up the tier's natural keys in the target (one query per chunk).
//  2. Merge the rows into the tier's Index (natural key → assigned id).
//  3. Build insert payloads only for keys still absent from the index.
//  4. Bulk-insert the payloads once and record each successful row's id
//     in the index, by position in the insert results.
//
// The Macro tier additionally refreshes its index from the target after a
// successful insert, so instruction payloads carry the macro ids the
// target reports.
//
// Child payloads embed the parent's assigned id, read from the parent
// tier's index. A parent tier is therefore fully reconciled before any
// child payload is built.
//
// CRITICAL PATTERNS:
//
// Single-threaded cascade:
// Tiers run strictly in order on the caller's goroutine. No tier work
// is parallelized and no goroutines are started.
//
// Inserts are never retried:
// Query calls are read-only and may be retried (WithQueryRetries).
// A bulk insert is attempted exactly once; per-row failures are counted
// in the TierResult and never abort the run.
package engine
