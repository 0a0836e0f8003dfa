// Package store provides a SQLite-backed target environment.
//
// The store holds the three migrated collections as tables named after
// them (Folder, Macro, MacroInstruction) and implements engine.Client, so
// a deploy can run against a local database the same way it runs against
// a remote one. It also keeps the deploy_runs ledger.
//
// # Critical Patterns
//
// Natural-key uniqueness:
//   - Folder.DeveloperName and Macro.Name are UNIQUE
//   - A duplicate insert is refused per row, never silently merged
//
// Per-row insert outcomes:
//   - BulkInsert runs in one transaction with a SAVEPOINT per payload
//   - A refused row rolls back to its savepoint; the rest still commit
//
// Deterministic query results:
//   - All queries include ORDER BY "Id" COLLATE BINARY ASC
//   - Ids are UUIDv7, so Id order is insertion order
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s for locks
//   - foreign_keys=ON: Children must reference an existing parent
package store
