// Package ir provides the record model shared by every macromover package.
//
// This package contains value and record types only. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Records are ordered field lists, never untyped maps
//   - Field values are sealed scalars: String, Int, Bool, Null
//   - Tier views (Folder, Macro, MacroInstruction) carry declared fields only
//   - Canonical JSON (RFC 8785 + NFC) is the only hashing input
package ir
