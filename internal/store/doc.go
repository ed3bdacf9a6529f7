// Package store builds a SQLite database from a catalog and checks compiled
// plans against it.
//
// Tables derives the physical layout of every mapped table: entity tables
// (identifier columns first, joined subtypes keyed by the inherited
// identifier) followed by collection tables. DDL renders the layout as
// create statements.
//
// Check prepares a plan's SQL without executing it, so a plan that
// references a column the catalog does not map, or that SQLite cannot
// parse, fails before it reaches a real database. The prepared statement's
// parameter count must equal the plan's binder count.
//
// # Database Configuration
//
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - one pooled connection, so MemoryPath databases persist until Close
package store
