// Package store provides SQLite-backed storage for the reservation
// catalogue: resources, reservables, reservable sets, reservations,
// grants and sort orders.
//
// # Conventions
//
//   - Times are stored as INTEGER Unix milliseconds and read back in UTC.
//   - Reservables and resources are referenced by slug at the API and by
//     integer ID inside the database.
//   - List queries always end in a total order so results are stable:
//     reservations by (start_ms, id), catalogue rows by (slug, id).
//   - Filtered lists take a *filter.Filter compiled against the table
//     aliases declared in package filter.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - casefold(text): Unicode case folding for case-insensitive lookups
//
// The pool holds a single connection. Methods that run follow-up queries
// close their result sets first; code running inside withTx must only use
// the transaction.
package store
