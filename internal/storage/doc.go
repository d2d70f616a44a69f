// Package storage keeps the append-only delivery audit log.
//
// Drivers:
//   - "memory": in-process slice (default)
//   - "file":   JSON Lines file, one record per successful delivery
//   - "sqlite": SQLite database file
//
// Records are written once per successful transmission and are never read
// back to drive delivery decisions.
package storage
