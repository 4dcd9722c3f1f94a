// Package directory provides ready-made implementations of
// authcore.UserDirectory: a PostgreSQL directory over sqlx for production
// and an in-memory directory for tests and examples.
//
// Both implementations share the contract the service relies on: lookups
// return (nil, nil) on a miss, Create rejects duplicate identifiers with
// authcore.ErrAccountExists, and every successful write rotates the
// record's Updated timestamp.
package directory
