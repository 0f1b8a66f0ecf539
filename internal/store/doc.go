// Package store provides persistent storage for underbudget-auth.
//
// # Architecture
//
// The store package uses an interface-driven architecture:
//
//   - UserStore: the credential store (registered users and password digests)
//   - TokenStore: the token registry (one record per issued access token)
//   - AuditStore: append-only log of registrations, logins, and revocations
//
// SQLStore implements all interfaces in a single struct on top of
// database/sql. MockStore is an in-memory implementation for unit tests.
//
// # Drivers
//
//   - "sqlite": modernc.org/sqlite (pure Go, default)
//   - "sqlite3": github.com/mattn/go-sqlite3 (cgo)
//   - "pgx": github.com/jackc/pgx/v5 through its database/sql adapter
//
// Queries are written with ? placeholders and rebound to $n for PostgreSQL.
// SQLite connections enable WAL, foreign keys, and a busy timeout through
// DSN parameters so every pooled connection gets them.
//
// # Migrations
//
// Schema migrations are embedded per dialect under migrations/ and applied
// with a goose Provider when the store is opened.
//
// # Token Registry Semantics
//
// Access token records are keyed by the token's jti. The revoked flag only
// moves from false to true and is set with a single conditional UPDATE, so
// concurrent revocations of the same token are safe and idempotent. Records
// are pruned once they have been expired for the configured retention window.
//
// # Error Handling
//
//   - ErrNotFound: requested entity does not exist
//   - ErrEmailExists / ErrNameExists: unique user constraint violated
//   - ErrTokenExists: token id already recorded
//
// Timestamps are stored as fixed-width UTC text so they sort chronologically.
package store
