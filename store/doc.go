// Package store persists media documents in a SQLite table keyed by id. It
// detects unchanged content by fingerprint so re-indexing only writes what
// changed, writes batches in a single transaction, and exposes a streaming
// scan over embedded documents for the similarity engine.
package store
