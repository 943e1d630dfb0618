// Package vecsync defines the change log kept next to the documents table.
// Triggers append one row per insert or update, each with a monotonically
// increasing sequence number, so downstream catalog replicas can pull
// changes incrementally instead of rescanning the corpus.
package vecsync
