// Package observability builds the zerolog logger and the Prometheus metrics
// shared by the store, the similarity engine and the indexer.
package observability
