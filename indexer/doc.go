// Package indexer connects upstream collaborators to the document store: a
// Producer supplies catalog records, an EmbedFunc turns text into vectors,
// and only new or changed documents are embedded and written.
//
// The package stays embedding-agnostic. Any provider can sit behind
// EmbedFunc as long as it returns float32 vectors.
package indexer
