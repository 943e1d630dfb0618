// Package similarity answers top-N cosine similarity queries against the
// embedded documents of a corpus.
//
// TopN streams the corpus once and keeps only the N best candidates in a
// bounded min-heap, so memory stays O(N) regardless of corpus size. TopNFull
// materializes and sorts every candidate; it is kept as the reference
// behaviour. Documents whose embedding length differs from the query's are
// skipped silently.
package similarity
