// Package vector defines the document model shared by the store and the
// similarity engine. It includes:
//   - Document and its content Fingerprint
//   - Embedding encoding (BLOB) used by the documents table
//   - Cosine similarity and normalization over float32 vectors
//   - The error taxonomy returned by store and query operations
package vector
