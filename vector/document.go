package vector

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Document is the unit of storage: one media record rendered to text, with
// an optional embedding of that text.
type Document struct {
	// ID is the stable identifier assigned by the upstream catalog.
	ID string `json:"id"`

	// Name is a display label; it is not unique.
	Name string `json:"name"`

	// Text is the canonical rendered content the embedding was produced from.
	Text string `json:"text"`

	// Fingerprint is a content hash of Text used only for change detection.
	Fingerprint string `json:"fingerprint,omitempty"`

	// Embedding is nil until an embedding has been computed. Producers are
	// expected to supply unit-length vectors.
	Embedding []float32 `json:"embedding"`
}

// HasEmbedding reports whether an embedding is present. An empty, non-nil
// slice counts as present.
func (d *Document) HasEmbedding() bool {
	return d != nil && d.Embedding != nil
}

// ContentFingerprint returns Fingerprint when the caller set one, otherwise
// the fingerprint of Text. The document is not modified.
func (d *Document) ContentFingerprint() string {
	if d.Fingerprint != "" {
		return d.Fingerprint
	}
	return Fingerprint(d.Text)
}

// Fingerprint returns the content hash of text as 16 lowercase hex digits.
// It is a non-cryptographic xxhash64 digest.
func Fingerprint(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}
