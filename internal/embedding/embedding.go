// Package embedding turns text into fixed-dimension vectors through an
// external embedding model.
package embedding

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32 // e.g. 1536 dimensions for text-embedding-3-small
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}
