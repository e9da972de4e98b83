// Package embedding provides text embedding (ONNX-backed or mock) and the
// cosine similarity utility used for ranking.
package embedding

import "context"

// Embedder produces fixed-length normalized vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
