package index

import (
	"context"
	"errors"
	"math"

	"github.com/w-h-a/docchat/chunker"
)

// ErrIndexBuild marks a failed index construction: a chunk arrived
// without a vector or with the wrong dimensionality.
var ErrIndexBuild = errors.New("index build failed")

// Result is one retrieval hit. Score is cosine similarity mapped to
// [0,1], descending.
type Result struct {
	Chunk chunker.Chunk
	Score float64
}

// Index holds the embedded chunks of one indexing action. It is
// immutable once built; a new indexing action builds a replacement.
type Index interface {
	Search(ctx context.Context, vector []float32, k int) ([]Result, error)
	Len() int
}

func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
