package embedder

import (
	"context"
	"errors"
	"fmt"

	"github.com/w-h-a/docchat/chunker"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ErrEmbedding marks a failed embedding call during index
// construction. Unlike extraction, a partial failure here aborts the
// whole build: an index with missing vectors is unsafe to query.
var ErrEmbedding = errors.New("embedding failed")

// EmbedChunks computes a vector for every chunk. Any provider failure
// aborts with ErrEmbedding.
func EmbedChunks(ctx context.Context, e Embedder, chunks []chunker.Chunk) ([]chunker.Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}

	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(vectors), len(chunks))
	}

	embedded := make([]chunker.Chunk, len(chunks))
	for i, chunk := range chunks {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("%w: empty vector for chunk %d", ErrEmbedding, chunk.Position)
		}
		chunk.Embedding = vectors[i]
		embedded[i] = chunk
	}

	return embedded, nil
}
