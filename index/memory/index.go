package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/w-h-a/docchat/chunker"
	"github.com/w-h-a/docchat/index"
)

type record struct {
	id        string
	chunk     chunker.Chunk
	embedding []float32
}

// memoryIndex is a brute-force cosine similarity index over copied
// vectors. Build is O(n); search is O(n), which is fine at
// single-session scale.
type memoryIndex struct {
	records []record
	dim     int
	mtx     sync.RWMutex
}

func (idx *memoryIndex) Search(ctx context.Context, vector []float32, k int) ([]index.Result, error) {
	if k < 1 {
		return nil, nil
	}

	idx.mtx.RLock()
	defer idx.mtx.RUnlock()

	candidates := make([]index.Result, 0, len(idx.records))

	for _, rec := range idx.records {
		// Negative similarity is clamped so scores stay in [0,1].
		sim := index.CosineSimilarity(vector, rec.embedding)
		if sim < 0 {
			sim = 0
		}
		candidates = append(candidates, index.Result{
			Chunk: rec.chunk,
			Score: sim,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	return candidates, nil
}

func (idx *memoryIndex) Len() int {
	idx.mtx.RLock()
	defer idx.mtx.RUnlock()
	return len(idx.records)
}

// Build validates every chunk's vector and seals the index. Chunk
// count is preserved exactly.
func Build(chunks []chunker.Chunk) (index.Index, error) {
	idx := &memoryIndex{
		records: make([]record, 0, len(chunks)),
		mtx:     sync.RWMutex{},
	}

	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return nil, fmt.Errorf("%w: chunk %d has no embedding", index.ErrIndexBuild, chunk.Position)
		}

		if idx.dim == 0 {
			idx.dim = len(chunk.Embedding)
		} else if len(chunk.Embedding) != idx.dim {
			return nil, fmt.Errorf("%w: chunk %d has dimension %d, want %d", index.ErrIndexBuild, chunk.Position, len(chunk.Embedding), idx.dim)
		}

		cpy := make([]float32, len(chunk.Embedding))
		copy(cpy, chunk.Embedding)

		idx.records = append(idx.records, record{
			id:        uuid.New().String(),
			chunk:     chunk,
			embedding: cpy,
		})
	}

	return idx, nil
}
