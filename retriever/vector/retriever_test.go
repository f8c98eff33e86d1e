package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/docchat/chunker"
	memoryindex "github.com/w-h-a/docchat/index/memory"
	"github.com/w-h-a/docchat/retriever"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = f.vector
	}
	return vectors, nil
}

func TestRetrieveReturnsTopK(t *testing.T) {
	idx, err := memoryindex.Build([]chunker.Chunk{
		{Text: "about cats", Position: 0, Embedding: []float32{1, 0}},
		{Text: "about dogs", Position: 1, Embedding: []float32{0, 1}},
		{Text: "about lions", Position: 2, Embedding: []float32{0.9, 0.1}},
	})
	require.NoError(t, err)

	re := NewRetriever(&fakeEmbedder{vector: []float32{1, 0}}, idx, retriever.WithTopK(2))

	results, err := re.Retrieve(context.Background(), "felines")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "about cats", results[0].Chunk.Text)
	require.Equal(t, "about lions", results[1].Chunk.Text)
	require.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestRetrieveDefaultsTopK(t *testing.T) {
	idx, err := memoryindex.Build([]chunker.Chunk{
		{Text: "a", Embedding: []float32{1, 0}},
		{Text: "b", Embedding: []float32{0, 1}},
		{Text: "c", Embedding: []float32{1, 1}},
	})
	require.NoError(t, err)

	re := NewRetriever(&fakeEmbedder{vector: []float32{1, 0}}, idx)

	results, err := re.Retrieve(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, results, retriever.DefaultTopK)
}

func TestRetrievePropagatesEmbedFailure(t *testing.T) {
	idx, err := memoryindex.Build([]chunker.Chunk{
		{Text: "a", Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)

	re := NewRetriever(&fakeEmbedder{err: errors.New("provider down")}, idx)

	_, err = re.Retrieve(context.Background(), "anything")
	require.Error(t, err)
	require.Contains(t, err.Error(), "embed query")
}
