package vector

import (
	"context"
	"fmt"

	"github.com/w-h-a/docchat/embedder"
	"github.com/w-h-a/docchat/index"
	"github.com/w-h-a/docchat/retriever"
)

// vectorRetriever embeds the query with the SAME embedder that built
// the index and returns the top-K most similar chunks. Binding the
// embedder here keeps query vectors in the index's embedding space.
type vectorRetriever struct {
	options  retriever.Options
	embedder embedder.Embedder
	index    index.Index
}

func (r *vectorRetriever) Retrieve(ctx context.Context, query string) ([]index.Result, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.index.Search(ctx, vec, r.options.TopK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	return results, nil
}

func NewRetriever(e embedder.Embedder, idx index.Index, opts ...retriever.Option) retriever.Retriever {
	options := retriever.NewOptions(opts...)

	if options.TopK < 1 {
		options.TopK = retriever.DefaultTopK
	}

	r := &vectorRetriever{
		options:  options,
		embedder: e,
		index:    idx,
	}

	return r
}
