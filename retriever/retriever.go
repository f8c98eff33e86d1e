package retriever

import (
	"context"

	"github.com/w-h-a/docchat/index"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]index.Result, error)
}
