package extractor

import "context"

type Extractor interface {
	Extract(ctx context.Context, file UploadedFile) ([]Document, error)
}
