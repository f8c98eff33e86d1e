package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoDocuments is returned when a whole batch of uploads yields no
// extractable documents. Indexing must not proceed past this point.
var ErrNoDocuments = errors.New("no valid documents found")

// FileError records a single file's extraction failure. The rest of
// the batch keeps going.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// FileResult is the outcome of one file's extraction attempt: either
// Documents or Err is set, never both.
type FileResult struct {
	File      string
	Documents []Document
	Err       *FileError
}

type BatchOption func(*BatchOptions)

type BatchOptions struct {
	Notify  func(result FileResult)
	Context context.Context
}

// WithNotify registers a per-file progress callback for the
// presentation layer.
func WithNotify(fn func(result FileResult)) BatchOption {
	return func(o *BatchOptions) {
		o.Notify = fn
	}
}

func NewBatchOptions(opts ...BatchOption) BatchOptions {
	options := BatchOptions{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// ExtractAll runs the extractor over every file, isolating failures:
// a file that cannot be extracted is recorded and skipped, and the
// remaining files are still processed.
func ExtractAll(ctx context.Context, ex Extractor, files []UploadedFile, opts ...BatchOption) []FileResult {
	options := NewBatchOptions(opts...)

	results := make([]FileResult, 0, len(files))

	for _, file := range files {
		result := FileResult{File: file.Name}

		docs, err := ex.Extract(ctx, file)
		if err != nil {
			result.Err = &FileError{Name: file.Name, Err: err}
			slog.ErrorContext(ctx, "failed to extract file", "file", file.Name, "error", err)
		} else {
			result.Documents = docs
		}

		results = append(results, result)

		if options.Notify != nil {
			options.Notify(result)
		}
	}

	return results
}

// Documents flattens the successful side of a batch, preserving file
// order.
func Documents(results []FileResult) []Document {
	var docs []Document
	for _, result := range results {
		docs = append(docs, result.Documents...)
	}
	return docs
}

// Failures collects the failed side of a batch for reporting.
func Failures(results []FileResult) []*FileError {
	var errs []*FileError
	for _, result := range results {
		if result.Err != nil {
			errs = append(errs, result.Err)
		}
	}
	return errs
}
