package local

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/w-h-a/docchat/extractor"
)

var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".markdown": {}, ".csv": {}, ".tsv": {},
	".html": {}, ".htm": {}, ".xml": {}, ".rtf": {}, ".prn": {},
}

// localExtractor reads file bytes directly with no network calls. It
// is fast but lower fidelity than the remote parser on complex
// layouts.
type localExtractor struct {
	options extractor.Options
}

func (e *localExtractor) Extract(ctx context.Context, file extractor.UploadedFile) ([]extractor.Document, error) {
	ext := file.Extension()

	if _, ok := textExtensions[ext]; ok {
		return e.extractText(file)
	}

	if ext == ".pdf" {
		return e.extractPDF(file)
	}

	return nil, fmt.Errorf("unsupported file type for local extraction: %s", ext)
}

func (e *localExtractor) extractText(file extractor.UploadedFile) ([]extractor.Document, error) {
	text := strings.TrimSpace(string(file.Bytes))
	if len(text) == 0 {
		return nil, fmt.Errorf("file %s is empty", file.Name)
	}

	doc := extractor.Document{
		Text:       text,
		SourceFile: file.Name,
		Metadata: map[string]string{
			"extractor": "local",
			"format":    strings.TrimPrefix(file.Extension(), "."),
		},
	}

	return []extractor.Document{doc}, nil
}

func (e *localExtractor) extractPDF(file extractor.UploadedFile) ([]extractor.Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(file.Bytes), int64(len(file.Bytes)))
	if err != nil {
		return nil, fmt.Errorf("read pdf %s: %w", file.Name, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text %s: %w", file.Name, err)
	}

	raw, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("read pdf text %s: %w", file.Name, err)
	}

	text := strings.TrimSpace(string(raw))
	if len(text) == 0 {
		return nil, fmt.Errorf("pdf %s has no extractable text", file.Name)
	}

	doc := extractor.Document{
		Text:       text,
		SourceFile: file.Name,
		Metadata: map[string]string{
			"extractor": "local",
			"format":    "pdf",
		},
	}

	return []extractor.Document{doc}, nil
}

func NewExtractor(opts ...extractor.Option) extractor.Extractor {
	options := extractor.NewOptions(opts...)

	e := &localExtractor{
		options: options,
	}

	return e
}
