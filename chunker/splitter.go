package chunker

import (
	"strings"

	"github.com/w-h-a/docchat/extractor"
)

const (
	DefaultChunkSize = 2048
	DefaultOverlap   = 200
)

// Chunk is the unit of retrieval: a bounded-size fragment of a
// document plus its embedding once computed.
type Chunk struct {
	Text       string
	SourceFile string
	Position   int
	Embedding  []float32
}

// Splitter cuts document text into contiguous chunks of at most Size
// runes, overlapping consecutive chunks by Overlap runes. With zero
// overlap the chunks concatenate back to the original text.
type Splitter struct {
	Size    int
	Overlap int
}

func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Splitter{
		Size:    size,
		Overlap: overlap,
	}
}

func (s *Splitter) Split(doc extractor.Document) []Chunk {
	runes := []rune(doc.Text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	position := 0

	for start < len(runes) {
		end := start + s.Size
		if end > len(runes) {
			end = len(runes)
		}

		// Snap back to a word boundary unless the chunk is the tail or
		// contains no spaces at all.
		if end < len(runes) {
			if idx := strings.LastIndexByte(string(runes[start:end]), ' '); idx > 0 {
				end = start + len([]rune(string(runes[start:end])[:idx+1]))
			}
		}

		chunks = append(chunks, Chunk{
			Text:       string(runes[start:end]),
			SourceFile: doc.SourceFile,
			Position:   position,
		})
		position++

		if end == len(runes) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// SplitAll chunks every document in order, numbering chunks globally.
func (s *Splitter) SplitAll(docs []extractor.Document) []Chunk {
	var all []Chunk
	for _, doc := range docs {
		for _, chunk := range s.Split(doc) {
			chunk.Position = len(all)
			all = append(all, chunk)
		}
	}
	return all
}
