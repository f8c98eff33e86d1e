package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/w-h-a/docchat/chat"
	"github.com/w-h-a/docchat/chat/memory"
	"github.com/w-h-a/docchat/chunker"
	"github.com/w-h-a/docchat/embedder"
	"github.com/w-h-a/docchat/extractor"
	"github.com/w-h-a/docchat/generator"
	"github.com/w-h-a/docchat/index"
	memoryindex "github.com/w-h-a/docchat/index/memory"
	"github.com/w-h-a/docchat/postprocessor"
	"github.com/w-h-a/docchat/retriever"
	vectorretriever "github.com/w-h-a/docchat/retriever/vector"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("docchat/session")

type State int

const (
	StateUninitialized State = iota
	StateIndexing
	StateReady
	StateQuerying
)

func (s State) String() string {
	switch s {
	case StateIndexing:
		return "indexing"
	case StateReady:
		return "ready"
	case StateQuerying:
		return "querying"
	default:
		return "uninitialized"
	}
}

// ErrNotReady rejects queries issued before a successful indexing
// action.
var ErrNotReady = errors.New("no index yet: upload files and start indexing first")

// GenericFailureAnswer is what the user sees when a provider fails
// mid-query. The session stays usable and the history is untouched.
const GenericFailureAnswer = "An error occurred while answering. Please try again."

type Config struct {
	Model              string
	CustomInstructions string
	ChunkSize          int
	ChunkOverlap       int
	TopK               int
	Cutoff             float64
	MemoryTokenLimit   int

	// ResetHistoryOnReindex clears the conversation when a new index
	// replaces the old one. Default keeps history: the conversation is
	// session-scoped, not index-scoped.
	ResetHistoryOnReindex bool
}

// IndexReport summarizes one indexing action for the presentation
// layer.
type IndexReport struct {
	Files    int                    `json:"files"`
	Indexed  int                    `json:"indexed"`
	Chunks   int                    `json:"chunks"`
	Failures []*extractor.FileError `json:"-"`
	Errors   []string               `json:"errors,omitempty"`
}

// Session owns one vector index, one conversation, and one
// configuration. Every pipeline operation goes through the session
// handle; there is no ambient process-wide state. One indexing action
// or query runs at a time.
type Session struct {
	id        string
	config    Config
	extractor extractor.Extractor
	embedder  embedder.Embedder
	generator generator.Generator

	state  State
	index  index.Index
	engine *chat.Engine
	buffer *memory.Buffer

	mtx sync.Mutex
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.state
}

// History returns the full turn log for display.
func (s *Session) History() []memory.Turn {
	return s.buffer.All()
}

// Index runs the full build pipeline: extract every file, chunk,
// embed, and seal a fresh index. On any fatal failure the session
// reverts to uninitialized; a prior index is discarded either way.
// Per-file extraction failures are reported, not fatal.
func (s *Session) Index(ctx context.Context, files []extractor.UploadedFile, opts ...extractor.BatchOption) (*IndexReport, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	ctx, span := tracer.Start(ctx, "session.index")
	defer span.End()

	if len(files) == 0 {
		return nil, errors.New("at least one file is required")
	}

	prior := s.state
	s.state = StateIndexing

	report, err := s.build(ctx, files, opts...)
	if err != nil {
		s.state = StateUninitialized
		s.index = nil
		s.engine = nil
		slog.ErrorContext(ctx, "indexing failed", "session", s.id, "error", err)
		return report, err
	}

	if prior == StateReady && s.config.ResetHistoryOnReindex {
		s.buffer.Reset()
	}

	s.state = StateReady

	slog.InfoContext(ctx, "index ready", "session", s.id, "files", report.Indexed, "chunks", report.Chunks)

	return report, nil
}

func (s *Session) build(ctx context.Context, files []extractor.UploadedFile, opts ...extractor.BatchOption) (*IndexReport, error) {
	results := extractor.ExtractAll(ctx, s.extractor, files, opts...)

	report := &IndexReport{
		Files:    len(files),
		Failures: extractor.Failures(results),
	}
	for _, failure := range report.Failures {
		report.Errors = append(report.Errors, failure.Error())
	}
	report.Indexed = report.Files - len(report.Failures)

	docs := extractor.Documents(results)
	if len(docs) == 0 {
		return report, extractor.ErrNoDocuments
	}

	splitter := chunker.NewSplitter(s.config.ChunkSize, s.config.ChunkOverlap)
	chunks := splitter.SplitAll(docs)
	if len(chunks) == 0 {
		return report, extractor.ErrNoDocuments
	}

	embedded, err := embedder.EmbedChunks(ctx, s.embedder, chunks)
	if err != nil {
		return report, err
	}

	idx, err := memoryindex.Build(embedded)
	if err != nil {
		return report, err
	}

	report.Chunks = idx.Len()

	// The query path is rebuilt against the new index so the embedding
	// space stays consistent between build and query.
	re := vectorretriever.NewRetriever(
		s.embedder,
		idx,
		retriever.WithTopK(s.config.TopK),
	)

	filter := postprocessor.NewSimilarityFilter(s.config.Cutoff)

	s.index = idx
	s.engine = chat.NewEngine(
		re,
		filter,
		s.generator,
		s.buffer,
		chat.WithCustomInstructions(s.config.CustomInstructions),
	)

	return report, nil
}

// Ask answers one question against the current index. Provider
// failures come back as a readable message with the session still
// ready; only precondition violations surface as errors.
func (s *Session) Ask(ctx context.Context, query string) (string, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	ctx, span := tracer.Start(ctx, "session.ask")
	defer span.End()

	if s.state != StateReady || s.engine == nil {
		return "", ErrNotReady
	}

	if len(strings.TrimSpace(query)) == 0 {
		return "", errors.New("query is required")
	}

	s.state = StateQuerying
	defer func() { s.state = StateReady }()

	answer, err := s.engine.Ask(ctx, query)
	if err != nil {
		slog.ErrorContext(ctx, "query failed", "session", s.id, "error", err)
		return GenericFailureAnswer, nil
	}

	return answer, nil
}

func New(
	ex extractor.Extractor,
	em embedder.Embedder,
	gen generator.Generator,
	config Config,
) (*Session, error) {
	if ex == nil {
		return nil, errors.New("extractor is required")
	}

	if em == nil {
		return nil, errors.New("embedder is required")
	}

	if gen == nil {
		return nil, errors.New("generator is required")
	}

	if config.ChunkSize <= 0 {
		config.ChunkSize = chunker.DefaultChunkSize
	}

	if config.ChunkOverlap <= 0 {
		config.ChunkOverlap = chunker.DefaultOverlap
	}

	if config.TopK <= 0 {
		config.TopK = retriever.DefaultTopK
	}

	if config.Cutoff <= 0 {
		config.Cutoff = postprocessor.DefaultCutoff
	}

	if len(config.Model) > 0 && !generator.IsGroqModel(config.Model) {
		return nil, fmt.Errorf("model %s is not in the supported list", config.Model)
	}

	s := &Session{
		id:        uuid.New().String(),
		config:    config,
		extractor: ex,
		embedder:  em,
		generator: gen,
		state:     StateUninitialized,
		buffer:    memory.NewBuffer(config.MemoryTokenLimit),
	}

	return s, nil
}
