package session_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/docchat/extractor"
	"github.com/w-h-a/docchat/extractor/local"
	"github.com/w-h-a/docchat/internal/service/session"
)

// letterEmbedder maps text to its letter-frequency vector. Related
// English sentences land close together, which is enough signal for
// pipeline tests without a real provider.
type letterEmbedder struct {
	err error
}

func (e *letterEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	vec[0]++ // never a zero vector
	return vec, nil
}

func (e *letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// axisEmbedder puts queries mentioning zebras on an axis orthogonal to
// everything else, forcing retrieval scores to zero.
type axisEmbedder struct{}

func (e *axisEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(strings.ToLower(text), "zebra") {
		return []float32{0, 1}, nil
	}
	return []float32{1, 0}, nil
}

func (e *axisEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i], _ = e.Embed(ctx, text)
	}
	return vectors, nil
}

type scriptedGenerator struct {
	prompts []string
	respond func(prompt string) (string, error)
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.respond != nil {
		return g.respond(prompt)
	}
	return "ok", nil
}

func parisFile() extractor.UploadedFile {
	return extractor.UploadedFile{
		Name:  "facts.txt",
		Bytes: []byte("The capital of France is Paris."),
	}
}

func newSession(t *testing.T, gen *scriptedGenerator) *session.Session {
	t.Helper()

	sess, err := session.New(local.NewExtractor(), &letterEmbedder{}, gen, session.Config{
		Cutoff: 0.5,
	})
	require.NoError(t, err)

	return sess
}

func TestAskBeforeIndexingIsRejected(t *testing.T) {
	sess := newSession(t, &scriptedGenerator{})

	_, err := sess.Ask(context.Background(), "What is the capital of France?")
	require.ErrorIs(t, err, session.ErrNotReady)
	require.Equal(t, session.StateUninitialized, sess.State())
}

func TestIndexThenAsk(t *testing.T) {
	gen := &scriptedGenerator{
		respond: func(prompt string) (string, error) {
			if strings.Contains(prompt, "Paris") {
				return "The capital of France is Paris.", nil
			}
			return "I don't know.", nil
		},
	}

	sess := newSession(t, gen)

	report, err := sess.Index(context.Background(), []extractor.UploadedFile{parisFile()})
	require.NoError(t, err)
	require.Equal(t, 1, report.Indexed)
	require.Greater(t, report.Chunks, 0)
	require.Equal(t, session.StateReady, sess.State())

	answer, err := sess.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.Contains(t, answer, "Paris")
	require.Equal(t, session.StateReady, sess.State())

	history := sess.History()
	require.Len(t, history, 2)
	require.Equal(t, "What is the capital of France?", history[0].Content)
}

func TestIndexAllFilesFailing(t *testing.T) {
	sess := newSession(t, &scriptedGenerator{})

	files := []extractor.UploadedFile{
		{Name: "a.bin", Bytes: []byte{0x0}},
		{Name: "b.bin", Bytes: []byte{0x1}},
	}

	report, err := sess.Index(context.Background(), files)
	require.ErrorIs(t, err, extractor.ErrNoDocuments)
	require.Len(t, report.Failures, 2)
	require.Equal(t, session.StateUninitialized, sess.State())

	// No partial index: querying is still disabled.
	_, err = sess.Ask(context.Background(), "anything")
	require.ErrorIs(t, err, session.ErrNotReady)
}

func TestIndexIsolatesSingleFailure(t *testing.T) {
	sess := newSession(t, &scriptedGenerator{})

	files := []extractor.UploadedFile{
		parisFile(),
		{Name: "broken.bin", Bytes: []byte{0x0}},
	}

	report, err := sess.Index(context.Background(), files)
	require.NoError(t, err)
	require.Equal(t, 2, report.Files)
	require.Equal(t, 1, report.Indexed)
	require.Len(t, report.Failures, 1)
	require.Equal(t, "broken.bin", report.Failures[0].Name)
	require.Equal(t, session.StateReady, sess.State())
}

func TestIndexEmbeddingFailureReverts(t *testing.T) {
	gen := &scriptedGenerator{}

	sess, err := session.New(local.NewExtractor(), &letterEmbedder{err: errors.New("quota exceeded")}, gen, session.Config{})
	require.NoError(t, err)

	_, err = sess.Index(context.Background(), []extractor.UploadedFile{parisFile()})
	require.Error(t, err)
	require.Equal(t, session.StateUninitialized, sess.State())
}

func TestAskProviderFailureKeepsSessionReady(t *testing.T) {
	gen := &scriptedGenerator{
		respond: func(prompt string) (string, error) {
			return "", errors.New("provider down")
		},
	}

	sess := newSession(t, gen)

	_, err := sess.Index(context.Background(), []extractor.UploadedFile{parisFile()})
	require.NoError(t, err)

	answer, err := sess.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.Equal(t, session.GenericFailureAnswer, answer)
	require.Equal(t, session.StateReady, sess.State())

	// The failed turn is not recorded.
	require.Empty(t, sess.History())
}

func TestAskFollowUpUsesConversationMemory(t *testing.T) {
	gen := &scriptedGenerator{
		respond: func(prompt string) (string, error) {
			if strings.Contains(prompt, "standalone question") {
				return "What is the population of France?", nil
			}
			return "About 68 million.", nil
		},
	}

	sess := newSession(t, gen)

	_, err := sess.Index(context.Background(), []extractor.UploadedFile{parisFile()})
	require.NoError(t, err)

	_, err = sess.Ask(context.Background(), "What is France?")
	require.NoError(t, err)

	answer, err := sess.Ask(context.Background(), "What about its population?")
	require.NoError(t, err)
	require.Contains(t, answer, "68 million")

	// The condensation prompt carried the prior turn, and the final
	// prompt asks the standalone question.
	var condensePrompt, answerPrompt string
	for _, prompt := range gen.prompts {
		if strings.Contains(prompt, "standalone question") {
			condensePrompt = prompt
		} else if strings.Contains(prompt, "population of France") {
			answerPrompt = prompt
		}
	}
	require.Contains(t, condensePrompt, "What is France?")
	require.Contains(t, condensePrompt, "What about its population?")
	require.Contains(t, answerPrompt, "Question: What is the population of France?")
}

func TestAskBelowThresholdReturnsFallback(t *testing.T) {
	gen := &scriptedGenerator{
		respond: func(prompt string) (string, error) {
			return "", nil
		},
	}

	sess, err := session.New(local.NewExtractor(), &axisEmbedder{}, gen, session.Config{Cutoff: 0.5})
	require.NoError(t, err)

	_, err = sess.Index(context.Background(), []extractor.UploadedFile{parisFile()})
	require.NoError(t, err)

	answer, err := sess.Ask(context.Background(), "Tell me about zebras.")
	require.NoError(t, err)
	require.Equal(t, "I couldn't find a relevant answer. Could you rephrase?", answer)
}

func TestReindexKeepsHistoryByDefault(t *testing.T) {
	gen := &scriptedGenerator{
		respond: func(prompt string) (string, error) {
			return "an answer", nil
		},
	}

	sess := newSession(t, gen)

	_, err := sess.Index(context.Background(), []extractor.UploadedFile{parisFile()})
	require.NoError(t, err)

	_, err = sess.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.Len(t, sess.History(), 2)

	_, err = sess.Index(context.Background(), []extractor.UploadedFile{parisFile()})
	require.NoError(t, err)
	require.Len(t, sess.History(), 2)
}

func TestReindexCanResetHistory(t *testing.T) {
	gen := &scriptedGenerator{
		respond: func(prompt string) (string, error) {
			return "an answer", nil
		},
	}

	sess, err := session.New(local.NewExtractor(), &letterEmbedder{}, gen, session.Config{
		ResetHistoryOnReindex: true,
	})
	require.NoError(t, err)

	_, err = sess.Index(context.Background(), []extractor.UploadedFile{parisFile()})
	require.NoError(t, err)

	_, err = sess.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	require.Len(t, sess.History(), 2)

	_, err = sess.Index(context.Background(), []extractor.UploadedFile{parisFile()})
	require.NoError(t, err)
	require.Empty(t, sess.History())
}

func TestIndexRequiresFiles(t *testing.T) {
	sess := newSession(t, &scriptedGenerator{})

	_, err := sess.Index(context.Background(), nil)
	require.Error(t, err)
	require.Equal(t, session.StateUninitialized, sess.State())
}

func TestNewRejectsUnknownModel(t *testing.T) {
	_, err := session.New(local.NewExtractor(), &letterEmbedder{}, &scriptedGenerator{}, session.Config{
		Model: "gpt-4o-mini",
	})
	require.Error(t, err)
}

func TestNewAcceptsAllowListedModel(t *testing.T) {
	sess, err := session.New(local.NewExtractor(), &letterEmbedder{}, &scriptedGenerator{}, session.Config{
		Model: "llama-3.1-8b-instant",
	})
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID())
}
