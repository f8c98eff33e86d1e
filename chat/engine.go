package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/w-h-a/docchat/chat/memory"
	"github.com/w-h-a/docchat/generator"
	"github.com/w-h-a/docchat/index"
	"github.com/w-h-a/docchat/postprocessor"
	"github.com/w-h-a/docchat/retriever"
)

// FallbackAnswer is returned whenever the model produces nothing
// usable. It is never an error.
const FallbackAnswer = "I couldn't find a relevant answer. Could you rephrase?"

const noContextMarker = "No relevant context was found in the uploaded documents."

const condenseInstruction = "Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question that captures all relevant context. Reply with the standalone question only."

// Engine answers questions grounded in an indexed document set. Each
// follow-up is first condensed into a standalone question using the
// conversation window, then retrieval context is gathered, filtered by
// relevance, and handed to the generator.
type Engine struct {
	options   Options
	retriever retriever.Retriever
	filter    *postprocessor.SimilarityFilter
	generator generator.Generator
	buffer    *memory.Buffer
}

// Ask runs one full query turn. The user turn and the answer are
// appended to the conversation only when generation succeeds; a failed
// turn leaves the history untouched.
func (e *Engine) Ask(ctx context.Context, query string) (string, error) {
	if len(strings.TrimSpace(query)) == 0 {
		return "", errors.New("query is required")
	}

	standalone, err := e.condense(ctx, query)
	if err != nil {
		return "", fmt.Errorf("condense question: %w", err)
	}

	results, err := e.retriever.Retrieve(ctx, standalone)
	if err != nil {
		return "", fmt.Errorf("retrieve context: %w", err)
	}

	relevant := e.filter.Apply(results)

	prompt := e.buildPrompt(standalone, relevant)

	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	if len(strings.TrimSpace(answer)) == 0 {
		answer = FallbackAnswer
	}

	e.buffer.Append(memory.RoleUser, query)
	e.buffer.Append(memory.RoleAssistant, answer)

	return answer, nil
}

// condense rewrites a follow-up into a standalone question using the
// conversation window. The first question of a session passes through
// unchanged.
func (e *Engine) condense(ctx context.Context, query string) (string, error) {
	window := e.buffer.Window()
	if len(window) == 0 {
		return query, nil
	}

	var sb bytes.Buffer
	sb.WriteString(condenseInstruction)
	sb.WriteString("\n\nConversation:\n")
	for _, turn := range window {
		sb.WriteString(fmt.Sprintf("[%s]: %s\n", turn.Role, turn.Content))
	}
	sb.WriteString("\nFollow up question:\n")
	sb.WriteString(query)

	standalone, err := e.generator.Generate(ctx, sb.String())
	if err != nil {
		return "", err
	}

	standalone = strings.TrimSpace(standalone)
	if len(standalone) == 0 {
		return query, nil
	}

	return standalone, nil
}

func (e *Engine) buildPrompt(question string, relevant []index.Result) string {
	var sb bytes.Buffer

	if len(e.options.CustomInstructions) > 0 {
		sb.WriteString(e.options.CustomInstructions)
		sb.WriteString("\n\n")
	}

	sb.WriteString("Answer the question using only the context below.\n\nContext:\n")

	if len(relevant) == 0 {
		sb.WriteString(noContextMarker)
		sb.WriteString("\n")
	} else {
		for i, result := range relevant {
			sb.WriteString(fmt.Sprintf("%d. (%s) %s\n", i+1, result.Chunk.SourceFile, result.Chunk.Text))
		}
	}

	sb.WriteString("\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n")

	return sb.String()
}

func NewEngine(
	r retriever.Retriever,
	f *postprocessor.SimilarityFilter,
	g generator.Generator,
	b *memory.Buffer,
	opts ...Option,
) *Engine {
	options := NewOptions(opts...)

	if r == nil {
		panic("retriever is required")
	}

	if g == nil {
		panic("generator is required")
	}

	if f == nil {
		f = postprocessor.NewSimilarityFilter(postprocessor.DefaultCutoff)
	}

	if b == nil {
		b = memory.NewBuffer(memory.DefaultTokenLimit)
	}

	return &Engine{
		options:   options,
		retriever: r,
		filter:    f,
		generator: g,
		buffer:    b,
	}
}
