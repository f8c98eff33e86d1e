package memory

import "sync"

const DefaultTokenLimit = 4090

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in the conversation. Order in the log is the
// timestamp.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Buffer keeps the full append-only turn log and exposes a rolling
// window bounded by a token budget. The oldest turns fall out of the
// window first; the log itself is never truncated.
type Buffer struct {
	tokenLimit int
	turns      []Turn
	mtx        sync.RWMutex
}

func NewBuffer(tokenLimit int) *Buffer {
	if tokenLimit <= 0 {
		tokenLimit = DefaultTokenLimit
	}
	return &Buffer{
		tokenLimit: tokenLimit,
	}
}

func (b *Buffer) Append(role string, content string) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.turns = append(b.turns, Turn{Role: role, Content: content})
}

// Window returns the newest turns that fit within the token budget,
// oldest first.
func (b *Buffer) Window() []Turn {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	budget := b.tokenLimit
	start := len(b.turns)

	for start > 0 {
		cost := EstimateTokens(b.turns[start-1].Content)
		if cost > budget {
			break
		}
		budget -= cost
		start--
	}

	window := make([]Turn, len(b.turns)-start)
	copy(window, b.turns[start:])

	return window
}

// All returns the full turn log, oldest first.
func (b *Buffer) All() []Turn {
	b.mtx.RLock()
	defer b.mtx.RUnlock()

	copied := make([]Turn, len(b.turns))
	copy(copied, b.turns)

	return copied
}

func (b *Buffer) Len() int {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	return len(b.turns)
}

func (b *Buffer) Reset() {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.turns = nil
}

// EstimateTokens approximates the token cost of text at roughly four
// characters per token.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}
