package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// systemPreamble instructs the model to answer from the supplied
// excerpts and admit when they don't cover the question.
const systemPreamble = `You are a document assistant. Answer the user's question using the document excerpts below. Cite excerpts as [n] where helpful. If the excerpts do not contain the answer, say so instead of guessing.`

// defaultUngroundedPreamble replaces the excerpt instructions when
// retrieval found nothing relevant.
const defaultUngroundedPreamble = `You are a document assistant. No relevant document excerpts were found for this question. Answer from general knowledge and say that the documents do not cover it.`

// PromptBuilder assembles chat messages from retrieved context and
// conversation history, keeping the estimated size under a token
// budget.
type PromptBuilder struct {
	tokenBudget int
	store       driven.PromptStore
}

// Ensure PromptBuilder can accept a prompt store.
var _ driven.PromptStoreAware = (*PromptBuilder)(nil)

// NewPromptBuilder creates a prompt builder with the given context
// token budget.
func NewPromptBuilder(tokenBudget int) *PromptBuilder {
	if tokenBudget <= 0 {
		tokenBudget = 4000
	}
	return &PromptBuilder{tokenBudget: tokenBudget}
}

// SetPromptStore sets the store used to load customisable system
// preambles. Without a store the built-in defaults apply.
func (b *PromptBuilder) SetPromptStore(store driven.PromptStore) {
	b.store = store
}

// groundedPreamble returns the system preamble used when retrieval
// found excerpts, preferring a store-provided template.
func (b *PromptBuilder) groundedPreamble() string {
	return b.loadPreamble(driven.PromptSystemGrounded, systemPreamble)
}

// ungroundedPreamble returns the system preamble used when retrieval
// came up empty, preferring a store-provided template.
func (b *PromptBuilder) ungroundedPreamble() string {
	return b.loadPreamble(driven.PromptSystemUngrounded, defaultUngroundedPreamble)
}

func (b *PromptBuilder) loadPreamble(name, fallback string) string {
	if b.store == nil {
		return fallback
	}
	prompt, err := b.store.Load(name)
	if err != nil || prompt == "" {
		logger.Debug("Prompt %q unavailable, using default: %v", name, err)
		return fallback
	}
	return prompt
}

// EstimateTokens approximates the token count of text.
// Rough estimate: 4 chars per token.
func EstimateTokens(text string) int {
	return len([]rune(text))/4 + 1
}

// Build assembles the message list for one request. When the estimated
// size exceeds the budget it drops the oldest history turns first, then
// the lowest-scored chunks. The current user message is never dropped.
func (b *PromptBuilder) Build(query string, retrieval domain.RetrievalResult, turns []domain.Turn, lang string) []driven.ChatMessage {
	chunks := retrieval.Chunks
	preamble := b.groundedPreamble()

	fixed := EstimateTokens(preamble) + EstimateTokens(query)
	budget := b.tokenBudget - fixed

	turnCost := 0
	for _, turn := range turns {
		turnCost += EstimateTokens(turn.Content)
	}
	chunkCost := 0
	for _, chunk := range chunks {
		chunkCost += EstimateTokens(chunk.Chunk.Content)
	}

	// Oldest turns go first; they matter less than retrieved context.
	for len(turns) > 0 && turnCost+chunkCost > budget {
		turnCost -= EstimateTokens(turns[0].Content)
		turns = turns[1:]
	}

	// Then the weakest chunks, which sit at the end of the ranked list.
	for len(chunks) > 0 && turnCost+chunkCost > budget {
		last := chunks[len(chunks)-1]
		chunkCost -= EstimateTokens(last.Chunk.Content)
		chunks = chunks[:len(chunks)-1]
	}

	if len(chunks) < len(retrieval.Chunks) {
		logger.Debug("Prompt trimmed to %d turns, %d chunks", len(turns), len(chunks))
	}

	var system strings.Builder
	if len(chunks) > 0 {
		system.WriteString(preamble)
		system.WriteString("\n\n")
		for i, chunk := range chunks {
			fmt.Fprintf(&system, "[%d] (document %s)\n%s\n\n", i+1, chunk.Chunk.DocumentID, chunk.Chunk.Content)
		}
	} else {
		system.WriteString(b.ungroundedPreamble())
	}
	if lang != "" {
		fmt.Fprintf(&system, "\nAnswer in the language tagged %q.", lang)
	}

	messages := make([]driven.ChatMessage, 0, len(turns)+2)
	messages = append(messages, driven.ChatMessage{Role: "system", Content: system.String()})
	for _, turn := range turns {
		messages = append(messages, driven.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, driven.ChatMessage{Role: "user", Content: query})

	return messages
}
