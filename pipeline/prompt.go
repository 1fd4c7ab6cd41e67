package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/aqua777/docqa/llm"
	"github.com/aqua777/docqa/schema"
)

const (
	contextEncoding = "cl100k_base"

	systemPrompt = "You are a document question answering assistant. " +
		"Answer using only the provided document context. " +
		"If the context does not contain the answer, say that the documents do not cover it."
)

// promptBuilder renders retrieved chunks into the context block of the system
// prompt, trimmed to a token budget.
type promptBuilder struct {
	encoding    *tiktoken.Tiktoken
	tokenBudget int
	logger      *slog.Logger
}

func newPromptBuilder(tokenBudget int, logger *slog.Logger) *promptBuilder {
	encoding, err := tiktoken.GetEncoding(contextEncoding)
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, approximating token counts", "error", err)
		encoding = nil
	}
	return &promptBuilder{
		encoding:    encoding,
		tokenBudget: tokenBudget,
		logger:      logger,
	}
}

func (b *promptBuilder) countTokens(text string) int {
	if b.encoding != nil {
		return len(b.encoding.Encode(text, nil, nil))
	}
	// Rough bytes-per-token approximation when the encoder is unavailable.
	return len(text)/4 + 1
}

// formatContext renders ranked chunks as numbered document sections, stopping
// once the token budget is spent. The top-ranked chunk is always included
// even if it alone exceeds the budget.
func (b *promptBuilder) formatContext(sources []schema.RetrievedChunk) string {
	var sections []string
	used := 0

	for i, source := range sources {
		section := fmt.Sprintf("[Document %d - %s]\n%s",
			i+1, source.Record.Metadata.Filename, source.Record.Text)
		tokens := b.countTokens(section)
		if len(sections) > 0 && used+tokens > b.tokenBudget {
			b.logger.Debug("context trimmed to token budget",
				"included", len(sections), "total", len(sources), "budget", b.tokenBudget)
			break
		}
		sections = append(sections, section)
		used += tokens
	}

	return strings.Join(sections, "\n\n")
}

// buildMessages assembles the chat transcript: system prompt with context,
// prior turns in conversation order, then the new question.
func (b *promptBuilder) buildMessages(question, contextStr string, history []schema.ConversationTurn) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, 2*len(history)+2)
	messages = append(messages, llm.NewSystemMessage(systemPrompt+"\n\nContext:\n"+contextStr))
	for _, turn := range history {
		messages = append(messages,
			llm.NewUserMessage(turn.Question),
			llm.NewAssistantMessage(turn.Answer))
	}
	return append(messages, llm.NewUserMessage(question))
}
