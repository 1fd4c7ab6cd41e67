// Package llm provides language model clients for answer generation.
package llm

import "context"

// ChatStream is an in-flight streaming response.
type ChatStream struct {
	// Tokens yields text increments and is closed when the stream ends,
	// whether it completed, failed mid-stream, or was cancelled.
	Tokens <-chan string
	err    error
}

// Err reports how the stream terminated: nil for a clean completion, the
// receive error for a truncated stream, or the context error after
// cancellation. It must only be read after Tokens is closed.
func (s *ChatStream) Err() error {
	return s.err
}

// LLM is the interface for interacting with Large Language Models.
type LLM interface {
	// Complete generates a completion for a given prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// Chat generates a response for a list of chat messages.
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
	// StreamChat generates a streaming response for chat messages. A non-nil
	// error means the stream never started; mid-stream failures are reported
	// through ChatStream.Err after the token channel closes.
	StreamChat(ctx context.Context, messages []ChatMessage) (*ChatStream, error)
}
