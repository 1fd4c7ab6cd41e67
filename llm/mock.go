package llm

import "context"

// MockLLM is a mock implementation of the LLM interface for tests.
type MockLLM struct {
	Response string
	// Tokens, when set, is what StreamChat yields instead of Response.
	Tokens []string
	Err    error
	// StreamErr, when set, terminates the stream with an error after all
	// Tokens have been yielded.
	StreamErr error
	// LastMessages records the messages of the most recent call.
	LastMessages []ChatMessage
}

func (m *MockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return m.Chat(ctx, []ChatMessage{NewUserMessage(prompt)})
}

func (m *MockLLM) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	m.LastMessages = messages
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockLLM) StreamChat(ctx context.Context, messages []ChatMessage) (*ChatStream, error) {
	m.LastMessages = messages
	if m.Err != nil {
		return nil, m.Err
	}

	tokens := m.Tokens
	if tokens == nil {
		tokens = []string{m.Response}
	}

	tokenChan := make(chan string)
	stream := &ChatStream{Tokens: tokenChan}
	go func() {
		defer close(tokenChan)
		for _, token := range tokens {
			select {
			case tokenChan <- token:
			case <-ctx.Done():
				stream.err = ctx.Err()
				return
			}
		}
		stream.err = m.StreamErr
	}()

	return stream, nil
}

// Ensure MockLLM implements the interface.
var _ LLM = (*MockLLM)(nil)
