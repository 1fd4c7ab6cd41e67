package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
)

const (
	// OllamaDefaultURL is the default Ollama API endpoint.
	OllamaDefaultURL = "http://localhost:11434"
	// DefaultOllamaModel is the default model to use.
	DefaultOllamaModel = "llama3.1"
)

// OllamaLLM implements the LLM interface for a local Ollama server.
type OllamaLLM struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// OllamaOption configures an OllamaLLM.
type OllamaOption func(*OllamaLLM)

// WithOllamaBaseURL sets the base URL.
func WithOllamaBaseURL(baseURL string) OllamaOption {
	return func(o *OllamaLLM) {
		o.baseURL = baseURL
	}
}

// WithOllamaModel sets the model.
func WithOllamaModel(model string) OllamaOption {
	return func(o *OllamaLLM) {
		o.model = model
	}
}

// WithOllamaHTTPClient sets a custom HTTP client.
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(o *OllamaLLM) {
		o.httpClient = client
	}
}

// NewOllamaLLM creates a new Ollama LLM client.
// The base URL can also be provided via the OLLAMA_HOST environment variable.
func NewOllamaLLM(opts ...OllamaOption) *OllamaLLM {
	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = OllamaDefaultURL
	}

	o := &OllamaLLM{
		baseURL:    baseURL,
		model:      DefaultOllamaModel,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
}

// Complete generates a completion for a given prompt.
func (o *OllamaLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return o.Chat(ctx, []ChatMessage{NewUserMessage(prompt)})
}

// Chat generates a response for a list of chat messages.
func (o *OllamaLLM) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	o.logger.Info("Chat called", "model", o.model, "message_count", len(messages))

	resp, err := o.chatRequest(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	return chatResp.Message.Content, nil
}

// StreamChat generates a streaming response for chat messages.
func (o *OllamaLLM) StreamChat(ctx context.Context, messages []ChatMessage) (*ChatStream, error) {
	o.logger.Info("StreamChat called", "model", o.model, "message_count", len(messages))

	resp, err := o.chatRequest(ctx, messages, true)
	if err != nil {
		return nil, err
	}

	tokenChan := make(chan string)
	result := &ChatStream{Tokens: tokenChan}

	go func() {
		defer close(tokenChan)
		defer resp.Body.Close()

		// Ollama streams newline-delimited JSON objects.
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			var chunk ollamaChatResponse
			if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
				o.logger.Error("failed to decode stream chunk", "error", err)
				result.err = fmt.Errorf("ollama stream chunk decode failed: %w", err)
				return
			}
			if chunk.Message.Content != "" {
				select {
				case tokenChan <- chunk.Message.Content:
				case <-ctx.Done():
					result.err = ctx.Err()
					return
				}
			}
			if chunk.Done {
				return
			}
		}
		// The connection dropped before the final done chunk.
		if err := scanner.Err(); err != nil {
			o.logger.Error("ollama stream read failed", "error", err)
			result.err = fmt.Errorf("ollama stream read failed: %w", err)
		} else {
			result.err = fmt.Errorf("ollama stream ended before completion")
		}
	}()

	return result, nil
}

func (o *OllamaLLM) chatRequest(ctx context.Context, messages []ChatMessage, stream bool) (*http.Response, error) {
	ollamaMessages := make([]ollamaChatMessage, 0, len(messages))
	for _, msg := range messages {
		ollamaMessages = append(ollamaMessages, ollamaChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	reqBody, err := json.Marshal(ollamaChatRequest{
		Model:    o.model,
		Messages: ollamaMessages,
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		o.logger.Error("ollama chat failed", "error", err)
		return nil, fmt.Errorf("ollama chat request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("ollama chat returned status %d: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}

// Ensure OllamaLLM implements the interface.
var _ LLM = (*OllamaLLM)(nil)
