package embedding

import (
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
)

// Common Ollama embedding model names.
const (
	OllamaMxbaiEmbedLarge = "mxbai-embed-large"
	OllamaAllMiniLM       = "all-minilm"
	OllamaNomicEmbedText  = "nomic-embed-text"
)

// OllamaEmbedding implements the Embedder interface for Ollama.
type OllamaEmbedding struct {
	baseURL    string
	model      string
	dimensions int
	httpClient *http.Client
	logger     *slog.Logger
}

// OllamaEmbeddingOption configures an OllamaEmbedding.
type OllamaEmbeddingOption func(*OllamaEmbedding)

// WithOllamaEmbeddingBaseURL sets the base URL.
func WithOllamaEmbeddingBaseURL(baseURL string) OllamaEmbeddingOption {
	return func(o *OllamaEmbedding) {
		o.baseURL = baseURL
	}
}

// WithOllamaEmbeddingModel sets the model.
func WithOllamaEmbeddingModel(model string) OllamaEmbeddingOption {
	return func(o *OllamaEmbedding) {
		o.model = model
	}
}

// WithOllamaEmbeddingDimensions sets the reported embedding dimension.
// Ollama does not expose model dimensions; callers must state the dimension
// of the model they configured. Defaults to 768 (nomic-embed-text).
func WithOllamaEmbeddingDimensions(dims int) OllamaEmbeddingOption {
	return func(o *OllamaEmbedding) {
		o.dimensions = dims
	}
}

// WithOllamaEmbeddingHTTPClient sets a custom HTTP client.
func WithOllamaEmbeddingHTTPClient(client *http.Client) OllamaEmbeddingOption {
	return func(o *OllamaEmbedding) {
		o.httpClient = client
	}
}

// NewOllamaEmbedding creates a new Ollama embedding client.
// The base URL can also be provided via the OLLAMA_HOST environment variable.
func NewOllamaEmbedding(opts ...OllamaEmbeddingOption) *OllamaEmbedding {
	baseURL := os.Getenv("OLLAMA_HOST")
	if baseURL == "" {
		baseURL = OllamaDefaultURL
	}

	o := &OllamaEmbedding{
		baseURL:    baseURL,
		model:      OllamaNomicEmbedText,
		dimensions: 768,
		httpClient: http.DefaultClient,
		logger:     slog.New(slog.NewJSONHandler(os.Stdout, nil)),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (o *OllamaEmbedding) GetTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	embeddings, err := o.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

func (o *OllamaEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float64, error) {
	return o.GetTextEmbedding(ctx, query)
}

// GetTextEmbeddingsBatch generates embeddings for multiple texts in one call.
func (o *OllamaEmbedding) GetTextEmbeddingsBatch(ctx context.Context, texts []string, callback ProgressCallback) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	embeddings, err := o.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if callback != nil {
		callback(len(texts), len(texts))
	}
	return embeddings, nil
}

// Info returns information about the model's capabilities.
func (o *OllamaEmbedding) Info() EmbeddingInfo {
	return EmbeddingInfo{
		ModelName:  o.model,
		Dimensions: o.dimensions,
		MaxTokens:  8192,
	}
}

func (o *OllamaEmbedding) embed(ctx context.Context, input []string) ([][]float64, error) {
	reqBody, err := json.Marshal(ollamaEmbedRequest{
		Model: o.model,
		Input: input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		o.logger.Error("ollama embed failed", "error", err)
		return nil, fmt.Errorf("ollama embed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama embed returned status %d: %s", resp.StatusCode, string(body))
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}

	if len(embedResp.Embeddings) != len(input) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(embedResp.Embeddings), len(input))
	}

	return embedResp.Embeddings, nil
}

// Ensure OllamaEmbedding implements the interfaces.
var _ EmbeddingModel = (*OllamaEmbedding)(nil)
var _ Embedder = (*OllamaEmbedding)(nil)
