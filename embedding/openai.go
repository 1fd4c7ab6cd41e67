package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Dimensions of the OpenAI embedding models we know about.
const (
	dimensionsSmall3 = 1536
	dimensionsLarge3 = 3072
	dimensionsAda002 = 1536
)

type OpenAIEmbedding struct {
	client *openai.Client
	model  openai.EmbeddingModel
	logger *slog.Logger
}

func NewOpenAIEmbedding(apiKey string, modelName string) *OpenAIEmbedding {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	var model openai.EmbeddingModel
	if modelName == "" {
		model = openai.SmallEmbedding3
	} else {
		model = openai.EmbeddingModel(modelName)
	}

	client := openai.NewClient(apiKey)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	return &OpenAIEmbedding{
		client: client,
		model:  model,
		logger: logger,
	}
}

func NewOpenAIEmbeddingWithClient(client *openai.Client, modelName string) *OpenAIEmbedding {
	var model openai.EmbeddingModel
	if modelName == "" {
		model = openai.SmallEmbedding3
	} else {
		model = openai.EmbeddingModel(modelName)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	return &OpenAIEmbedding{
		client: client,
		model:  model,
		logger: logger,
	}
}

func (o *OpenAIEmbedding) GetTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	return o.getEmbedding(ctx, text, "text")
}

func (o *OpenAIEmbedding) GetQueryEmbedding(ctx context.Context, query string) ([]float64, error) {
	return o.getEmbedding(ctx, query, "query")
}

func (o *OpenAIEmbedding) getEmbedding(ctx context.Context, input string, typeLabel string) ([]float64, error) {
	resp, err := o.client.CreateEmbeddings(
		ctx,
		openai.EmbeddingRequest{
			Input: []string{input},
			Model: o.model,
		},
	)

	if err != nil {
		o.logger.Error("GetEmbedding failed", "type", typeLabel, "error", err)
		return nil, fmt.Errorf("openai embedding failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no embeddings")
	}

	return toFloat64(resp.Data[0].Embedding), nil
}

// GetTextEmbeddingsBatch generates embeddings for multiple texts in as few
// API calls as possible.
func (o *OpenAIEmbedding) GetTextEmbeddingsBatch(ctx context.Context, texts []string, callback ProgressCallback) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// OpenAI accepts up to 2048 inputs per request.
	const batchSize = 2048
	results := make([][]float64, len(texts))
	processed := 0

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		resp, err := o.client.CreateEmbeddings(
			ctx,
			openai.EmbeddingRequest{
				Input: batch,
				Model: o.model,
			},
		)

		if err != nil {
			o.logger.Error("GetTextEmbeddingsBatch failed", "error", err)
			return nil, fmt.Errorf("openai batch embedding failed: %w", err)
		}

		for j, data := range resp.Data {
			results[i+j] = toFloat64(data.Embedding)
		}

		processed += len(batch)
		if callback != nil {
			callback(processed, len(texts))
		}
	}

	return results, nil
}

// Info returns information about the model's capabilities.
func (o *OpenAIEmbedding) Info() EmbeddingInfo {
	dims := dimensionsSmall3
	switch o.model {
	case openai.LargeEmbedding3:
		dims = dimensionsLarge3
	case openai.AdaEmbeddingV2:
		dims = dimensionsAda002
	}
	return EmbeddingInfo{
		ModelName:  string(o.model),
		Dimensions: dims,
		MaxTokens:  8191,
	}
}

// toFloat64 converts the API's float32 vectors to float64.
func toFloat64(embedding32 []float32) []float64 {
	embedding64 := make([]float64, len(embedding32))
	for i, v := range embedding32 {
		embedding64[i] = float64(v)
	}
	return embedding64
}

// Ensure OpenAIEmbedding implements the interfaces.
var _ EmbeddingModel = (*OpenAIEmbedding)(nil)
var _ Embedder = (*OpenAIEmbedding)(nil)
