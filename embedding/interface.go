// Package embedding provides text embedding models for the document QA core.
package embedding

import "context"

// ProgressCallback reports batch embedding progress as (processed, total).
type ProgressCallback func(processed, total int)

// EmbeddingInfo describes a model's capabilities.
type EmbeddingInfo struct {
	ModelName  string
	Dimensions int
	MaxTokens  int
}

// EmbeddingModel is the interface for generating text embeddings.
type EmbeddingModel interface {
	// GetTextEmbedding generates an embedding for a given text.
	GetTextEmbedding(ctx context.Context, text string) ([]float64, error)
	// GetQueryEmbedding generates an embedding for a given query.
	// This is often the same as GetTextEmbedding, but some models treat them differently.
	GetQueryEmbedding(ctx context.Context, query string) ([]float64, error)
}

// EmbeddingModelWithInfo extends EmbeddingModel with metadata capabilities.
type EmbeddingModelWithInfo interface {
	EmbeddingModel
	// Info returns information about the model's capabilities.
	Info() EmbeddingInfo
}

// EmbeddingModelWithBatch extends EmbeddingModel with batch processing.
// Batch embedding is the dominant ingestion cost; implementations must issue
// as few provider calls as possible rather than looping over single texts.
type EmbeddingModelWithBatch interface {
	EmbeddingModel
	// GetTextEmbeddingsBatch generates embeddings for multiple texts.
	// The callback is optional and can be used to track progress.
	GetTextEmbeddingsBatch(ctx context.Context, texts []string, callback ProgressCallback) ([][]float64, error)
}

// Embedder combines the capabilities the vector index relies on: single and
// batched embedding plus a fixed dimension reported once at startup.
type Embedder interface {
	EmbeddingModelWithInfo
	EmbeddingModelWithBatch
}
