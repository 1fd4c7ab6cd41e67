package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// MockEmbeddingModel is a deterministic Embedder for tests.
// Lookup order per text: Embeddings map, then Fn, then a vector derived from
// the text's hash so distinct texts get distinct, stable embeddings.
type MockEmbeddingModel struct {
	Dims       int
	Embeddings map[string][]float64
	Fn         func(text string) []float64
	Err        error
}

// NewMockEmbeddingModel creates a mock with the given dimension.
func NewMockEmbeddingModel(dims int) *MockEmbeddingModel {
	return &MockEmbeddingModel{Dims: dims}
}

func (m *MockEmbeddingModel) GetTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.embeddingFor(text), nil
}

func (m *MockEmbeddingModel) GetQueryEmbedding(ctx context.Context, query string) ([]float64, error) {
	return m.GetTextEmbedding(ctx, query)
}

func (m *MockEmbeddingModel) GetTextEmbeddingsBatch(ctx context.Context, texts []string, callback ProgressCallback) ([][]float64, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	results := make([][]float64, len(texts))
	for i, text := range texts {
		results[i] = m.embeddingFor(text)
	}
	if callback != nil {
		callback(len(texts), len(texts))
	}
	return results, nil
}

func (m *MockEmbeddingModel) Info() EmbeddingInfo {
	return EmbeddingInfo{
		ModelName:  "mock",
		Dimensions: m.dims(),
		MaxTokens:  8192,
	}
}

func (m *MockEmbeddingModel) dims() int {
	if m.Dims > 0 {
		return m.Dims
	}
	return 8
}

func (m *MockEmbeddingModel) embeddingFor(text string) []float64 {
	if vec, ok := m.Embeddings[text]; ok {
		return vec
	}
	if m.Fn != nil {
		return m.Fn(text)
	}

	sum := sha256.Sum256([]byte(text))
	vec := make([]float64, m.dims())
	for i := range vec {
		bits := binary.BigEndian.Uint32(sum[(i*4)%28:])
		vec[i] = float64(bits%1000) / 1000.0
	}
	return vec
}

// Ensure MockEmbeddingModel implements the interfaces.
var _ EmbeddingModel = (*MockEmbeddingModel)(nil)
var _ Embedder = (*MockEmbeddingModel)(nil)
