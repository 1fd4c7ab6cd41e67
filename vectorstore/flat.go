// Package vectorstore provides the persistent nearest-neighbor index over
// chunk records. The index is an exact flat L2 scan: correct by construction
// and O(n) per query, which is acceptable at the corpus sizes this system
// targets.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aqua777/docqa/embedding"
	"github.com/aqua777/docqa/schema"
)

// ErrDimensionMismatch is returned when a persisted index was built with a
// different embedding dimension than the configured embedder reports.
var ErrDimensionMismatch = errors.New("persisted index dimension does not match embedder")

// FlatIndex maps embeddings to chunk records under squared Euclidean distance.
//
// Records and vectors are two parallel append-only slices: position i in one
// always corresponds to position i in the other, and every mutation appends
// to both under one lock so the pairing cannot drift. Mutations (Add, Clear,
// Persist, Load) are serialized against each other and against Search.
type FlatIndex struct {
	mu       sync.RWMutex
	embedder embedding.Embedder
	dim      int
	path     string
	records  []schema.ChunkRecord
	vectors  [][]float64
	logger   *slog.Logger
}

// NewFlatIndex creates a FlatIndex bound to an embedder and a persistence
// path. The embedding dimension is fixed at construction and assumed stable
// for the lifetime of the persisted index. The path is a prefix: the index is
// persisted as the co-located pair <path>.index and <path>.records.
func NewFlatIndex(embedder embedding.Embedder, path string, logger *slog.Logger) *FlatIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlatIndex{
		embedder: embedder,
		dim:      embedder.Info().Dimensions,
		path:     path,
		logger:   logger,
	}
}

// Len returns the number of indexed chunks.
func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.records)
}

// Dimension returns the fixed embedding dimension.
func (f *FlatIndex) Dimension() int {
	return f.dim
}

// Path returns the persistence path prefix.
func (f *FlatIndex) Path() string {
	return f.path
}

// Add embeds all texts in one batch call, then appends the resulting
// (text, metadata, embedding) tuples to the record sequence and the neighbor
// rows in the same order. If len(metadatas) != len(texts), metadatas default
// to zero values. Embedding runs outside the lock; only the final append is
// locked.
func (f *FlatIndex) Add(ctx context.Context, texts []string, metadatas []schema.ChunkMetadata) error {
	if len(texts) == 0 {
		return nil
	}
	if len(metadatas) != len(texts) {
		metadatas = make([]schema.ChunkMetadata, len(texts))
	}

	vectors, err := f.embedder.GetTextEmbeddingsBatch(ctx, texts, func(processed, total int) {
		f.logger.Debug("embedding batch progress", "processed", processed, "total", total)
	})
	if err != nil {
		return fmt.Errorf("failed to embed %d texts: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, vec := range vectors {
		if len(vec) != f.dim {
			return fmt.Errorf("embedding %d has dimension %d, index expects %d", i, len(vec), f.dim)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, text := range texts {
		f.records = append(f.records, schema.ChunkRecord{Text: text, Metadata: metadatas[i]})
		f.vectors = append(f.vectors, vectors[i])
	}

	f.logger.Info("added chunks to index", "count", len(texts), "total", len(f.records))
	return nil
}

// Search embeds the query and returns the k nearest stored chunks ordered by
// ascending squared L2 distance, ties broken by insertion order. k is clamped
// to the index size; an empty index returns an empty result, not an error.
func (f *FlatIndex) Search(ctx context.Context, query string, k int) ([]schema.ScoredChunk, error) {
	if f.Len() == 0 {
		return nil, nil
	}

	queryVec, err := f.embedder.GetQueryEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(queryVec) != f.dim {
		return nil, fmt.Errorf("query embedding has dimension %d, index expects %d", len(queryVec), f.dim)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if k > len(f.records) {
		k = len(f.records)
	}
	if k <= 0 {
		return nil, nil
	}

	type rowDistance struct {
		row      int
		distance float64
	}
	distances := make([]rowDistance, len(f.vectors))
	for i, vec := range f.vectors {
		distances[i] = rowDistance{row: i, distance: squaredL2(queryVec, vec)}
	}
	sort.SliceStable(distances, func(a, b int) bool {
		return distances[a].distance < distances[b].distance
	})

	results := make([]schema.ScoredChunk, 0, k)
	for _, d := range distances[:k] {
		results = append(results, schema.ScoredChunk{
			Record:   f.records[d.row],
			Distance: d.distance,
		})
	}
	return results, nil
}

// Clear resets the index to empty with the same fixed dimension.
func (f *FlatIndex) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = nil
	f.vectors = nil
	f.logger.Info("cleared index")
}

func squaredL2(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
