// Package retriever turns raw nearest-neighbor hits into scored, optionally
// re-ranked context chunks.
package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/aqua777/docqa/schema"
)

// relevanceScale controls how fast relevance decays with L2 distance.
const relevanceScale = 10.0

// Searcher is the slice of the vector index the retriever needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]schema.ScoredChunk, error)
}

// Retriever converts index distances into relevance scores and applies
// optional metadata filtering and lexical re-ranking.
type Retriever struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewRetriever creates a Retriever over a searcher. A nil logger falls back
// to slog.Default().
func NewRetriever(searcher Searcher, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{searcher: searcher, logger: logger}
}

// Retrieve returns up to k chunks scored by relevance, in ascending distance
// order. Filters are exact-match conditions on metadata fields, applied after
// the vector search; a chunk must satisfy all of them to be kept.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, filters map[string]string) ([]schema.RetrievedChunk, error) {
	scored, err := r.searcher.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	results := make([]schema.RetrievedChunk, 0, len(scored))
	for _, hit := range scored {
		if !matchesFilters(hit.Record.Metadata, filters) {
			continue
		}
		results = append(results, schema.RetrievedChunk{
			Record:    hit.Record,
			Distance:  hit.Distance,
			Relevance: Relevance(hit.Distance),
		})
	}

	r.logger.Debug("retrieved chunks", "requested", k, "returned", len(results))
	return results, nil
}

// RetrieveWithRerank over-fetches 2k candidates, scores each by a fusion of
// vector relevance and lexical term overlap with the query, and returns the
// top rerankTopN by combined score. rerankTopN <= 0 defaults to k.
func (r *Retriever) RetrieveWithRerank(ctx context.Context, query string, k, rerankTopN int) ([]schema.RetrievedChunk, error) {
	if rerankTopN <= 0 {
		rerankTopN = k
	}

	candidates, err := r.Retrieve(ctx, query, k*2, nil)
	if err != nil {
		return nil, err
	}

	queryTerms := tokenize(query)
	for i := range candidates {
		candidates[i].LexicalScore = termOverlap(queryTerms, candidates[i].Record.Text)
		candidates[i].CombinedScore = 0.7*candidates[i].Relevance + 0.3*candidates[i].LexicalScore
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].CombinedScore > candidates[b].CombinedScore
	})

	if len(candidates) > rerankTopN {
		candidates = candidates[:rerankTopN]
	}
	return candidates, nil
}

// Relevance maps a squared L2 distance to a score in [0, 1]. Distance 0 maps
// to 1 and the score decays exponentially from there.
func Relevance(distance float64) float64 {
	score := math.Exp(-distance / relevanceScale)
	if score > 1 {
		return 1
	}
	if score < 0 {
		return 0
	}
	return score
}

func matchesFilters(meta schema.ChunkMetadata, filters map[string]string) bool {
	for key, want := range filters {
		got, ok := meta.Field(key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// tokenize lowercases and splits on whitespace, deduplicating terms.
func tokenize(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, term := range strings.Fields(strings.ToLower(text)) {
		terms[term] = struct{}{}
	}
	return terms
}

// termOverlap returns the fraction of query terms present in the chunk text.
// A query with no terms scores 0.
func termOverlap(queryTerms map[string]struct{}, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	chunkTerms := tokenize(text)
	matched := 0
	for term := range queryTerms {
		if _, ok := chunkTerms[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}
