package retriever

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqua777/docqa/schema"
)

// stubSearcher returns canned hits and records the last requested k.
type stubSearcher struct {
	hits  []schema.ScoredChunk
	err   error
	lastK int
}

func (s *stubSearcher) Search(_ context.Context, _ string, k int) ([]schema.ScoredChunk, error) {
	s.lastK = k
	if s.err != nil {
		return nil, s.err
	}
	if k < len(s.hits) {
		return s.hits[:k], nil
	}
	return s.hits, nil
}

func chunk(text, docID string) schema.ChunkRecord {
	return schema.ChunkRecord{
		Text:     text,
		Metadata: schema.ChunkMetadata{DocumentID: docID, Filename: docID + ".txt"},
	}
}

func TestRelevanceMapping(t *testing.T) {
	require.InDelta(t, 1.0, Relevance(0), 1e-9)
	require.InDelta(t, math.Exp(-0.1), Relevance(1), 1e-9)
	require.InDelta(t, math.Exp(-0.5), Relevance(5), 1e-9)
	require.Greater(t, Relevance(1), Relevance(5))
	require.GreaterOrEqual(t, Relevance(10000), 0.0)
}

func TestRetrieveScoresByDistance(t *testing.T) {
	searcher := &stubSearcher{hits: []schema.ScoredChunk{
		{Record: chunk("close", "doc-a"), Distance: 1},
		{Record: chunk("farther", "doc-b"), Distance: 5},
	}}
	r := NewRetriever(searcher, nil)

	got, err := r.Retrieve(context.Background(), "anything", 2, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "close", got[0].Record.Text)
	require.InDelta(t, math.Exp(-0.1), got[0].Relevance, 1e-9)
	require.InDelta(t, math.Exp(-0.5), got[1].Relevance, 1e-9)
}

func TestRetrieveAppliesMetadataFilters(t *testing.T) {
	searcher := &stubSearcher{hits: []schema.ScoredChunk{
		{Record: chunk("keep", "doc-a"), Distance: 1},
		{Record: chunk("drop", "doc-b"), Distance: 2},
	}}
	r := NewRetriever(searcher, nil)

	got, err := r.Retrieve(context.Background(), "q", 2,
		map[string]string{schema.FieldDocumentID: "doc-a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "keep", got[0].Record.Text)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	r := NewRetriever(&stubSearcher{}, nil)
	got, err := r.Retrieve(context.Background(), "q", 5, nil)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRerankOverFetchesDouble(t *testing.T) {
	searcher := &stubSearcher{hits: []schema.ScoredChunk{
		{Record: chunk("a", "doc-a"), Distance: 1},
	}}
	r := NewRetriever(searcher, nil)

	_, err := r.RetrieveWithRerank(context.Background(), "q", 3, 0)
	require.NoError(t, err)
	require.Equal(t, 6, searcher.lastK)
}

func TestRerankPromotesLexicalMatch(t *testing.T) {
	// The lexically matching chunk is slightly farther away; the 0.3 lexical
	// weight must lift it above the closer, lexically unrelated one.
	searcher := &stubSearcher{hits: []schema.ScoredChunk{
		{Record: chunk("completely unrelated words", "doc-a"), Distance: 1.0},
		{Record: chunk("rotation policy for api keys", "doc-b"), Distance: 1.2},
	}}
	r := NewRetriever(searcher, nil)

	got, err := r.RetrieveWithRerank(context.Background(), "rotation policy", 2, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "doc-b", got[0].Record.Metadata.DocumentID)
	require.InDelta(t, 1.0, got[0].LexicalScore, 1e-9)
	require.InDelta(t, 0.0, got[1].LexicalScore, 1e-9)

	wantCombined := 0.7*math.Exp(-0.12) + 0.3
	require.InDelta(t, wantCombined, got[0].CombinedScore, 1e-9)
}

func TestRerankTruncatesToTopN(t *testing.T) {
	searcher := &stubSearcher{hits: []schema.ScoredChunk{
		{Record: chunk("one", "doc-a"), Distance: 1},
		{Record: chunk("two", "doc-b"), Distance: 2},
		{Record: chunk("three", "doc-c"), Distance: 3},
	}}
	r := NewRetriever(searcher, nil)

	got, err := r.RetrieveWithRerank(context.Background(), "q", 3, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestRerankEmptyQueryScoresZeroLexical(t *testing.T) {
	searcher := &stubSearcher{hits: []schema.ScoredChunk{
		{Record: chunk("some text", "doc-a"), Distance: 1},
	}}
	r := NewRetriever(searcher, nil)

	got, err := r.RetrieveWithRerank(context.Background(), "   ", 1, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Zero(t, got[0].LexicalScore)
	require.InDelta(t, 0.7*got[0].Relevance, got[0].CombinedScore, 1e-9)
}
