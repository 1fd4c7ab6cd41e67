package vectorstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/aqua777/docqa/embedding"
	"github.com/aqua777/docqa/schema"
)

type FlatIndexTestSuite struct {
	suite.Suite
	embedder *embedding.MockEmbeddingModel
	index    *FlatIndex
}

func TestFlatIndexTestSuite(t *testing.T) {
	suite.Run(t, new(FlatIndexTestSuite))
}

func (s *FlatIndexTestSuite) SetupTest() {
	s.embedder = &embedding.MockEmbeddingModel{
		Dims: 2,
		Embeddings: map[string][]float64{
			"near":   {1, 0},
			"middle": {2, 1},
			"far":    {3, 0},
			"query":  {0, 0},
		},
	}
	s.index = NewFlatIndex(s.embedder, filepath.Join(s.T().TempDir(), "docqa"), nil)
}

func (s *FlatIndexTestSuite) addAll() {
	texts := []string{"near", "middle", "far"}
	metas := make([]schema.ChunkMetadata, len(texts))
	for i := range metas {
		metas[i] = schema.ChunkMetadata{DocumentID: "doc-1", ChunkIndex: i, TotalChunks: len(texts)}
	}
	s.Require().NoError(s.index.Add(context.Background(), texts, metas))
}

func (s *FlatIndexTestSuite) TestSearchOrdersByAscendingDistance() {
	s.addAll()

	results, err := s.index.Search(context.Background(), "query", 3)
	s.Require().NoError(err)
	s.Require().Len(results, 3)

	s.Equal("near", results[0].Record.Text)
	s.Equal("middle", results[1].Record.Text)
	s.Equal("far", results[2].Record.Text)
	s.InDelta(1.0, results[0].Distance, 1e-9)
	s.InDelta(5.0, results[1].Distance, 1e-9)
	s.InDelta(9.0, results[2].Distance, 1e-9)
}

func (s *FlatIndexTestSuite) TestSearchClampsK() {
	s.addAll()

	results, err := s.index.Search(context.Background(), "query", 100)
	s.Require().NoError(err)
	s.Len(results, 3)
}

func (s *FlatIndexTestSuite) TestSearchEmptyIndex() {
	results, err := s.index.Search(context.Background(), "query", 5)
	s.Require().NoError(err)
	s.Empty(results)
}

func (s *FlatIndexTestSuite) TestSearchCarriesMetadata() {
	s.addAll()

	results, err := s.index.Search(context.Background(), "query", 1)
	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal("doc-1", results[0].Record.Metadata.DocumentID)
	s.Equal(0, results[0].Record.Metadata.ChunkIndex)
	s.Equal(3, results[0].Record.Metadata.TotalChunks)
}

func (s *FlatIndexTestSuite) TestTiesBrokenByInsertionOrder() {
	s.embedder.Embeddings["twin-a"] = []float64{1, 0}
	s.embedder.Embeddings["twin-b"] = []float64{1, 0}
	s.Require().NoError(s.index.Add(context.Background(),
		[]string{"twin-a", "twin-b"}, nil))

	results, err := s.index.Search(context.Background(), "query", 2)
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal("twin-a", results[0].Record.Text)
	s.Equal("twin-b", results[1].Record.Text)
}

func (s *FlatIndexTestSuite) TestAddDefaultsMissingMetadata() {
	s.Require().NoError(s.index.Add(context.Background(), []string{"near", "far"}, nil))
	s.Equal(2, s.index.Len())
}

func (s *FlatIndexTestSuite) TestAddRejectsWrongDimension() {
	s.embedder.Embeddings["bad"] = []float64{1, 2, 3}
	err := s.index.Add(context.Background(), []string{"bad"}, nil)
	s.Error(err)
	s.Equal(0, s.index.Len())
}

func (s *FlatIndexTestSuite) TestClear() {
	s.addAll()
	s.index.Clear()
	s.Equal(0, s.index.Len())

	results, err := s.index.Search(context.Background(), "query", 3)
	s.Require().NoError(err)
	s.Empty(results)
}

func TestFlatIndexPersistRoundTrip(t *testing.T) {
	embedder := &embedding.MockEmbeddingModel{
		Dims: 2,
		Embeddings: map[string][]float64{
			"near":  {1, 0},
			"far":   {3, 0},
			"query": {0, 0},
		},
	}
	path := filepath.Join(t.TempDir(), "docqa")

	original := NewFlatIndex(embedder, path, nil)
	metas := []schema.ChunkMetadata{
		{DocumentID: "doc-1", ChunkIndex: 0, TotalChunks: 2, Filename: "a.txt", FileType: "txt"},
		{DocumentID: "doc-1", ChunkIndex: 1, TotalChunks: 2, Filename: "a.txt", FileType: "txt"},
	}
	require.NoError(t, original.Add(context.Background(), []string{"near", "far"}, metas))
	require.NoError(t, original.Persist())

	reloaded := NewFlatIndex(embedder, path, nil)
	require.NoError(t, reloaded.Load())
	require.Equal(t, original.Len(), reloaded.Len())

	want, err := original.Search(context.Background(), "query", 2)
	require.NoError(t, err)
	got, err := reloaded.Search(context.Background(), "query", 2)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestFlatIndexLoadMissingArtifactsStartsCold(t *testing.T) {
	embedder := &embedding.MockEmbeddingModel{Dims: 2}
	index := NewFlatIndex(embedder, filepath.Join(t.TempDir(), "absent"), nil)

	require.NoError(t, index.Load())
	require.Equal(t, 0, index.Len())
}

func TestFlatIndexLoadHalfPairStartsCold(t *testing.T) {
	embedder := &embedding.MockEmbeddingModel{
		Dims:       2,
		Embeddings: map[string][]float64{"near": {1, 0}},
	}
	path := filepath.Join(t.TempDir(), "docqa")

	original := NewFlatIndex(embedder, path, nil)
	require.NoError(t, original.Add(context.Background(), []string{"near"}, nil))
	require.NoError(t, original.Persist())

	// Delete one half of the pair; the survivor must not be trusted.
	require.NoError(t, os.Remove(path+recordsSuffix))

	reloaded := NewFlatIndex(embedder, path, nil)
	require.NoError(t, reloaded.Load())
	require.Equal(t, 0, reloaded.Len())
}

func TestFlatIndexLoadDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docqa")

	embedder2d := &embedding.MockEmbeddingModel{
		Dims:       2,
		Embeddings: map[string][]float64{"near": {1, 0}},
	}
	original := NewFlatIndex(embedder2d, path, nil)
	require.NoError(t, original.Add(context.Background(), []string{"near"}, nil))
	require.NoError(t, original.Persist())

	embedder3d := &embedding.MockEmbeddingModel{Dims: 3}
	reloaded := NewFlatIndex(embedder3d, path, nil)
	err := reloaded.Load()
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlatIndexRemoveArtifacts(t *testing.T) {
	embedder := &embedding.MockEmbeddingModel{
		Dims:       2,
		Embeddings: map[string][]float64{"near": {1, 0}},
	}
	path := filepath.Join(t.TempDir(), "docqa")

	index := NewFlatIndex(embedder, path, nil)
	require.NoError(t, index.Add(context.Background(), []string{"near"}, nil))
	require.NoError(t, index.Persist())
	require.NoError(t, index.RemoveArtifacts())

	reloaded := NewFlatIndex(embedder, path, nil)
	require.NoError(t, reloaded.Load())
	require.Equal(t, 0, reloaded.Len())
}
