package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/aqua777/docqa/schema"
)

type StoreTestSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) SetupTest() {
	store, err := NewStore(filepath.Join(s.T().TempDir(), "metadata.db"))
	s.Require().NoError(err)
	s.store = store
	s.ctx = context.Background()
}

func (s *StoreTestSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func (s *StoreTestSuite) makeDocument(id, hash string, chunkTexts ...string) (schema.DocumentRecord, []schema.ChunkRecord) {
	doc := schema.DocumentRecord{
		ID:          id,
		Filename:    id + ".txt",
		ContentHash: hash,
		FileType:    "txt",
		FileSize:    100,
		UploadDate:  time.Now().UTC().Truncate(time.Second),
		TotalChunks: len(chunkTexts),
	}
	chunks := make([]schema.ChunkRecord, len(chunkTexts))
	for i, text := range chunkTexts {
		chunks[i] = schema.ChunkRecord{
			Text: text,
			Metadata: schema.ChunkMetadata{
				DocumentID:  id,
				ChunkIndex:  i,
				TotalChunks: len(chunkTexts),
				FileType:    "txt",
				Filename:    doc.Filename,
			},
		}
	}
	return doc, chunks
}

func (s *StoreTestSuite) TestInsertAndGetDocument() {
	doc, chunks := s.makeDocument("doc-1", "hash-1", "alpha", "beta")
	s.Require().NoError(s.store.InsertDocument(s.ctx, doc, chunks))

	got, err := s.store.GetDocument(s.ctx, "doc-1")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(doc.Filename, got.Filename)
	s.Equal(doc.ContentHash, got.ContentHash)
	s.Equal(2, got.TotalChunks)
}

func (s *StoreTestSuite) TestGetDocumentAbsentReturnsNil() {
	got, err := s.store.GetDocument(s.ctx, "missing")
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *StoreTestSuite) TestGetDocumentByHash() {
	doc, chunks := s.makeDocument("doc-1", "hash-1", "alpha")
	s.Require().NoError(s.store.InsertDocument(s.ctx, doc, chunks))

	got, err := s.store.GetDocumentByHash(s.ctx, "hash-1")
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal("doc-1", got.ID)

	absent, err := s.store.GetDocumentByHash(s.ctx, "other-hash")
	s.Require().NoError(err)
	s.Nil(absent)
}

func (s *StoreTestSuite) TestDuplicateHashRejected() {
	doc1, chunks1 := s.makeDocument("doc-1", "same-hash", "alpha")
	s.Require().NoError(s.store.InsertDocument(s.ctx, doc1, chunks1))

	doc2, chunks2 := s.makeDocument("doc-2", "same-hash", "beta")
	s.Error(s.store.InsertDocument(s.ctx, doc2, chunks2))
}

func (s *StoreTestSuite) TestListChunksOrderedByIndex() {
	doc, chunks := s.makeDocument("doc-1", "hash-1", "first", "second", "third")
	s.Require().NoError(s.store.InsertDocument(s.ctx, doc, chunks))

	got, err := s.store.ListChunks(s.ctx, "doc-1")
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	for i, chunk := range got {
		s.Equal(i, chunk.Metadata.ChunkIndex)
		s.Equal("doc-1", chunk.Metadata.DocumentID)
	}
	s.Equal("first", got[0].Text)
	s.Equal("third", got[2].Text)
}

func (s *StoreTestSuite) TestChunkExtraRoundTrip() {
	doc, chunks := s.makeDocument("doc-1", "hash-1", "alpha")
	chunks[0].Metadata.Extra = map[string]string{"language": "en"}
	s.Require().NoError(s.store.InsertDocument(s.ctx, doc, chunks))

	got, err := s.store.ListChunks(s.ctx, "doc-1")
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("en", got[0].Metadata.Extra["language"])
}

func (s *StoreTestSuite) TestDeleteDocumentCascadesToChunks() {
	doc, chunks := s.makeDocument("doc-1", "hash-1", "alpha", "beta")
	s.Require().NoError(s.store.InsertDocument(s.ctx, doc, chunks))
	s.Require().NoError(s.store.DeleteDocument(s.ctx, "doc-1"))

	got, err := s.store.GetDocument(s.ctx, "doc-1")
	s.Require().NoError(err)
	s.Nil(got)

	remaining, err := s.store.ListChunks(s.ctx, "doc-1")
	s.Require().NoError(err)
	s.Empty(remaining)

	// Deleting again is a no-op, not an error.
	s.NoError(s.store.DeleteDocument(s.ctx, "doc-1"))
}

func (s *StoreTestSuite) TestDeleteCascadeSurvivesPoolChurn() {
	doc, chunks := s.makeDocument("doc-1", "hash-1", "alpha")
	s.Require().NoError(s.store.InsertDocument(s.ctx, doc, chunks))

	// Force every statement onto a fresh connection; the cascade must not
	// depend on which pooled connection a pragma happened to run on.
	s.store.db.SetMaxIdleConns(0)
	s.Require().NoError(s.store.DeleteDocument(s.ctx, "doc-1"))

	remaining, err := s.store.ListChunks(s.ctx, "doc-1")
	s.Require().NoError(err)
	s.Empty(remaining)
}

func (s *StoreTestSuite) TestListAllChunksAndCount() {
	docA, chunksA := s.makeDocument("doc-a", "hash-a", "a0", "a1")
	docB, chunksB := s.makeDocument("doc-b", "hash-b", "b0")
	s.Require().NoError(s.store.InsertDocument(s.ctx, docA, chunksA))
	s.Require().NoError(s.store.InsertDocument(s.ctx, docB, chunksB))

	all, err := s.store.ListAllChunks(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("a0", all[0].Text)
	s.Equal("a1", all[1].Text)
	s.Equal("b0", all[2].Text)

	count, err := s.store.CountChunks(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *StoreTestSuite) TestConversationRoundTrip() {
	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 4; i++ {
		turn := schema.ConversationTurn{
			ID:                fmt.Sprintf("turn-%d", i),
			SessionID:         "session-1",
			Question:          fmt.Sprintf("question %d", i),
			Answer:            fmt.Sprintf("answer %d", i),
			SourceDocumentIDs: []string{"doc-1"},
			Timestamp:         base.Add(time.Duration(i) * time.Second),
		}
		s.Require().NoError(s.store.AppendTurn(s.ctx, turn))
	}

	recent, err := s.store.RecentTurns(s.ctx, "session-1", 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("question 2", recent[0].Question)
	s.Equal("question 3", recent[1].Question)
	s.Equal([]string{"doc-1"}, recent[0].SourceDocumentIDs)

	history, err := s.store.SessionHistory(s.ctx, "session-1")
	s.Require().NoError(err)
	s.Require().Len(history, 4)
	s.Equal("question 0", history[0].Question)
}

func (s *StoreTestSuite) TestClearSession() {
	turn := schema.ConversationTurn{
		ID:        "turn-1",
		SessionID: "session-1",
		Question:  "q",
		Answer:    "a",
		Timestamp: time.Now().UTC(),
	}
	s.Require().NoError(s.store.AppendTurn(s.ctx, turn))
	s.Require().NoError(s.store.ClearSession(s.ctx, "session-1"))

	history, err := s.store.SessionHistory(s.ctx, "session-1")
	s.Require().NoError(err)
	s.Empty(history)

	s.NoError(s.store.ClearSession(s.ctx, "unknown-session"))
}

func TestStoreReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.db")
	ctx := context.Background()

	store, err := NewStore(path)
	require.NoError(t, err)

	doc := schema.DocumentRecord{
		ID:          "doc-1",
		Filename:    "a.txt",
		ContentHash: "hash-1",
		FileType:    "txt",
		FileSize:    10,
		UploadDate:  time.Now().UTC().Truncate(time.Second),
		TotalChunks: 1,
	}
	chunk := schema.ChunkRecord{
		Text: "alpha",
		Metadata: schema.ChunkMetadata{
			DocumentID: "doc-1", TotalChunks: 1, FileType: "txt", Filename: "a.txt",
		},
	}
	require.NoError(t, store.InsertDocument(ctx, doc, []schema.ChunkRecord{chunk}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "a.txt", got.Filename)
}
