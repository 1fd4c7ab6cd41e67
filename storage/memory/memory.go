// Package memory provides in-memory implementations of the storage
// interfaces, used in tests and for throwaway setups that need no
// persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aqua777/docqa/schema"
	"github.com/aqua777/docqa/storage/chatstore"
	"github.com/aqua777/docqa/storage/docstore"
)

// DocumentStore is an in-memory docstore.DocumentStore.
type DocumentStore struct {
	mu     sync.RWMutex
	docs   map[string]schema.DocumentRecord
	chunks map[string][]schema.ChunkRecord
}

var _ docstore.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates an empty in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs:   make(map[string]schema.DocumentRecord),
		chunks: make(map[string][]schema.ChunkRecord),
	}
}

func (s *DocumentStore) InsertDocument(_ context.Context, doc schema.DocumentRecord, chunks []schema.ChunkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	s.chunks[doc.ID] = append([]schema.ChunkRecord(nil), chunks...)
	return nil
}

func (s *DocumentStore) GetDocument(_ context.Context, id string) (*schema.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if doc, ok := s.docs[id]; ok {
		return &doc, nil
	}
	return nil, nil
}

func (s *DocumentStore) GetDocumentByHash(_ context.Context, hash string) (*schema.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc.ContentHash == hash {
			found := doc
			return &found, nil
		}
	}
	return nil, nil
}

func (s *DocumentStore) ListDocuments(_ context.Context) ([]schema.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]schema.DocumentRecord, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(a, b int) bool {
		if !docs[a].UploadDate.Equal(docs[b].UploadDate) {
			return docs[a].UploadDate.After(docs[b].UploadDate)
		}
		return docs[a].ID < docs[b].ID
	})
	return docs, nil
}

func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	delete(s.chunks, id)
	return nil
}

func (s *DocumentStore) ListChunks(_ context.Context, documentID string) ([]schema.ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]schema.ChunkRecord(nil), s.chunks[documentID]...), nil
}

func (s *DocumentStore) ListAllChunks(_ context.Context) ([]schema.ChunkRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.chunks))
	for id := range s.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var all []schema.ChunkRecord
	for _, id := range ids {
		all = append(all, s.chunks[id]...)
	}
	return all, nil
}

func (s *DocumentStore) CountChunks(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, chunks := range s.chunks {
		count += len(chunks)
	}
	return count, nil
}

// ConversationStore is an in-memory chatstore.ConversationStore.
type ConversationStore struct {
	mu       sync.RWMutex
	sessions map[string][]schema.ConversationTurn
}

var _ chatstore.ConversationStore = (*ConversationStore)(nil)

// NewConversationStore creates an empty in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		sessions: make(map[string][]schema.ConversationTurn),
	}
}

func (s *ConversationStore) AppendTurn(_ context.Context, turn schema.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[turn.SessionID] = append(s.sessions[turn.SessionID], turn)
	return nil
}

func (s *ConversationStore) RecentTurns(_ context.Context, sessionID string, limit int) ([]schema.ConversationTurn, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]schema.ConversationTurn(nil), turns...), nil
}

func (s *ConversationStore) SessionHistory(_ context.Context, sessionID string) ([]schema.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]schema.ConversationTurn(nil), s.sessions[sessionID]...), nil
}

func (s *ConversationStore) ClearSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
