// Package docstore defines the persistent metadata store for uploaded
// documents and their chunks.
package docstore

import (
	"context"

	"github.com/aqua777/docqa/schema"
)

// DocumentStore persists document records and their chunk texts. The chunk
// rows are the durable source of truth the vector index is rebuilt from, so
// InsertDocument must write the document and all of its chunks atomically.
type DocumentStore interface {
	// InsertDocument stores a document and its chunks in one transaction.
	InsertDocument(ctx context.Context, doc schema.DocumentRecord, chunks []schema.ChunkRecord) error

	// GetDocument returns the document with the given ID, or (nil, nil) if
	// it does not exist.
	GetDocument(ctx context.Context, id string) (*schema.DocumentRecord, error)

	// GetDocumentByHash returns the document with the given content hash,
	// or (nil, nil) if no document with that hash exists.
	GetDocumentByHash(ctx context.Context, hash string) (*schema.DocumentRecord, error)

	// ListDocuments returns all documents ordered by upload date, newest
	// first.
	ListDocuments(ctx context.Context) ([]schema.DocumentRecord, error)

	// DeleteDocument removes a document and its chunks. Deleting an absent
	// document is not an error.
	DeleteDocument(ctx context.Context, id string) error

	// ListChunks returns the chunks of one document ordered by chunk index.
	ListChunks(ctx context.Context, documentID string) ([]schema.ChunkRecord, error)

	// ListAllChunks returns every stored chunk ordered by document and
	// chunk index. Used to rebuild the vector index from scratch.
	ListAllChunks(ctx context.Context) ([]schema.ChunkRecord, error)

	// CountChunks returns the total number of stored chunks.
	CountChunks(ctx context.Context) (int, error)
}
