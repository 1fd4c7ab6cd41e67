// Package ingestion drives the document upload path: dedup by content hash,
// text extraction, chunking, metadata commit, and vector indexing.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aqua777/docqa/reader"
	"github.com/aqua777/docqa/schema"
	"github.com/aqua777/docqa/storage/docstore"
	"github.com/aqua777/docqa/textsplitter"
)

// VectorIndex is the slice of the vector store the pipeline mutates.
type VectorIndex interface {
	Add(ctx context.Context, texts []string, metadatas []schema.ChunkMetadata) error
	Clear()
	Persist() error
	Len() int
	Dimension() int
	Path() string
}

// Stats summarizes the state of the corpus and the index.
type Stats struct {
	Documents     int    `json:"documents"`
	StoredChunks  int    `json:"stored_chunks"`
	IndexedChunks int    `json:"indexed_chunks"`
	Dimension     int    `json:"dimension"`
	IndexPath     string `json:"index_path"`
}

// Pipeline ingests documents. Each document moves through extraction,
// chunking, a transactional metadata commit, and an index append. The
// metadata commit and the index append are deliberately not joined in one
// transaction; Rebuild re-derives the index from the metadata store when the
// two drift apart.
type Pipeline struct {
	extractor reader.Extractor
	splitter  textsplitter.TextSplitter
	index     VectorIndex
	docs      docstore.DocumentStore
	logger    *slog.Logger
}

// NewPipeline wires an ingestion pipeline from its collaborators.
func NewPipeline(
	extractor reader.Extractor,
	splitter textsplitter.TextSplitter,
	index VectorIndex,
	docs docstore.DocumentStore,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		splitter:  splitter,
		index:     index,
		docs:      docs,
		logger:    logger,
	}
}

// IngestBytes ingests one document given its raw bytes and original filename.
// Re-uploading identical bytes is free: the pipeline short-circuits with
// StatusExists and the already-stored record. Failures are reported in the
// result, never as a Go error, so batch callers can keep going.
func (p *Pipeline) IngestBytes(ctx context.Context, filename string, data []byte) schema.IngestResult {
	if len(data) == 0 {
		return errorResult(filename, "document is empty")
	}

	hash := schema.ContentHash(data)
	existing, err := p.docs.GetDocumentByHash(ctx, hash)
	if err != nil {
		return errorResult(filename, fmt.Sprintf("hash lookup failed: %v", err))
	}
	if existing != nil {
		p.logger.Info("document already ingested", "filename", filename, "document_id", existing.ID)
		return schema.IngestResult{
			Status:     schema.StatusExists,
			DocumentID: existing.ID,
			Filename:   existing.Filename,
			Chunks:     existing.TotalChunks,
			Message:    "document with identical content already exists",
		}
	}

	fileType := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	text, err := p.extractor.ExtractText(data, fileType)
	if err != nil {
		return errorResult(filename, fmt.Sprintf("text extraction failed: %v", err))
	}

	chunkTexts := p.splitter.SplitText(text)
	if len(chunkTexts) == 0 {
		return errorResult(filename, "document produced no chunks")
	}

	docID := uuid.NewString()
	doc := schema.DocumentRecord{
		ID:          docID,
		Filename:    filepath.Base(filename),
		ContentHash: hash,
		FileType:    fileType,
		FileSize:    int64(len(data)),
		UploadDate:  time.Now().UTC(),
		TotalChunks: len(chunkTexts),
	}

	chunks := make([]schema.ChunkRecord, len(chunkTexts))
	metadatas := make([]schema.ChunkMetadata, len(chunkTexts))
	for i, chunkText := range chunkTexts {
		metadatas[i] = schema.ChunkMetadata{
			DocumentID:  docID,
			ChunkIndex:  i,
			TotalChunks: len(chunkTexts),
			FileType:    fileType,
			Filename:    doc.Filename,
		}
		chunks[i] = schema.ChunkRecord{Text: chunkText, Metadata: metadatas[i]}
	}

	if err := p.docs.InsertDocument(ctx, doc, chunks); err != nil {
		return errorResult(filename, fmt.Sprintf("storing document failed: %v", err))
	}

	if err := p.index.Add(ctx, chunkTexts, metadatas); err != nil {
		// Metadata is committed but the index is behind; Rebuild closes the gap.
		return errorResult(filename, fmt.Sprintf("indexing failed (run rebuild): %v", err))
	}
	if err := p.index.Persist(); err != nil {
		return errorResult(filename, fmt.Sprintf("persisting index failed: %v", err))
	}

	p.logger.Info("document ingested",
		"filename", doc.Filename, "document_id", docID, "chunks", len(chunkTexts))

	return schema.IngestResult{
		Status:     schema.StatusSuccess,
		DocumentID: docID,
		Filename:   doc.Filename,
		Chunks:     len(chunkTexts),
		Message:    fmt.Sprintf("ingested %d chunks", len(chunkTexts)),
	}
}

// IngestFile reads a file from disk and ingests it.
func (p *Pipeline) IngestFile(ctx context.Context, path string) schema.IngestResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return errorResult(filepath.Base(path), fmt.Sprintf("reading file failed: %v", err))
	}
	return p.IngestBytes(ctx, filepath.Base(path), data)
}

// IngestDirectory ingests every regular file in dir, one result per file.
// A file's failure never aborts the rest of the batch.
func (p *Pipeline) IngestDirectory(ctx context.Context, dir string) ([]schema.IngestResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var results []schema.IngestResult
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		results = append(results, p.IngestFile(ctx, filepath.Join(dir, entry.Name())))
	}
	return results, nil
}

// DeleteDocument removes a document and its chunks from the metadata store.
// The vector index still holds the document's chunks until the next Rebuild;
// that staleness is accepted and documented rather than auto-healed.
func (p *Pipeline) DeleteDocument(ctx context.Context, id string) error {
	if err := p.docs.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	p.logger.Info("document deleted, index stale until rebuild", "document_id", id)
	return nil
}

// Rebuild re-derives the whole vector index from the metadata store's chunk
// records, then persists it. This is the remediation for any drift between
// the store and the index.
func (p *Pipeline) Rebuild(ctx context.Context) error {
	chunks, err := p.docs.ListAllChunks(ctx)
	if err != nil {
		return fmt.Errorf("listing stored chunks: %w", err)
	}

	p.index.Clear()

	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		metadatas := make([]schema.ChunkMetadata, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Text
			metadatas[i] = chunk.Metadata
		}
		if err := p.index.Add(ctx, texts, metadatas); err != nil {
			return fmt.Errorf("re-adding chunks to index: %w", err)
		}
	}

	if err := p.index.Persist(); err != nil {
		return fmt.Errorf("persisting rebuilt index: %w", err)
	}

	p.logger.Info("index rebuilt", "chunks", len(chunks))
	return nil
}

// Stats reports document and chunk counts alongside index state.
func (p *Pipeline) Stats(ctx context.Context) (Stats, error) {
	docs, err := p.docs.ListDocuments(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("listing documents: %w", err)
	}
	stored, err := p.docs.CountChunks(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting chunks: %w", err)
	}

	return Stats{
		Documents:     len(docs),
		StoredChunks:  stored,
		IndexedChunks: p.index.Len(),
		Dimension:     p.index.Dimension(),
		IndexPath:     p.index.Path(),
	}, nil
}

func errorResult(filename, message string) schema.IngestResult {
	return schema.IngestResult{
		Status:   schema.StatusError,
		Filename: filepath.Base(filename),
		Message:  message,
	}
}
