// Package schema defines the record types shared across the document QA
// pipeline: chunk and document records, conversation turns, and the result
// types returned by ingestion, retrieval, and answering.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Metadata field keys recognized by ChunkMetadata.Field.
const (
	FieldDocumentID  = "document_id"
	FieldChunkIndex  = "chunk_index"
	FieldTotalChunks = "total_chunks"
	FieldFileType    = "file_type"
	FieldFilename    = "filename"
)

// ChunkMetadata describes where a chunk came from.
// ChunkIndex values for a document form a contiguous range [0, TotalChunks).
type ChunkMetadata struct {
	DocumentID  string            `json:"document_id"`
	ChunkIndex  int               `json:"chunk_index"`
	TotalChunks int               `json:"total_chunks"`
	FileType    string            `json:"file_type"`
	Filename    string            `json:"filename"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Field returns the metadata value for a key as a string.
// Known keys map to the struct fields; anything else is looked up in Extra.
func (m ChunkMetadata) Field(key string) (string, bool) {
	switch key {
	case FieldDocumentID:
		return m.DocumentID, true
	case FieldChunkIndex:
		return strconv.Itoa(m.ChunkIndex), true
	case FieldTotalChunks:
		return strconv.Itoa(m.TotalChunks), true
	case FieldFileType:
		return m.FileType, true
	case FieldFilename:
		return m.Filename, true
	}
	val, ok := m.Extra[key]
	return val, ok
}

// ChunkRecord is the unit stored in the vector index and the document store.
// Its embedding lives in the index row at the same position; the two are
// appended together and never drift.
type ChunkRecord struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// DocumentRecord is created once per ingested source file.
// ContentHash is the SHA-256 of the raw file bytes and is unique across all
// documents; re-ingesting the same hash returns the existing record.
type DocumentRecord struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	FileType    string    `json:"file_type"`
	FileSize    int64     `json:"file_size"`
	UploadDate  time.Time `json:"upload_date"`
	TotalChunks int       `json:"total_chunks"`
}

// ContentHash computes the dedup key for raw file bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ConversationTurn is one question/answer exchange within a session.
// Turns are append-only per session, ordered by Timestamp.
type ConversationTurn struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"session_id"`
	Question          string    `json:"question"`
	Answer            string    `json:"answer"`
	SourceDocumentIDs []string  `json:"source_document_ids"`
	Timestamp         time.Time `json:"timestamp"`
}
