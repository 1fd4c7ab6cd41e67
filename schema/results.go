package schema

import "time"

// ScoredChunk pairs a chunk record with its squared L2 distance from a query
// embedding. Search results are ordered by ascending distance.
type ScoredChunk struct {
	Record   ChunkRecord `json:"record"`
	Distance float64     `json:"distance"`
}

// RetrievedChunk is a retrieval candidate with derived scores.
// Relevance is clamp(exp(-Distance/10), 0, 1). LexicalScore and CombinedScore
// are populated only by the re-ranking path.
type RetrievedChunk struct {
	Record        ChunkRecord `json:"record"`
	Distance      float64     `json:"distance"`
	Relevance     float64     `json:"relevance"`
	LexicalScore  float64     `json:"lexical_score,omitempty"`
	CombinedScore float64     `json:"combined_score,omitempty"`
}

// IngestStatus is the terminal state of a single document ingestion.
type IngestStatus string

const (
	// StatusSuccess means the document was chunked, indexed, and persisted.
	StatusSuccess IngestStatus = "success"
	// StatusExists means the content hash was already ingested; no-op.
	StatusExists IngestStatus = "exists"
	// StatusError means ingestion failed and nothing was persisted.
	StatusError IngestStatus = "error"
)

// IngestResult reports the outcome of ingesting one file.
// Failures are per-document: a batch upload collects one IngestResult per
// file and never aborts on a single bad input.
type IngestResult struct {
	Status     IngestStatus `json:"status"`
	DocumentID string       `json:"document_id,omitempty"`
	Filename   string       `json:"filename"`
	Chunks     int          `json:"chunks"`
	Message    string       `json:"message"`
}

// AnswerResult is the response to a question.
// Confidence is the mean relevance across Sources, or 0 when no sources were
// retrieved or generation failed.
type AnswerResult struct {
	Answer             string           `json:"answer"`
	Sources            []RetrievedChunk `json:"sources"`
	Confidence         float64          `json:"confidence"`
	SessionID          string           `json:"session_id"`
	Timestamp          time.Time        `json:"timestamp"`
	DocumentsRetrieved int              `json:"documents_retrieved"`
}
