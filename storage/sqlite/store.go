// Package sqlite implements the document and conversation stores on a single
// SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/aqua777/docqa/schema"
	"github.com/aqua777/docqa/storage/chatstore"
	"github.com/aqua777/docqa/storage/docstore"
	"github.com/aqua777/docqa/storage/sqlite/migrations"
)

// Store is a SQLite-backed implementation of both the document metadata
// store and the conversation history store.
type Store struct {
	db   *sql.DB
	path string
}

var (
	_ docstore.DocumentStore      = (*Store)(nil)
	_ chatstore.ConversationStore = (*Store)(nil)
)

// NewStore opens (or creates) the database at dbPath and runs pending
// migrations. The parent directory is created if missing.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// WAL mode for better concurrency between readers and the writer.
	// Pragmas go in the DSN so every pooled connection gets them; a plain
	// Exec would configure only the connection it happens to run on, and
	// foreign_keys in particular must hold on all of them for ON DELETE
	// CASCADE to fire.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Document Store ====================

// InsertDocument stores a document and all of its chunks in one transaction.
func (s *Store) InsertDocument(ctx context.Context, doc schema.DocumentRecord, chunks []schema.ChunkRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, filename, content_hash, file_type, file_size, upload_date, total_chunks)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Filename, doc.ContentHash, doc.FileType, doc.FileSize, doc.UploadDate, doc.TotalChunks)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_chunks (document_id, chunk_index, total_chunks, text, file_type, filename, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		extraJSON, err := marshalExtra(chunk.Metadata.Extra)
		if err != nil {
			return fmt.Errorf("marshalling chunk extra: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.Metadata.DocumentID, chunk.Metadata.ChunkIndex, chunk.Metadata.TotalChunks,
			chunk.Text, chunk.Metadata.FileType, chunk.Metadata.Filename, extraJSON); err != nil {
			return fmt.Errorf("saving chunk %d: %w", chunk.Metadata.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID, or (nil, nil) if absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*schema.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, content_hash, file_type, file_size, upload_date, total_chunks
		FROM documents WHERE id = ?
	`, id)
	return scanDocument(row)
}

// GetDocumentByHash retrieves a document by content hash, or (nil, nil) if
// absent.
func (s *Store) GetDocumentByHash(ctx context.Context, hash string) (*schema.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, filename, content_hash, file_type, file_size, upload_date, total_chunks
		FROM documents WHERE content_hash = ?
	`, hash)
	return scanDocument(row)
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]schema.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, content_hash, file_type, file_size, upload_date, total_chunks
		FROM documents ORDER BY upload_date DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []schema.DocumentRecord
	for rows.Next() {
		var doc schema.DocumentRecord
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.ContentHash, &doc.FileType,
			&doc.FileSize, &doc.UploadDate, &doc.TotalChunks); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document; its chunks go with it via ON DELETE
// CASCADE.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// ListChunks returns the chunks of one document ordered by chunk index.
func (s *Store) ListChunks(ctx context.Context, documentID string) ([]schema.ChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, chunk_index, total_chunks, text, file_type, filename, extra
		FROM document_chunks WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// ListAllChunks returns every stored chunk ordered by document and chunk
// index.
func (s *Store) ListAllChunks(ctx context.Context) ([]schema.ChunkRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, chunk_index, total_chunks, text, file_type, filename, extra
		FROM document_chunks
		ORDER BY document_id, chunk_index
	`)
	if err != nil {
		return nil, fmt.Errorf("querying all chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// CountChunks returns the total number of stored chunks.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM document_chunks").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// ==================== Conversation Store ====================

// AppendTurn stores one completed question/answer turn.
func (s *Store) AppendTurn(ctx context.Context, turn schema.ConversationTurn) error {
	sourcesJSON, err := json.Marshal(turn.SourceDocumentIDs)
	if err != nil {
		return fmt.Errorf("marshalling source document ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversation_history (id, session_id, question, answer, source_document_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, turn.ID, turn.SessionID, turn.Question, turn.Answer, string(sourcesJSON), turn.Timestamp)
	if err != nil {
		return fmt.Errorf("saving conversation turn: %w", err)
	}
	return nil
}

// RecentTurns returns the latest limit turns of a session, oldest first.
func (s *Store) RecentTurns(ctx context.Context, sessionID string, limit int) ([]schema.ConversationTurn, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, question, answer, source_document_ids, created_at
		FROM conversation_history WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent turns: %w", err)
	}
	defer rows.Close()

	turns, err := scanTurns(rows)
	if err != nil {
		return nil, err
	}

	// Query returned newest first; callers want conversation order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// SessionHistory returns every turn of a session, oldest first.
func (s *Store) SessionHistory(ctx context.Context, sessionID string) ([]schema.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, question, answer, source_document_ids, created_at
		FROM conversation_history WHERE session_id = ?
		ORDER BY created_at, rowid
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying session history: %w", err)
	}
	defer rows.Close()

	return scanTurns(rows)
}

// ClearSession removes all turns of a session.
func (s *Store) ClearSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM conversation_history WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

func scanDocument(row *sql.Row) (*schema.DocumentRecord, error) {
	var doc schema.DocumentRecord
	if err := row.Scan(&doc.ID, &doc.Filename, &doc.ContentHash, &doc.FileType,
		&doc.FileSize, &doc.UploadDate, &doc.TotalChunks); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &doc, nil
}

func scanChunks(rows *sql.Rows) ([]schema.ChunkRecord, error) {
	var chunks []schema.ChunkRecord
	for rows.Next() {
		var chunk schema.ChunkRecord
		var extraJSON sql.NullString
		if err := rows.Scan(&chunk.Metadata.DocumentID, &chunk.Metadata.ChunkIndex,
			&chunk.Metadata.TotalChunks, &chunk.Text, &chunk.Metadata.FileType,
			&chunk.Metadata.Filename, &extraJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if extraJSON.Valid && extraJSON.String != "" {
			if err := json.Unmarshal([]byte(extraJSON.String), &chunk.Metadata.Extra); err != nil {
				return nil, fmt.Errorf("unmarshalling chunk extra: %w", err)
			}
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func scanTurns(rows *sql.Rows) ([]schema.ConversationTurn, error) {
	var turns []schema.ConversationTurn
	for rows.Next() {
		var turn schema.ConversationTurn
		var sourcesJSON sql.NullString
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Question, &turn.Answer,
			&sourcesJSON, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning conversation turn: %w", err)
		}
		if sourcesJSON.Valid && sourcesJSON.String != "" {
			if err := json.Unmarshal([]byte(sourcesJSON.String), &turn.SourceDocumentIDs); err != nil {
				return nil, fmt.Errorf("unmarshalling source document ids: %w", err)
			}
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation turns: %w", err)
	}
	return turns, nil
}

func marshalExtra(extra map[string]string) (string, error) {
	if len(extra) == 0 {
		return "", nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
