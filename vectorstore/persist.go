package vectorstore

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aqua777/docqa/schema"
)

const (
	indexSuffix   = ".index"
	recordsSuffix = ".records"
)

// indexArtifact is the gob payload for the neighbor rows.
type indexArtifact struct {
	Dimension int
	Vectors   [][]float64
}

// recordsArtifact is the gob payload for the parallel record sequence.
type recordsArtifact struct {
	Records []schema.ChunkRecord
}

// Persist writes the index as the co-located pair <path>.index and
// <path>.records. Each artifact is written to a temp file and renamed into
// place so a crash mid-write never leaves a truncated artifact behind.
func (f *FlatIndex) Persist() error {
	f.mu.RLock()
	index := indexArtifact{Dimension: f.dim, Vectors: f.vectors}
	records := recordsArtifact{Records: f.records}
	f.mu.RUnlock()

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	if err := writeGob(f.path+indexSuffix, index); err != nil {
		return fmt.Errorf("failed to persist index vectors: %w", err)
	}
	if err := writeGob(f.path+recordsSuffix, records); err != nil {
		return fmt.Errorf("failed to persist index records: %w", err)
	}

	f.logger.Info("persisted index", "path", f.path, "chunks", len(records.Records))
	return nil
}

// Load restores the index from its persisted artifact pair. A missing,
// unreadable, or internally inconsistent pair is not an error: the index
// starts cold (empty) and the condition is logged. A pair persisted with a
// different embedding dimension is an error, since silently mixing dimensions
// would corrupt every subsequent search.
func (f *FlatIndex) Load() error {
	var index indexArtifact
	var records recordsArtifact

	indexErr := readGob(f.path+indexSuffix, &index)
	recordsErr := readGob(f.path+recordsSuffix, &records)

	switch {
	case os.IsNotExist(indexErr) && os.IsNotExist(recordsErr):
		f.logger.Info("no persisted index found, starting cold", "path", f.path)
		return nil
	case indexErr != nil || recordsErr != nil:
		f.logger.Warn("persisted index unreadable or incomplete, starting cold",
			"path", f.path, "index_error", indexErr, "records_error", recordsErr)
		return nil
	case len(index.Vectors) != len(records.Records):
		f.logger.Warn("persisted artifacts disagree on chunk count, starting cold",
			"path", f.path, "vectors", len(index.Vectors), "records", len(records.Records))
		return nil
	}

	if len(index.Vectors) > 0 && index.Dimension != f.dim {
		return fmt.Errorf("%w: persisted %d, embedder %d",
			ErrDimensionMismatch, index.Dimension, f.dim)
	}

	f.mu.Lock()
	f.vectors = index.Vectors
	f.records = records.Records
	f.mu.Unlock()

	f.logger.Info("loaded persisted index", "path", f.path, "chunks", len(records.Records))
	return nil
}

// RemoveArtifacts deletes both persisted artifacts if present.
func (f *FlatIndex) RemoveArtifacts() error {
	for _, suffix := range []string{indexSuffix, recordsSuffix} {
		if err := os.Remove(f.path + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s artifact: %w", suffix, err)
		}
	}
	return nil
}

func writeGob(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readGob(path string, v any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gob.NewDecoder(file).Decode(v)
}
