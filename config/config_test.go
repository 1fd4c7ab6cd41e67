package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	require.Equal(t, DefaultChunkOverlap, cfg.ChunkOverlap)
	require.Equal(t, DefaultTopK, cfg.TopK)
	require.Equal(t, DefaultSplitter, cfg.Splitter)
	require.Equal(t, DefaultHistoryLimit, cfg.HistoryLimit)
	require.Equal(t, DefaultIndexPath, cfg.IndexPath)
	require.Equal(t, DefaultDatabasePath, cfg.DatabasePath)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DOCQA_CHUNK_SIZE", "500")
	t.Setenv("DOCQA_CHUNK_OVERLAP", "50")
	t.Setenv("DOCQA_SPLITTER", "sentence")
	t.Setenv("DOCQA_TOP_K", "9")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 500, cfg.ChunkSize)
	require.Equal(t, 50, cfg.ChunkOverlap)
	require.Equal(t, "sentence", cfg.Splitter)
	require.Equal(t, 9, cfg.TopK)
}

func TestLoadRejectsMalformedInt(t *testing.T) {
	t.Setenv("DOCQA_CHUNK_SIZE", "lots")
	_, err := Load()
	require.ErrorContains(t, err, "DOCQA_CHUNK_SIZE")
}

func TestLoadRejectsOverlapNotBelowSize(t *testing.T) {
	t.Setenv("DOCQA_CHUNK_SIZE", "100")
	t.Setenv("DOCQA_CHUNK_OVERLAP", "100")
	_, err := Load()
	require.ErrorContains(t, err, "overlap")
}

func TestLoadRejectsUnknownSplitter(t *testing.T) {
	t.Setenv("DOCQA_SPLITTER", "semantic")
	_, err := Load()
	require.ErrorContains(t, err, "splitter")
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("DOCQA_LLM_PROVIDER", "gemini")
	_, err := Load()
	require.ErrorContains(t, err, "provider")
}
