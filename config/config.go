// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sashabaranov/go-openai"
)

// Default configuration values.
const (
	DefaultLLMProvider    = "openai"
	DefaultLLMModel       = openai.GPT4oMini
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)
	DefaultOllamaURL      = "http://localhost:11434"
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultTopK           = 5
	DefaultSplitter       = "character"
	DefaultIndexPath      = "data/docqa"
	DefaultDatabasePath   = "data/metadata.db"
	DefaultHistoryLimit   = 5
	DefaultTokenBudget    = 3000
)

// Config carries everything the CLI needs to wire the system.
type Config struct {
	// LLMProvider selects the chat model backend: openai, ollama, bedrock.
	LLMProvider string
	// LLMModel is the chat model name for the selected provider.
	LLMModel string
	// OpenAIAPIKey authorizes OpenAI embedding and chat calls.
	OpenAIAPIKey string
	// OpenAIBaseURL overrides the OpenAI endpoint (empty for the default).
	OpenAIBaseURL string
	// EmbeddingModel is the OpenAI embedding model name.
	EmbeddingModel string
	// OllamaURL is the Ollama server address.
	OllamaURL string
	// ChunkSize and ChunkOverlap configure the text splitter.
	ChunkSize    int
	ChunkOverlap int
	// Splitter selects the chunking strategy: character or sentence.
	Splitter string
	// TopK is the default retrieval depth.
	TopK int
	// IndexPath is the persistence path prefix for the vector index pair.
	IndexPath string
	// DatabasePath is the SQLite metadata database file.
	DatabasePath string
	// HistoryLimit is how many prior turns feed the prompt.
	HistoryLimit int
	// TokenBudget bounds the prompt context block.
	TokenBudget int
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		LLMProvider:    envOr("DOCQA_LLM_PROVIDER", DefaultLLMProvider),
		LLMModel:       envOr("DOCQA_LLM_MODEL", DefaultLLMModel),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		EmbeddingModel: envOr("DOCQA_EMBEDDING_MODEL", DefaultEmbeddingModel),
		OllamaURL:      envOr("OLLAMA_HOST", DefaultOllamaURL),
		Splitter:       envOr("DOCQA_SPLITTER", DefaultSplitter),
		IndexPath:      envOr("DOCQA_INDEX_PATH", DefaultIndexPath),
		DatabasePath:   envOr("DOCQA_DB_PATH", DefaultDatabasePath),
	}

	var err error
	if cfg.ChunkSize, err = envIntOr("DOCQA_CHUNK_SIZE", DefaultChunkSize); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlap, err = envIntOr("DOCQA_CHUNK_OVERLAP", DefaultChunkOverlap); err != nil {
		return nil, err
	}
	if cfg.TopK, err = envIntOr("DOCQA_TOP_K", DefaultTopK); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = envIntOr("DOCQA_HISTORY_LIMIT", DefaultHistoryLimit); err != nil {
		return nil, err
	}
	if cfg.TokenBudget, err = envIntOr("DOCQA_TOKEN_BUDGET", DefaultTokenBudget); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", c.ChunkOverlap)
	}
	switch c.Splitter {
	case "character", "sentence":
	default:
		return fmt.Errorf("unknown splitter %q (want character or sentence)", c.Splitter)
	}
	switch c.LLMProvider {
	case "openai", "ollama", "bedrock":
	default:
		return fmt.Errorf("unknown llm provider %q (want openai, ollama or bedrock)", c.LLMProvider)
	}
	return nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOr(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return parsed, nil
}
