// Command docqa is a CLI front end for the document question answering
// library: ingest files, ask questions, inspect sessions, and rebuild the
// vector index.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aqua777/docqa/config"
	"github.com/aqua777/docqa/embedding"
	"github.com/aqua777/docqa/ingestion"
	"github.com/aqua777/docqa/llm"
	"github.com/aqua777/docqa/pipeline"
	"github.com/aqua777/docqa/reader"
	"github.com/aqua777/docqa/retriever"
	"github.com/aqua777/docqa/schema"
	"github.com/aqua777/docqa/storage/sqlite"
	"github.com/aqua777/docqa/textsplitter"
	"github.com/aqua777/docqa/vectorstore"
)

const usage = `Usage: docqa <command> [flags]

Commands:
  ingest <path>         ingest a file or every file in a directory
  query <question>      answer a question over the indexed corpus
  rebuild               rebuild the vector index from the metadata store
  stats                 show corpus and index statistics
  list                  list ingested documents
  delete <document-id>  delete a document (index stale until rebuild)
  history <session-id>  print a session's conversation history
  clear <session-id>    delete a session's conversation history
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "docqa: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired components. Everything is constructed once in newApp
// and passed down explicitly.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *sqlite.Store
	index    *vectorstore.FlatIndex
	ingestor *ingestion.Pipeline
	engine   *pipeline.Engine
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	store, err := sqlite.NewStore(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	index := vectorstore.NewFlatIndex(embedder, cfg.IndexPath, logger)
	if err := index.Load(); err != nil {
		store.Close()
		return nil, fmt.Errorf("loading index: %w", err)
	}

	splitter, err := newSplitter(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	model, err := newLLM(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	ingestor := ingestion.NewPipeline(reader.NewTextExtractor(logger), splitter, index, store, logger)
	engine := pipeline.NewEngine(
		retriever.NewRetriever(index, logger),
		model,
		store,
		pipeline.WithTopK(cfg.TopK),
		pipeline.WithHistoryLimit(cfg.HistoryLimit),
		pipeline.WithTokenBudget(cfg.TokenBudget),
		pipeline.WithLogger(logger),
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		index:    index,
		ingestor: ingestor,
		engine:   engine,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing metadata store", "error", err)
	}
}

func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.LLMProvider {
	case "ollama":
		return embedding.NewOllamaEmbedding(
			embedding.WithOllamaEmbeddingBaseURL(cfg.OllamaURL),
		), nil
	default:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the %s provider", cfg.LLMProvider)
		}
		return embedding.NewOpenAIEmbedding(cfg.OpenAIAPIKey, cfg.EmbeddingModel), nil
	}
}

func newLLM(cfg *config.Config) (llm.LLM, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return llm.NewOpenAILLM(cfg.OpenAIBaseURL, cfg.LLMModel, cfg.OpenAIAPIKey), nil
	case "ollama":
		return llm.NewOllamaLLM(
			llm.WithOllamaBaseURL(cfg.OllamaURL),
			llm.WithOllamaModel(cfg.LLMModel),
		), nil
	case "bedrock":
		return llm.NewBedrockLLM(llm.WithBedrockModel(cfg.LLMModel)), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}

func newSplitter(cfg *config.Config) (textsplitter.TextSplitter, error) {
	switch cfg.Splitter {
	case "sentence":
		return textsplitter.NewSentenceSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	default:
		return textsplitter.NewCharacterSplitter(cfg.ChunkSize, cfg.ChunkOverlap), nil
	}
}

func run(command string, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := context.Background()

	switch command {
	case "ingest":
		return a.cmdIngest(ctx, args)
	case "query":
		return a.cmdQuery(ctx, args)
	case "rebuild":
		return a.ingestor.Rebuild(ctx)
	case "stats":
		return a.cmdStats(ctx)
	case "list":
		return a.cmdList(ctx)
	case "delete":
		return a.cmdDelete(ctx, args)
	case "history":
		return a.cmdHistory(ctx, args)
	case "clear":
		return a.cmdClear(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) cmdIngest(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("ingest: missing path")
	}
	path := args[0]

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	var results []schema.IngestResult
	if info.IsDir() {
		results, err = a.ingestor.IngestDirectory(ctx, path)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
	} else {
		results = []schema.IngestResult{a.ingestor.IngestFile(ctx, path)}
	}

	failed := 0
	for _, result := range results {
		fmt.Printf("%-8s %s", result.Status, result.Filename)
		if result.Status == schema.StatusSuccess {
			fmt.Printf("  (%d chunks, id %s)", result.Chunks, result.DocumentID)
		} else if result.Message != "" {
			fmt.Printf("  %s", result.Message)
		}
		fmt.Println()
		if result.Status == schema.StatusError {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("ingest: %d of %d files failed", failed, len(results))
	}
	return nil
}

func (a *app) cmdQuery(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	session := fs.String("session", "", "session id for multi-turn conversations")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve (default from config)")
	rerank := fs.Bool("rerank", false, "enable lexical re-ranking")
	stream := fs.Bool("stream", false, "stream the answer as it is generated")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("query: missing question")
	}
	question := strings.Join(fs.Args(), " ")

	opts := pipeline.QueryOptions{
		SessionID: *session,
		TopK:      *topK,
		UseRerank: *rerank,
	}

	if *stream {
		answer, err := a.engine.QueryStream(ctx, question, opts)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		for token := range answer.Tokens {
			fmt.Print(token)
		}
		fmt.Println()
		printSources(answer.Sources)
		fmt.Printf("session: %s  confidence: %.3f\n", answer.SessionID, answer.Confidence)
		return nil
	}

	result, err := a.engine.Query(ctx, question, opts)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	fmt.Println(result.Answer)
	printSources(result.Sources)
	fmt.Printf("session: %s  confidence: %.3f\n", result.SessionID, result.Confidence)
	return nil
}

func printSources(sources []schema.RetrievedChunk) {
	for i, source := range sources {
		fmt.Printf("  [%d] %s (chunk %d/%d, relevance %.3f)\n",
			i+1,
			source.Record.Metadata.Filename,
			source.Record.Metadata.ChunkIndex+1,
			source.Record.Metadata.TotalChunks,
			source.Relevance)
	}
}

func (a *app) cmdStats(ctx context.Context) error {
	stats, err := a.ingestor.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	fmt.Printf("documents:      %d\n", stats.Documents)
	fmt.Printf("stored chunks:  %d\n", stats.StoredChunks)
	fmt.Printf("indexed chunks: %d\n", stats.IndexedChunks)
	fmt.Printf("dimension:      %d\n", stats.Dimension)
	fmt.Printf("index path:     %s\n", stats.IndexPath)
	return nil
}

func (a *app) cmdList(ctx context.Context) error {
	docs, err := a.store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	for _, doc := range docs {
		fmt.Printf("%s  %s  %s  %d chunks  %d bytes\n",
			doc.ID, doc.UploadDate.Format("2006-01-02 15:04"), doc.Filename, doc.TotalChunks, doc.FileSize)
	}
	return nil
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("delete: missing document id")
	}
	if err := a.ingestor.DeleteDocument(ctx, args[0]); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	fmt.Println("deleted; run `docqa rebuild` to drop its chunks from the index")
	return nil
}

func (a *app) cmdHistory(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("history: missing session id")
	}
	turns, err := a.engine.SessionHistory(ctx, args[0])
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	for _, turn := range turns {
		fmt.Printf("[%s]\nQ: %s\nA: %s\n\n",
			turn.Timestamp.Format("2006-01-02 15:04:05"), turn.Question, turn.Answer)
	}
	return nil
}

func (a *app) cmdClear(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("clear: missing session id")
	}
	if err := a.engine.ClearSession(ctx, args[0]); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}
