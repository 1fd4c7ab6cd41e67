// Package pipeline orchestrates question answering: retrieval, conversation
// history, prompt construction, LLM generation, and turn persistence.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aqua777/docqa/llm"
	"github.com/aqua777/docqa/schema"
	"github.com/aqua777/docqa/storage/chatstore"
)

// NoRelevantInformationAnswer is returned verbatim when retrieval finds
// nothing; the engine never asks the LLM to invent an answer from thin air.
const NoRelevantInformationAnswer = "I could not find relevant information in the uploaded documents to answer this question."

const (
	defaultTopK         = 5
	defaultHistoryLimit = 5
	defaultTokenBudget  = 3000
)

// Retriever is the slice of the retrieval layer the engine consumes.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, filters map[string]string) ([]schema.RetrievedChunk, error)
	RetrieveWithRerank(ctx context.Context, query string, k, rerankTopN int) ([]schema.RetrievedChunk, error)
}

// Engine answers questions over the indexed corpus.
type Engine struct {
	retriever    Retriever
	llm          llm.LLM
	turns        chatstore.ConversationStore
	prompt       *promptBuilder
	logger       *slog.Logger
	topK         int
	historyLimit int
	tokenBudget  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopK sets the default number of chunks retrieved per question.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithHistoryLimit sets how many prior turns are prepended to the prompt.
func WithHistoryLimit(limit int) Option {
	return func(e *Engine) {
		if limit >= 0 {
			e.historyLimit = limit
		}
	}
}

// WithTokenBudget sets the token budget for the context block.
func WithTokenBudget(budget int) Option {
	return func(e *Engine) {
		if budget > 0 {
			e.tokenBudget = budget
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an answer engine from its collaborators.
func NewEngine(ret Retriever, model llm.LLM, turns chatstore.ConversationStore, opts ...Option) *Engine {
	e := &Engine{
		retriever:    ret,
		llm:          model,
		turns:        turns,
		logger:       slog.Default(),
		topK:         defaultTopK,
		historyLimit: defaultHistoryLimit,
		tokenBudget:  defaultTokenBudget,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.prompt = newPromptBuilder(e.tokenBudget, e.logger)
	return e
}

// QueryOptions tunes a single question.
type QueryOptions struct {
	// SessionID groups turns into a conversation; generated when empty.
	SessionID string
	// TopK overrides the engine default when positive.
	TopK int
	// UseRerank enables lexical re-ranking of the retrieved chunks.
	UseRerank bool
	// Filters restricts retrieval to chunks matching all metadata pairs.
	Filters map[string]string
}

// StreamingAnswer is the streaming counterpart of schema.AnswerResult. Tokens
// yields answer text incrementally; the assembled turn is persisted only
// after the stream completes.
type StreamingAnswer struct {
	SessionID          string
	Sources            []schema.RetrievedChunk
	Confidence         float64
	DocumentsRetrieved int
	Tokens             <-chan string
}

// Query answers a question synchronously. Retrieval and history failures are
// returned as errors; a generation failure is returned as a degraded result
// carrying the error text with confidence forced to 0.
func (e *Engine) Query(ctx context.Context, question string, opts QueryOptions) (*schema.AnswerResult, error) {
	sessionID, sources, err := e.prepare(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if len(sources) == 0 {
		result := &schema.AnswerResult{
			Answer:    NoRelevantInformationAnswer,
			SessionID: sessionID,
			Timestamp: now,
		}
		e.persistTurn(ctx, sessionID, question, result.Answer, nil)
		return result, nil
	}

	messages, err := e.buildTranscript(ctx, sessionID, question, sources)
	if err != nil {
		return nil, err
	}

	answer, err := e.llm.Chat(ctx, messages)
	if err != nil {
		e.logger.Error("answer generation failed", "session_id", sessionID, "error", err)
		return &schema.AnswerResult{
			Answer:             fmt.Sprintf("Answer generation failed: %v", err),
			Sources:            sources,
			SessionID:          sessionID,
			Timestamp:          now,
			DocumentsRetrieved: len(sources),
		}, nil
	}

	e.persistTurn(ctx, sessionID, question, answer, sources)

	return &schema.AnswerResult{
		Answer:             answer,
		Sources:            sources,
		Confidence:         meanRelevance(sources),
		SessionID:          sessionID,
		Timestamp:          now,
		DocumentsRetrieved: len(sources),
	}, nil
}

// QueryStream answers a question with incremental output. The answer is
// persisted as a turn only after the stream completes cleanly; a mid-stream
// failure yields a final failure token instead and records nothing.
func (e *Engine) QueryStream(ctx context.Context, question string, opts QueryOptions) (*StreamingAnswer, error) {
	sessionID, sources, err := e.prepare(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	if len(sources) == 0 {
		e.persistTurn(ctx, sessionID, question, NoRelevantInformationAnswer, nil)
		return &StreamingAnswer{
			SessionID: sessionID,
			Tokens:    singleToken(NoRelevantInformationAnswer),
		}, nil
	}

	messages, err := e.buildTranscript(ctx, sessionID, question, sources)
	if err != nil {
		return nil, err
	}

	answer := &StreamingAnswer{
		SessionID:          sessionID,
		Sources:            sources,
		Confidence:         meanRelevance(sources),
		DocumentsRetrieved: len(sources),
	}

	stream, err := e.llm.StreamChat(ctx, messages)
	if err != nil {
		e.logger.Error("answer stream failed to start", "session_id", sessionID, "error", err)
		answer.Confidence = 0
		answer.Tokens = singleToken(fmt.Sprintf("Answer generation failed: %v", err))
		return answer, nil
	}

	out := make(chan string)
	answer.Tokens = out
	go func() {
		defer close(out)
		var assembled strings.Builder
		for token := range stream.Tokens {
			assembled.WriteString(token)
			select {
			case out <- token:
			case <-ctx.Done():
				return
			}
		}
		// A truncated stream is a generation failure: surface it to the
		// consumer and keep the partial answer out of the history.
		if err := stream.Err(); err != nil {
			e.logger.Error("answer stream truncated", "session_id", sessionID, "error", err)
			select {
			case out <- fmt.Sprintf("\nAnswer generation failed: %v", err):
			case <-ctx.Done():
			}
			return
		}
		// The incoming ctx may be cancelled right as the stream ends; the
		// completed turn is persisted regardless.
		e.persistTurn(context.WithoutCancel(ctx), sessionID, question, assembled.String(), sources)
	}()

	return answer, nil
}

// SessionHistory returns every turn of a session, oldest first.
func (e *Engine) SessionHistory(ctx context.Context, sessionID string) ([]schema.ConversationTurn, error) {
	return e.turns.SessionHistory(ctx, sessionID)
}

// ClearSession removes all turns of a session.
func (e *Engine) ClearSession(ctx context.Context, sessionID string) error {
	return e.turns.ClearSession(ctx, sessionID)
}

// prepare resolves the session and runs retrieval.
func (e *Engine) prepare(ctx context.Context, question string, opts QueryOptions) (string, []schema.RetrievedChunk, error) {
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = e.topK
	}

	var sources []schema.RetrievedChunk
	var err error
	if opts.UseRerank {
		sources, err = e.retriever.RetrieveWithRerank(ctx, question, topK, topK)
	} else {
		sources, err = e.retriever.Retrieve(ctx, question, topK, opts.Filters)
	}
	if err != nil {
		return "", nil, fmt.Errorf("retrieval failed: %w", err)
	}

	return sessionID, sources, nil
}

func (e *Engine) buildTranscript(ctx context.Context, sessionID, question string, sources []schema.RetrievedChunk) ([]llm.ChatMessage, error) {
	history, err := e.turns.RecentTurns(ctx, sessionID, e.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("loading conversation history: %w", err)
	}
	return e.prompt.buildMessages(question, e.prompt.formatContext(sources), history), nil
}

// persistTurn stores a completed turn; failures are logged, not surfaced,
// since the answer has already been produced.
func (e *Engine) persistTurn(ctx context.Context, sessionID, question, answer string, sources []schema.RetrievedChunk) {
	turn := schema.ConversationTurn{
		ID:                uuid.NewString(),
		SessionID:         sessionID,
		Question:          question,
		Answer:            answer,
		SourceDocumentIDs: documentIDs(sources),
		Timestamp:         time.Now().UTC(),
	}
	if err := e.turns.AppendTurn(ctx, turn); err != nil {
		e.logger.Error("failed to persist conversation turn",
			"session_id", sessionID, "error", err)
	}
}

func meanRelevance(sources []schema.RetrievedChunk) float64 {
	if len(sources) == 0 {
		return 0
	}
	var sum float64
	for _, source := range sources {
		sum += source.Relevance
	}
	return sum / float64(len(sources))
}

// documentIDs returns the distinct source document ids in rank order.
func documentIDs(sources []schema.RetrievedChunk) []string {
	seen := make(map[string]struct{}, len(sources))
	var ids []string
	for _, source := range sources {
		id := source.Record.Metadata.DocumentID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func singleToken(text string) <-chan string {
	ch := make(chan string, 1)
	ch <- text
	close(ch)
	return ch
}
