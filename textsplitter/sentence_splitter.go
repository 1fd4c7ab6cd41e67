package textsplitter

import (
	"fmt"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// SentenceSplitter splits text on sentence boundaries detected by the
// neurosnap/sentences tokenizer and packs whole sentences into chunks of at
// most ChunkSize characters. Overlap is approximated by carrying trailing
// sentences totalling at most ChunkOverlap characters into the next chunk,
// so chunks never cut a sentence in half.
type SentenceSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	tokenizer    *sentences.DefaultSentenceTokenizer
}

// NewSentenceSplitter creates a new SentenceSplitter backed by the embedded
// English training data. Pass 0 to use the defaults.
func NewSentenceSplitter(chunkSize, chunkOverlap int) (*SentenceSplitter, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}

	tokenizer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sentence tokenizer: %w", err)
	}

	return &SentenceSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		tokenizer:    tokenizer,
	}, nil
}

// SplitText splits the text into sentence-aligned overlapping chunks.
func (s *SentenceSplitter) SplitText(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) <= s.ChunkSize {
		return []string{trimmed}
	}

	var sents []string
	for _, sent := range s.tokenizer.Tokenize(trimmed) {
		t := strings.TrimSpace(sent.Text)
		if t != "" {
			sents = append(sents, t)
		}
	}
	if len(sents) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Carry trailing sentences into the next chunk as overlap.
		var carry []string
		carryLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			sentLen := len(current[i]) + 1
			if carryLen+sentLen > s.ChunkOverlap {
				break
			}
			carry = append([]string{current[i]}, carry...)
			carryLen += sentLen
		}
		current = carry
		currentLen = carryLen
	}

	for _, sent := range sents {
		sentLen := len(sent) + 1
		if currentLen+sentLen > s.ChunkSize && currentLen > 0 {
			flush()
		}
		current = append(current, sent)
		currentLen += sentLen
	}
	if len(current) > 0 {
		// Skip a flush that would only repeat the carried overlap.
		last := strings.Join(current, " ")
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], last) {
			chunks = append(chunks, last)
		}
	}

	return chunks
}

// Ensure SentenceSplitter implements the interface.
var _ TextSplitter = (*SentenceSplitter)(nil)
