package textsplitter

import "strings"

// sentence terminators considered when searching for a semantic break.
var terminators = []rune{'.', '?', '!'}

// CharacterSplitter splits text into fixed-size character windows with a
// guaranteed overlap of ChunkOverlap characters between consecutive chunks.
// Each window except possibly the last is cut at the rightmost sentence
// terminator found within the trailing ChunkOverlap characters, preferring a
// semantic break over the raw positional boundary.
type CharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewCharacterSplitter creates a new CharacterSplitter.
// Pass 0 to use the defaults.
func NewCharacterSplitter(chunkSize, chunkOverlap int) *CharacterSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	return &CharacterSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}
}

// SplitText splits the text into overlapping chunks.
// Text shorter than ChunkSize yields exactly one chunk (the trimmed text).
// Empty trimmed segments are dropped.
func (s *CharacterSplitter) SplitText(text string) []string {
	runes := []rune(text)
	length := len(runes)

	var chunks []string
	start := 0

	for start < length {
		end := start + s.ChunkSize

		// Prefer a sentence boundary within the trailing overlap window.
		if end < length {
			if breakPoint := lastTerminator(runes, end-s.ChunkOverlap, end); breakPoint > start {
				end = breakPoint + 1
			}
		}

		sliceEnd := end
		if sliceEnd > length {
			sliceEnd = length
		}
		chunk := strings.TrimSpace(string(runes[start:sliceEnd]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		start = end - s.ChunkOverlap

		// Guard against non-termination when overlap >= chunk size.
		if start <= 0 && len(chunks) > 0 {
			break
		}
	}

	return chunks
}

// lastTerminator returns the index of the rightmost sentence terminator in
// runes[from:to), or -1 if there is none.
func lastTerminator(runes []rune, from, to int) int {
	if from < 0 {
		from = 0
	}
	if to > len(runes) {
		to = len(runes)
	}
	for i := to - 1; i >= from; i-- {
		for _, t := range terminators {
			if runes[i] == t {
				return i
			}
		}
	}
	return -1
}

// Ensure CharacterSplitter implements the interface.
var _ TextSplitter = (*CharacterSplitter)(nil)
