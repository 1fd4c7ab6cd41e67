// Package textsplitter splits document text into overlapping chunks suitable
// for embedding and retrieval.
package textsplitter

// Default chunking parameters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// TextSplitter is the interface for splitting text.
type TextSplitter interface {
	SplitText(text string) []string
}
