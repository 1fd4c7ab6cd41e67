package textsplitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentenceSplitterShortText(t *testing.T) {
	splitter, err := NewSentenceSplitter(200, 40)
	require.NoError(t, err)

	text := "A single short sentence."
	chunks := splitter.SplitText(text)
	require.Len(t, chunks, 1)
	require.Equal(t, text, chunks[0])
}

func TestSentenceSplitterKeepsSentencesIntact(t *testing.T) {
	splitter, err := NewSentenceSplitter(80, 20)
	require.NoError(t, err)

	sents := []string{
		"The quick brown fox jumps over the lazy dog.",
		"Pack my box with five dozen liquor jugs.",
		"How vexingly quick daft zebras jump!",
		"Sphinx of black quartz, judge my vow.",
	}
	text := strings.Join(sents, " ")
	chunks := splitter.SplitText(text)
	require.Greater(t, len(chunks), 1)

	// No chunk may cut a sentence: every chunk boundary falls between the
	// known sentences.
	for _, chunk := range chunks {
		for _, sent := range sents {
			if strings.Contains(chunk, sent[:12]) {
				require.Contains(t, chunk, sent)
			}
		}
	}
}

func TestSentenceSplitterEmptyText(t *testing.T) {
	splitter, err := NewSentenceSplitter(100, 20)
	require.NoError(t, err)
	require.Empty(t, splitter.SplitText("  \n "))
}
