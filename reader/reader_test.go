package reader

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestExtractor() *TextExtractor {
	return NewTextExtractor(nil)
}

func TestExtractTextUnsupportedType(t *testing.T) {
	_, err := newTestExtractor().ExtractText([]byte("data"), "exe")
	require.ErrorIs(t, err, ErrUnsupportedFileType)
}

func TestExtractTextEmptyInput(t *testing.T) {
	_, err := newTestExtractor().ExtractText(nil, "txt")
	require.ErrorIs(t, err, ErrEmptyDocument)
}

func TestExtractTextWhitespaceOnly(t *testing.T) {
	_, err := newTestExtractor().ExtractText([]byte("  \n\t  "), "txt")
	require.ErrorIs(t, err, ErrEmptyDocument)
}

func TestExtractTextPlainText(t *testing.T) {
	text, err := newTestExtractor().ExtractText([]byte("  hello world \n"), "txt")
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestExtractTextAcceptsDottedAndUppercaseTypes(t *testing.T) {
	extractor := newTestExtractor()

	text, err := extractor.ExtractText([]byte("hello"), ".txt")
	require.NoError(t, err)
	require.Equal(t, "hello", text)

	text, err = extractor.ExtractText([]byte("hello"), "TXT")
	require.NoError(t, err)
	require.Equal(t, "hello", text)
}

func TestExtractTextMarkdown(t *testing.T) {
	md := "# Title\n\nSee [the docs](https://example.com) here.\n\n![diagram](img.png)\n\nPlain line."
	text, err := newTestExtractor().ExtractText([]byte(md), "md")
	require.NoError(t, err)

	require.Contains(t, text, "Title")
	require.Contains(t, text, "See the docs here.")
	require.Contains(t, text, "Plain line.")
	require.NotContains(t, text, "https://example.com")
	require.NotContains(t, text, "img.png")
	require.NotContains(t, text, "#")
}

func TestExtractTextCSV(t *testing.T) {
	csvData := "name,age\nalice,30\nbob,25\n"
	text, err := newTestExtractor().ExtractText([]byte(csvData), "csv")
	require.NoError(t, err)
	require.Equal(t, "name | age\nalice | 30\nbob | 25", text)
}

func TestExtractTextDocx(t *testing.T) {
	documentXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	data := buildZip(t, map[string]string{"word/document.xml": documentXML})

	text, err := newTestExtractor().ExtractText(data, "docx")
	require.NoError(t, err)
	require.Equal(t, "First paragraph.\nSecond paragraph.", text)
}

func TestExtractTextPptx(t *testing.T) {
	slide := func(body string) string {
		return `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <a:p><a:r><a:t>` + body + `</a:t></a:r></a:p>
</p:sld>`
	}
	data := buildZip(t, map[string]string{
		"ppt/slides/slide1.xml": slide("Slide one text."),
		"ppt/slides/slide2.xml": slide("Slide two text."),
	})

	text, err := newTestExtractor().ExtractText(data, "pptx")
	require.NoError(t, err)
	require.Contains(t, text, "Slide one text.")
	require.Contains(t, text, "Slide two text.")
}

func TestExtractTextXlsx(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"name", "score"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"alice", 42}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	text, err := newTestExtractor().ExtractText(buf.Bytes(), "xlsx")
	require.NoError(t, err)
	require.Contains(t, text, "Sheet1")
	require.Contains(t, text, "name | score")
	require.Contains(t, text, "alice | 42")
}

func TestExtractTextPptxOrdersSlidesNumerically(t *testing.T) {
	slide := func(body string) string {
		return `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
       xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <a:p><a:r><a:t>` + body + `</a:t></a:r></a:p>
</p:sld>`
	}
	data := buildZip(t, map[string]string{
		"ppt/slides/slide10.xml": slide("tenth"),
		"ppt/slides/slide1.xml":  slide("first"),
		"ppt/slides/slide2.xml":  slide("second"),
	})

	text, err := newTestExtractor().ExtractText(data, "pptx")
	require.NoError(t, err)
	require.Equal(t, "first\n\nsecond\n\ntenth", text)
}

func TestExtractTextLegacyOfficeTypesFallBack(t *testing.T) {
	// Legacy binary formats are not ZIP archives; the specialized extractor
	// fails and the readable bytes come through the raw-text fallback.
	extractor := newTestExtractor()
	for _, fileType := range []string{"doc", "ppt", "xls"} {
		text, err := extractor.ExtractText([]byte("legacy office payload"), fileType)
		require.NoError(t, err, fileType)
		require.Equal(t, "legacy office payload", text, fileType)
	}
}

func TestExtractTextFallsBackOnCorruptArchive(t *testing.T) {
	// Not a ZIP archive, but the bytes themselves are readable text.
	text, err := newTestExtractor().ExtractText([]byte("plain bytes posing as docx"), "docx")
	require.NoError(t, err)
	require.Equal(t, "plain bytes posing as docx", text)
}

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range entries {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return buf.Bytes()
}
