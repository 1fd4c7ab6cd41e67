// Package reader extracts plain text from uploaded document bytes.
//
// Extraction is byte-oriented: callers hand over the raw upload and a file
// type, never a path, so the same code serves CLI file ingestion and any
// future transport. When a format-specific extractor fails on well-typed
// input the document is not rejected outright; the bytes are reinterpreted
// as UTF-8 text so partially corrupt files still yield something searchable.
package reader

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
)

var (
	// ErrUnsupportedFileType is returned for file types no extractor handles.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrEmptyDocument is returned when the input is empty or extraction
	// yields no text at all.
	ErrEmptyDocument = errors.New("document contains no extractable text")
)

// SupportedTypes lists the file types ExtractText accepts, without dots.
var SupportedTypes = []string{"pdf", "doc", "docx", "ppt", "pptx", "xls", "xlsx", "txt", "md", "csv"}

// Extractor turns raw document bytes into plain text.
type Extractor interface {
	ExtractText(data []byte, fileType string) (string, error)
}

// TextExtractor dispatches to a format-specific extractor by file type.
type TextExtractor struct {
	logger *slog.Logger
}

// NewTextExtractor creates a TextExtractor. A nil logger falls back to
// slog.Default().
func NewTextExtractor(logger *slog.Logger) *TextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextExtractor{logger: logger}
}

// ExtractText extracts plain text from data. fileType is matched without a
// leading dot and case-insensitively. An unknown type is an error; a known
// type whose extractor fails degrades to a raw UTF-8 interpretation of the
// bytes. Input that produces no text at all returns ErrEmptyDocument.
func (e *TextExtractor) ExtractText(data []byte, fileType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyDocument
	}

	ft := strings.ToLower(strings.TrimPrefix(fileType, "."))

	var text string
	var err error
	switch ft {
	case "pdf":
		text, err = extractPDF(data)
	// Legacy binary doc/xls/ppt payloads fail the archive open and take
	// the raw-text fallback below.
	case "doc", "docx":
		text, err = extractDocx(data)
	case "ppt", "pptx":
		text, err = extractPptx(data)
	case "xls", "xlsx", "xlsm":
		text, err = extractExcel(data)
	case "txt":
		text = rawText(data)
	case "md", "markdown":
		text = extractMarkdown(data)
	case "csv":
		text, err = extractCSV(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFileType, fileType)
	}

	if err != nil {
		e.logger.Warn("format extraction failed, falling back to raw text",
			"file_type", ft, "error", err)
		text = rawText(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}

// rawText reinterprets the bytes as UTF-8, dropping invalid sequences and
// non-printable noise that would pollute chunking.
func rawText(data []byte) string {
	valid := strings.ToValidUTF8(string(data), "")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			return r
		}
		return -1
	}, valid)
}

// Ensure TextExtractor implements the interface.
var _ Extractor = (*TextExtractor)(nil)
