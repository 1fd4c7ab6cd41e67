package reader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// extractDocx extracts text from Word bytes. A .docx file is a ZIP archive;
// the document body lives in word/document.xml with visible text in <w:t>
// elements and paragraph boundaries at </w:p>.
func extractDocx(data []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX archive: %w", err)
	}

	content, err := readZipEntry(zipReader, "word/document.xml")
	if err != nil {
		return "", err
	}

	text, err := collectXMLText(content, "t", "p")
	if err != nil {
		return "", fmt.Errorf("failed to parse document.xml: %w", err)
	}
	if text == "" {
		return "", fmt.Errorf("no text content found in DOCX")
	}
	return text, nil
}

// extractPptx extracts text from PowerPoint bytes, slide by slide in slide
// order. Visible text lives in <a:t> elements under ppt/slides/slideN.xml.
func extractPptx(data []byte) (string, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PPTX archive: %w", err)
	}

	var slideNames []string
	for _, file := range zipReader.File {
		if strings.HasPrefix(file.Name, "ppt/slides/slide") && strings.HasSuffix(file.Name, ".xml") {
			slideNames = append(slideNames, file.Name)
		}
	}
	if len(slideNames) == 0 {
		return "", fmt.Errorf("no slides found in PPTX")
	}
	// Lexicographic order would put slide10 before slide2.
	sort.Slice(slideNames, func(i, j int) bool {
		return slideNumber(slideNames[i]) < slideNumber(slideNames[j])
	})

	var parts []string
	for _, name := range slideNames {
		content, err := readZipEntry(zipReader, name)
		if err != nil {
			continue
		}
		text, err := collectXMLText(content, "t", "p")
		if err != nil || text == "" {
			continue
		}
		parts = append(parts, text)
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text content found in PPTX")
	}
	return strings.Join(parts, "\n\n"), nil
}

// slideNumber extracts N from ppt/slides/slideN.xml. Names without a numeric
// suffix sort after every numbered slide.
func slideNumber(name string) int {
	digits := strings.TrimSuffix(strings.TrimPrefix(name, "ppt/slides/slide"), ".xml")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return math.MaxInt
	}
	return n
}

func readZipEntry(zipReader *zip.Reader, name string) ([]byte, error) {
	for _, file := range zipReader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}

// collectXMLText walks the XML token stream, gathering character data inside
// elements with local name textElem and inserting a line break after each
// closing breakElem. Namespace prefixes are ignored, so the same walk serves
// both WordprocessingML (w:) and DrawingML (a:) payloads.
func collectXMLText(content []byte, textElem, breakElem string) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var builder strings.Builder
	depth := 0

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Local == textElem {
				depth++
			}
		case xml.EndElement:
			switch t.Name.Local {
			case textElem:
				if depth > 0 {
					depth--
				}
			case breakElem:
				builder.WriteString("\n")
			}
		case xml.CharData:
			if depth > 0 {
				builder.Write(t)
			}
		}
	}

	// Collapse runs of blank lines left by empty paragraphs.
	var lines []string
	for _, line := range strings.Split(builder.String(), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n"), nil
}
