package reader

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"
)

var (
	mdImage   = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLink    = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	mdHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)
)

// extractMarkdown strips the Markdown syntax that carries no prose: images
// are removed, links keep their label, heading markers are dropped.
func extractMarkdown(data []byte) string {
	text := rawText(data)
	text = mdImage.ReplaceAllString(text, "")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdHeading.ReplaceAllString(text, "")
	return text
}

// extractCSV renders the rows as pipe-separated lines, tolerating ragged
// records.
func extractCSV(data []byte) (string, error) {
	csvReader := csv.NewReader(strings.NewReader(rawText(data)))
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse CSV: %w", err)
	}

	var lines []string
	for _, record := range records {
		var cells []string
		for _, cell := range record {
			if cell = strings.TrimSpace(cell); cell != "" {
				cells = append(cells, cell)
			}
		}
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, " | "))
		}
	}

	if len(lines) == 0 {
		return "", fmt.Errorf("CSV contains no data")
	}
	return strings.Join(lines, "\n"), nil
}
