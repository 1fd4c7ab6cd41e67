package reader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractExcel extracts text from workbook bytes. Every sheet is rendered as
// pipe-separated rows under a sheet heading, which keeps tabular structure
// legible after chunking.
func extractExcel(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var parts []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}

		var rendered []string
		for _, row := range rows {
			var cells []string
			for _, cell := range row {
				if cell = strings.TrimSpace(cell); cell != "" {
					cells = append(cells, cell)
				}
			}
			if len(cells) > 0 {
				rendered = append(rendered, strings.Join(cells, " | "))
			}
		}
		if len(rendered) > 0 {
			parts = append(parts, fmt.Sprintf("## %s\n%s", sheetName, strings.Join(rendered, "\n")))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text content found in workbook")
	}
	return strings.Join(parts, "\n\n"), nil
}
