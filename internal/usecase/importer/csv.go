package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
)

// Row is one parsed CSV import entry.
type Row struct {
	Name string
	Path string
	Tags []string
}

// parseCSV reads "path,tags" rows, tags semicolon-separated. A header
// row starting with "path" or "filename" is skipped. Blank lines and
// rows with an empty path are dropped.
func parseCSV(data []byte, maxRows int) ([]Row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	rows := make([]Row, 0, len(records))
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		path := strings.TrimSpace(rec[0])
		if path == "" {
			continue
		}
		if i == 0 {
			lower := strings.ToLower(path)
			if lower == "path" || lower == "filename" || lower == "file" {
				continue
			}
		}

		var tags []string
		if len(rec) > 1 {
			for _, t := range strings.Split(rec[1], ";") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
		}
		rows = append(rows, Row{Name: filepath.Base(path), Path: path, Tags: tags})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("csv contains no import rows")
	}
	if maxRows > 0 && len(rows) > maxRows {
		return nil, fmt.Errorf("csv has %d rows, limit is %d", len(rows), maxRows)
	}
	return rows, nil
}
