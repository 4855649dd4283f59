// Package normalize turns raw CSV bytes into deduplicated, hashed rows
// and projects them through a schema's column mapping into canonical
// mapped rows. One malformed row never fails a batch: per-row problems
// surface as warnings.
package normalize

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"kuvert/internal/core"
)

// Warning is a non-fatal, user-visible problem with a single row.
type Warning struct {
	File    string `json:"file"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s row %d: %s", w.File, w.Row, w.Message)
}

// Parse reads one CSV export into raw rows. The header row supplies
// field names, the delimiter is sniffed from the header, blank lines are
// skipped, and short rows are padded. Every row carries its origin
// filename in the reserved file field.
func Parse(name string, data []byte) ([]core.RawRow, []Warning, error) {
	decoded, _, err := decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", name, err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = sniffDelimiter(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%s: empty file, no header row", name)
		}
		return nil, nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var (
		rows     []core.RawRow
		warnings []Warning
		rowNum   = 1
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			warnings = append(warnings, Warning{File: name, Row: rowNum, Message: err.Error()})
			continue
		}
		if isBlank(record) {
			continue
		}
		if len(record) < len(header) {
			warnings = append(warnings, Warning{
				File: name, Row: rowNum,
				Message: fmt.Sprintf("%d fields, expected %d; padding", len(record), len(header)),
			})
		}
		row := make(core.RawRow, len(header)+1)
		for i, h := range header {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			} else {
				row[h] = ""
			}
		}
		row[core.FileField] = name
		rows = append(rows, row)
	}
	return rows, warnings, nil
}

// sniffDelimiter picks the most frequent candidate delimiter in the
// header line. Comma wins ties, matching encoding/csv's default.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, c := range []byte{';', '\t'} {
		if n := bytes.Count(line, []byte{c}); n > bestCount {
			best, bestCount = rune(c), n
		}
	}
	return best
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
