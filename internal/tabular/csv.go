package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadCSV parses delimited text with a header row into a Table.
//
// Rows are allowed to have fewer fields than the header (missing cells are
// reported as empty by the validator), so the reader runs with field-count
// checking disabled.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("file has no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	if len(header) > 0 {
		// Excel and some exporters prepend a UTF-8 BOM to the first cell.
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	rows := make([][]string, 0)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, record)
	}

	return New(header, rows), nil
}
