package pipeline

import (
	"strconv"
	"strings"

	"equipdata/internal/domain"
	"equipdata/internal/tabular"
)

// Normalize converts a table that already passed Validate into an ordered
// sequence of equipment records. Names and types are trimmed; measurements
// are the already-validated parsed floats. Row order is preserved.
//
// This step performs no validation of its own. Record and dataset IDs are
// assigned by the repository at persist time.
func Normalize(t *tabular.Table) []domain.EquipmentRecord {
	records := make([]domain.EquipmentRecord, 0, t.RowCount())

	for row := 0; row < t.RowCount(); row++ {
		name, _ := t.Cell(row, "Equipment Name")
		typ, _ := t.Cell(row, "Type")

		records = append(records, domain.EquipmentRecord{
			EquipmentName: strings.TrimSpace(name),
			EquipmentType: strings.TrimSpace(typ),
			Flowrate:      parseFloatCell(t, row, "Flowrate"),
			Pressure:      parseFloatCell(t, row, "Pressure"),
			Temperature:   parseFloatCell(t, row, "Temperature"),
		})
	}

	return records
}

func parseFloatCell(t *tabular.Table, row int, column string) float64 {
	cell, _ := t.Cell(row, column)
	// The validator guarantees this parses.
	v, _ := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	return v
}
