package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"equipdata/internal/domain"
)

// RecordsExportHeader is the column layout of the records export.
var RecordsExportHeader = []string{
	"Equipment Name",
	"Type",
	"Flowrate",
	"Pressure",
	"Temperature",
}

// ExportRecords renders all of a dataset's records as a spreadsheet for the
// GUI collaborator. Rows keep their original ingestion order.
func (s *datasetService) ExportRecords(ctx context.Context, ownerID, datasetID string) ([]byte, error) {
	ds, err := s.GetDataset(ctx, ownerID, datasetID)
	if err != nil {
		return nil, err
	}

	records := make([]*domain.EquipmentRecord, 0, ds.RecordCount)
	for page := 1; ; page++ {
		items, _, err := s.repo.ListRecords(ctx, ownerID, datasetID, page, maxPageSize)
		if err != nil {
			return nil, err
		}
		records = append(records, items...)
		if len(items) < maxPageSize {
			break
		}
	}

	return generateRecordsExcel(ds.Name, records)
}

func generateRecordsExcel(datasetName string, records []*domain.EquipmentRecord) ([]byte, error) {
	f := excelize.NewFile()
	// Don't defer Close() here; WriteTo needs the file open.

	sheetName := "Equipment Records"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range RecordsExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i, rec := range records {
		row := i + 2
		values := []any{
			rec.EquipmentName,
			rec.EquipmentType,
			rec.Flowrate,
			rec.Pressure,
			rec.Temperature,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetColWidth(sheetName, "A", "B", 22); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheetName, "C", "E", 14); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write spreadsheet for %q: %w", datasetName, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}
