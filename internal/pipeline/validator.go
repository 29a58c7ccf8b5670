package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"equipdata/internal/tabular"
)

// RequiredColumns are the columns every upload must contain. Matching is
// exact and case-sensitive; extra columns are ignored.
var RequiredColumns = []string{
	"Equipment Name",
	"Type",
	"Flowrate",
	"Pressure",
	"Temperature",
}

// NumericColumns are the measurement columns whose cells must parse as
// floating-point numbers.
var NumericColumns = []string{"Flowrate", "Pressure", "Temperature"}

// positiveColumns must hold strictly positive values. Temperature is absent:
// negative and zero temperatures are valid.
var positiveColumns = map[string]bool{
	"Flowrate": true,
	"Pressure": true,
}

// sampleLimit caps how many offending values are echoed back per error.
const sampleLimit = 5

// ErrEmptyInput is returned when the table has a header but no data rows.
// It is reported before any column inspection runs.
var ErrEmptyInput = errors.New("input contains no data rows")

// ValidationReport is the transient result of one validation pass. It is
// never persisted; the ingest service serializes Errors back to the caller
// on rejection.
type ValidationReport struct {
	Valid  bool             `json:"is_valid"`
	Errors ValidationErrors `json:"errors"`
}

// ValidationErrors groups problems by category. A nil/empty category means
// no problems of that kind were found.
type ValidationErrors struct {
	MissingColumns    *MissingColumnsError           `json:"missing_columns,omitempty"`
	EmptyFields       map[string]*EmptyFieldError    `json:"empty_fields,omitempty"`
	NumericValidation map[string]*NumericColumnError `json:"numeric_validation,omitempty"`
}

// MissingColumnsError reports required columns absent from the header.
type MissingColumnsError struct {
	Message  string   `json:"message"`
	Missing  []string `json:"missing"`
	Required []string `json:"required"`
}

// EmptyFieldError reports rows where a required column is empty or missing.
type EmptyFieldError struct {
	Message    string `json:"message"`
	EmptyCount int    `json:"empty_count"`
	TotalRows  int    `json:"total_rows"`
}

// NumericColumnError reports unparseable cells in a numeric column and, for
// Flowrate/Pressure, values that violate the positivity constraint.
type NumericColumnError struct {
	Message             string             `json:"message,omitempty"`
	InvalidCount        int                `json:"invalid_count,omitempty"`
	SampleInvalidValues []string           `json:"sample_invalid_values,omitempty"`
	NonPositiveValues   *NonPositiveValues `json:"non_positive_values,omitempty"`
}

// NonPositiveValues reports parsed values <= 0 in a column that requires
// strictly positive measurements.
type NonPositiveValues struct {
	Message      string    `json:"message"`
	Count        int       `json:"count"`
	SampleValues []float64 `json:"sample_values"`
}

// Validate checks a parsed table against the structural and content rules.
//
// Order of checks: empty input first (nothing else runs), then required
// columns (missing columns short-circuit, since column-dependent checks
// cannot be evaluated without them), then the empty-field and numeric checks
// together so one pass surfaces every row-level problem at once.
//
// The only possible error is ErrEmptyInput; every other outcome is expressed
// in the returned report.
func Validate(t *tabular.Table) (*ValidationReport, error) {
	if t.RowCount() == 0 {
		return nil, ErrEmptyInput
	}

	report := &ValidationReport{Valid: true}

	if missing := missingColumns(t); len(missing) > 0 {
		report.Valid = false
		report.Errors.MissingColumns = &MissingColumnsError{
			Message:  "input is missing required columns",
			Missing:  missing,
			Required: RequiredColumns,
		}
		return report, nil
	}

	if emptyErrs := validateRequiredFields(t); len(emptyErrs) > 0 {
		report.Valid = false
		report.Errors.EmptyFields = emptyErrs
	}
	if numErrs := validateNumericFields(t); len(numErrs) > 0 {
		report.Valid = false
		report.Errors.NumericValidation = numErrs
	}

	return report, nil
}

// missingColumns returns the required columns absent from the table, in
// required-column order.
func missingColumns(t *tabular.Table) []string {
	var missing []string
	for _, col := range RequiredColumns {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// validateRequiredFields counts, per required column, the rows whose cell is
// missing or blank after trimming.
func validateRequiredFields(t *tabular.Table) map[string]*EmptyFieldError {
	errs := make(map[string]*EmptyFieldError)
	total := t.RowCount()

	for _, col := range RequiredColumns {
		empty := 0
		for row := 0; row < total; row++ {
			cell, ok := t.Cell(row, col)
			if !ok || strings.TrimSpace(cell) == "" {
				empty++
			}
		}
		if empty > 0 {
			errs[col] = &EmptyFieldError{
				Message:    "column contains empty values",
				EmptyCount: empty,
				TotalRows:  total,
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// validateNumericFields checks that every present, non-blank cell in a
// numeric column parses as a finite float, and that Flowrate/Pressure values
// are strictly positive. Blank cells are the empty-field check's problem and
// are skipped here so they are not double-counted.
func validateNumericFields(t *tabular.Table) map[string]*NumericColumnError {
	errs := make(map[string]*NumericColumnError)

	for _, col := range NumericColumns {
		var (
			invalidCount   int
			invalidSamples []string
			nonPosCount    int
			nonPosSamples  []float64
		)

		for row := 0; row < t.RowCount(); row++ {
			cell, ok := t.Cell(row, col)
			if !ok {
				continue
			}
			trimmed := strings.TrimSpace(cell)
			if trimmed == "" {
				continue
			}

			v, err := strconv.ParseFloat(trimmed, 64)
			if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				invalidCount++
				if len(invalidSamples) < sampleLimit {
					invalidSamples = append(invalidSamples, cell)
				}
				continue
			}

			if positiveColumns[col] && v <= 0 {
				nonPosCount++
				if len(nonPosSamples) < sampleLimit {
					nonPosSamples = append(nonPosSamples, v)
				}
			}
		}

		if invalidCount == 0 && nonPosCount == 0 {
			continue
		}

		colErr := &NumericColumnError{}
		if invalidCount > 0 {
			colErr.Message = "column contains non-numeric values"
			colErr.InvalidCount = invalidCount
			colErr.SampleInvalidValues = invalidSamples
		}
		if nonPosCount > 0 {
			colErr.NonPositiveValues = &NonPositiveValues{
				Message:      fmt.Sprintf("%s must be positive (greater than 0)", col),
				Count:        nonPosCount,
				SampleValues: nonPosSamples,
			}
		}
		errs[col] = colErr
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
