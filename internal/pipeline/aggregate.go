package pipeline

import "equipdata/internal/domain"

// Summarize computes the aggregate statistics for a record sequence as an
// explicit fold, keeping the computation storage-agnostic. It accepts any
// sub-sequence, not only a full dataset, so callers can summarize filtered
// subsets ad hoc.
//
// For an empty sequence all averages are nil and the distribution is empty,
// which keeps "no data" distinguishable from "data averaging to zero".
func Summarize(records []domain.EquipmentRecord) *domain.Summary {
	summary := &domain.Summary{
		TotalRecords:     len(records),
		TypeDistribution: make(map[string]int),
	}
	if len(records) == 0 {
		return summary
	}

	var sumFlowrate, sumPressure, sumTemperature float64
	for _, r := range records {
		sumFlowrate += r.Flowrate
		sumPressure += r.Pressure
		sumTemperature += r.Temperature
		// Types group by exact string match; no case folding.
		summary.TypeDistribution[r.EquipmentType]++
	}

	n := float64(len(records))
	avgFlowrate := sumFlowrate / n
	avgPressure := sumPressure / n
	avgTemperature := sumTemperature / n
	summary.AvgFlowrate = &avgFlowrate
	summary.AvgPressure = &avgPressure
	summary.AvgTemperature = &avgTemperature

	return summary
}
