package domain

import "sort"

// Dataset represents one ingested measurement file together with its
// precomputed summary statistics.
//
// The three averages are pointers so that "no records" (all nil) stays
// distinguishable from "records averaging to zero". They are written once by
// the ingestion pipeline and never recomputed on read.
type Dataset struct {
	DatasetID string `json:"dataset_id"` // UUID
	OwnerID   string `json:"owner_id"`   // owning principal (already authenticated upstream)
	Name      string `json:"name"`       // original filename supplied by the caller

	RecordCount      int            `json:"record_count"`
	AvgFlowrate      *float64       `json:"avg_flowrate"`
	AvgPressure      *float64       `json:"avg_pressure"`
	AvgTemperature   *float64       `json:"avg_temperature"`
	TypeDistribution map[string]int `json:"type_distribution"`

	CreatedAt int64 `json:"created_at"` // Unix timestamp, seconds
}

// EquipmentRecord is one validated row of measurement data. A record belongs
// to exactly one dataset and is removed when that dataset is deleted.
type EquipmentRecord struct {
	RecordID  string `json:"record_id"`  // UUID
	DatasetID string `json:"dataset_id"` // owning dataset

	EquipmentName string  `json:"equipment_name"`
	EquipmentType string  `json:"equipment_type"`
	Flowrate      float64 `json:"flowrate"`    // L/min, > 0
	Pressure      float64 `json:"pressure"`    // bar, > 0
	Temperature   float64 `json:"temperature"` // °C, any finite value
}

// Summary holds the aggregate statistics computed over a record sequence.
// It is the shape persisted onto the Dataset and returned to callers.
type Summary struct {
	TotalRecords     int            `json:"total_records"`
	AvgFlowrate      *float64       `json:"avg_flowrate"`
	AvgPressure      *float64       `json:"avg_pressure"`
	AvgTemperature   *float64       `json:"avg_temperature"`
	TypeDistribution map[string]int `json:"type_distribution"`
}

// Categories returns the distribution keys in alphabetical order, for
// deterministic rendering by the report/GUI collaborators.
func (s *Summary) Categories() []string {
	cats := make([]string, 0, len(s.TypeDistribution))
	for c := range s.TypeDistribution {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}
