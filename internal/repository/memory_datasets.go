package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"equipdata/internal/domain"
)

// MemoryDatasetsRepository in-memory DatasetsRepository, used by unit tests
// and by the cmd binaries when the database is unavailable.
type MemoryDatasetsRepository struct {
	mu       sync.Mutex
	datasets map[string]*domain.Dataset          // dataset_id -> dataset
	records  map[string][]domain.EquipmentRecord // dataset_id -> records in row order
	seq      int64                               // breaks creation-time ties deterministically
	order    map[string]int64                    // dataset_id -> insertion sequence
}

// NewMemoryDatasetsRepository creates an empty in-memory repository.
func NewMemoryDatasetsRepository() *MemoryDatasetsRepository {
	return &MemoryDatasetsRepository{
		datasets: make(map[string]*domain.Dataset),
		records:  make(map[string][]domain.EquipmentRecord),
		order:    make(map[string]int64),
	}
}

var _ DatasetsRepository = (*MemoryDatasetsRepository)(nil)

func (r *MemoryDatasetsRepository) InsertDataset(ctx context.Context, dataset *domain.Dataset, records []domain.EquipmentRecord) error {
	if dataset.OwnerID == "" {
		return fmt.Errorf("owner_id is required")
	}
	if dataset.DatasetID == "" {
		dataset.DatasetID = uuid.New().String()
	}
	if dataset.CreatedAt == 0 {
		dataset.CreatedAt = time.Now().Unix()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.datasets[dataset.DatasetID]; exists {
		return fmt.Errorf("dataset %s already exists", dataset.DatasetID)
	}

	stored := make([]domain.EquipmentRecord, len(records))
	for i := range records {
		rec := records[i]
		if rec.RecordID == "" {
			rec.RecordID = uuid.New().String()
		}
		rec.DatasetID = dataset.DatasetID
		records[i] = rec
		stored[i] = rec
	}

	ds := *dataset
	ds.TypeDistribution = cloneDistribution(dataset.TypeDistribution)
	r.datasets[ds.DatasetID] = &ds
	r.records[ds.DatasetID] = stored
	r.seq++
	r.order[ds.DatasetID] = r.seq
	return nil
}

func (r *MemoryDatasetsRepository) SaveSummary(ctx context.Context, ownerID, datasetID string, summary *domain.Summary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, ok := r.datasets[datasetID]
	if !ok || ds.OwnerID != ownerID {
		return fmt.Errorf("dataset %s not found for owner", datasetID)
	}

	ds.RecordCount = summary.TotalRecords
	ds.AvgFlowrate = cloneFloat(summary.AvgFlowrate)
	ds.AvgPressure = cloneFloat(summary.AvgPressure)
	ds.AvgTemperature = cloneFloat(summary.AvgTemperature)
	ds.TypeDistribution = cloneDistribution(summary.TypeDistribution)
	return nil
}

func (r *MemoryDatasetsRepository) DeleteDataset(ctx context.Context, ownerID, datasetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, ok := r.datasets[datasetID]
	if !ok || ds.OwnerID != ownerID {
		return nil // absent dataset: nothing to do
	}
	delete(r.datasets, datasetID)
	delete(r.records, datasetID) // cascade
	delete(r.order, datasetID)
	return nil
}

func (r *MemoryDatasetsRepository) GetDataset(ctx context.Context, ownerID, datasetID string) (*domain.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ds, ok := r.datasets[datasetID]
	if !ok || ds.OwnerID != ownerID {
		return nil, nil
	}
	out := *ds
	out.TypeDistribution = cloneDistribution(ds.TypeDistribution)
	out.AvgFlowrate = cloneFloat(ds.AvgFlowrate)
	out.AvgPressure = cloneFloat(ds.AvgPressure)
	out.AvgTemperature = cloneFloat(ds.AvgTemperature)
	return &out, nil
}

func (r *MemoryDatasetsRepository) ListDatasets(ctx context.Context, ownerID string, limit int) ([]*domain.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.Dataset, 0)
	for _, ds := range r.datasets {
		if ds.OwnerID != ownerID {
			continue
		}
		copied := *ds
		copied.TypeDistribution = cloneDistribution(ds.TypeDistribution)
		copied.AvgFlowrate = cloneFloat(ds.AvgFlowrate)
		copied.AvgPressure = cloneFloat(ds.AvgPressure)
		copied.AvgTemperature = cloneFloat(ds.AvgTemperature)
		out = append(out, &copied)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return r.order[out[i].DatasetID] > r.order[out[j].DatasetID]
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryDatasetsRepository) ListRecords(ctx context.Context, ownerID, datasetID string, page, size int) ([]*domain.EquipmentRecord, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ds, ok := r.datasets[datasetID]
	if !ok || ds.OwnerID != ownerID {
		return []*domain.EquipmentRecord{}, 0, nil
	}

	all := r.records[datasetID]
	total := len(all)
	start := (page - 1) * size
	if start >= total {
		return []*domain.EquipmentRecord{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}

	out := make([]*domain.EquipmentRecord, 0, end-start)
	for i := start; i < end; i++ {
		rec := all[i]
		out = append(out, &rec)
	}
	return out, total, nil
}

func cloneDistribution(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}
