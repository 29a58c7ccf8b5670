package repository

import (
	"context"

	"equipdata/internal/domain"
)

// DatasetsRepository is the storage boundary of the ingestion pipeline.
// All queries are owner-scoped: an owner can never see or delete another
// owner's datasets.
//
// Timeouts and retries on this boundary are the implementation's concern,
// not the pipeline's.
type DatasetsRepository interface {
	// ========== write ==========

	// InsertDataset inserts the dataset row and all of its records in one
	// transaction. The dataset's summary fields are still empty at this
	// point; SaveSummary writes them afterwards. Record IDs and the
	// dataset reference are assigned here.
	InsertDataset(ctx context.Context, dataset *domain.Dataset, records []domain.EquipmentRecord) error

	// SaveSummary writes the computed summary onto an existing dataset.
	// This is the only mutation a dataset ever sees after creation.
	SaveSummary(ctx context.Context, ownerID, datasetID string, summary *domain.Summary) error

	// DeleteDataset removes a dataset and, by cascade, its records.
	// Deleting an absent dataset is not an error.
	DeleteDataset(ctx context.Context, ownerID, datasetID string) error

	// ========== read ==========

	// GetDataset returns a dataset with its stored summary, or nil if the
	// owner has no dataset with that ID.
	GetDataset(ctx context.Context, ownerID, datasetID string) (*domain.Dataset, error)

	// ListDatasets returns the owner's datasets ordered by creation time
	// descending (newest first). limit <= 0 means no limit.
	ListDatasets(ctx context.Context, ownerID string, limit int) ([]*domain.Dataset, error)

	// ListRecords returns one page of a dataset's records in their original
	// row order, plus the total record count.
	ListRecords(ctx context.Context, ownerID, datasetID string, page, size int) ([]*domain.EquipmentRecord, int, error)
}
