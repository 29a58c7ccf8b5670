package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"equipdata/internal/domain"
	"equipdata/internal/repository"
	"equipdata/internal/store"
)

// ErrDatasetNotFound is returned when the owner has no dataset with the
// requested ID.
var ErrDatasetNotFound = errors.New("dataset not found")

// record page size limits, matching the upload collaborator's pagination
// contract.
const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// DatasetService is the read-only interface consumed by the report and GUI
// collaborators, plus the explicit owner delete. Summaries are re-read
// verbatim from storage (or cache); they are never recomputed here.
type DatasetService interface {
	GetDataset(ctx context.Context, ownerID, datasetID string) (*domain.Dataset, error)
	GetSummary(ctx context.Context, ownerID, datasetID string) (*domain.Summary, error)
	ListDatasets(ctx context.Context, ownerID string) ([]*domain.Dataset, error)
	GetRecordsPage(ctx context.Context, req RecordsPageRequest) (*RecordsPage, error)
	DeleteDataset(ctx context.Context, ownerID, datasetID string) error
	ExportRecords(ctx context.Context, ownerID, datasetID string) ([]byte, error)
}

// RecordsPageRequest requests one page of a dataset's records.
type RecordsPageRequest struct {
	OwnerID   string // required
	DatasetID string // required
	Page      int    // default 1
	PageSize  int    // default 50, capped at 1000
}

// RecordsPage is one page of records in original row order.
type RecordsPage struct {
	Items []*domain.EquipmentRecord `json:"items"`
	Total int                       `json:"total"`
	Page  int                       `json:"page"`
	Size  int                       `json:"size"`
}

type datasetService struct {
	repo      repository.DatasetsRepository
	listLimit int                 // the retained window size shown to callers
	cache     *store.SummaryCache // optional
	logger    *zap.Logger
}

// NewDatasetService creates the read-side service. listLimit is the
// retention limit: listing shows at most the retained window.
func NewDatasetService(repo repository.DatasetsRepository, listLimit int, logger *zap.Logger) *datasetService {
	return &datasetService{repo: repo, listLimit: listLimit, logger: logger}
}

var _ DatasetService = (*datasetService)(nil)

// SetSummaryCache attaches an optional read-through summary cache.
func (s *datasetService) SetSummaryCache(cache *store.SummaryCache) {
	s.cache = cache
}

func (s *datasetService) GetDataset(ctx context.Context, ownerID, datasetID string) (*domain.Dataset, error) {
	ds, err := s.repo.GetDataset(ctx, ownerID, datasetID)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, ErrDatasetNotFound
	}
	return ds, nil
}

// GetSummary returns the stored summary, trying the cache first. The summary
// was computed once at ingestion time; this path never recomputes it.
func (s *datasetService) GetSummary(ctx context.Context, ownerID, datasetID string) (*domain.Summary, error) {
	if s.cache != nil {
		summary, err := s.cache.Get(ctx, ownerID, datasetID)
		if err == nil {
			return summary, nil
		}
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("summary cache read failed",
				zap.String("dataset_id", datasetID),
				zap.Error(err),
			)
		}
	}

	ds, err := s.GetDataset(ctx, ownerID, datasetID)
	if err != nil {
		return nil, err
	}
	summary := &domain.Summary{
		TotalRecords:     ds.RecordCount,
		AvgFlowrate:      ds.AvgFlowrate,
		AvgPressure:      ds.AvgPressure,
		AvgTemperature:   ds.AvgTemperature,
		TypeDistribution: ds.TypeDistribution,
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, ownerID, datasetID, summary); err != nil {
			s.logger.Warn("summary cache write failed",
				zap.String("dataset_id", datasetID),
				zap.Error(err),
			)
		}
	}
	return summary, nil
}

func (s *datasetService) ListDatasets(ctx context.Context, ownerID string) ([]*domain.Dataset, error) {
	return s.repo.ListDatasets(ctx, ownerID, s.listLimit)
}

func (s *datasetService) GetRecordsPage(ctx context.Context, req RecordsPageRequest) (*RecordsPage, error) {
	if req.OwnerID == "" || req.DatasetID == "" {
		return nil, fmt.Errorf("owner_id and dataset_id are required")
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	// Existence check keeps "no such dataset" distinguishable from "dataset
	// with an out-of-range page".
	if _, err := s.GetDataset(ctx, req.OwnerID, req.DatasetID); err != nil {
		return nil, err
	}

	items, total, err := s.repo.ListRecords(ctx, req.OwnerID, req.DatasetID, page, size)
	if err != nil {
		return nil, err
	}
	return &RecordsPage{Items: items, Total: total, Page: page, Size: size}, nil
}

func (s *datasetService) DeleteDataset(ctx context.Context, ownerID, datasetID string) error {
	ds, err := s.repo.GetDataset(ctx, ownerID, datasetID)
	if err != nil {
		return err
	}
	if ds == nil {
		return ErrDatasetNotFound
	}

	if err := s.repo.DeleteDataset(ctx, ownerID, datasetID); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, ownerID, datasetID); err != nil {
			s.logger.Warn("failed to invalidate deleted summary",
				zap.String("dataset_id", datasetID),
				zap.Error(err),
			)
		}
	}
	return nil
}
