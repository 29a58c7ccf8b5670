package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"equipdata/internal/domain"
	"equipdata/internal/pipeline"
	"equipdata/internal/repository"
	"equipdata/internal/store"
	"equipdata/internal/tabular"
)

// ingestion stages, in the order they run. Validation failure diverts to
// rejected; everything else is linear.
const (
	stageValidating  = "validating"
	stageNormalizing = "normalizing"
	stageAggregating = "aggregating"
	stagePersisting  = "persisting"
	stageRetaining   = "retaining"
)

// IngestService runs the full ingestion of one parsed table for one owner.
type IngestService interface {
	// Ingest validates, normalizes, aggregates, persists and applies
	// retention. A validation failure is not an error: it comes back as a
	// rejected IngestResult with nothing persisted. An error return means
	// the pipeline itself failed (storage, encoding) mid-flight.
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
}

// IngestRequest carries one upload through the pipeline. The owner identity
// is already authenticated upstream; this subsystem just trusts it.
type IngestRequest struct {
	OwnerID string         // required
	Name    string         // original filename, stored on the dataset
	Table   *tabular.Table // required, parsed by the caller via tabular.ReadCSV/ReadXLSX
}

// IngestResult is the structured outcome returned to the caller. Exactly one
// of the accepted/rejected field groups is populated.
type IngestResult struct {
	Accepted bool `json:"accepted"`

	// Accepted
	DatasetID   string          `json:"dataset_id,omitempty"`
	Name        string          `json:"name,omitempty"`
	CreatedAt   int64           `json:"created_at,omitempty"`
	RecordCount int             `json:"record_count,omitempty"`
	Summary     *domain.Summary `json:"summary,omitempty"`

	// Rejected. Reason is a stable machine-readable code; the HTTP layer
	// owns user-facing wording.
	Reason string                     `json:"reason,omitempty"` // "empty_input" | "validation_failed"
	Errors *pipeline.ValidationErrors `json:"errors,omitempty"`
}

type ingestService struct {
	repo      repository.DatasetsRepository
	retention *RetentionManager
	cache     *store.SummaryCache // optional
	notifier  *CompletionNotifier // optional
	logger    *zap.Logger
}

// NewIngestService creates the ingestion coordinator.
func NewIngestService(repo repository.DatasetsRepository, retention *RetentionManager, logger *zap.Logger) *ingestService {
	return &ingestService{
		repo:      repo,
		retention: retention,
		logger:    logger,
	}
}

var _ IngestService = (*ingestService)(nil)

// SetSummaryCache attaches an optional read-through summary cache.
func (s *ingestService) SetSummaryCache(cache *store.SummaryCache) {
	s.cache = cache
}

// SetNotifier attaches an optional ingestion-completed webhook notifier.
func (s *ingestService) SetNotifier(n *CompletionNotifier) {
	s.notifier = n
}

func (s *ingestService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if req.OwnerID == "" {
		return nil, fmt.Errorf("owner_id is required")
	}
	if req.Table == nil {
		return nil, fmt.Errorf("table is required")
	}

	// Validating. Nothing is persisted on any rejection path.
	report, err := pipeline.Validate(req.Table)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyInput) {
			s.logger.Info("upload rejected: empty input",
				zap.String("owner_id", req.OwnerID),
				zap.String("name", req.Name),
			)
			return &IngestResult{Reason: "empty_input"}, nil
		}
		return nil, fmt.Errorf("%s: %w", stageValidating, err)
	}
	if !report.Valid {
		s.logger.Info("upload rejected: validation failed",
			zap.String("owner_id", req.OwnerID),
			zap.String("name", req.Name),
			zap.Int("rows", req.Table.RowCount()),
		)
		errs := report.Errors
		return &IngestResult{Reason: "validation_failed", Errors: &errs}, nil
	}

	// Normalizing and aggregating are pure; they cannot fail after a valid
	// report.
	records := pipeline.Normalize(req.Table)
	summary := pipeline.Summarize(records)

	// Persisting: dataset row + records first, then the summary onto the
	// dataset.
	dataset := &domain.Dataset{
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		RecordCount: len(records),
	}
	if err := s.repo.InsertDataset(ctx, dataset, records); err != nil {
		return nil, fmt.Errorf("%s: %w", stagePersisting, err)
	}
	if err := s.repo.SaveSummary(ctx, req.OwnerID, dataset.DatasetID, summary); err != nil {
		return nil, fmt.Errorf("%s: %w", stagePersisting, err)
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, req.OwnerID, dataset.DatasetID, summary); err != nil {
			s.logger.Warn("failed to cache summary",
				zap.String("dataset_id", dataset.DatasetID),
				zap.Error(err),
			)
		}
	}

	// Retaining: runs strictly after commit, so the new dataset is always
	// the most recent and never evicts itself. Failures are logged, never
	// returned; the upload already succeeded.
	if evicted, err := s.retention.Enforce(ctx, req.OwnerID); err != nil {
		s.logger.Error("retention enforcement failed",
			zap.String("owner_id", req.OwnerID),
			zap.String("dataset_id", dataset.DatasetID),
			zap.Error(err),
		)
	} else if len(evicted) > 0 {
		s.logger.Info("evicted datasets beyond retention limit",
			zap.String("owner_id", req.OwnerID),
			zap.Strings("evicted", evicted),
		)
	}

	result := &IngestResult{
		Accepted:    true,
		DatasetID:   dataset.DatasetID,
		Name:        dataset.Name,
		CreatedAt:   dataset.CreatedAt,
		RecordCount: summary.TotalRecords,
		Summary:     summary,
	}

	s.logger.Info("ingestion complete",
		zap.String("owner_id", req.OwnerID),
		zap.String("dataset_id", dataset.DatasetID),
		zap.Int("record_count", result.RecordCount),
	)

	if s.notifier != nil {
		// One-way notification; never blocks or fails the ingestion.
		go s.notifier.NotifyIngestionComplete(result)
	}

	return result, nil
}
