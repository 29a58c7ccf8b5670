package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"equipdata/internal/repository"
	"equipdata/internal/store"
)

// RetentionManager keeps at most `limit` datasets per owner, evicting the
// oldest excess after each successful ingestion.
type RetentionManager struct {
	repo   repository.DatasetsRepository
	limit  int
	cache  *store.SummaryCache // optional; evicted summaries are invalidated
	logger *zap.Logger
}

// NewRetentionManager creates a retention manager with the given per-owner
// limit. A limit <= 0 is rejected by config loading, so it is not defended
// against here.
func NewRetentionManager(repo repository.DatasetsRepository, limit int, logger *zap.Logger) *RetentionManager {
	return &RetentionManager{repo: repo, limit: limit, logger: logger}
}

// SetSummaryCache attaches an optional summary cache for invalidation.
func (m *RetentionManager) SetSummaryCache(cache *store.SummaryCache) {
	m.cache = cache
}

// Limit returns the configured per-owner dataset limit.
func (m *RetentionManager) Limit() int { return m.limit }

// Enforce deletes every dataset beyond the newest `limit` for the owner and
// returns the evicted dataset IDs. Deletion cascades to equipment records
// and is unconditional: no confirmation, no soft-delete.
//
// Enforce re-reads the current state on every call. Two concurrent
// ingestions for the same owner can each see a count within the limit before
// either enforcement runs, transiently leaving more than `limit` datasets;
// the next pass corrects it. This relaxed consistency is deliberate.
func (m *RetentionManager) Enforce(ctx context.Context, ownerID string) ([]string, error) {
	datasets, err := m.repo.ListDatasets(ctx, ownerID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate datasets: %w", err)
	}
	if len(datasets) <= m.limit {
		return nil, nil
	}

	evicted := make([]string, 0, len(datasets)-m.limit)
	for _, ds := range datasets[m.limit:] {
		if err := m.repo.DeleteDataset(ctx, ownerID, ds.DatasetID); err != nil {
			// Report the partial eviction; the caller logs and moves on,
			// and the next enforcement pass retries the remainder.
			return evicted, fmt.Errorf("failed to evict dataset %s: %w", ds.DatasetID, err)
		}
		evicted = append(evicted, ds.DatasetID)
	}

	if m.cache != nil && len(evicted) > 0 {
		if err := m.cache.Invalidate(ctx, ownerID, evicted...); err != nil {
			m.logger.Warn("failed to invalidate evicted summaries",
				zap.String("owner_id", ownerID),
				zap.Error(err),
			)
		}
	}

	return evicted, nil
}
