package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"equipdata/internal/domain"
)

// summaryTTL bounds staleness if an invalidation is ever lost; summaries are
// immutable once written, so a long TTL is safe.
const summaryTTL = 24 * time.Hour

// SummaryCache caches persisted dataset summaries in a KV store so repeated
// collaborator reads don't hit the database. Summaries are written once per
// ingestion and never recomputed, which makes them ideal cache material; the
// only invalidation points are dataset deletion and retention eviction.
type SummaryCache struct {
	kv KV
}

func NewSummaryCache(kv KV) *SummaryCache {
	return &SummaryCache{kv: kv}
}

func summaryKey(ownerID, datasetID string) string {
	return fmt.Sprintf("equipdata:summary:%s:%s", ownerID, datasetID)
}

// Get returns the cached summary or ErrMiss.
func (c *SummaryCache) Get(ctx context.Context, ownerID, datasetID string) (*domain.Summary, error) {
	raw, err := c.kv.Get(ctx, summaryKey(ownerID, datasetID))
	if err != nil {
		return nil, err
	}
	var s domain.Summary
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("failed to decode cached summary: %w", err)
	}
	return &s, nil
}

// Put stores a summary.
func (c *SummaryCache) Put(ctx context.Context, ownerID, datasetID string, summary *domain.Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return c.kv.Set(ctx, summaryKey(ownerID, datasetID), string(raw), summaryTTL)
}

// Invalidate drops the cached summaries for the given datasets.
func (c *SummaryCache) Invalidate(ctx context.Context, ownerID string, datasetIDs ...string) error {
	keys := make([]string, 0, len(datasetIDs))
	for _, id := range datasetIDs {
		keys = append(keys, summaryKey(ownerID, id))
	}
	return c.kv.Del(ctx, keys...)
}
