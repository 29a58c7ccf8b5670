package service

import (
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// CompletionNotifier POSTs each successful ingestion result to a configured
// webhook so downstream consumers (report generation, dashboards) can react
// without polling. Notification is strictly one-way: failures are logged and
// never affect the already-committed ingestion.
type CompletionNotifier struct {
	httpClient *resty.Client
	url        string
	logger     *zap.Logger
}

// NewCompletionNotifier creates a notifier targeting the given URL.
func NewCompletionNotifier(url string, logger *zap.Logger) *CompletionNotifier {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &CompletionNotifier{
		httpClient: client,
		url:        url,
		logger:     logger,
	}
}

// NotifyIngestionComplete delivers the ingestion result. Runs on its own
// goroutine from the ingest service, so it uses the client's own timeout
// rather than the request context.
func (n *CompletionNotifier) NotifyIngestionComplete(result *IngestResult) {
	resp, err := n.httpClient.R().
		SetBody(result).
		Post(n.url)
	if err != nil {
		n.logger.Warn("ingestion webhook failed",
			zap.String("url", n.url),
			zap.String("dataset_id", result.DatasetID),
			zap.Error(err),
		)
		return
	}
	if resp.IsError() {
		n.logger.Warn("ingestion webhook rejected",
			zap.String("url", n.url),
			zap.String("dataset_id", result.DatasetID),
			zap.Int("status", resp.StatusCode()),
		)
		return
	}
	n.logger.Debug("ingestion webhook delivered",
		zap.String("dataset_id", result.DatasetID),
	)
}
