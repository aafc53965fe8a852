package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbook/booking-api/internal/service/audit"
)

// AuditCleanupWorker enforces the audit retention policy by deleting
// entries older than the configured horizon from both audit tables.
type AuditCleanupWorker struct {
	auditor   *audit.Service
	retention time.Duration
	logger    *zerolog.Logger
}

func NewAuditCleanupWorker(auditor *audit.Service, retentionDays int, logger *zerolog.Logger) *AuditCleanupWorker {
	if retentionDays <= 0 {
		retentionDays = 365
	}
	return &AuditCleanupWorker{
		auditor:   auditor,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
	}
}

func (w *AuditCleanupWorker) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-w.retention)
	deleted, err := w.auditor.Cleanup(ctx, cutoff)
	if err != nil {
		return err
	}
	w.logger.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("audit cleanup finished")
	return nil
}
