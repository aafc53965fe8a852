package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/pkg/metrics"
)

// Service appends audit entries. Writes fan out to the tenant table
// and the global mirror; both are best-effort. Audit logging is never
// a precondition for the business operation that triggered it, so Log
// returns nothing: failures are counted and logged, then swallowed.
type Service struct {
	repo    repository.AuditRepository
	logger  *zerolog.Logger
	metrics *metrics.Metrics
}

func NewService(repo repository.AuditRepository, logger *zerolog.Logger, m *metrics.Metrics) *Service {
	return &Service{repo: repo, logger: logger, metrics: m}
}

// Actor identifies who performed an operation and from where. Handlers
// build it from the request; workers leave the address fields empty and
// get the server placeholders.
type Actor struct {
	UserID    uuid.UUID
	IPAddress string
	UserAgent string
}

// Entry is a single audit record before server-side fields are filled.
type Entry struct {
	ClinicID   uuid.UUID
	UserID     uuid.UUID
	Action     string
	Resource   string
	ResourceID string
	Details    string
	Metadata   interface{}
	IPAddress  string
	UserAgent  string
	Failed     bool
}

func (s *Service) Log(ctx context.Context, e Entry) {
	entry := &model.AuditLog{
		ID:         uuid.New(),
		ClinicID:   e.ClinicID,
		UserID:     e.UserID,
		Action:     e.Action,
		Resource:   e.Resource,
		ResourceID: e.ResourceID,
		Details:    e.Details,
		IPAddress:  e.IPAddress,
		UserAgent:  e.UserAgent,
		Success:    !e.Failed,
		CreatedAt:  time.Now(),
	}
	if entry.IPAddress == "" {
		entry.IPAddress = model.AuditPlaceholderIP
	}
	if entry.UserAgent == "" {
		entry.UserAgent = model.AuditPlaceholderUserAgent
	}
	if e.Metadata != nil {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to marshal audit metadata")
		} else {
			entry.Metadata = raw
		}
	}

	start := time.Now()
	s.write(ctx, "tenant", entry, s.repo.CreateTenant)
	s.write(ctx, "global", entry, s.repo.CreateGlobal)
	if s.metrics != nil {
		s.metrics.AuditWriteLatency.Observe(time.Since(start).Seconds())
	}
}

func (s *Service) write(ctx context.Context, target string, entry *model.AuditLog, fn func(context.Context, *model.AuditLog) error) {
	if err := fn(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.AuditWriteErrors.WithLabelValues(target).Inc()
		}
		s.logger.Error().Err(err).
			Str("target", target).
			Str("action", entry.Action).
			Str("resource", entry.Resource).
			Msg("audit write failed")
		return
	}
	if s.metrics != nil {
		s.metrics.AuditWrites.WithLabelValues(target).Inc()
	}
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, filters *model.AuditFilters) ([]*model.AuditLog, int, error) {
	return s.repo.List(ctx, clinicID, filters)
}

func (s *Service) ListGlobal(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, int, error) {
	return s.repo.ListGlobal(ctx, filters)
}

func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.Cleanup(ctx, before)
}
