package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/booking-api/internal/model"
)

type captureRepo struct {
	tenant    []*model.AuditLog
	global    []*model.AuditLog
	tenantErr error
	globalErr error
}

func (r *captureRepo) CreateTenant(_ context.Context, e *model.AuditLog) error {
	if r.tenantErr != nil {
		return r.tenantErr
	}
	r.tenant = append(r.tenant, e)
	return nil
}

func (r *captureRepo) CreateGlobal(_ context.Context, e *model.AuditLog) error {
	if r.globalErr != nil {
		return r.globalErr
	}
	r.global = append(r.global, e)
	return nil
}

func (r *captureRepo) List(context.Context, uuid.UUID, *model.AuditFilters) ([]*model.AuditLog, int, error) {
	return nil, 0, nil
}

func (r *captureRepo) ListGlobal(context.Context, *model.AuditFilters) ([]*model.AuditLog, int, error) {
	return nil, 0, nil
}

func (r *captureRepo) Cleanup(context.Context, time.Time) (int64, error) { return 0, nil }

func newAuditService() (*Service, *captureRepo) {
	repo := &captureRepo{}
	logger := zerolog.Nop()
	return NewService(repo, &logger, nil), repo
}

func TestLogWritesBothTargets(t *testing.T) {
	svc, repo := newAuditService()
	clinicID := uuid.New()
	userID := uuid.New()

	svc.Log(context.Background(), Entry{
		ClinicID:   clinicID,
		UserID:     userID,
		Action:     model.AuditActionUpdate,
		Resource:   "patient",
		ResourceID: "abc",
		IPAddress:  "198.51.100.7",
		UserAgent:  "curl/8.0",
	})

	require.Len(t, repo.tenant, 1)
	require.Len(t, repo.global, 1)
	entry := repo.tenant[0]
	assert.Equal(t, clinicID, entry.ClinicID)
	assert.Equal(t, userID, entry.UserID)
	assert.Equal(t, "198.51.100.7", entry.IPAddress)
	assert.Equal(t, "curl/8.0", entry.UserAgent)
	assert.True(t, entry.Success)
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestLogFillsServerPlaceholders(t *testing.T) {
	svc, repo := newAuditService()

	// Workers have no request context.
	svc.Log(context.Background(), Entry{
		ClinicID: uuid.New(),
		Action:   model.AuditActionUpdate,
		Resource: "notification",
	})

	require.Len(t, repo.tenant, 1)
	assert.Equal(t, model.AuditPlaceholderIP, repo.tenant[0].IPAddress)
	assert.Equal(t, model.AuditPlaceholderUserAgent, repo.tenant[0].UserAgent)
}

func TestLogMarshalsMetadata(t *testing.T) {
	svc, repo := newAuditService()

	svc.Log(context.Background(), Entry{
		ClinicID: uuid.New(),
		Action:   model.AuditActionExport,
		Resource: "reports",
		Metadata: map[string]any{"format": "csv", "rows": 42},
	})

	require.Len(t, repo.tenant, 1)
	assert.JSONEq(t, `{"format":"csv","rows":42}`, string(repo.tenant[0].Metadata))
}

func TestLogFailedFlag(t *testing.T) {
	svc, repo := newAuditService()

	svc.Log(context.Background(), Entry{
		ClinicID: uuid.New(),
		Action:   model.AuditActionLogin,
		Resource: "auth",
		Failed:   true,
	})

	require.Len(t, repo.tenant, 1)
	assert.False(t, repo.tenant[0].Success)
}

func TestGlobalFailureStillWritesTenant(t *testing.T) {
	svc, repo := newAuditService()
	repo.globalErr = errors.New("mirror down")

	svc.Log(context.Background(), Entry{
		ClinicID: uuid.New(),
		Action:   model.AuditActionDelete,
		Resource: "patient",
	})

	assert.Len(t, repo.tenant, 1)
	assert.Empty(t, repo.global)
}

func TestTenantFailureStillWritesGlobal(t *testing.T) {
	svc, repo := newAuditService()
	repo.tenantErr = errors.New("table locked")

	svc.Log(context.Background(), Entry{
		ClinicID: uuid.New(),
		Action:   model.AuditActionDelete,
		Resource: "patient",
	})

	assert.Empty(t, repo.tenant)
	assert.Len(t, repo.global, 1)
}
