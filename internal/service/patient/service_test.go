package patient

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/service/audit"
	apperrors "github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/security"
)

type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*model.Patient
	// hideFromGetByEmail simulates a row committed between the service's
	// duplicate check and its insert.
	hideFromGetByEmail bool
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]*model.Patient)}
}

func (r *fakePatientRepo) Create(_ context.Context, p *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.patients {
		if existing.ClinicID == p.ClinicID && strings.EqualFold(existing.Email, p.Email) {
			return repository.ErrDuplicate
		}
	}
	clone := *p
	r.patients[p.ID] = &clone
	return nil
}

func (r *fakePatientRepo) Get(_ context.Context, clinicID, id uuid.UUID) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok || p.ClinicID != clinicID {
		return nil, repository.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *fakePatientRepo) GetByEmail(_ context.Context, clinicID uuid.UUID, email string) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hideFromGetByEmail {
		return nil, repository.ErrNotFound
	}
	for _, p := range r.patients {
		if p.ClinicID == clinicID && strings.EqualFold(p.Email, email) {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakePatientRepo) Update(_ context.Context, p *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.patients[p.ID]
	if !ok || existing.ClinicID != p.ClinicID {
		return repository.ErrNotFound
	}
	clone := *p
	r.patients[p.ID] = &clone
	return nil
}

func (r *fakePatientRepo) Delete(_ context.Context, clinicID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok || p.ClinicID != clinicID {
		return repository.ErrNotFound
	}
	delete(r.patients, id)
	return nil
}

func (r *fakePatientRepo) List(_ context.Context, clinicID uuid.UUID, _ *model.PatientFilters) ([]*model.Patient, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Patient
	for _, p := range r.patients {
		if p.ClinicID == clinicID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, len(out), nil
}

// stored returns the raw row as persisted, bypassing the service.
func (r *fakePatientRepo) stored(id uuid.UUID) *model.Patient {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.patients[id]
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	tenant  []*model.AuditLog
	global  []*model.AuditLog
	failAll bool
}

func (r *fakeAuditRepo) CreateTenant(_ context.Context, e *model.AuditLog) error {
	if r.failAll {
		return errors.New("audit store down")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenant = append(r.tenant, e)
	return nil
}

func (r *fakeAuditRepo) CreateGlobal(_ context.Context, e *model.AuditLog) error {
	if r.failAll {
		return errors.New("audit store down")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.global = append(r.global, e)
	return nil
}

func (r *fakeAuditRepo) List(context.Context, uuid.UUID, *model.AuditFilters) ([]*model.AuditLog, int, error) {
	return nil, 0, nil
}

func (r *fakeAuditRepo) ListGlobal(context.Context, *model.AuditFilters) ([]*model.AuditLog, int, error) {
	return nil, 0, nil
}

func (r *fakeAuditRepo) Cleanup(context.Context, time.Time) (int64, error) { return 0, nil }

func newTestService(t *testing.T) (*Service, *fakePatientRepo, *fakeAuditRepo) {
	t.Helper()
	repo := newFakePatientRepo()
	auditRepo := &fakeAuditRepo{}
	logger := zerolog.Nop()
	auditor := audit.NewService(auditRepo, &logger, nil)
	encryptor, err := security.NewFieldEncryptor("test-key")
	require.NoError(t, err)
	return NewService(repo, auditor, encryptor, &logger), repo, auditRepo
}

func validCreateRequest() *model.CreatePatientRequest {
	return &model.CreatePatientRequest{
		FirstName:   "Jamie",
		LastName:    "Rivera",
		Email:       "jamie@example.com",
		Phone:       "+15550100",
		DateOfBirth: "1990-04-12",
	}
}

func actor() audit.Actor {
	return audit.Actor{UserID: uuid.New(), IPAddress: "203.0.113.9", UserAgent: "test-agent"}
}

func TestCreateNamesFirstMissingField(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := validCreateRequest()
	req.Phone = ""
	_, err := svc.Create(context.Background(), uuid.New(), actor(), req)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Equal(t, "phone is required", appErr.Message)
}

func TestCreateDuplicateEmailRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	clinicID := uuid.New()

	_, err := svc.Create(context.Background(), clinicID, actor(), validCreateRequest())
	require.NoError(t, err)

	req := validCreateRequest()
	req.Email = "JAMIE@example.com"
	_, err = svc.Create(context.Background(), clinicID, actor(), req)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Equal(t, "patient with this email already exists", appErr.Message)
}

func TestDuplicateEmailRaceLoserRejected(t *testing.T) {
	svc, repo, _ := newTestService(t)
	clinicID := uuid.New()

	// Row appears after the read-then-check, as in a concurrent create;
	// the unique index surfaces it on insert.
	existing := &model.Patient{
		Base:        model.NewBase(),
		ClinicID:    clinicID,
		FirstName:   "First",
		LastName:    "Writer",
		Email:       "jamie@example.com",
		Phone:       "+15550102",
		DateOfBirth: "1985-06-01",
		Status:      model.PatientStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), existing))
	repo.hideFromGetByEmail = true

	_, err := svc.Create(context.Background(), clinicID, actor(), validCreateRequest())
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Equal(t, "patient with this email already exists", appErr.Message)
}

func TestSameEmailAllowedAcrossClinics(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), uuid.New(), actor(), validCreateRequest())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), uuid.New(), actor(), validCreateRequest())
	require.NoError(t, err)
}

func TestInsuranceEncryptedAtRest(t *testing.T) {
	svc, repo, _ := newTestService(t)
	clinicID := uuid.New()

	req := validCreateRequest()
	req.Insurance = &model.InsuranceInfo{
		Provider:     "Acme Health",
		PolicyNumber: "POL-98765",
		GroupNumber:  "GRP-11",
	}

	created, err := svc.Create(context.Background(), clinicID, actor(), req)
	require.NoError(t, err)

	// API response carries plaintext.
	assert.Equal(t, "POL-98765", created.Insurance.PolicyNumber)
	assert.Equal(t, "GRP-11", created.Insurance.GroupNumber)

	// Stored row does not.
	row := repo.stored(created.ID)
	require.NotNil(t, row)
	assert.True(t, security.IsEncrypted(row.Insurance.PolicyNumber))
	assert.True(t, security.IsEncrypted(row.Insurance.GroupNumber))
	assert.NotContains(t, row.Insurance.PolicyNumber, "POL-98765")
	assert.Equal(t, "Acme Health", row.Insurance.Provider, "provider is not sensitive")

	// Reads decrypt.
	got, err := svc.Get(context.Background(), clinicID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "POL-98765", got.Insurance.PolicyNumber)
}

func TestLegacyPlaintextInsurancePassesThrough(t *testing.T) {
	svc, repo, _ := newTestService(t)
	clinicID := uuid.New()

	legacy := &model.Patient{
		Base:        model.NewBase(),
		ClinicID:    clinicID,
		FirstName:   "Old",
		LastName:    "Row",
		Email:       "old@example.com",
		Phone:       "+15550101",
		DateOfBirth: "1980-01-01",
		Status:      model.PatientStatusActive,
		Insurance:   model.InsuranceInfo{PolicyNumber: "PLAIN-123"},
	}
	require.NoError(t, repo.Create(context.Background(), legacy))

	got, err := svc.Get(context.Background(), clinicID, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, "PLAIN-123", got.Insurance.PolicyNumber)
}

func TestTenantIsolation(t *testing.T) {
	svc, _, _ := newTestService(t)
	clinicA := uuid.New()
	clinicB := uuid.New()

	created, err := svc.Create(context.Background(), clinicA, actor(), validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), clinicB, created.ID)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)

	err = svc.Delete(context.Background(), clinicB, created.ID, actor())
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)

	// Still reachable from its own clinic.
	_, err = svc.Get(context.Background(), clinicA, created.ID)
	assert.NoError(t, err)
}

func TestCreateWritesAuditToBothTargets(t *testing.T) {
	svc, _, auditRepo := newTestService(t)
	clinicID := uuid.New()
	who := actor()

	created, err := svc.Create(context.Background(), clinicID, who, validCreateRequest())
	require.NoError(t, err)

	require.Len(t, auditRepo.tenant, 1)
	require.Len(t, auditRepo.global, 1)
	entry := auditRepo.tenant[0]
	assert.Equal(t, clinicID, entry.ClinicID)
	assert.Equal(t, who.UserID, entry.UserID)
	assert.Equal(t, model.AuditActionCreate, entry.Action)
	assert.Equal(t, "patient", entry.Resource)
	assert.Equal(t, created.ID.String(), entry.ResourceID)
	assert.Equal(t, "203.0.113.9", entry.IPAddress)
	assert.True(t, entry.Success)
}

func TestAuditFailureDoesNotFailOperation(t *testing.T) {
	svc, _, auditRepo := newTestService(t)
	auditRepo.failAll = true

	_, err := svc.Create(context.Background(), uuid.New(), actor(), validCreateRequest())
	assert.NoError(t, err, "audit writes are best-effort")
}

func TestUpdateIgnoresAbsentFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	clinicID := uuid.New()

	created, err := svc.Create(context.Background(), clinicID, actor(), validCreateRequest())
	require.NoError(t, err)

	newPhone := "+15550199"
	updated, err := svc.Update(context.Background(), clinicID, created.ID, actor(), &model.UpdatePatientRequest{
		Phone: &newPhone,
	})
	require.NoError(t, err)
	assert.Equal(t, newPhone, updated.Phone)
	assert.Equal(t, created.FirstName, updated.FirstName)
	assert.Equal(t, created.Email, updated.Email)
}
