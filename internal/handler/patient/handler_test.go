package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/booking-api/internal/handler"
	"github.com/medbook/booking-api/internal/middleware"
	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/rbac"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/service/audit"
	patientsvc "github.com/medbook/booking-api/internal/service/patient"
	"github.com/medbook/booking-api/pkg/security"
)

// stubValidator resolves tokens from a fixed table, standing in for the
// JWT service.
type stubValidator struct {
	tokens map[string]*model.TokenClaims
}

func (v *stubValidator) Validate(token string) (*model.TokenClaims, error) {
	claims, ok := v.tokens[token]
	if !ok {
		return nil, fmt.Errorf("unknown token")
	}
	return claims, nil
}

type memPatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func (r *memPatientRepo) Create(_ context.Context, p *model.Patient) error {
	clone := *p
	r.patients[p.ID] = &clone
	return nil
}

func (r *memPatientRepo) Get(_ context.Context, clinicID, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.patients[id]
	if !ok || p.ClinicID != clinicID {
		return nil, repository.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *memPatientRepo) GetByEmail(_ context.Context, clinicID uuid.UUID, email string) (*model.Patient, error) {
	for _, p := range r.patients {
		if p.ClinicID == clinicID && strings.EqualFold(p.Email, email) {
			clone := *p
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memPatientRepo) Update(_ context.Context, p *model.Patient) error {
	if _, ok := r.patients[p.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *p
	r.patients[p.ID] = &clone
	return nil
}

func (r *memPatientRepo) Delete(_ context.Context, clinicID, id uuid.UUID) error {
	p, ok := r.patients[id]
	if !ok || p.ClinicID != clinicID {
		return repository.ErrNotFound
	}
	delete(r.patients, id)
	return nil
}

func (r *memPatientRepo) List(_ context.Context, clinicID uuid.UUID, _ *model.PatientFilters) ([]*model.Patient, int, error) {
	var out []*model.Patient
	for _, p := range r.patients {
		if p.ClinicID == clinicID {
			clone := *p
			out = append(out, &clone)
		}
	}
	return out, len(out), nil
}

type nopAuditRepo struct{}

func (nopAuditRepo) CreateTenant(context.Context, *model.AuditLog) error { return nil }
func (nopAuditRepo) CreateGlobal(context.Context, *model.AuditLog) error { return nil }
func (nopAuditRepo) List(context.Context, uuid.UUID, *model.AuditFilters) ([]*model.AuditLog, int, error) {
	return nil, 0, nil
}
func (nopAuditRepo) ListGlobal(context.Context, *model.AuditFilters) ([]*model.AuditLog, int, error) {
	return nil, 0, nil
}
func (nopAuditRepo) Cleanup(context.Context, time.Time) (int64, error) { return 0, nil }

type testAPI struct {
	engine   *gin.Engine
	clinicID uuid.UUID
}

// newTestAPI builds the real middleware chain around the patient routes:
// authentication, tenant resolution and the permission guard, with a
// stub token table. Tokens: "receptionist", "doctor" (same clinic),
// "root" (super admin).
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clinicID := uuid.New()
	validator := &stubValidator{tokens: map[string]*model.TokenClaims{
		"receptionist": {UserID: uuid.New(), Email: "r@c.test", Role: rbac.RoleReceptionist, ClinicID: &clinicID},
		"doctor":       {UserID: uuid.New(), Email: "d@c.test", Role: rbac.RoleMedicalStaff, ClinicID: &clinicID},
		"root":         {UserID: uuid.New(), Email: "root@c.test", Role: rbac.RoleSuperAdmin},
	}}

	logger := zerolog.Nop()
	auditor := audit.NewService(nopAuditRepo{}, &logger, nil)
	encryptor, err := security.NewFieldEncryptor("test-key")
	require.NoError(t, err)
	svc := patientsvc.NewService(&memPatientRepo{patients: make(map[uuid.UUID]*model.Patient)}, auditor, encryptor, &logger)

	authMW := middleware.NewAuthMiddleware(validator)
	engine := gin.New()
	api := engine.Group("/api/v1")
	api.Use(authMW.Authenticate())
	api.Use(middleware.ResolveTenant())
	NewHandler(svc).RegisterRoutes(api, handler.PermissionFunc(authMW.RequirePermission))

	return &testAPI{engine: engine, clinicID: clinicID}
}

func (a *testAPI) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Message
}

const validPatientBody = `{
	"first_name": "Jamie",
	"last_name": "Rivera",
	"email": "jamie@example.com",
	"phone": "+15550100",
	"date_of_birth": "1990-04-12"
}`

func TestCreatePatientHTTP(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/patients", "receptionist", validPatientBody)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreatePatientDuplicateEmailHTTP(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/patients", "receptionist", validPatientBody)
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/patients", "receptionist", validPatientBody)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "patient with this email already exists", message(t, w))
}

func TestCreatePatientRequiresToken(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/patients", "", validPatientBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/patients", "expired-token", validPatientBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreatePatientMissingFieldNamed(t *testing.T) {
	api := newTestAPI(t)

	body := `{"first_name": "Jamie", "last_name": "Rivera", "email": "jamie@example.com", "date_of_birth": "1990-04-12"}`
	w := api.do(t, http.MethodPost, "/api/v1/patients", "receptionist", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "phone is required", message(t, w))
}

func TestCreatePatientBadDateFormat(t *testing.T) {
	api := newTestAPI(t)

	body := strings.Replace(validPatientBody, "1990-04-12", "12/04/1990", 1)
	w := api.do(t, http.MethodPost, "/api/v1/patients", "receptionist", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, message(t, w), "date_of_birth")
}

func TestMedicalStaffCannotCreatePatient(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/patients", "doctor", validPatientBody)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "permission denied", message(t, w))
}

func TestCrossClinicQueryForbidden(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/patients?clinic_id="+uuid.NewString(), "receptionist", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "access to this clinic is denied", message(t, w))
}

func TestSuperAdminNeedsExplicitClinic(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/patients", "root", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "clinic ID required", message(t, w))

	w = api.do(t, http.MethodGet, "/api/v1/patients?clinic_id="+api.clinicID.String(), "root", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
