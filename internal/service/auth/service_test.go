package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/rbac"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/service/audit"
	pkgauth "github.com/medbook/booking-api/pkg/auth"
	apperrors "github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/security"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) List(context.Context, uuid.UUID, *model.UserFilters) ([]*model.User, int, error) {
	return nil, 0, nil
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

func newAuthService(t *testing.T) (*Service, *fakeUserRepo, *model.User) {
	t.Helper()
	repo := newFakeUserRepo()
	logger := zerolog.Nop()
	auditor := audit.NewService(nopAuditRepo{}, &logger, nil)
	jwt := pkgauth.NewJWTService(pkgauth.Config{
		Secret:        "access-secret",
		RefreshSecret: "refresh-secret",
		ExpiryHours:   1,
		RefreshHours:  2,
	})
	hasher := security.NewBcryptHasher(4)

	hash, err := hasher.Hash("correct horse")
	require.NoError(t, err)
	clinicID := uuid.New()
	user := &model.User{
		Base:         model.NewBase(),
		ClinicID:     &clinicID,
		Email:        "staff@example.com",
		PasswordHash: hash,
		Role:         rbac.RoleReceptionist,
		Status:       model.UserStatusActive,
	}
	require.NoError(t, repo.Create(context.Background(), user))

	return NewService(repo, jwt, hasher, time.Hour, auditor, &logger), repo, user
}

func login(svc *Service, email, password string) (*model.TokenResponse, error) {
	tokens, _, err := svc.Login(context.Background(), &model.LoginRequest{Email: email, Password: password}, audit.Actor{})
	return tokens, err
}

func TestLoginSuccess(t *testing.T) {
	svc, _, _ := newAuthService(t)

	tokens, err := login(svc, "staff@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	claims, err := svc.Validate(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleReceptionist, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := login(svc, "staff@example.com", "wrong")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
	assert.Equal(t, "invalid credentials", appErr.Message)
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := login(svc, "nobody@example.com", "whatever")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	// Must not reveal whether the account exists.
	assert.Equal(t, "invalid credentials", appErr.Message)
}

func TestLoginDisabledAccount(t *testing.T) {
	svc, repo, user := newAuthService(t)
	user.Status = model.UserStatusInactive
	require.NoError(t, repo.Update(context.Background(), user))

	_, err := login(svc, "staff@example.com", "correct horse")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
	assert.Equal(t, "account is disabled", appErr.Message)
}

func TestLockoutAfterRepeatedFailures(t *testing.T) {
	svc, _, _ := newAuthService(t)

	for i := 0; i < maxLoginAttempts; i++ {
		_, err := login(svc, "staff@example.com", "wrong")
		require.Error(t, err)
	}

	// Correct password is now rejected too.
	_, err := login(svc, "staff@example.com", "correct horse")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
	assert.Equal(t, "account temporarily locked, try again later", appErr.Message)
}

func TestLockoutExpires(t *testing.T) {
	svc, repo, user := newAuthService(t)
	user.LoginAttempts = maxLoginAttempts
	user.LastLoginAttempt = time.Now().Add(-lockoutWindow - time.Minute)
	require.NoError(t, repo.Update(context.Background(), user))

	_, err := login(svc, "staff@example.com", "correct horse")
	assert.NoError(t, err)
}

func TestSuccessfulLoginResetsAttempts(t *testing.T) {
	svc, repo, user := newAuthService(t)

	_, err := login(svc, "staff@example.com", "wrong")
	require.Error(t, err)

	_, err = login(svc, "staff@example.com", "correct horse")
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.LoginAttempts)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLogoutRevokesTokens(t *testing.T) {
	svc, _, user := newAuthService(t)

	tokens, err := login(svc, "staff@example.com", "correct horse")
	require.NoError(t, err)

	claims, err := svc.Validate(tokens.AccessToken)
	require.NoError(t, err)

	svc.Logout(context.Background(), tokens.AccessToken, tokens.RefreshToken, claims, audit.Actor{UserID: user.ID})

	_, err = svc.Validate(tokens.AccessToken)
	assert.ErrorIs(t, err, pkgauth.ErrInvalidToken)

	_, err = svc.Refresh(context.Background(), tokens.RefreshToken)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}

func TestRefreshIssuesNewTokens(t *testing.T) {
	svc, _, _ := newAuthService(t)

	tokens, err := login(svc, "staff@example.com", "correct horse")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Validate(refreshed.AccessToken)
	assert.NoError(t, err)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc, _, _ := newAuthService(t)

	tokens, err := login(svc, "staff@example.com", "correct horse")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), tokens.AccessToken)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}
