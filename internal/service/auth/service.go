package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/service/audit"
	pkgauth "github.com/medbook/booking-api/pkg/auth"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/security"
)

const (
	maxLoginAttempts = 5
	lockoutWindow    = 15 * time.Minute
)

// Service handles login, token refresh and logout. Revoked access
// tokens live in an in-memory cache until their natural expiry, after
// which the JWT itself is rejected.
type Service struct {
	users   repository.UserRepository
	jwt     pkgauth.JWTService
	hasher  security.PasswordHasher
	revoked *cache.Cache
	auditor *audit.Service
	logger  *zerolog.Logger
}

func NewService(
	users repository.UserRepository,
	jwt pkgauth.JWTService,
	hasher security.PasswordHasher,
	tokenTTL time.Duration,
	auditor *audit.Service,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		users:   users,
		jwt:     jwt,
		hasher:  hasher,
		revoked: cache.New(tokenTTL, 10*time.Minute),
		auditor: auditor,
		logger:  logger,
	}
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest, actor audit.Actor) (*model.TokenResponse, *model.User, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, nil, errors.Unauthorized("invalid credentials", nil)
		}
		return nil, nil, errors.Internal(err)
	}

	if user.Status == model.UserStatusInactive {
		return nil, nil, errors.Forbidden("account is disabled", nil)
	}

	if s.isLockedOut(user) {
		s.auditLogin(ctx, user, actor, true, "account locked")
		return nil, nil, errors.Forbidden("account temporarily locked, try again later", nil)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		user.LoginAttempts++
		user.LastLoginAttempt = time.Now()
		if err := s.users.Update(ctx, user); err != nil {
			s.logger.Error().Err(err).Msg("failed to record login attempt")
		}
		s.auditLogin(ctx, user, actor, true, "wrong password")
		return nil, nil, errors.Unauthorized("invalid credentials", nil)
	}

	now := time.Now()
	user.LoginAttempts = 0
	user.LastLoginAttempt = now
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Error().Err(err).Msg("failed to record login")
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, errors.Internal(err)
	}

	s.auditLogin(ctx, user, actor, false, "")
	return tokens, user, nil
}

func (s *Service) isLockedOut(user *model.User) bool {
	if user.LoginAttempts < maxLoginAttempts {
		return false
	}
	if time.Since(user.LastLoginAttempt) > lockoutWindow {
		return false
	}
	return true
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.Unauthorized("invalid refresh token", err)
	}
	if _, found := s.revoked.Get(refreshToken); found {
		return nil, errors.Unauthorized("invalid refresh token", nil)
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.Unauthorized("invalid refresh token", err)
		}
		return nil, errors.Internal(err)
	}
	if user.Status != model.UserStatusActive {
		return nil, errors.Forbidden("account is disabled", nil)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return tokens, nil
}

// Logout revokes both tokens of the session. Revocation is in-memory
// and per-instance; tokens still expire on their own.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string, claims *model.TokenClaims, actor audit.Actor) {
	s.revoked.SetDefault(accessToken, struct{}{})
	if refreshToken != "" {
		s.revoked.SetDefault(refreshToken, struct{}{})
	}

	clinicID := uuid.Nil
	if claims.ClinicID != nil {
		clinicID = *claims.ClinicID
	}
	s.auditor.Log(ctx, audit.Entry{
		ClinicID:  clinicID,
		UserID:    claims.UserID,
		Action:    model.AuditActionLogout,
		Resource:  "session",
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})
}

// Validate checks a bearer token for the HTTP layer: signature and
// expiry first, then the revocation list.
func (s *Service) Validate(token string) (*model.TokenClaims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if _, found := s.revoked.Get(token); found {
		return nil, pkgauth.ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) issueTokens(user *model.User) (*model.TokenResponse, error) {
	access, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		return nil, err
	}
	return &model.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) auditLogin(ctx context.Context, user *model.User, actor audit.Actor, failed bool, detail string) {
	clinicID := uuid.Nil
	if user.ClinicID != nil {
		clinicID = *user.ClinicID
	}
	s.auditor.Log(ctx, audit.Entry{
		ClinicID:  clinicID,
		UserID:    user.ID,
		Action:    model.AuditActionLogin,
		Resource:  "session",
		Details:   detail,
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
		Failed:    failed,
	})
}
