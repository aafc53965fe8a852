package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/rbac"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// JWTService issues and validates session tokens. Role and clinic id
// travel as claims so authorization needs no extra lookup per request.
type JWTService interface {
	GenerateAccessToken(user *model.User) (string, error)
	GenerateRefreshToken(user *model.User) (string, error)
	ValidateToken(token string) (*model.TokenClaims, error)
	ValidateRefreshToken(token string) (*model.TokenClaims, error)
}

type Config struct {
	Secret        string `mapstructure:"secret"`
	RefreshSecret string `mapstructure:"refresh_secret"`
	ExpiryHours   int    `mapstructure:"expiry_hours"`
	RefreshHours  int    `mapstructure:"refresh_hours"`
}

type jwtService struct {
	cfg Config
}

func NewJWTService(cfg Config) JWTService {
	if cfg.ExpiryHours <= 0 {
		cfg.ExpiryHours = 24
	}
	if cfg.RefreshHours <= 0 {
		cfg.RefreshHours = 24 * 7
	}
	return &jwtService{cfg: cfg}
}

func (s *jwtService) GenerateAccessToken(user *model.User) (string, error) {
	return s.generate(user, s.cfg.Secret, time.Duration(s.cfg.ExpiryHours)*time.Hour)
}

func (s *jwtService) GenerateRefreshToken(user *model.User) (string, error) {
	return s.generate(user, s.cfg.RefreshSecret, time.Duration(s.cfg.RefreshHours)*time.Hour)
}

func (s *jwtService) generate(user *model.User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    string(user.Role),
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	if user.ClinicID != nil {
		claims["clinic_id"] = user.ClinicID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) ValidateToken(token string) (*model.TokenClaims, error) {
	return s.validate(token, s.cfg.Secret)
}

func (s *jwtService) ValidateRefreshToken(token string) (*model.TokenClaims, error) {
	return s.validate(token, s.cfg.RefreshSecret)
}

func (s *jwtService) validate(tokenStr, secret string) (*model.TokenClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userIDStr, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrInvalidToken
	}

	email, _ := claims["email"].(string)
	roleStr, _ := claims["role"].(string)
	role, ok := rbac.ParseRole(roleStr)
	if !ok {
		return nil, ErrInvalidToken
	}

	out := &model.TokenClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
	}
	if clinicStr, ok := claims["clinic_id"].(string); ok && clinicStr != "" {
		clinicID, err := uuid.Parse(clinicStr)
		if err != nil {
			return nil, ErrInvalidToken
		}
		out.ClinicID = &clinicID
	}
	return out, nil
}
