package model

import (
	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/rbac"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenClaims is the authenticated caller identity extracted from a
// session token. Role and clinic id are claims, not lookups.
type TokenClaims struct {
	UserID   uuid.UUID  `json:"user_id"`
	Email    string     `json:"email"`
	Role     rbac.Role  `json:"role"`
	ClinicID *uuid.UUID `json:"clinic_id,omitempty"`
}
