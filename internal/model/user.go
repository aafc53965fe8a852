package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/rbac"
)

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusPending  = "pending"
	UserStatusLocked   = "locked"
)

// User represents a staff member or administrator. Role is the sole
// authorization input; ClinicID is nil only for super admins.
type User struct {
	Base
	ClinicID         *uuid.UUID `json:"clinic_id,omitempty" db:"clinic_id"`
	Email            string     `json:"email" db:"email"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	FirstName        string     `json:"first_name" db:"first_name"`
	LastName         string     `json:"last_name" db:"last_name"`
	Phone            string     `json:"phone" db:"phone"`
	Role             rbac.Role  `json:"role" db:"role"`
	Status           string     `json:"status" db:"status"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	LoginAttempts    int        `json:"-" db:"login_attempts"`
	LastLoginAttempt time.Time  `json:"-" db:"last_login_attempt"`
}

type CreateUserRequest struct {
	ClinicID  string `json:"clinic_id"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone"`
	Role      string `json:"role" binding:"required,oneof=CLINIC_OWNER ADMIN MEDICAL_STAFF RECEPTIONIST"`
}

type UpdateUserRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Role      *string `json:"role" binding:"omitempty,oneof=CLINIC_OWNER ADMIN MEDICAL_STAFF RECEPTIONIST"`
	Status    *string `json:"status" binding:"omitempty,oneof=active inactive pending locked"`
}

type UserFilters struct {
	Role   string `form:"role"`
	Status string `form:"status"`
	Pagination
}
