package model

import "encoding/json"

type ClinicStatus string

const (
	ClinicStatusActive    ClinicStatus = "active"
	ClinicStatusSuspended ClinicStatus = "suspended"
)

// SubscriptionPlan is the clinic's billing tier.
type SubscriptionPlan string

const (
	PlanFree         SubscriptionPlan = "free"
	PlanProfessional SubscriptionPlan = "professional"
	PlanEnterprise   SubscriptionPlan = "enterprise"
)

// Clinic is the tenant: the root of all data scoping. Clinics are never
// hard-deleted; suspension keeps historical rows reachable.
type Clinic struct {
	Base
	Name          string           `db:"name" json:"name"`
	Email         string           `db:"email" json:"email"`
	Phone         string           `db:"phone" json:"phone"`
	Address       string           `db:"address" json:"address"`
	BusinessHours json.RawMessage  `db:"business_hours" json:"business_hours,omitempty"`
	Plan          SubscriptionPlan `db:"plan" json:"plan"`
	Status        ClinicStatus     `db:"status" json:"status"`
}

type CreateClinicRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"required"`
	Address string `json:"address"`
	Plan    string `json:"plan" binding:"omitempty,oneof=free professional enterprise"`
}

type UpdateClinicRequest struct {
	Name          *string `json:"name"`
	Email         *string `json:"email" binding:"omitempty,email"`
	Phone         *string `json:"phone"`
	Address       *string `json:"address"`
	BusinessHours json.RawMessage `json:"business_hours"`
	Plan          *string `json:"plan" binding:"omitempty,oneof=free professional enterprise"`
	Status        *string `json:"status" binding:"omitempty,oneof=active suspended"`
}

// SignupRequest creates a clinic together with its owner account.
type SignupRequest struct {
	ClinicName string `json:"clinic_name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	FirstName  string `json:"first_name" binding:"required"`
	LastName   string `json:"last_name" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
}

type ClinicFilters struct {
	Status     string `form:"status"`
	SearchTerm string `form:"search"`
	Pagination
}
