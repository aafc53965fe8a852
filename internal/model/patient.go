package model

import "github.com/google/uuid"

type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "active"
	PatientStatusInactive PatientStatus = "inactive"
)

// InsuranceInfo holds the patient's coverage details. Policy and group
// numbers are encrypted at rest; the service layer converts between
// plaintext and stored form.
type InsuranceInfo struct {
	Provider     string `db:"insurance_provider" json:"provider,omitempty"`
	PolicyNumber string `db:"insurance_policy_number" json:"policy_number,omitempty"`
	GroupNumber  string `db:"insurance_group_number" json:"group_number,omitempty"`
}

type Patient struct {
	Base
	ClinicID    uuid.UUID     `db:"clinic_id" json:"clinic_id"`
	FirstName   string        `db:"first_name" json:"first_name"`
	LastName    string        `db:"last_name" json:"last_name"`
	Email       string        `db:"email" json:"email"`
	Phone       string        `db:"phone" json:"phone"`
	DateOfBirth string        `db:"date_of_birth" json:"date_of_birth"`
	Gender      string        `db:"gender" json:"gender,omitempty"`
	Address     string        `db:"address" json:"address,omitempty"`
	Notes       string        `db:"notes" json:"notes,omitempty"`
	Status      PatientStatus `db:"status" json:"status"`
	Insurance   InsuranceInfo `db:"insurance" json:"insurance,omitempty"`
	CreatedBy   uuid.UUID     `db:"created_by" json:"created_by"`
}

// CreatePatientRequest carries the caller-supplied fields. Required
// fields are validated by name in the service so the 400 response can
// identify the missing one.
type CreatePatientRequest struct {
	ClinicID    string         `json:"clinic_id"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Email       string         `json:"email" binding:"omitempty,email"`
	Phone       string         `json:"phone"`
	DateOfBirth string         `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Gender      string         `json:"gender"`
	Address     string         `json:"address"`
	Notes       string         `json:"notes"`
	Insurance   *InsuranceInfo `json:"insurance"`
}

// UpdatePatientRequest uses pointer fields so absent keys leave values
// untouched. Server-managed fields (id, clinic_id, created_at,
// created_by) are structurally absent and cannot be tampered with.
type UpdatePatientRequest struct {
	FirstName   *string        `json:"first_name"`
	LastName    *string        `json:"last_name"`
	Email       *string        `json:"email" binding:"omitempty,email"`
	Phone       *string        `json:"phone"`
	DateOfBirth *string        `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Gender      *string        `json:"gender"`
	Address     *string        `json:"address"`
	Notes       *string        `json:"notes"`
	Status      *string        `json:"status" binding:"omitempty,oneof=active inactive"`
	Insurance   *InsuranceInfo `json:"insurance"`
}

type PatientFilters struct {
	Status string `form:"status"`
	Search string `form:"search"`
	Pagination
}
