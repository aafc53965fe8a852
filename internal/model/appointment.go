package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// CanTransitionTo reports whether a status change is legal. Cancelled
// and completed are terminal.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentStatusScheduled:
		return next == AppointmentStatusConfirmed ||
			next == AppointmentStatusCancelled ||
			next == AppointmentStatusCompleted
	case AppointmentStatusConfirmed:
		return next == AppointmentStatusCancelled ||
			next == AppointmentStatusCompleted
	}
	return false
}

type Appointment struct {
	Base
	ClinicID     uuid.UUID         `db:"clinic_id" json:"clinic_id"`
	PatientID    uuid.UUID         `db:"patient_id" json:"patient_id"`
	StaffID      uuid.UUID         `db:"staff_id" json:"staff_id"`
	Type         string            `db:"type" json:"type"`
	StartTime    time.Time         `db:"start_time" json:"start_time"`
	EndTime      time.Time         `db:"end_time" json:"end_time"`
	Status       AppointmentStatus `db:"status" json:"status"`
	Notes        string            `db:"notes" json:"notes,omitempty"`
	CancelReason *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedBy    uuid.UUID         `db:"created_by" json:"created_by"`
}

type CreateAppointmentRequest struct {
	ClinicID  string    `json:"clinic_id"`
	PatientID string    `json:"patient_id" binding:"required,uuid"`
	StaffID   string    `json:"staff_id" binding:"required,uuid"`
	Type      string    `json:"type" binding:"required,oneof=regular followup emergency"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
	Notes     string    `json:"notes" binding:"max=1000"`
}

type UpdateAppointmentRequest struct {
	StartTime    *time.Time `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	Status       *string    `json:"status" binding:"omitempty,oneof=scheduled confirmed cancelled completed"`
	Notes        *string    `json:"notes" binding:"omitempty,max=1000"`
	CancelReason *string    `json:"cancel_reason"`
}

type AppointmentFilters struct {
	PatientID string `form:"patient_id"`
	StaffID   string `form:"staff_id"`
	Status    string `form:"status"`
	From      string `form:"from"`
	To        string `form:"to"`
	Pagination
}
