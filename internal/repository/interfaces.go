package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/booking-api/internal/model"
)

// Common repository errors. Postgres implementations translate driver
// errors into these so services stay storage-agnostic.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate record")
)

type ClinicRepository interface {
	Create(ctx context.Context, clinic *model.Clinic) error
	// CreateWithOwner inserts the clinic and its owner account in one
	// transaction; a clinic must never exist without an owner.
	CreateWithOwner(ctx context.Context, clinic *model.Clinic, owner *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
	Update(ctx context.Context, clinic *model.Clinic) error
	List(ctx context.Context, filters *model.ClinicFilters) ([]*model.Clinic, int, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, clinicID uuid.UUID, filters *model.UserFilters) ([]*model.User, int, error)
}

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error)
	GetByEmail(ctx context.Context, clinicID uuid.UUID, email string) (*model.Patient, error)
	Update(ctx context.Context, patient *model.Patient) error
	Delete(ctx context.Context, clinicID, id uuid.UUID) error
	List(ctx context.Context, clinicID uuid.UUID, filters *model.PatientFilters) ([]*model.Patient, int, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Appointment, error)
	Update(ctx context.Context, appointment *model.Appointment) error
	Delete(ctx context.Context, clinicID, id uuid.UUID) error
	List(ctx context.Context, clinicID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, int, error)
	// CountOverlapping returns active appointments for the staff member
	// intersecting [start, end), excluding the given appointment id.
	CountOverlapping(ctx context.Context, clinicID, staffID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error)
	// ListStartingBetween returns non-cancelled appointments beginning
	// in the window, for reminder dispatch.
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]*model.Appointment, error)
}

type AuditRepository interface {
	CreateTenant(ctx context.Context, entry *model.AuditLog) error
	CreateGlobal(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, clinicID uuid.UUID, filters *model.AuditFilters) ([]*model.AuditLog, int, error)
	ListGlobal(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, int, error)
	Cleanup(ctx context.Context, before time.Time) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	Update(ctx context.Context, notification *model.Notification) error
	List(ctx context.Context, clinicID uuid.UUID, p *model.Pagination) ([]*model.Notification, int, error)
	// ListDueRetries returns failed notifications whose next retry time
	// has passed, oldest first.
	ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*model.Notification, error)
}
