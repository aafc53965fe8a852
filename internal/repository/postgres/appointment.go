package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
)

type appointmentRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

const appointmentColumns = `id, clinic_id, patient_id, staff_id, type, start_time, end_time, status, notes,
	cancel_reason, created_by, created_at, updated_at, deleted_at`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (id, clinic_id, patient_id, staff_id, type, start_time, end_time, status,
			notes, cancel_reason, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.ClinicID,
		appointment.PatientID,
		appointment.StaffID,
		appointment.Type,
		appointment.StartTime,
		appointment.EndTime,
		appointment.Status,
		appointment.Notes,
		appointment.CancelReason,
		appointment.CreatedBy,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", translateError(err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE clinic_id = $1 AND id = $2 AND deleted_at IS NULL`
	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, clinicID, id); err != nil {
		return nil, translateError(err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET start_time = $1, end_time = $2, status = $3, notes = $4, cancel_reason = $5, updated_at = $6
		WHERE clinic_id = $7 AND id = $8 AND deleted_at IS NULL
	`
	appointment.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, query,
		appointment.StartTime,
		appointment.EndTime,
		appointment.Status,
		appointment.Notes,
		appointment.CancelReason,
		appointment.UpdatedAt,
		appointment.ClinicID,
		appointment.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", translateError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	query := `UPDATE appointments SET deleted_at = $1 WHERE clinic_id = $2 AND id = $3 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, time.Now(), clinicID, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, clinicID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	filters.Normalize()

	where := "WHERE clinic_id = $1 AND deleted_at IS NULL"
	args := []interface{}{clinicID}
	if filters.PatientID != "" {
		args = append(args, filters.PatientID)
		where += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if filters.StaffID != "" {
		args = append(args, filters.StaffID)
		where += fmt.Sprintf(" AND staff_id = $%d", len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.From != "" {
		args = append(args, filters.From)
		where += fmt.Sprintf(" AND start_time >= $%d", len(args))
	}
	if filters.To != "" {
		args = append(args, filters.To)
		where += fmt.Sprintf(" AND start_time <= $%d", len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM appointments "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	args = append(args, filters.PageSize, filters.Offset())
	query := fmt.Sprintf(`SELECT `+appointmentColumns+` FROM appointments %s ORDER BY start_time LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, total, nil
}

func (r *appointmentRepository) CountOverlapping(ctx context.Context, clinicID, staffID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE clinic_id = $1 AND staff_id = $2
		  AND status IN ('scheduled', 'confirmed')
		  AND start_time < $3 AND end_time > $4
		  AND id <> $5
		  AND deleted_at IS NULL
	`
	var count int
	if err := r.db.GetContext(ctx, &count, query, clinicID, staffID, end, start, exclude); err != nil {
		return 0, fmt.Errorf("failed to count overlapping appointments: %w", err)
	}
	return count, nil
}

func (r *appointmentRepository) ListStartingBetween(ctx context.Context, from, to time.Time) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE start_time >= $1 AND start_time < $2
		  AND status IN ('scheduled', 'confirmed')
		  AND deleted_at IS NULL
		ORDER BY start_time`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}
	return appointments, nil
}
