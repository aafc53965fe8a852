package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

const patientColumns = `id, clinic_id, first_name, last_name, email, phone, date_of_birth, gender, address, notes,
	status, insurance_provider, insurance_policy_number, insurance_group_number, created_by,
	created_at, updated_at, deleted_at`

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (id, clinic_id, first_name, last_name, email, phone, date_of_birth, gender, address,
			notes, status, insurance_provider, insurance_policy_number, insurance_group_number, created_by,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.ClinicID,
		patient.FirstName,
		patient.LastName,
		patient.Email,
		patient.Phone,
		patient.DateOfBirth,
		patient.Gender,
		patient.Address,
		patient.Notes,
		patient.Status,
		patient.Insurance.Provider,
		patient.Insurance.PolicyNumber,
		patient.Insurance.GroupNumber,
		patient.CreatedBy,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", translateError(err))
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE clinic_id = $1 AND id = $2 AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, clinicID, id))
}

func (r *patientRepository) GetByEmail(ctx context.Context, clinicID uuid.UUID, email string) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients
		WHERE clinic_id = $1 AND lower(email) = lower($2) AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRowContext(ctx, query, clinicID, email))
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET first_name = $1, last_name = $2, email = $3, phone = $4, date_of_birth = $5, gender = $6,
			address = $7, notes = $8, status = $9, insurance_provider = $10, insurance_policy_number = $11,
			insurance_group_number = $12, updated_at = $13
		WHERE clinic_id = $14 AND id = $15 AND deleted_at IS NULL
	`
	patient.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, query,
		patient.FirstName,
		patient.LastName,
		patient.Email,
		patient.Phone,
		patient.DateOfBirth,
		patient.Gender,
		patient.Address,
		patient.Notes,
		patient.Status,
		patient.Insurance.Provider,
		patient.Insurance.PolicyNumber,
		patient.Insurance.GroupNumber,
		patient.UpdatedAt,
		patient.ClinicID,
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", translateError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *patientRepository) Delete(ctx context.Context, clinicID, id uuid.UUID) error {
	query := `UPDATE patients SET deleted_at = $1 WHERE clinic_id = $2 AND id = $3 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, time.Now(), clinicID, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *patientRepository) List(ctx context.Context, clinicID uuid.UUID, filters *model.PatientFilters) ([]*model.Patient, int, error) {
	filters.Normalize()

	where := "WHERE clinic_id = $1 AND deleted_at IS NULL"
	args := []interface{}{clinicID}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.Search != "" {
		args = append(args, filters.Search+"%")
		where += fmt.Sprintf(" AND lower(email) LIKE lower($%d)", len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM patients "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	args = append(args, filters.PageSize, filters.Offset())
	query := fmt.Sprintf(`SELECT `+patientColumns+` FROM patients %s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var patients []*model.Patient
	for rows.Next() {
		p, err := r.scanOne(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *patientRepository) scanOne(row rowScanner) (*model.Patient, error) {
	var p model.Patient
	err := row.Scan(
		&p.ID,
		&p.ClinicID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.Phone,
		&p.DateOfBirth,
		&p.Gender,
		&p.Address,
		&p.Notes,
		&p.Status,
		&p.Insurance.Provider,
		&p.Insurance.PolicyNumber,
		&p.Insurance.GroupNumber,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan patient: %w", err)
	}
	return &p, nil
}
