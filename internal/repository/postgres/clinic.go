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

type clinicRepository struct {
	db *sqlx.DB
}

func NewClinicRepository(db *sqlx.DB) repository.ClinicRepository {
	return &clinicRepository{db: db}
}

func (r *clinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	query := `
		INSERT INTO clinics (id, name, email, phone, address, business_hours, plan, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	clinic.CreatedAt = time.Now()
	clinic.UpdatedAt = clinic.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		clinic.ID,
		clinic.Name,
		clinic.Email,
		clinic.Phone,
		clinic.Address,
		nullableJSON(clinic.BusinessHours),
		clinic.Plan,
		clinic.Status,
		clinic.CreatedAt,
		clinic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create clinic: %w", translateError(err))
	}
	return nil
}

func (r *clinicRepository) CreateWithOwner(ctx context.Context, clinic *model.Clinic, owner *model.User) error {
	base := NewBaseRepository(r.db)
	return base.WithTx(ctx, func(tx *sqlx.Tx) error {
		now := time.Now()
		clinic.CreatedAt = now
		clinic.UpdatedAt = now
		owner.CreatedAt = now
		owner.UpdatedAt = now

		_, err := tx.ExecContext(ctx, `
			INSERT INTO clinics (id, name, email, phone, address, business_hours, plan, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			clinic.ID, clinic.Name, clinic.Email, clinic.Phone, clinic.Address,
			nullableJSON(clinic.BusinessHours), clinic.Plan, clinic.Status,
			clinic.CreatedAt, clinic.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create clinic: %w", translateError(err))
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO users (id, clinic_id, email, password_hash, first_name, last_name, phone, role, status,
				login_attempts, last_login_attempt, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`,
			owner.ID, owner.ClinicID, owner.Email, owner.PasswordHash,
			owner.FirstName, owner.LastName, owner.Phone, owner.Role, owner.Status,
			owner.LoginAttempts, owner.LastLoginAttempt, owner.CreatedAt, owner.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create clinic owner: %w", translateError(err))
		}
		return nil
	})
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	query := `
		SELECT id, name, email, phone, address, business_hours, plan, status, created_at, updated_at, deleted_at
		FROM clinics WHERE id = $1 AND deleted_at IS NULL
	`
	var clinic model.Clinic
	if err := r.db.GetContext(ctx, &clinic, query, id); err != nil {
		return nil, translateError(err)
	}
	return &clinic, nil
}

func (r *clinicRepository) Update(ctx context.Context, clinic *model.Clinic) error {
	query := `
		UPDATE clinics
		SET name = $1, email = $2, phone = $3, address = $4, business_hours = $5, plan = $6, status = $7, updated_at = $8
		WHERE id = $9 AND deleted_at IS NULL
	`
	clinic.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, query,
		clinic.Name,
		clinic.Email,
		clinic.Phone,
		clinic.Address,
		nullableJSON(clinic.BusinessHours),
		clinic.Plan,
		clinic.Status,
		clinic.UpdatedAt,
		clinic.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update clinic: %w", translateError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *clinicRepository) List(ctx context.Context, filters *model.ClinicFilters) ([]*model.Clinic, int, error) {
	filters.Normalize()

	where := "WHERE deleted_at IS NULL"
	args := []interface{}{}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.SearchTerm != "" {
		args = append(args, "%"+filters.SearchTerm+"%")
		where += fmt.Sprintf(" AND name ILIKE $%d", len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM clinics "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count clinics: %w", err)
	}

	args = append(args, filters.PageSize, filters.Offset())
	query := fmt.Sprintf(`
		SELECT id, name, email, phone, address, business_hours, plan, status, created_at, updated_at, deleted_at
		FROM clinics %s ORDER BY name LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	var clinics []*model.Clinic
	if err := r.db.SelectContext(ctx, &clinics, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list clinics: %w", err)
	}
	return clinics, total, nil
}
