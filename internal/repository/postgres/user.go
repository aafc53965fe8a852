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

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) repository.UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, clinic_id, email, password_hash, first_name, last_name, phone, role, status,
	last_login_at, login_attempts, last_login_attempt, created_at, updated_at, deleted_at`

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, clinic_id, email, password_hash, first_name, last_name, phone, role, status,
			login_attempts, last_login_attempt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.ClinicID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Role,
		user.Status,
		user.LoginAttempts,
		user.LastLoginAttempt,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", translateError(err))
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) AND deleted_at IS NULL`
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET email = $1, first_name = $2, last_name = $3, phone = $4, role = $5, status = $6,
			password_hash = $7, last_login_at = $8, login_attempts = $9, last_login_attempt = $10, updated_at = $11
		WHERE id = $12 AND deleted_at IS NULL
	`
	user.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Role,
		user.Status,
		user.PasswordHash,
		user.LastLoginAt,
		user.LoginAttempts,
		user.LastLoginAttempt,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", translateError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, clinicID uuid.UUID, filters *model.UserFilters) ([]*model.User, int, error) {
	filters.Normalize()

	where := "WHERE clinic_id = $1 AND deleted_at IS NULL"
	args := []interface{}{clinicID}
	if filters.Role != "" {
		args = append(args, filters.Role)
		where += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	args = append(args, filters.PageSize, filters.Offset())
	query := fmt.Sprintf(`SELECT `+userColumns+` FROM users %s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}
