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

// auditRepository writes entries to two tables: clinic_audit_logs
// (tenant-scoped queries) and audit_logs (global mirror for super
// admins). The two inserts are independent statements with no shared
// transaction.
type auditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) repository.AuditRepository {
	return &auditRepository{db: db}
}

const auditColumns = `id, clinic_id, user_id, action, resource, resource_id, details, metadata,
	ip_address, user_agent, success, created_at`

func (r *auditRepository) CreateTenant(ctx context.Context, entry *model.AuditLog) error {
	return r.insert(ctx, "clinic_audit_logs", entry)
}

func (r *auditRepository) CreateGlobal(ctx context.Context, entry *model.AuditLog) error {
	return r.insert(ctx, "audit_logs", entry)
}

func (r *auditRepository) insert(ctx context.Context, table string, entry *model.AuditLog) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (`+auditColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, table)

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ClinicID,
		entry.UserID,
		entry.Action,
		entry.Resource,
		entry.ResourceID,
		entry.Details,
		nullableJSON(entry.Metadata),
		entry.IPAddress,
		entry.UserAgent,
		entry.Success,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write audit entry to %s: %w", table, err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, clinicID uuid.UUID, filters *model.AuditFilters) ([]*model.AuditLog, int, error) {
	return r.list(ctx, "clinic_audit_logs", &clinicID, filters)
}

func (r *auditRepository) ListGlobal(ctx context.Context, filters *model.AuditFilters) ([]*model.AuditLog, int, error) {
	return r.list(ctx, "audit_logs", nil, filters)
}

func (r *auditRepository) list(ctx context.Context, table string, clinicID *uuid.UUID, filters *model.AuditFilters) ([]*model.AuditLog, int, error) {
	filters.Normalize()

	where := "WHERE 1=1"
	args := []interface{}{}
	if clinicID != nil {
		args = append(args, *clinicID)
		where += fmt.Sprintf(" AND clinic_id = $%d", len(args))
	}
	if filters.UserID != "" {
		args = append(args, filters.UserID)
		where += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filters.Action != "" {
		args = append(args, filters.Action)
		where += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filters.Resource != "" {
		args = append(args, filters.Resource)
		where += fmt.Sprintf(" AND resource = $%d", len(args))
	}
	if filters.ResourceID != "" {
		args = append(args, filters.ResourceID)
		where += fmt.Sprintf(" AND resource_id = $%d", len(args))
	}
	if filters.From != "" {
		args = append(args, filters.From)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filters.To != "" {
		args = append(args, filters.To)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM %s %s", table, where), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	args = append(args, filters.PageSize, filters.Offset())
	query := fmt.Sprintf(`SELECT `+auditColumns+` FROM %s %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		table, where, len(args)-1, len(args))

	var logs []*model.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return logs, total, nil
}

func (r *auditRepository) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	for _, table := range []string{"clinic_audit_logs", "audit_logs"} {
		res, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE created_at < $1", table), before)
		if err != nil {
			return total, fmt.Errorf("failed to clean up %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
