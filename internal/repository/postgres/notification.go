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

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, clinic_id, user_id, channel, recipient, subject, content, status,
	retry_count, last_error, next_retry_at, sent_at, created_at, updated_at, deleted_at`

func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	query := `
		INSERT INTO notifications (id, clinic_id, user_id, channel, recipient, subject, content, status,
			retry_count, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	notification.CreatedAt = time.Now()
	notification.UpdatedAt = notification.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		notification.ID,
		notification.ClinicID,
		notification.UserID,
		notification.Channel,
		notification.Recipient,
		notification.Subject,
		notification.Content,
		notification.Status,
		notification.RetryCount,
		notification.LastError,
		notification.CreatedAt,
		notification.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", translateError(err))
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1 AND deleted_at IS NULL`
	var notification model.Notification
	if err := r.db.GetContext(ctx, &notification, query, id); err != nil {
		return nil, translateError(err)
	}
	return &notification, nil
}

func (r *notificationRepository) Update(ctx context.Context, notification *model.Notification) error {
	query := `
		UPDATE notifications
		SET status = $1, retry_count = $2, last_error = $3, next_retry_at = $4, sent_at = $5, updated_at = $6
		WHERE id = $7 AND deleted_at IS NULL
	`
	notification.UpdatedAt = time.Now()
	res, err := r.db.ExecContext(ctx, query,
		notification.Status,
		notification.RetryCount,
		notification.LastError,
		notification.NextRetryAt,
		notification.SentAt,
		notification.UpdatedAt,
		notification.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", translateError(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *notificationRepository) ListDueRetries(ctx context.Context, now time.Time, limit int) ([]*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE status = $1 AND next_retry_at IS NOT NULL AND next_retry_at <= $2 AND deleted_at IS NULL
		ORDER BY next_retry_at LIMIT $3`
	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, model.NotificationStatusRetrying, now, limit); err != nil {
		return nil, fmt.Errorf("failed to list due retries: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) List(ctx context.Context, clinicID uuid.UUID, p *model.Pagination) ([]*model.Notification, int, error) {
	p.Normalize()

	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM notifications WHERE clinic_id = $1 AND deleted_at IS NULL", clinicID); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE clinic_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, clinicID, p.PageSize, p.Offset()); err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}
