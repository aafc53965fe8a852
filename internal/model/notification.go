package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationStatusPending  NotificationStatus = "pending"
	NotificationStatusSent     NotificationStatus = "sent"
	NotificationStatusFailed   NotificationStatus = "failed"
	NotificationStatusRetrying NotificationStatus = "retrying"
)

const (
	NotificationChannelEmail = "email"
	NotificationChannelSMS   = "sms"
	NotificationChannelInApp = "in_app"
)

type Notification struct {
	Base
	ClinicID    uuid.UUID          `db:"clinic_id" json:"clinic_id"`
	UserID      uuid.UUID          `db:"user_id" json:"user_id"`
	Channel     string             `db:"channel" json:"channel"`
	Recipient   string             `db:"recipient" json:"recipient"`
	Subject     string             `db:"subject" json:"subject,omitempty"`
	Content     string             `db:"content" json:"content"`
	Status      NotificationStatus `db:"status" json:"status"`
	RetryCount  int                `db:"retry_count" json:"retry_count"`
	LastError   string             `db:"last_error" json:"last_error,omitempty"`
	NextRetryAt *time.Time         `db:"next_retry_at" json:"next_retry_at,omitempty"`
	SentAt      *time.Time         `db:"sent_at" json:"sent_at,omitempty"`
}

type SendNotificationRequest struct {
	ClinicID  string `json:"clinic_id"`
	UserID    string `json:"user_id"`
	Channel   string `json:"channel" binding:"required,oneof=email sms in_app"`
	Recipient string `json:"recipient" binding:"required"`
	Subject   string `json:"subject"`
	Content   string `json:"content" binding:"required"`
}

// NotificationEvent is published to the in-app channel via the message
// broker.
type NotificationEvent struct {
	ID             uuid.UUID `json:"id"`
	NotificationID uuid.UUID `json:"notification_id"`
	ClinicID       uuid.UUID `json:"clinic_id"`
	UserID         uuid.UUID `json:"user_id"`
	Type           string    `json:"type"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
