package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/booking-api/internal/email"
	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/messaging"
	"github.com/medbook/booking-api/pkg/metrics"
)

// BrokerChannel carries in-app notification events to connected
// clients.
const BrokerChannel = "notifications"

const (
	maxRetries   = 3
	retryBackoff = time.Minute
)

type Service struct {
	repo     repository.NotificationRepository
	patients repository.PatientRepository
	sender   email.Sender
	broker   messaging.Broker
	metrics  *metrics.Metrics
	logger   *zerolog.Logger
}

func NewService(
	repo repository.NotificationRepository,
	patients repository.PatientRepository,
	sender email.Sender,
	broker messaging.Broker,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		sender:   sender,
		broker:   broker,
		metrics:  m,
		logger:   logger,
	}
}

// Send persists the notification and attempts immediate delivery.
// Delivery failures do not fail the call; the row is queued for retry.
func (s *Service) Send(ctx context.Context, clinicID, userID uuid.UUID, req *model.SendNotificationRequest) (*model.Notification, error) {
	notification := &model.Notification{
		Base:      model.NewBase(),
		ClinicID:  clinicID,
		UserID:    userID,
		Channel:   req.Channel,
		Recipient: req.Recipient,
		Subject:   req.Subject,
		Content:   req.Content,
		Status:    model.NotificationStatusPending,
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, errors.Internal(err)
	}

	s.attempt(ctx, notification)
	return notification, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	notification, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("notification", err)
		}
		return nil, errors.Internal(err)
	}
	return notification, nil
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, p *model.Pagination) ([]*model.Notification, int, error) {
	notifications, total, err := s.repo.List(ctx, clinicID, p)
	if err != nil {
		return nil, 0, errors.Internal(err)
	}
	return notifications, total, nil
}

// attempt delivers once and records the outcome.
func (s *Service) attempt(ctx context.Context, n *model.Notification) {
	err := s.deliver(ctx, n)
	now := time.Now()

	if err == nil {
		n.Status = model.NotificationStatusSent
		n.SentAt = &now
		n.LastError = ""
		n.NextRetryAt = nil
		if s.metrics != nil {
			s.metrics.NotificationsSent.WithLabelValues(n.Channel).Inc()
		}
	} else {
		n.RetryCount++
		n.LastError = err.Error()
		if n.RetryCount >= maxRetries {
			n.Status = model.NotificationStatusFailed
			n.NextRetryAt = nil
		} else {
			n.Status = model.NotificationStatusRetrying
			next := now.Add(retryBackoff << (n.RetryCount - 1))
			n.NextRetryAt = &next
		}
		if s.metrics != nil {
			s.metrics.NotificationsFailed.WithLabelValues(n.Channel).Inc()
		}
		s.logger.Warn().Err(err).
			Str("notification_id", n.ID.String()).
			Str("channel", n.Channel).
			Int("retry_count", n.RetryCount).
			Msg("notification delivery failed")
	}

	if err := s.repo.Update(ctx, n); err != nil {
		s.logger.Error().Err(err).
			Str("notification_id", n.ID.String()).
			Msg("failed to record notification outcome")
	}
}

func (s *Service) deliver(ctx context.Context, n *model.Notification) error {
	switch n.Channel {
	case model.NotificationChannelEmail:
		return s.sender.Send(n.Recipient, n.Subject, n.Content)
	case model.NotificationChannelInApp:
		event := model.NotificationEvent{
			ID:             uuid.New(),
			NotificationID: n.ID,
			ClinicID:       n.ClinicID,
			UserID:         n.UserID,
			Type:           "notification",
			Content:        n.Content,
			CreatedAt:      time.Now(),
		}
		return s.broker.Publish(ctx, BrokerChannel, event)
	case model.NotificationChannelSMS:
		// No SMS provider is wired up yet. TODO: plug in the gateway
		// once the account is provisioned.
		s.logger.Info().
			Str("recipient", n.Recipient).
			Msg("sms delivery skipped, no provider configured")
		return nil
	default:
		return fmt.Errorf("unknown notification channel %q", n.Channel)
	}
}

// ProcessRetries re-attempts failed deliveries whose backoff elapsed.
// Returns how many were attempted.
func (s *Service) ProcessRetries(ctx context.Context) (int, error) {
	due, err := s.repo.ListDueRetries(ctx, time.Now(), 100)
	if err != nil {
		return 0, err
	}
	for _, n := range due {
		s.attempt(ctx, n)
	}
	return len(due), nil
}

// NotifyAppointment emails the patient about a booking change. Failures
// are logged; the booking itself already succeeded.
func (s *Service) NotifyAppointment(ctx context.Context, event string, appointment *model.Appointment) {
	patient, err := s.patients.Get(ctx, appointment.ClinicID, appointment.PatientID)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("appointment_id", appointment.ID.String()).
			Msg("cannot notify patient")
		return
	}

	var subject, body string
	when := appointment.StartTime.Format("Monday, January 2 at 3:04 PM")
	switch event {
	case "appointment.cancelled":
		subject = "Your appointment has been cancelled"
		body = fmt.Sprintf("Hello %s,<br><br>Your appointment on %s has been cancelled.", patient.FirstName, when)
	default:
		subject = "Your appointment is booked"
		body = fmt.Sprintf("Hello %s,<br><br>Your appointment is scheduled for %s.", patient.FirstName, when)
	}

	if _, err := s.Send(ctx, appointment.ClinicID, appointment.PatientID, &model.SendNotificationRequest{
		Channel:   model.NotificationChannelEmail,
		Recipient: patient.Email,
		Subject:   subject,
		Content:   body,
	}); err != nil {
		s.logger.Warn().Err(err).
			Str("appointment_id", appointment.ID.String()).
			Msg("appointment notification failed")
	}
}

// SendReminder emails the patient ahead of an upcoming appointment.
func (s *Service) SendReminder(ctx context.Context, appointment *model.Appointment) error {
	patient, err := s.patients.Get(ctx, appointment.ClinicID, appointment.PatientID)
	if err != nil {
		return fmt.Errorf("cannot load patient for reminder: %w", err)
	}

	when := appointment.StartTime.Format("Monday, January 2 at 3:04 PM")
	_, err = s.Send(ctx, appointment.ClinicID, appointment.PatientID, &model.SendNotificationRequest{
		Channel:   model.NotificationChannelEmail,
		Recipient: patient.Email,
		Subject:   "Appointment reminder",
		Content:   fmt.Sprintf("Hello %s,<br><br>This is a reminder for your appointment on %s.", patient.FirstName, when),
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.RemindersDispatched.Inc()
	}
	return nil
}
