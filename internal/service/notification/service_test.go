package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
)

type fakeNotificationRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*model.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{rows: make(map[uuid.UUID]*model.Notification)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *n
	r.rows[n.ID] = &clone
	return nil
}

func (r *fakeNotificationRepo) Get(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *n
	return &clone, nil
}

func (r *fakeNotificationRepo) Update(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[n.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *n
	r.rows[n.ID] = &clone
	return nil
}

func (r *fakeNotificationRepo) List(_ context.Context, clinicID uuid.UUID, _ *model.Pagination) ([]*model.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Notification
	for _, n := range r.rows {
		if n.ClinicID == clinicID {
			clone := *n
			out = append(out, &clone)
		}
	}
	return out, len(out), nil
}

func (r *fakeNotificationRepo) ListDueRetries(_ context.Context, now time.Time, limit int) ([]*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Notification
	for _, n := range r.rows {
		if n.Status == model.NotificationStatusRetrying && n.NextRetryAt != nil && !n.NextRetryAt.After(now) {
			clone := *n
			out = append(out, &clone)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// flakySender fails the first failures deliveries, then succeeds.
type flakySender struct {
	failures int
	calls    int
}

func (s *flakySender) Send(to, subject, body string) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("smtp connection refused")
	}
	return nil
}

type fakeBroker struct {
	published []string
}

func (b *fakeBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	b.published = append(b.published, channel)
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }
func (b *fakeBroker) Close() error                                            { return nil }

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func (r *fakePatientRepo) Create(context.Context, *model.Patient) error { return nil }
func (r *fakePatientRepo) Get(_ context.Context, clinicID, id uuid.UUID) (*model.Patient, error) {
	p, ok := r.patients[id]
	if !ok || p.ClinicID != clinicID {
		return nil, repository.ErrNotFound
	}
	return p, nil
}
func (r *fakePatientRepo) GetByEmail(context.Context, uuid.UUID, string) (*model.Patient, error) {
	return nil, repository.ErrNotFound
}
func (r *fakePatientRepo) Update(context.Context, *model.Patient) error       { return nil }
func (r *fakePatientRepo) Delete(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (r *fakePatientRepo) List(context.Context, uuid.UUID, *model.PatientFilters) ([]*model.Patient, int, error) {
	return nil, 0, nil
}

func newNotificationService(sender *flakySender) (*Service, *fakeNotificationRepo, *fakeBroker) {
	repo := newFakeNotificationRepo()
	broker := &fakeBroker{}
	logger := zerolog.Nop()
	svc := NewService(repo, &fakePatientRepo{}, sender, broker, nil, &logger)
	return svc, repo, broker
}

func emailRequest() *model.SendNotificationRequest {
	return &model.SendNotificationRequest{
		Channel:   model.NotificationChannelEmail,
		Recipient: "patient@example.com",
		Subject:   "Appointment reminder",
		Content:   "See you tomorrow.",
	}
}

func TestSendEmailSuccess(t *testing.T) {
	svc, repo, _ := newNotificationService(&flakySender{})

	n, err := svc.Send(context.Background(), uuid.New(), uuid.New(), emailRequest())
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusSent, n.Status)
	require.NotNil(t, n.SentAt)
	assert.Zero(t, n.RetryCount)

	stored, err := repo.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusSent, stored.Status)
}

func TestSendFailureQueuesRetry(t *testing.T) {
	svc, _, _ := newNotificationService(&flakySender{failures: 10})

	n, err := svc.Send(context.Background(), uuid.New(), uuid.New(), emailRequest())
	require.NoError(t, err, "delivery failure does not fail the call")
	assert.Equal(t, model.NotificationStatusRetrying, n.Status)
	assert.Equal(t, 1, n.RetryCount)
	assert.Equal(t, "smtp connection refused", n.LastError)
	require.NotNil(t, n.NextRetryAt)
	assert.True(t, n.NextRetryAt.After(time.Now()))
}

func TestRetryBackoffDoubles(t *testing.T) {
	svc, repo, _ := newNotificationService(&flakySender{failures: 10})

	n, err := svc.Send(context.Background(), uuid.New(), uuid.New(), emailRequest())
	require.NoError(t, err)
	first := n.NextRetryAt.Sub(time.Now())

	// Force the retry due now and run the sweep.
	past := time.Now().Add(-time.Second)
	n.NextRetryAt = &past
	require.NoError(t, repo.Update(context.Background(), n))

	attempted, err := svc.ProcessRetries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)

	stored, err := repo.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.RetryCount)
	second := stored.NextRetryAt.Sub(time.Now())
	assert.Greater(t, second, first, "backoff grows with each attempt")
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	svc, repo, _ := newNotificationService(&flakySender{failures: 10})

	n, err := svc.Send(context.Background(), uuid.New(), uuid.New(), emailRequest())
	require.NoError(t, err)

	for i := 0; i < maxRetries; i++ {
		stored, err := repo.Get(context.Background(), n.ID)
		require.NoError(t, err)
		if stored.Status != model.NotificationStatusRetrying {
			break
		}
		past := time.Now().Add(-time.Second)
		stored.NextRetryAt = &past
		require.NoError(t, repo.Update(context.Background(), stored))
		_, err = svc.ProcessRetries(context.Background())
		require.NoError(t, err)
	}

	stored, err := repo.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusFailed, stored.Status)
	assert.Equal(t, maxRetries, stored.RetryCount)
	assert.Nil(t, stored.NextRetryAt)
}

func TestRetrySucceedsEventually(t *testing.T) {
	sender := &flakySender{failures: 1}
	svc, repo, _ := newNotificationService(sender)

	n, err := svc.Send(context.Background(), uuid.New(), uuid.New(), emailRequest())
	require.NoError(t, err)
	require.Equal(t, model.NotificationStatusRetrying, n.Status)

	past := time.Now().Add(-time.Second)
	n.NextRetryAt = &past
	require.NoError(t, repo.Update(context.Background(), n))

	_, err = svc.ProcessRetries(context.Background())
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusSent, stored.Status)
	assert.Empty(t, stored.LastError)
}

func TestInAppPublishesToBroker(t *testing.T) {
	svc, _, broker := newNotificationService(&flakySender{})

	n, err := svc.Send(context.Background(), uuid.New(), uuid.New(), &model.SendNotificationRequest{
		Channel:   model.NotificationChannelInApp,
		Recipient: "user",
		Content:   "Your appointment was confirmed.",
	})
	require.NoError(t, err)
	assert.Equal(t, model.NotificationStatusSent, n.Status)
	assert.Equal(t, []string{BrokerChannel}, broker.published)
}

func TestNotifyAppointmentEmailsPatient(t *testing.T) {
	clinicID := uuid.New()
	patient := &model.Patient{Base: model.NewBase(), ClinicID: clinicID, FirstName: "Jamie", Email: "jamie@example.com"}

	repo := newFakeNotificationRepo()
	sender := &flakySender{}
	logger := zerolog.Nop()
	svc := NewService(repo, &fakePatientRepo{patients: map[uuid.UUID]*model.Patient{patient.ID: patient}},
		sender, &fakeBroker{}, nil, &logger)

	appointment := &model.Appointment{
		Base:      model.NewBase(),
		ClinicID:  clinicID,
		PatientID: patient.ID,
		StartTime: time.Now().Add(24 * time.Hour),
	}
	svc.NotifyAppointment(context.Background(), "appointment.cancelled", appointment)

	assert.Equal(t, 1, sender.calls)
	rows, total, err := repo.List(context.Background(), clinicID, nil)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "Your appointment has been cancelled", rows[0].Subject)
}
