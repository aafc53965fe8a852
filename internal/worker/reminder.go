package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/service/notification"
)

// ReminderWorker emails patients ahead of upcoming appointments. Each
// run covers one window; runs are scheduled hourly so with a 24h lead
// time the window is [now+24h, now+25h) and no appointment is reminded
// twice.
type ReminderWorker struct {
	appointments repository.AppointmentRepository
	notifier     *notification.Service
	leadTime     time.Duration
	window       time.Duration
	logger       *zerolog.Logger
}

func NewReminderWorker(
	appointments repository.AppointmentRepository,
	notifier *notification.Service,
	leadTime time.Duration,
	logger *zerolog.Logger,
) *ReminderWorker {
	if leadTime <= 0 {
		leadTime = 24 * time.Hour
	}
	return &ReminderWorker{
		appointments: appointments,
		notifier:     notifier,
		leadTime:     leadTime,
		window:       time.Hour,
		logger:       logger,
	}
}

// Run processes one reminder window. Individual failures are logged and
// skipped so one bad row does not starve the rest.
func (w *ReminderWorker) Run(ctx context.Context) error {
	from := time.Now().Add(w.leadTime)
	to := from.Add(w.window)

	upcoming, err := w.appointments.ListStartingBetween(ctx, from, to)
	if err != nil {
		return err
	}

	sent := 0
	for _, appointment := range upcoming {
		if err := w.notifier.SendReminder(ctx, appointment); err != nil {
			w.logger.Warn().Err(err).
				Str("appointment_id", appointment.ID.String()).
				Msg("reminder failed")
			continue
		}
		sent++
	}

	w.logger.Info().
		Int("upcoming", len(upcoming)).
		Int("sent", sent).
		Time("window_start", from).
		Msg("reminder run finished")
	return nil
}
