package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/medbook/booking-api/config"
	"github.com/medbook/booking-api/internal/email"
	"github.com/medbook/booking-api/internal/repository/postgres"
	auditsvc "github.com/medbook/booking-api/internal/service/audit"
	notificationsvc "github.com/medbook/booking-api/internal/service/notification"
	"github.com/medbook/booking-api/internal/worker"
	"github.com/medbook/booking-api/pkg/logger"
	redisbroker "github.com/medbook/booking-api/pkg/messaging/redis"
	"github.com/medbook/booking-api/pkg/metrics"
	"github.com/medbook/booking-api/pkg/security"
)

// The worker binary runs the scheduled jobs: appointment reminders,
// notification retries and audit retention.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logCfg := &logger.Config{
		Level:      logger.InfoLevel,
		Pretty:     cfg.Log.Pretty,
		TimeFormat: time.RFC3339,
	}
	if cfg.Log.Level == "debug" {
		logCfg.Level = logger.DebugLevel
	}
	log := logger.NewLogger(logCfg).Zerolog()

	if !cfg.IsProduction() && cfg.Encryption.Key == "" {
		cfg.Encryption.Key = "dev-only-encryption-key"
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{URL: cfg.Redis.URL}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer broker.Close()

	m := metrics.NewMetrics("medbook", "worker")
	sender := email.NewSMTPSender(cfg.Email)

	if _, err := security.NewFieldEncryptor(cfg.Encryption.Key); err != nil {
		log.Fatal().Err(err).Msg("encryption setup failed")
	}

	patientRepo := postgres.NewPatientRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	auditor := auditsvc.NewService(auditRepo, log, m)
	notificationService := notificationsvc.NewService(notificationRepo, patientRepo, sender, broker, m, log)

	reminders := worker.NewReminderWorker(appointmentRepo, notificationService,
		time.Duration(cfg.Reminders.LeadHours)*time.Hour, log)
	auditCleanup := worker.NewAuditCleanupWorker(auditor, cfg.Audit.RetentionDays, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cron.New()

	if _, err := scheduler.AddFunc(cfg.Reminders.Schedule, func() {
		if err := reminders.Run(ctx); err != nil {
			log.Error().Err(err).Msg("reminder run failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("invalid reminder schedule")
	}

	if _, err := scheduler.AddFunc("*/5 * * * *", func() {
		attempted, err := notificationService.ProcessRetries(ctx)
		if err != nil {
			log.Error().Err(err).Msg("notification retry run failed")
			return
		}
		if attempted > 0 {
			log.Info().Int("attempted", attempted).Msg("notification retries processed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("invalid retry schedule")
	}

	if _, err := scheduler.AddFunc("0 3 * * *", func() {
		if err := auditCleanup.Run(ctx); err != nil {
			log.Error().Err(err).Msg("audit cleanup failed")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("invalid cleanup schedule")
	}

	scheduler.Start()
	log.Info().
		Str("reminder_schedule", cfg.Reminders.Schedule).
		Msg("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	cancel()
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		log.Warn().Msg("jobs still running at shutdown deadline")
	}
	log.Info().Msg("worker stopped")
}
