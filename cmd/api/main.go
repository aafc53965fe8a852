package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medbook/booking-api/config"
	"github.com/medbook/booking-api/internal/email"
	"github.com/medbook/booking-api/internal/handler"
	appointmenthandler "github.com/medbook/booking-api/internal/handler/appointment"
	audithandler "github.com/medbook/booking-api/internal/handler/audit"
	authhandler "github.com/medbook/booking-api/internal/handler/auth"
	clinichandler "github.com/medbook/booking-api/internal/handler/clinic"
	exporthandler "github.com/medbook/booking-api/internal/handler/export"
	notificationhandler "github.com/medbook/booking-api/internal/handler/notification"
	patienthandler "github.com/medbook/booking-api/internal/handler/patient"
	staffhandler "github.com/medbook/booking-api/internal/handler/staff"
	"github.com/medbook/booking-api/internal/middleware"
	"github.com/medbook/booking-api/internal/repository/postgres"
	"github.com/medbook/booking-api/internal/router"
	appointmentsvc "github.com/medbook/booking-api/internal/service/appointment"
	auditsvc "github.com/medbook/booking-api/internal/service/audit"
	authsvc "github.com/medbook/booking-api/internal/service/auth"
	clinicsvc "github.com/medbook/booking-api/internal/service/clinic"
	exportsvc "github.com/medbook/booking-api/internal/service/export"
	notificationsvc "github.com/medbook/booking-api/internal/service/notification"
	patientsvc "github.com/medbook/booking-api/internal/service/patient"
	staffsvc "github.com/medbook/booking-api/internal/service/staff"
	pkgauth "github.com/medbook/booking-api/pkg/auth"
	"github.com/medbook/booking-api/pkg/logger"
	redisbroker "github.com/medbook/booking-api/pkg/messaging/redis"
	"github.com/medbook/booking-api/pkg/metrics"
	"github.com/medbook/booking-api/pkg/security"
)

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

	if !cfg.IsProduction() {
		if cfg.JWT.Secret == "" {
			log.Warn().Msg("jwt secret not configured, using insecure development default")
			cfg.JWT.Secret = "dev-only-secret"
			cfg.JWT.RefreshSecret = "dev-only-refresh-secret"
		}
		if cfg.Encryption.Key == "" {
			log.Warn().Msg("encryption key not configured, using insecure development default")
			cfg.Encryption.Key = "dev-only-encryption-key"
		}
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

	encryptor, err := security.NewFieldEncryptor(cfg.Encryption.Key)
	if err != nil {
		log.Fatal().Err(err).Msg("encryption setup failed")
	}

	m := metrics.NewMetrics("medbook", "api")
	hasher := security.NewBcryptHasher(0)
	jwtService := pkgauth.NewJWTService(cfg.JWT)
	sender := email.NewSMTPSender(cfg.Email)

	clinicRepo := postgres.NewClinicRepository(db)
	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	auditor := auditsvc.NewService(auditRepo, log, m)
	authService := authsvc.NewService(userRepo, jwtService, hasher,
		time.Duration(cfg.JWT.ExpiryHours)*time.Hour, auditor, log)
	clinicService := clinicsvc.NewService(clinicRepo, userRepo, hasher, auditor, log)
	patientService := patientsvc.NewService(patientRepo, auditor, encryptor, log)
	notificationService := notificationsvc.NewService(notificationRepo, patientRepo, sender, broker, m, log)
	appointmentService := appointmentsvc.NewService(appointmentRepo, patientRepo, userRepo,
		auditor, notificationService, log)
	staffService := staffsvc.NewService(userRepo, hasher, auditor, log)
	exportService := exportsvc.NewService(patientRepo, appointmentRepo, encryptor, auditor, log)

	authMW := middleware.NewAuthMiddleware(authService)

	engine := router.New(
		router.Config{
			Mode:           cfg.Server.Mode,
			RequestTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			RateLimit:      cfg.Server.RateLimit,
			RateBurst:      cfg.Server.RateBurst,
		},
		router.Handlers{
			Base:         handler.NewHandler(db),
			Auth:         authhandler.NewHandler(authService, clinicService),
			Clinic:       clinichandler.NewHandler(clinicService),
			Patient:      patienthandler.NewHandler(patientService),
			Appointment:  appointmenthandler.NewHandler(appointmentService),
			Staff:        staffhandler.NewHandler(staffService),
			Audit:        audithandler.NewHandler(auditor),
			Notification: notificationhandler.NewHandler(notificationService),
			Export:       exporthandler.NewHandler(exportService),
		},
		authMW, m, log,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: engine,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
