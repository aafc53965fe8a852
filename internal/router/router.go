package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

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
	"github.com/medbook/booking-api/internal/rbac"
	"github.com/medbook/booking-api/pkg/metrics"
)

type Config struct {
	Mode           string
	RequestTimeout time.Duration
	RateLimit      float64
	RateBurst      int
}

type Handlers struct {
	Base         *handler.Handler
	Auth         *authhandler.Handler
	Clinic       *clinichandler.Handler
	Patient      *patienthandler.Handler
	Appointment  *appointmenthandler.Handler
	Staff        *staffhandler.Handler
	Audit        *audithandler.Handler
	Notification *notificationhandler.Handler
	Export       *exporthandler.Handler
}

// New assembles the gin engine: ambient middleware, public endpoints,
// then the authenticated API under /api/v1.
func New(cfg Config, h Handlers, authMW *middleware.AuthMiddleware, m *metrics.Metrics, logger *zerolog.Logger) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 50
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 100
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.ErrorHandler(logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)

	r.GET("/health/live", h.Base.LivenessCheck)
	r.GET("/health/ready", h.Base.ReadinessCheck)
	r.GET("/metrics", h.Base.MetricsHandler)

	api := r.Group("/api/v1")
	api.Use(rateLimiter.RateLimit())

	h.Auth.RegisterPublicRoutes(api)

	protected := api.Group("")
	protected.Use(authMW.Authenticate())

	superOnly := authMW.RequireRole(rbac.RoleSuperAdmin)
	perm := handler.PermissionFunc(authMW.RequirePermission)

	h.Auth.RegisterRoutes(protected)
	h.Clinic.RegisterRoutes(protected, perm, superOnly)
	h.Audit.RegisterGlobalRoutes(protected, superOnly)

	tenantScoped := protected.Group("")
	tenantScoped.Use(middleware.ResolveTenant())

	h.Patient.RegisterRoutes(tenantScoped, perm)
	h.Appointment.RegisterRoutes(tenantScoped, perm)
	h.Staff.RegisterRoutes(tenantScoped, perm)
	h.Audit.RegisterRoutes(tenantScoped, perm)
	h.Notification.RegisterRoutes(tenantScoped, perm)
	h.Export.RegisterRoutes(tenantScoped, perm)

	return r
}
