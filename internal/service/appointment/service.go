package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/service/audit"
	"github.com/medbook/booking-api/pkg/errors"
)

// Notifier delivers appointment notifications. Delivery is best-effort
// and never blocks the booking itself.
type Notifier interface {
	NotifyAppointment(ctx context.Context, event string, appointment *model.Appointment)
}

type Service struct {
	repo        repository.AppointmentRepository
	patientRepo repository.PatientRepository
	userRepo    repository.UserRepository
	auditor     *audit.Service
	notifier    Notifier
	logger      *zerolog.Logger
}

func NewService(
	repo repository.AppointmentRepository,
	patientRepo repository.PatientRepository,
	userRepo repository.UserRepository,
	auditor *audit.Service,
	notifier Notifier,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		patientRepo: patientRepo,
		userRepo:    userRepo,
		auditor:     auditor,
		notifier:    notifier,
		logger:      logger,
	}
}

func (s *Service) Create(ctx context.Context, clinicID uuid.UUID, actor audit.Actor, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, errors.BadRequest("invalid patient ID", err)
	}
	staffID, err := uuid.Parse(req.StaffID)
	if err != nil {
		return nil, errors.BadRequest("invalid staff ID", err)
	}

	if _, err := s.patientRepo.Get(ctx, clinicID, patientID); err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("patient", err)
		}
		return nil, errors.Internal(err)
	}

	staff, err := s.userRepo.Get(ctx, staffID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("staff member", err)
		}
		return nil, errors.Internal(err)
	}
	if staff.ClinicID == nil || *staff.ClinicID != clinicID {
		return nil, errors.NotFound("staff member", nil)
	}

	if err := s.checkOverlap(ctx, clinicID, staffID, req.StartTime, req.EndTime, uuid.Nil); err != nil {
		return nil, err
	}

	appointment := &model.Appointment{
		Base:      model.NewBase(),
		ClinicID:  clinicID,
		PatientID: patientID,
		StaffID:   staffID,
		Type:      req.Type,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Status:    model.AppointmentStatusScheduled,
		Notes:     req.Notes,
		CreatedBy: actor.UserID,
	}

	if err := s.repo.Create(ctx, appointment); err != nil {
		return nil, errors.Internal(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ClinicID:   clinicID,
		UserID:     actor.UserID,
		Action:     model.AuditActionCreate,
		Resource:   "appointment",
		ResourceID: appointment.ID.String(),
		Details:    fmt.Sprintf("booked %s appointment at %s", appointment.Type, appointment.StartTime.Format("2006-01-02 15:04")),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})

	if s.notifier != nil {
		s.notifier.NotifyAppointment(ctx, "appointment.created", appointment)
	}
	return appointment, nil
}

func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, clinicID, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("appointment", err)
		}
		return nil, errors.Internal(err)
	}
	return appointment, nil
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	appointments, total, err := s.repo.List(ctx, clinicID, filters)
	if err != nil {
		return nil, 0, errors.Internal(err)
	}
	return appointments, total, nil
}

func (s *Service) Update(ctx context.Context, clinicID, id uuid.UUID, actor audit.Actor, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, clinicID, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("appointment", err)
		}
		return nil, errors.Internal(err)
	}

	cancelled := false
	if req.Status != nil {
		next := model.AppointmentStatus(*req.Status)
		if next != appointment.Status {
			if !appointment.Status.CanTransitionTo(next) {
				return nil, errors.BadRequest(
					fmt.Sprintf("cannot change appointment from %s to %s", appointment.Status, next), nil)
			}
			appointment.Status = next
			cancelled = next == model.AppointmentStatusCancelled
		}
	}
	if req.CancelReason != nil {
		appointment.CancelReason = req.CancelReason
	}
	if req.Notes != nil {
		appointment.Notes = *req.Notes
	}

	if req.StartTime != nil || req.EndTime != nil {
		start := appointment.StartTime
		end := appointment.EndTime
		if req.StartTime != nil {
			start = *req.StartTime
		}
		if req.EndTime != nil {
			end = *req.EndTime
		}
		if !end.After(start) {
			return nil, errors.BadRequest("end time must be after start time", nil)
		}
		if err := s.checkOverlap(ctx, clinicID, appointment.StaffID, start, end, appointment.ID); err != nil {
			return nil, err
		}
		appointment.StartTime = start
		appointment.EndTime = end
	}

	if err := s.repo.Update(ctx, appointment); err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("appointment", err)
		}
		return nil, errors.Internal(err)
	}

	details := ""
	if cancelled && appointment.CancelReason != nil {
		details = fmt.Sprintf("cancelled: %s", *appointment.CancelReason)
	}
	s.auditor.Log(ctx, audit.Entry{
		ClinicID:   clinicID,
		UserID:     actor.UserID,
		Action:     model.AuditActionUpdate,
		Resource:   "appointment",
		ResourceID: appointment.ID.String(),
		Details:    details,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})

	if cancelled && s.notifier != nil {
		s.notifier.NotifyAppointment(ctx, "appointment.cancelled", appointment)
	}
	return appointment, nil
}

func (s *Service) Delete(ctx context.Context, clinicID, id uuid.UUID, actor audit.Actor) error {
	if err := s.repo.Delete(ctx, clinicID, id); err != nil {
		if err == repository.ErrNotFound {
			return errors.NotFound("appointment", err)
		}
		return errors.Internal(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ClinicID:   clinicID,
		UserID:     actor.UserID,
		Action:     model.AuditActionDelete,
		Resource:   "appointment",
		ResourceID: id.String(),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})
	return nil
}

// checkOverlap rejects bookings that intersect an active appointment
// for the same staff member. This is advisory under concurrency; two
// simultaneous bookings can both pass, which is accepted for now.
func (s *Service) checkOverlap(ctx context.Context, clinicID, staffID uuid.UUID, start, end time.Time, exclude uuid.UUID) error {
	count, err := s.repo.CountOverlapping(ctx, clinicID, staffID, start, end, exclude)
	if err != nil {
		return errors.Internal(err)
	}
	if count > 0 {
		return errors.Conflict("staff member already has an appointment in this time slot", nil)
	}
	return nil
}
