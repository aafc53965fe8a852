package clinic

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/rbac"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/service/audit"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/security"
)

type Service struct {
	repo    repository.ClinicRepository
	users   repository.UserRepository
	hasher  security.PasswordHasher
	auditor *audit.Service
	logger  *zerolog.Logger
}

func NewService(
	repo repository.ClinicRepository,
	users repository.UserRepository,
	hasher security.PasswordHasher,
	auditor *audit.Service,
	logger *zerolog.Logger,
) *Service {
	return &Service{repo: repo, users: users, hasher: hasher, auditor: auditor, logger: logger}
}

// Signup provisions a new tenant: the clinic and its owner account are
// created together or not at all.
func (s *Service) Signup(ctx context.Context, req *model.SignupRequest, actor audit.Actor) (*model.Clinic, *model.User, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, nil, errors.Conflict("an account with this email already exists", nil)
	} else if err != repository.ErrNotFound {
		return nil, nil, errors.Internal(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, nil, errors.Internal(err)
	}

	clinic := &model.Clinic{
		Base:   model.NewBase(),
		Name:   req.ClinicName,
		Email:  req.Email,
		Phone:  req.Phone,
		Plan:   model.PlanFree,
		Status: model.ClinicStatusActive,
	}
	owner := &model.User{
		Base:         model.NewBase(),
		ClinicID:     &clinic.ID,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         rbac.RoleClinicOwner,
		Status:       model.UserStatusActive,
	}

	if err := s.repo.CreateWithOwner(ctx, clinic, owner); err != nil {
		if err == repository.ErrDuplicate {
			return nil, nil, errors.Conflict("an account with this email already exists", nil)
		}
		return nil, nil, errors.Internal(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ClinicID:   clinic.ID,
		UserID:     owner.ID,
		Action:     model.AuditActionCreate,
		Resource:   "clinic",
		ResourceID: clinic.ID.String(),
		Details:    fmt.Sprintf("clinic %q signed up", clinic.Name),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})
	return clinic, owner, nil
}

// Create registers a clinic without an owner. Super admin only; used
// when the owner account is provisioned separately.
func (s *Service) Create(ctx context.Context, actor audit.Actor, req *model.CreateClinicRequest) (*model.Clinic, error) {
	clinic := &model.Clinic{
		Base:    model.NewBase(),
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Plan:    model.PlanFree,
		Status:  model.ClinicStatusActive,
	}
	if req.Plan != "" {
		clinic.Plan = model.SubscriptionPlan(req.Plan)
	}

	if err := s.repo.Create(ctx, clinic); err != nil {
		if err == repository.ErrDuplicate {
			return nil, errors.Conflict("clinic with this email already exists", nil)
		}
		return nil, errors.Internal(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ClinicID:   clinic.ID,
		UserID:     actor.UserID,
		Action:     model.AuditActionCreate,
		Resource:   "clinic",
		ResourceID: clinic.ID.String(),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})
	return clinic, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	clinic, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("clinic", err)
		}
		return nil, errors.Internal(err)
	}
	return clinic, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, actor audit.Actor, req *model.UpdateClinicRequest) (*model.Clinic, error) {
	clinic, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("clinic", err)
		}
		return nil, errors.Internal(err)
	}

	if req.Name != nil {
		clinic.Name = *req.Name
	}
	if req.Email != nil {
		clinic.Email = *req.Email
	}
	if req.Phone != nil {
		clinic.Phone = *req.Phone
	}
	if req.Address != nil {
		clinic.Address = *req.Address
	}
	if len(req.BusinessHours) > 0 {
		clinic.BusinessHours = req.BusinessHours
	}
	if req.Plan != nil {
		clinic.Plan = model.SubscriptionPlan(*req.Plan)
	}
	if req.Status != nil {
		clinic.Status = model.ClinicStatus(*req.Status)
	}

	if err := s.repo.Update(ctx, clinic); err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("clinic", err)
		}
		return nil, errors.Internal(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ClinicID:   clinic.ID,
		UserID:     actor.UserID,
		Action:     model.AuditActionUpdate,
		Resource:   "clinic",
		ResourceID: clinic.ID.String(),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})
	return clinic, nil
}

func (s *Service) List(ctx context.Context, filters *model.ClinicFilters) ([]*model.Clinic, int, error) {
	clinics, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, errors.Internal(err)
	}
	return clinics, total, nil
}
