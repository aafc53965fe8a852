package staff

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

// Service manages staff accounts within a clinic. Super admin accounts
// are never created here; the role enum on the request forbids it.
type Service struct {
	repo    repository.UserRepository
	hasher  security.PasswordHasher
	auditor *audit.Service
	logger  *zerolog.Logger
}

func NewService(repo repository.UserRepository, hasher security.PasswordHasher, auditor *audit.Service, logger *zerolog.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, auditor: auditor, logger: logger}
}

func (s *Service) Create(ctx context.Context, clinicID uuid.UUID, actor audit.Actor, req *model.CreateUserRequest) (*model.User, error) {
	role, ok := rbac.ParseRole(req.Role)
	if !ok || role == rbac.RoleSuperAdmin {
		return nil, errors.BadRequest("invalid role", nil)
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.Conflict("user with this email already exists", nil)
	} else if err != repository.ErrNotFound {
		return nil, errors.Internal(err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.Internal(err)
	}

	user := &model.User{
		Base:         model.NewBase(),
		ClinicID:     &clinicID,
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         role,
		Status:       model.UserStatusActive,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if err == repository.ErrDuplicate {
			return nil, errors.Conflict("user with this email already exists", nil)
		}
		return nil, errors.Internal(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ClinicID:   clinicID,
		UserID:     actor.UserID,
		Action:     model.AuditActionCreate,
		Resource:   "staff",
		ResourceID: user.ID.String(),
		Details:    fmt.Sprintf("created %s account", user.Role),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})
	return user, nil
}

func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("staff member", err)
		}
		return nil, errors.Internal(err)
	}
	if user.ClinicID == nil || *user.ClinicID != clinicID {
		// Do not reveal that the account exists in another clinic.
		return nil, errors.NotFound("staff member", nil)
	}
	return user, nil
}

func (s *Service) Update(ctx context.Context, clinicID, id uuid.UUID, actor audit.Actor, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.Get(ctx, clinicID, id)
	if err != nil {
		return nil, err
	}

	if req.Email != nil && *req.Email != user.Email {
		if _, err := s.repo.GetByEmail(ctx, *req.Email); err == nil {
			return nil, errors.Conflict("user with this email already exists", nil)
		} else if err != repository.ErrNotFound {
			return nil, errors.Internal(err)
		}
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Role != nil {
		role, ok := rbac.ParseRole(*req.Role)
		if !ok || role == rbac.RoleSuperAdmin {
			return nil, errors.BadRequest("invalid role", nil)
		}
		user.Role = role
	}
	if req.Status != nil {
		user.Status = *req.Status
	}

	if err := s.repo.Update(ctx, user); err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("staff member", err)
		}
		if err == repository.ErrDuplicate {
			return nil, errors.Conflict("user with this email already exists", nil)
		}
		return nil, errors.Internal(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ClinicID:   clinicID,
		UserID:     actor.UserID,
		Action:     model.AuditActionUpdate,
		Resource:   "staff",
		ResourceID: user.ID.String(),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})
	return user, nil
}

func (s *Service) Delete(ctx context.Context, clinicID, id uuid.UUID, actor audit.Actor) error {
	if actor.UserID == id {
		return errors.BadRequest("cannot delete your own account", nil)
	}

	if _, err := s.Get(ctx, clinicID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return errors.NotFound("staff member", err)
		}
		return errors.Internal(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ClinicID:   clinicID,
		UserID:     actor.UserID,
		Action:     model.AuditActionDelete,
		Resource:   "staff",
		ResourceID: id.String(),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})
	return nil
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, filters *model.UserFilters) ([]*model.User, int, error) {
	users, total, err := s.repo.List(ctx, clinicID, filters)
	if err != nil {
		return nil, 0, errors.Internal(err)
	}
	return users, total, nil
}
