package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/service/audit"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/security"
)

type Service struct {
	repo      repository.PatientRepository
	auditor   *audit.Service
	encryptor security.FieldEncryptor
	logger    *zerolog.Logger
}

func NewService(repo repository.PatientRepository, auditor *audit.Service, encryptor security.FieldEncryptor, logger *zerolog.Logger) *Service {
	return &Service{repo: repo, auditor: auditor, encryptor: encryptor, logger: logger}
}

// requiredFields are checked in order so the 400 response names the
// first missing one.
var requiredFields = []struct {
	name  string
	value func(*model.CreatePatientRequest) string
}{
	{"first_name", func(r *model.CreatePatientRequest) string { return r.FirstName }},
	{"last_name", func(r *model.CreatePatientRequest) string { return r.LastName }},
	{"email", func(r *model.CreatePatientRequest) string { return r.Email }},
	{"phone", func(r *model.CreatePatientRequest) string { return r.Phone }},
	{"date_of_birth", func(r *model.CreatePatientRequest) string { return r.DateOfBirth }},
}

func (s *Service) Create(ctx context.Context, clinicID uuid.UUID, actor audit.Actor, req *model.CreatePatientRequest) (*model.Patient, error) {
	for _, f := range requiredFields {
		if f.value(req) == "" {
			return nil, errors.BadRequest(fmt.Sprintf("%s is required", f.name), nil)
		}
	}

	if _, err := s.repo.GetByEmail(ctx, clinicID, req.Email); err == nil {
		return nil, errors.BadRequest("patient with this email already exists", nil)
	} else if err != repository.ErrNotFound {
		return nil, errors.Internal(err)
	}

	patient := &model.Patient{
		Base:        model.NewBase(),
		ClinicID:    clinicID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		Address:     req.Address,
		Notes:       req.Notes,
		Status:      model.PatientStatusActive,
		CreatedBy:   actor.UserID,
	}
	if req.Insurance != nil {
		patient.Insurance = *req.Insurance
	}

	if err := s.encryptInsurance(patient); err != nil {
		return nil, errors.Internal(err)
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		if err == repository.ErrDuplicate {
			// Lost the race against a concurrent create with the
			// same email; the unique index is the authority.
			return nil, errors.BadRequest("patient with this email already exists", nil)
		}
		return nil, errors.Internal(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ClinicID:   clinicID,
		UserID:     actor.UserID,
		Action:     model.AuditActionCreate,
		Resource:   "patient",
		ResourceID: patient.ID.String(),
		Details:    fmt.Sprintf("created patient %s %s", patient.FirstName, patient.LastName),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})

	if err := s.decryptInsurance(patient); err != nil {
		return nil, errors.Internal(err)
	}
	return patient, nil
}

func (s *Service) Get(ctx context.Context, clinicID, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, clinicID, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("patient", err)
		}
		return nil, errors.Internal(err)
	}
	if err := s.decryptInsurance(patient); err != nil {
		return nil, errors.Internal(err)
	}
	return patient, nil
}

func (s *Service) Update(ctx context.Context, clinicID, id uuid.UUID, actor audit.Actor, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, clinicID, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("patient", err)
		}
		return nil, errors.Internal(err)
	}

	if req.Email != nil && *req.Email != patient.Email {
		if _, err := s.repo.GetByEmail(ctx, clinicID, *req.Email); err == nil {
			return nil, errors.BadRequest("patient with this email already exists", nil)
		} else if err != repository.ErrNotFound {
			return nil, errors.Internal(err)
		}
		patient.Email = *req.Email
	}
	if req.FirstName != nil {
		patient.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		patient.LastName = *req.LastName
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = *req.DateOfBirth
	}
	if req.Gender != nil {
		patient.Gender = *req.Gender
	}
	if req.Address != nil {
		patient.Address = *req.Address
	}
	if req.Notes != nil {
		patient.Notes = *req.Notes
	}
	if req.Status != nil {
		patient.Status = model.PatientStatus(*req.Status)
	}
	if req.Insurance != nil {
		patient.Insurance = *req.Insurance
	}

	if err := s.encryptInsurance(patient); err != nil {
		return nil, errors.Internal(err)
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("patient", err)
		}
		if err == repository.ErrDuplicate {
			return nil, errors.BadRequest("patient with this email already exists", nil)
		}
		return nil, errors.Internal(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ClinicID:   clinicID,
		UserID:     actor.UserID,
		Action:     model.AuditActionUpdate,
		Resource:   "patient",
		ResourceID: patient.ID.String(),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})

	if err := s.decryptInsurance(patient); err != nil {
		return nil, errors.Internal(err)
	}
	return patient, nil
}

func (s *Service) Delete(ctx context.Context, clinicID, id uuid.UUID, actor audit.Actor) error {
	if err := s.repo.Delete(ctx, clinicID, id); err != nil {
		if err == repository.ErrNotFound {
			return errors.NotFound("patient", err)
		}
		return errors.Internal(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ClinicID:   clinicID,
		UserID:     actor.UserID,
		Action:     model.AuditActionDelete,
		Resource:   "patient",
		ResourceID: id.String(),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	})
	return nil
}

func (s *Service) List(ctx context.Context, clinicID uuid.UUID, filters *model.PatientFilters) ([]*model.Patient, int, error) {
	patients, total, err := s.repo.List(ctx, clinicID, filters)
	if err != nil {
		return nil, 0, errors.Internal(err)
	}
	for _, p := range patients {
		if err := s.decryptInsurance(p); err != nil {
			return nil, 0, errors.Internal(err)
		}
	}
	return patients, total, nil
}

// encryptInsurance protects the policy and group numbers before they
// reach storage. Already-encrypted values are left alone so updates
// that do not touch insurance never double-encrypt.
func (s *Service) encryptInsurance(p *model.Patient) error {
	var err error
	if p.Insurance.PolicyNumber != "" && !security.IsEncrypted(p.Insurance.PolicyNumber) {
		if p.Insurance.PolicyNumber, err = s.encryptor.Encrypt(p.Insurance.PolicyNumber); err != nil {
			return fmt.Errorf("encrypt policy number: %w", err)
		}
	}
	if p.Insurance.GroupNumber != "" && !security.IsEncrypted(p.Insurance.GroupNumber) {
		if p.Insurance.GroupNumber, err = s.encryptor.Encrypt(p.Insurance.GroupNumber); err != nil {
			return fmt.Errorf("encrypt group number: %w", err)
		}
	}
	return nil
}

// decryptInsurance restores plaintext for API responses. Values stored
// before encryption was enabled pass through unchanged; a value that
// looks encrypted but fails to decrypt is an error, not silent garbage.
func (s *Service) decryptInsurance(p *model.Patient) error {
	var err error
	if security.IsEncrypted(p.Insurance.PolicyNumber) {
		if p.Insurance.PolicyNumber, err = s.encryptor.Decrypt(p.Insurance.PolicyNumber); err != nil {
			return fmt.Errorf("decrypt policy number: %w", err)
		}
	}
	if security.IsEncrypted(p.Insurance.GroupNumber) {
		if p.Insurance.GroupNumber, err = s.encryptor.Decrypt(p.Insurance.GroupNumber); err != nil {
			return fmt.Errorf("decrypt group number: %w", err)
		}
	}
	return nil
}
