package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/booking-api/internal/model"
	"github.com/medbook/booking-api/internal/repository"
	"github.com/medbook/booking-api/internal/service/audit"
	"github.com/medbook/booking-api/pkg/errors"
	"github.com/medbook/booking-api/pkg/security"
)

// exportPageSize bounds each repository read while draining a clinic's
// rows.
const exportPageSize = 100

// Service renders clinic data as a downloadable file. Every export is
// audited: bulk reads of patient data are exactly what the trail is
// for.
type Service struct {
	patients     repository.PatientRepository
	appointments repository.AppointmentRepository
	encryptor    security.FieldEncryptor
	auditor      *audit.Service
	logger       *zerolog.Logger
}

func NewService(
	patients repository.PatientRepository,
	appointments repository.AppointmentRepository,
	encryptor security.FieldEncryptor,
	auditor *audit.Service,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		patients:     patients,
		appointments: appointments,
		encryptor:    encryptor,
		auditor:      auditor,
		logger:       logger,
	}
}

type exportPayload struct {
	ExportedAt   time.Time            `json:"exported_at"`
	ClinicID     uuid.UUID            `json:"clinic_id"`
	Patients     []*model.Patient     `json:"patients,omitempty"`
	Appointments []*model.Appointment `json:"appointments,omitempty"`
}

func (s *Service) Export(ctx context.Context, clinicID uuid.UUID, actor audit.Actor, req *model.ExportRequest) (*model.ExportResult, error) {
	if !req.IncludePatients && !req.IncludeAppointments {
		return nil, errors.BadRequest("nothing to export", nil)
	}

	payload := exportPayload{ExportedAt: time.Now(), ClinicID: clinicID}

	if req.IncludePatients {
		patients, err := s.drainPatients(ctx, clinicID)
		if err != nil {
			return nil, errors.Internal(err)
		}
		payload.Patients = patients
	}
	if req.IncludeAppointments {
		appointments, err := s.drainAppointments(ctx, clinicID)
		if err != nil {
			return nil, errors.Internal(err)
		}
		payload.Appointments = appointments
	}

	var result *model.ExportResult
	var err error
	switch model.ExportFormat(req.Format) {
	case model.ExportFormatCSV:
		result, err = s.renderCSV(&payload)
	case model.ExportFormatJSON:
		result, err = s.renderJSON(&payload)
	default:
		return nil, errors.BadRequest("unsupported export format", nil)
	}
	if err != nil {
		return nil, errors.Internal(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ClinicID: clinicID,
		UserID:   actor.UserID,
		Action:   model.AuditActionExport,
		Resource: "reports",
		Details: fmt.Sprintf("exported %d patients, %d appointments as %s",
			len(payload.Patients), len(payload.Appointments), req.Format),
		IPAddress: actor.IPAddress,
		UserAgent: actor.UserAgent,
	})
	return result, nil
}

func (s *Service) drainPatients(ctx context.Context, clinicID uuid.UUID) ([]*model.Patient, error) {
	var all []*model.Patient
	filters := &model.PatientFilters{}
	filters.Page = 1
	filters.PageSize = exportPageSize
	for {
		page, total, err := s.patients.List(ctx, clinicID, filters)
		if err != nil {
			return nil, err
		}
		for _, p := range page {
			if err := s.decryptInsurance(p); err != nil {
				return nil, err
			}
		}
		all = append(all, page...)
		if len(all) >= total || len(page) == 0 {
			return all, nil
		}
		filters.Page++
	}
}

func (s *Service) drainAppointments(ctx context.Context, clinicID uuid.UUID) ([]*model.Appointment, error) {
	var all []*model.Appointment
	filters := &model.AppointmentFilters{}
	filters.Page = 1
	filters.PageSize = exportPageSize
	for {
		page, total, err := s.appointments.List(ctx, clinicID, filters)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(all) >= total || len(page) == 0 {
			return all, nil
		}
		filters.Page++
	}
}

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

func (s *Service) renderJSON(payload *exportPayload) (*model.ExportResult, error) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, err
	}
	return &model.ExportResult{
		Format:      model.ExportFormatJSON,
		ContentType: "application/json",
		Filename:    exportFilename(payload, "json"),
		Data:        data,
	}, nil
}

// renderCSV writes one section per data set, separated by a blank line.
func (s *Service) renderCSV(payload *exportPayload) (*model.ExportResult, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if payload.Patients != nil {
		w.Write([]string{"id", "first_name", "last_name", "email", "phone", "date_of_birth", "gender", "status", "insurance_provider", "created_at"})
		for _, p := range payload.Patients {
			w.Write([]string{
				p.ID.String(),
				p.FirstName,
				p.LastName,
				p.Email,
				p.Phone,
				p.DateOfBirth,
				p.Gender,
				string(p.Status),
				p.Insurance.Provider,
				p.CreatedAt.Format(time.RFC3339),
			})
		}
	}

	if payload.Appointments != nil {
		if payload.Patients != nil {
			w.Write([]string{})
		}
		w.Write([]string{"id", "patient_id", "staff_id", "type", "start_time", "end_time", "status", "created_at"})
		for _, a := range payload.Appointments {
			w.Write([]string{
				a.ID.String(),
				a.PatientID.String(),
				a.StaffID.String(),
				a.Type,
				a.StartTime.Format(time.RFC3339),
				a.EndTime.Format(time.RFC3339),
				string(a.Status),
				a.CreatedAt.Format(time.RFC3339),
			})
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return &model.ExportResult{
		Format:      model.ExportFormatCSV,
		ContentType: "text/csv",
		Filename:    exportFilename(payload, "csv"),
		Data:        buf.Bytes(),
	}, nil
}

func exportFilename(payload *exportPayload, ext string) string {
	return fmt.Sprintf("clinic-export-%s-%s.%s",
		payload.ClinicID.String()[:8],
		payload.ExportedAt.Format("20060102-150405"),
		ext)
}
