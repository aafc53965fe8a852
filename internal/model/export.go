package model

// ExportFormat selects the serialization of a clinic data export.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
)

type ExportRequest struct {
	ClinicID            string `json:"clinic_id"`
	Format              string `json:"format" binding:"required,oneof=csv json"`
	IncludePatients     bool   `json:"include_patients"`
	IncludeAppointments bool   `json:"include_appointments"`
}

// ExportResult carries the rendered payload plus the metadata the
// handler needs for attachment headers.
type ExportResult struct {
	Format      ExportFormat
	ContentType string
	Filename    string
	Data        []byte
}
