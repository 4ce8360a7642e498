// Package export writes console lists as spreadsheet friendly CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/synaptica-ai/clinic-console/pkg/common/models"
)

// BOM makes Excel open the file as UTF-8.
const BOM = "\ufeff"

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04"
	fileLayout = "2006-01-02"
)

// Field is one CSV column.
type Field[R any] struct {
	Header string
	Value  func(R) string
}

// Write emits the BOM, a header row and one row per record.
func Write[R any](w io.Writer, fields []Field[R], rows []R) error {
	if _, err := io.WriteString(w, BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Header
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(fields))
	for _, r := range rows {
		for i, f := range fields {
			record[i] = f.Value(r)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName is "<base>_<yyyy-MM-dd>.csv".
func FileName(base string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", base, now.Format(fileLayout))
}

// Date formats as dd/MM/yyyy; the zero time renders empty.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func Time(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

// Attach sets the download headers for a CSV response.
func Attach(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}

// PatientFields is the patient sheet layout.
func PatientFields() []Field[models.Patient] {
	return []Field[models.Patient]{
		{"Nombres", func(p models.Patient) string { return p.FirstNames }},
		{"Apellidos", func(p models.Patient) string { return p.LastNames }},
		{"Tipo Documento", func(p models.Patient) string { return p.DocumentType }},
		{"Documento", func(p models.Patient) string { return p.Document }},
		{"Email", func(p models.Patient) string { return p.Email }},
		{"Teléfono", func(p models.Patient) string { return p.Phone }},
		{"Fecha Nacimiento", func(p models.Patient) string {
			if p.BirthDate == nil {
				return ""
			}
			return Date(*p.BirthDate)
		}},
		{"Sexo", func(p models.Patient) string { return p.Sex }},
		{"Dirección", func(p models.Patient) string { return p.Address }},
		{"Estado", func(p models.Patient) string { return p.Status }},
		{"Etiquetas", func(p models.Patient) string { return p.Tags }},
		{"Notas", func(p models.Patient) string { return p.Notes }},
	}
}

// AppointmentFields renders date and time in loc.
func AppointmentFields(loc *time.Location) []Field[models.Appointment] {
	if loc == nil {
		loc = time.Local
	}
	return []Field[models.Appointment]{
		{"Fecha", func(a models.Appointment) string { return Date(a.ScheduledAt.In(loc)) }},
		{"Hora", func(a models.Appointment) string { return Time(a.ScheduledAt.In(loc)) }},
		{"Paciente", func(a models.Appointment) string { return a.PatientName() }},
		{"Documento", func(a models.Appointment) string {
			if a.Patient == nil {
				return ""
			}
			return a.Patient.Document
		}},
		{"Duración (min)", func(a models.Appointment) string { return strconv.Itoa(a.DurationMinutes) }},
		{"Estado", func(a models.Appointment) string { return a.Status }},
		{"Motivo", func(a models.Appointment) string { return a.Reason }},
		{"Notas", func(a models.Appointment) string { return a.Notes }},
	}
}

func Patients(w io.Writer, rows []models.Patient) error {
	return Write(w, PatientFields(), rows)
}

func Appointments(w io.Writer, rows []models.Appointment, loc *time.Location) error {
	return Write(w, AppointmentFields(loc), rows)
}
