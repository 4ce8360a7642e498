package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
)

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	raw := buf.String()
	require.True(t, strings.HasPrefix(raw, BOM), "missing BOM")
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(raw, BOM))).ReadAll()
	require.NoError(t, err)
	return records
}

func TestPatientsLayout(t *testing.T) {
	birth := time.Date(1990, time.March, 5, 0, 0, 0, 0, time.UTC)
	rows := []models.Patient{
		{
			ID: uuid.New(), FirstNames: "Ana", LastNames: "Pérez", DocumentType: "DNI", Document: "123",
			BirthDate: &birth, Sex: "femenino", Status: models.PatientActive,
			Notes: `dice "hola", luego se va`,
		},
		{ID: uuid.New(), FirstNames: "Beto", LastNames: "Gómez", Document: "456", Status: models.PatientInactive},
	}
	var buf bytes.Buffer
	require.NoError(t, Patients(&buf, rows))

	records := readCSV(t, &buf)
	require.Len(t, records, 3)
	assert.Equal(t, []string{
		"Nombres", "Apellidos", "Tipo Documento", "Documento", "Email", "Teléfono",
		"Fecha Nacimiento", "Sexo", "Dirección", "Estado", "Etiquetas", "Notas",
	}, records[0])
	assert.Equal(t, "05/03/1990", records[1][6])
	assert.Equal(t, `dice "hola", luego se va`, records[1][11])
	assert.Equal(t, "", records[2][6])
}

func TestAppointmentsLayout(t *testing.T) {
	lima := time.FixedZone("UTC-5", -5*60*60)
	rows := []models.Appointment{
		{
			ScheduledAt:     time.Date(2024, time.April, 10, 14, 30, 0, 0, time.UTC),
			DurationMinutes: 45,
			Status:          models.AppointmentPending,
			Reason:          "Control",
			Patient:         &models.PatientSummary{FirstNames: "Ana", LastNames: "Pérez", Document: "123"},
		},
		{ScheduledAt: time.Date(2024, time.April, 11, 3, 0, 0, 0, time.UTC), DurationMinutes: 30},
	}
	var buf bytes.Buffer
	require.NoError(t, Appointments(&buf, rows, lima))

	records := readCSV(t, &buf)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Fecha", "Hora", "Paciente", "Documento", "Duración (min)", "Estado", "Motivo", "Notas"}, records[0])
	assert.Equal(t, []string{"10/04/2024", "09:30", "Ana Pérez", "123", "45", "pendiente", "Control", ""}, records[1])
	assert.Equal(t, "10/04/2024", records[2][0], "converted to the clinic zone")
	assert.Equal(t, "22:00", records[2][1])
	assert.Equal(t, "", records[2][2])
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "pacientes_2024-04-09.csv", FileName("pacientes", time.Date(2024, time.April, 9, 23, 0, 0, 0, time.UTC)))
}

func TestAttach(t *testing.T) {
	rec := httptest.NewRecorder()
	Attach(rec, "citas_2024-04-09.csv")
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="citas_2024-04-09.csv"`, rec.Header().Get("Content-Disposition"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWritePropagatesErrors(t *testing.T) {
	err := Patients(failingWriter{}, nil)
	assert.Error(t, err)
}
