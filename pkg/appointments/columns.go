package appointments

import (
	"strconv"
	"strings"
	"time"

	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/tableview"
)

const Entity = "citas"

// Table is the appointment list. Times render in loc.
func Table(loc *time.Location) *tableview.Table[models.Appointment] {
	if loc == nil {
		loc = time.Local
	}
	return tableview.NewTable([]tableview.Column[models.Appointment]{
		tableview.NewColumn("fecha",
			func(a models.Appointment) int64 { return a.ScheduledAt.UnixMilli() },
			tableview.WithHeader[models.Appointment]("Fecha y Hora"),
			tableview.Sortable[models.Appointment](),
			tableview.WithText(func(a models.Appointment) string {
				return a.ScheduledAt.In(loc).Format("02/01/2006 15:04")
			}),
		),
		tableview.NewColumn("paciente",
			func(a models.Appointment) string { return strings.ToLower(a.PatientName()) },
			tableview.WithHeader[models.Appointment]("Paciente"),
			tableview.Sortable[models.Appointment](),
			tableview.WithText(func(a models.Appointment) string { return a.PatientName() }),
		),
		tableview.NewColumn("motivo",
			func(a models.Appointment) string { return a.Reason },
			tableview.WithHeader[models.Appointment]("Motivo"),
		),
		tableview.NewColumn("estado",
			func(a models.Appointment) string { return a.Status },
			tableview.WithHeader[models.Appointment]("Estado"),
		),
		tableview.NewColumn("duracion",
			func(a models.Appointment) int { return a.DurationMinutes },
			tableview.WithHeader[models.Appointment]("Duración"),
			tableview.Sortable[models.Appointment](),
			tableview.WithText(func(a models.Appointment) string {
				return strconv.Itoa(a.DurationMinutes) + " min"
			}),
		),
		tableview.NewColumn("pacienteId",
			func(a models.Appointment) string { return a.PatientID.String() },
			tableview.WithHeader[models.Appointment]("Paciente ID"),
		),
	}, SearchText)
}

func SearchText(a models.Appointment) string {
	parts := []string{a.Reason, a.Notes, a.Status}
	if a.Patient != nil {
		parts = append(parts, a.Patient.FirstNames, a.Patient.LastNames, a.Patient.Document)
	}
	return strings.Join(parts, " ")
}
