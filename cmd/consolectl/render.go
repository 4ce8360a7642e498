package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/tableview"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(22)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	todayStyle  = cellStyle.Underline(true).Bold(true)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

var statusColors = map[string]lipgloss.Color{
	models.AppointmentPending:    lipgloss.Color("11"),
	models.AppointmentInProgress: lipgloss.Color("12"),
	models.AppointmentCompleted:  lipgloss.Color("10"),
	models.AppointmentCancelled:  lipgloss.Color("9"),
	models.PatientActive:         lipgloss.Color("10"),
	models.PatientInactive:       lipgloss.Color("244"),
}

var weekdays = []string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}

func statusBadge(status string) string {
	color, ok := statusColors[status]
	if !ok {
		return status
	}
	return lipgloss.NewStyle().Foreground(color).Render(strings.ReplaceAll(status, "_", " "))
}

// renderPage draws one page of a tableview result. Only the listed columns
// are shown, in the given order; unknown ids are skipped.
func renderPage[R any](t *tableview.Table[R], result tableview.Result[R], columnIDs []string) string {
	var cols []tableview.Column[R]
	for _, id := range columnIDs {
		if c, ok := t.Column(id); ok {
			cols = append(cols, c)
		}
	}

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = c.Header()
	}
	rows := make([][]string, 0, len(result.Rows))
	for _, record := range result.Rows {
		row := make([]string, len(cols))
		for i, c := range cols {
			text := c.Text(record)
			if c.ID() == "estado" {
				text = statusBadge(text)
			}
			row[i] = text
		}
		rows = append(rows, row)
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	var b strings.Builder
	b.WriteString(tbl.String())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(pageFooter(result)))
	return b.String()
}

func pageFooter[R any](result tableview.Result[R]) string {
	if result.TotalFiltered == 0 {
		if result.Total == 0 {
			return "Sin registros"
		}
		return fmt.Sprintf("Sin resultados (0 de %d)", result.Total)
	}
	first := result.Page.Index*result.Page.Size + 1
	last := first + len(result.Rows) - 1
	footer := fmt.Sprintf("Mostrando %d-%d de %d", first, last, result.TotalFiltered)
	if result.TotalFiltered != result.Total {
		footer += fmt.Sprintf(" (filtrado de %d)", result.Total)
	}
	return footer + fmt.Sprintf(" · página %d de %d", result.Page.Index+1, result.PageCount)
}

// renderCalendar draws the month as a Sunday-first grid with a preview of
// each day's appointments.
func renderCalendar(month models.CalendarMonth) string {
	var flat []models.CalendarDay
	rows := make([][]string, 0, len(month.Weeks))
	for _, week := range month.Weeks {
		row := make([]string, len(week))
		for i, day := range week {
			row[i] = dayCell(day)
			flat = append(flat, day)
		}
		rows = append(rows, row)
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		BorderRow(true).
		Headers(weekdays...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			i := row*7 + col
			if row < 0 || i >= len(flat) {
				return cellStyle
			}
			switch day := flat[i]; {
			case day.IsToday:
				return todayStyle
			case !day.InCurrentMonth:
				return cellStyle.Foreground(lipgloss.Color("244"))
			}
			return cellStyle
		})

	title := month.Month
	if t, err := time.Parse("2006-01", month.Month); err == nil {
		title = monthNames[t.Month()-1] + " " + strconv.Itoa(t.Year())
	}
	return titleStyle.Render(title) + "\n" + tbl.String() + "\n" +
		dimStyle.Render(fmt.Sprintf("‹ %s   %s ›", month.PrevMonth, month.NextMonth))
}

var monthNames = []string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

func dayCell(day models.CalendarDay) string {
	number := day.Date
	if t, err := time.Parse("2006-01-02", day.Date); err == nil {
		number = strconv.Itoa(t.Day())
	}
	lines := []string{number}
	for _, e := range day.Events {
		lines = append(lines, e.Time+" "+firstWord(e.Patient))
	}
	if day.More > 0 {
		lines = append(lines, fmt.Sprintf("+%d más", day.More))
	}
	return strings.Join(lines, "\n")
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

func renderDashboard(stats models.DashboardStats, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Resumen de la clínica"))
	b.WriteString("\n\n")
	for _, kv := range []struct {
		label string
		value int64
	}{
		{"Pacientes", stats.TotalPatients},
		{"Pacientes activos", stats.ActivePatients},
		{"Citas este mes", stats.AppointmentsThisMonth},
		{"Citas hoy", stats.AppointmentsToday},
	} {
		b.WriteString(labelStyle.Render(kv.label))
		b.WriteString(strconv.FormatInt(kv.value, 10))
		b.WriteString("\n")
	}

	if len(stats.ByStatus) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("Citas por estado"))
		b.WriteString("\n")
		for _, s := range stats.ByStatus {
			b.WriteString(labelStyle.Render(statusBadge(s.Status)))
			b.WriteString(strconv.FormatInt(s.Count, 10))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Próximas citas de hoy"))
	b.WriteString("\n")
	if len(stats.Upcoming) == 0 {
		b.WriteString(dimStyle.Render("No hay citas pendientes"))
		b.WriteString("\n")
		return b.String()
	}
	for _, u := range stats.Upcoming {
		line := u.ScheduledAt.In(loc).Format("15:04") + "  " + u.Patient.FullName()
		if u.Reason != "" {
			line += dimStyle.Render("  " + u.Reason)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
