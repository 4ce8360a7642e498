package appointments

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/clinic-console/pkg/calendar"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/export"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/httpx"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/middleware"
	"github.com/synaptica-ai/clinic-console/pkg/observability/metrics"
	"github.com/synaptica-ai/clinic-console/pkg/patients"
	"github.com/synaptica-ai/clinic-console/pkg/tableview"
)

const monthLayout = "2006-01"

type Handler struct {
	service *Service
	table   *tableview.Table[models.Appointment]
	presets tableview.Presets
	metrics *metrics.ConsoleMetrics
	loc     *time.Location
	now     func() time.Time
}

func NewHandler(service *Service, presets tableview.Presets, m *metrics.ConsoleMetrics, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		service: service,
		table:   Table(loc),
		presets: presets,
		metrics: m,
		loc:     loc,
		now:     time.Now,
	}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/citas", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/citas", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/citas/export", h.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/citas/paciente/{id}", h.handleListByPatient).Methods(http.MethodGet)
	r.HandleFunc("/citas/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/citas/{id}", h.handleUpdate).Methods(http.MethodPatch, http.MethodPut)
	r.HandleFunc("/citas/{id}/estado", h.handleUpdateStatus).Methods(http.MethodPatch)
	r.HandleFunc("/citas/{id}", h.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/calendario", h.handleCalendar).Methods(http.MethodGet)
}

// handleList serves the table view, or the raw range when startDate and
// endDate are both present.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("startDate") != "" || q.Get("endDate") != "" {
		h.handleRange(w, r)
		return
	}

	all, err := h.service.List(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list appointments")
		httpx.WriteError(w, http.StatusInternalServerError, "Error al obtener citas")
		return
	}
	if q.Get("all") == "true" {
		httpx.WriteJSON(w, http.StatusOK, all)
		return
	}

	state, err := httpx.ParseView(r, h.table, h.presets.Initial(Entity))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.metrics.ObserveRender(Entity)
	httpx.WriteJSON(w, http.StatusOK, h.table.RenderClamped(all, state))
}

func (h *Handler) handleRange(w http.ResponseWriter, r *http.Request) {
	start, err := h.parseBound(r.URL.Query().Get("startDate"), false)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := h.parseBound(r.URL.Query().Get("endDate"), true)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := h.service.ListRange(r.Context(), start, end)
	if err != nil {
		h.writeServiceError(w, err, "Error al obtener citas")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rows)
}

// parseBound accepts RFC3339 or a bare date. A bare end date includes the
// whole day.
func (h *Handler) parseBound(raw string, end bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("startDate and endDate are both required")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, h.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	if end {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func (h *Handler) handleListByPatient(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := h.service.ListByPatient(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Error al obtener citas del paciente")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rows)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	state, err := httpx.ParseView(r, h.table, h.presets.Initial(Entity))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	all, err := h.service.List(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list appointments for export")
		httpx.WriteError(w, http.StatusInternalServerError, "Error al exportar citas")
		return
	}

	export.Attach(w, export.FileName(Entity, h.now().In(h.loc)))
	if err := export.Appointments(w, h.table.Sorted(all, state), h.loc); err != nil {
		logger.Log.WithError(err).Error("failed to write appointments export")
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Error al obtener la cita")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAppointmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.service.Create(r.Context(), req, middleware.Actor(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Error al crear la cita")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req models.UpdateAppointmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.service.Update(r.Context(), id, req, middleware.Actor(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Error al actualizar la cita")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req models.UpdateAppointmentStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.service.UpdateStatus(r.Context(), id, req.Status, middleware.Actor(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Error al actualizar el estado")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.Delete(r.Context(), id, middleware.Actor(r.Context())); err != nil {
		h.writeServiceError(w, err, "Error al eliminar la cita")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCalendar serves ?month=YYYY-MM (default: current month) as weeks of
// day cells, each showing the first few appointments.
func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	now := h.now().In(h.loc)
	reference := now
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := time.ParseInLocation(monthLayout, raw, h.loc)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid month %q, expected YYYY-MM", raw))
			return
		}
		reference = parsed
	}

	days, err := h.service.Month(r.Context(), reference, now)
	if err != nil {
		logger.Log.WithError(err).Error("failed to build calendar")
		httpx.WriteError(w, http.StatusInternalServerError, "Error al obtener el calendario")
		return
	}
	h.metrics.ObserveCalendarBuild()
	httpx.WriteJSON(w, http.StatusOK, MonthView(reference, days, h.loc, calendar.DefaultPreviewLimit))
}

// MonthView projects a grid into the wire shape, keeping at most limit
// appointments per day.
func MonthView(reference time.Time, days []calendar.Day[models.Appointment], loc *time.Location, limit int) models.CalendarMonth {
	view := models.CalendarMonth{
		Month:     reference.Format(monthLayout),
		PrevMonth: calendar.PrevMonth(reference).Format(monthLayout),
		NextMonth: calendar.NextMonth(reference).Format(monthLayout),
	}
	for _, week := range calendar.Weeks(days) {
		row := make([]models.CalendarDay, 0, len(week))
		for _, d := range week {
			shown, more := calendar.Preview(d.Events, limit)
			entries := make([]models.CalendarEntry, 0, len(shown))
			for _, a := range shown {
				entries = append(entries, models.CalendarEntry{
					ID:      a.ID,
					Time:    a.ScheduledAt.In(loc).Format("15:04"),
					Patient: a.PatientName(),
					Status:  a.Status,
					Reason:  a.Reason,
				})
			}
			row = append(row, models.CalendarDay{
				Date:           d.Date.Format("2006-01-02"),
				InCurrentMonth: d.InCurrentMonth,
				IsToday:        d.IsToday,
				Events:         entries,
				More:           more,
				Total:          len(d.Events),
			})
		}
		view.Weeks = append(view.Weeks, row)
	}
	return view
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidStatus):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrAppointmentNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Cita no encontrada")
	case errors.Is(err, patients.ErrPatientNotFound):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "Paciente no encontrado")
	default:
		logger.Log.WithError(err).Error(fallback)
		httpx.WriteError(w, http.StatusInternalServerError, fallback)
	}
}
