package patients

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/export"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/httpx"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/middleware"
	"github.com/synaptica-ai/clinic-console/pkg/observability/metrics"
	"github.com/synaptica-ai/clinic-console/pkg/tableview"
)

type Handler struct {
	service *Service
	table   *tableview.Table[models.Patient]
	presets tableview.Presets
	metrics *metrics.ConsoleMetrics
	now     func() time.Time
}

func NewHandler(service *Service, presets tableview.Presets, m *metrics.ConsoleMetrics) *Handler {
	return &Handler{
		service: service,
		table:   Table(),
		presets: presets,
		metrics: m,
		now:     time.Now,
	}
}

// Register mounts the routes under /pacientes on r.
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/pacientes", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/pacientes", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/pacientes/export", h.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/pacientes/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/pacientes/{id}", h.handleUpdate).Methods(http.MethodPatch, http.MethodPut)
	r.HandleFunc("/pacientes/{id}", h.handleDelete).Methods(http.MethodDelete)
}

// handleList renders the table view. ?all=true returns the bare collection.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list patients")
		httpx.WriteError(w, http.StatusInternalServerError, "Error al obtener pacientes")
		return
	}
	if r.URL.Query().Get("all") == "true" {
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

// handleExport writes every row of the current view, ignoring pagination.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	state, err := httpx.ParseView(r, h.table, h.presets.Initial(Entity))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	all, err := h.service.List(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list patients for export")
		httpx.WriteError(w, http.StatusInternalServerError, "Error al exportar pacientes")
		return
	}

	export.Attach(w, export.FileName(Entity, h.now()))
	if err := export.Patients(w, h.table.Sorted(all, state)); err != nil {
		logger.Log.WithError(err).Error("failed to write patients export")
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	patient, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "Error al obtener el paciente")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, patient)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePatientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	patient, err := h.service.Create(r.Context(), req, middleware.Actor(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Error al crear el paciente")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, patient)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req models.UpdatePatientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	patient, err := h.service.Update(r.Context(), id, req, middleware.Actor(r.Context()))
	if err != nil {
		h.writeServiceError(w, err, "Error al actualizar el paciente")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, patient)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathUUID(r, "id")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.service.Delete(r.Context(), id, middleware.Actor(r.Context())); err != nil {
		h.writeServiceError(w, err, "Error al eliminar el paciente")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrPatientNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Paciente no encontrado")
	case errors.Is(err, ErrDocumentExists):
		httpx.WriteError(w, http.StatusConflict, "Ya existe un paciente con ese documento")
	default:
		logger.Log.WithError(err).Error(fallback)
		httpx.WriteError(w, http.StatusInternalServerError, fallback)
	}
}
