package audit

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/httpx"
	"github.com/synaptica-ai/clinic-console/pkg/observability/metrics"
	"github.com/synaptica-ai/clinic-console/pkg/tableview"
)

const summaryWindow = 7 * 24 * time.Hour

type Handler struct {
	service *Service
	table   *tableview.Table[models.AuditEntry]
	presets tableview.Presets
	metrics *metrics.ConsoleMetrics
	now     func() time.Time
}

func NewHandler(service *Service, presets tableview.Presets, m *metrics.ConsoleMetrics, loc *time.Location) *Handler {
	return &Handler{
		service: service,
		table:   Table(loc),
		presets: presets,
		metrics: m,
		now:     time.Now,
	}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/auditoria", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/auditoria/resumen", h.handleSummary).Methods(http.MethodGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	state, err := httpx.ParseView(r, h.table, h.presets.Initial(Entity))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := h.service.Recent(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to load audit entries")
		httpx.WriteError(w, http.StatusInternalServerError, "Error al obtener la auditoría")
		return
	}
	h.metrics.ObserveRender(Entity)
	httpx.WriteJSON(w, http.StatusOK, h.table.RenderClamped(entries, state))
}

// handleSummary counts the changes of the last seven days.
func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), h.now().Add(-summaryWindow))
	if err != nil {
		logger.Log.WithError(err).Error("failed to summarize audit entries")
		httpx.WriteError(w, http.StatusInternalServerError, "Error al obtener la auditoría")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, summary)
}
