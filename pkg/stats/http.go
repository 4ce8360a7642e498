package stats

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/httpx"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/stats/dashboard", h.handleDashboard).Methods(http.MethodGet)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to compute dashboard stats")
		httpx.WriteError(w, http.StatusInternalServerError, "Error al obtener estadísticas")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}
