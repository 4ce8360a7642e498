package routes

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/httpx"
	"github.com/synaptica-ai/clinic-console/pkg/observability/metrics"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

type ComponentStatus struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
	Details   string    `json:"details,omitempty"`
}

type HealthReport struct {
	Status     string            `json:"status"`
	Components []ComponentStatus `json:"components"`
}

type SystemHandler struct {
	required map[string]Check
	optional map[string]Check
	gatherer prometheus.Gatherer
	timeout  time.Duration
}

// NewSystemHandler serves /health and /metrics. A failing required check
// makes the service unhealthy; a failing optional one only degrades it.
func NewSystemHandler(required, optional map[string]Check, gatherer prometheus.Gatherer) *SystemHandler {
	return &SystemHandler{required: required, optional: optional, gatherer: gatherer, timeout: 2 * time.Second}
}

func (h *SystemHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler(h.gatherer)).Methods(http.MethodGet)
}

func (h *SystemHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	required := h.probe(ctx, h.required)
	optional := h.probe(ctx, h.optional)

	report := HealthReport{Status: deriveStatus(required.ok, optional.ok)}
	report.Components = append(required.statuses, optional.statuses...)
	sort.Slice(report.Components, func(i, j int) bool { return report.Components[i].ID < report.Components[j].ID })

	code := http.StatusOK
	if !required.ok {
		code = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, code, report)
}

type probeResult struct {
	ok       bool
	statuses []ComponentStatus
}

func (h *SystemHandler) probe(ctx context.Context, checks map[string]Check) probeResult {
	res := probeResult{ok: true}
	now := time.Now().UTC()
	for id, check := range checks {
		status := ComponentStatus{ID: id, Status: "healthy", UpdatedAt: now}
		if err := check(ctx); err != nil {
			res.ok = false
			status.Status = "failing"
			status.Details = formatDetails("%v", err)
			logger.Log.WithError(err).WithField("component", id).Warn("health check failed")
		}
		res.statuses = append(res.statuses, status)
	}
	return res
}

func deriveStatus(required, optional bool) string {
	switch {
	case required && optional:
		return "healthy"
	case required:
		return "degraded"
	default:
		return "failing"
	}
}

func formatDetails(format string, args ...interface{}) string {
	return fmt.Sprintf(format, args...)
}
