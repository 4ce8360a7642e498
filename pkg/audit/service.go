// Package audit records lifecycle events and serves them back as a table.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// MaxEntries bounds how many recent entries the table view loads.
const MaxEntries = 2000

var tracer = otel.Tracer("clinic.audit")

type Summary struct {
	Created       int64 `json:"created" gorm:"column:created"`
	Updated       int64 `json:"updated" gorm:"column:updated"`
	StatusChanged int64 `json:"status_changed" gorm:"column:status_changed"`
	Deleted       int64 `json:"deleted" gorm:"column:deleted"`
}

type Store interface {
	Insert(ctx context.Context, entry models.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]models.AuditEntry, error)
	Summary(ctx context.Context, since time.Time) (Summary, error)
}

// Invalidator drops derived data that an event makes stale.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Redactor masks sensitive payload values before they are stored.
type Redactor interface {
	Sanitize(data map[string]interface{}) (map[string]interface{}, int)
}

type Service struct {
	store    Store
	stale    []Invalidator
	metrics  *metrics.ConsoleMetrics
	redactor Redactor
}

func NewService(store Store, m *metrics.ConsoleMetrics, stale ...Invalidator) *Service {
	return &Service{store: store, stale: stale, metrics: m}
}

// WithRedactor masks payloads on the way into the store.
func (s *Service) WithRedactor(r Redactor) *Service {
	s.redactor = r
	return s
}

// HandleEvent is the worker's consumer callback. A storage failure is
// returned so the message is redelivered; invalidation failures are only
// logged.
func (s *Service) HandleEvent(ctx context.Context, event models.Event) (err error) {
	ctx, span := tracer.Start(ctx, "audit.HandleEvent")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.event_type", event.Type))
	defer func() { s.metrics.ObserveEvent(event.Type, err) }()

	entry := EntryFromEvent(event)
	if s.redactor != nil {
		var masked int
		entry.Payload, masked = s.redactor.Sanitize(entry.Payload)
		if masked > 0 {
			logger.Log.WithField("event_id", event.ID).WithField("masked", masked).Debug("redacted audit payload")
		}
	}
	if err = s.store.Insert(ctx, entry); err != nil {
		span.RecordError(err)
		return fmt.Errorf("store audit entry: %w", err)
	}

	for _, inv := range s.stale {
		if ierr := inv.Invalidate(ctx); ierr != nil {
			logger.Log.WithError(ierr).WithField("event_type", event.Type).Warn("failed to invalidate cached data")
		}
	}
	return nil
}

func (s *Service) Recent(ctx context.Context) ([]models.AuditEntry, error) {
	return s.store.Recent(ctx, MaxEntries)
}

func (s *Service) Summary(ctx context.Context, since time.Time) (Summary, error) {
	return s.store.Summary(ctx, since)
}

// EntryFromEvent flattens an event: the entity is the type prefix and the
// id and actor come from the payload.
func EntryFromEvent(event models.Event) models.AuditEntry {
	entity, _, _ := strings.Cut(event.Type, ".")
	occurred := event.Timestamp
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return models.AuditEntry{
		EventID:    event.ID,
		Type:       event.Type,
		Source:     event.Source,
		Entity:     entity,
		EntityID:   stringField(event.Data, "id"),
		Actor:      stringField(event.Data, "actor"),
		Payload:    event.Data,
		OccurredAt: occurred,
	}
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
