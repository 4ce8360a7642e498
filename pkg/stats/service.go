// Package stats computes the dashboard summary and caches it in Redis.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/clinic-console/pkg/calendar"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/observability/metrics"
	"go.opentelemetry.io/otel"
)

const (
	CacheKey      = "stats:dashboard"
	UpcomingLimit = 5
)

var tracer = otel.Tracer("clinic.stats")

type PatientCounter interface {
	Counts(ctx context.Context) (total, active int64, err error)
}

type AppointmentCounter interface {
	CountRange(ctx context.Context, start, end time.Time) (int64, error)
	Upcoming(ctx context.Context, status string, from, to time.Time, limit int) ([]models.Appointment, error)
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
}

type Service struct {
	patients     PatientCounter
	appointments AppointmentCounter
	cache        redis.Cmdable
	ttl          time.Duration
	loc          *time.Location
	metrics      *metrics.ConsoleMetrics
	now          func() time.Time
}

// NewService wires the counters. cache may be nil, which disables caching.
func NewService(p PatientCounter, a AppointmentCounter, cache redis.Cmdable, ttl time.Duration, loc *time.Location, m *metrics.ConsoleMetrics) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		patients:     p,
		appointments: a,
		cache:        cache,
		ttl:          ttl,
		loc:          loc,
		metrics:      m,
		now:          time.Now,
	}
}

// Dashboard serves the cached summary when present and recomputes it
// otherwise. Cache failures only cost a recomputation.
func (s *Service) Dashboard(ctx context.Context) (models.DashboardStats, error) {
	ctx, span := tracer.Start(ctx, "stats.Dashboard")
	defer span.End()

	if cached, ok := s.lookup(ctx); ok {
		return cached, nil
	}

	stats, err := s.compute(ctx)
	if err != nil {
		span.RecordError(err)
		return models.DashboardStats{}, err
	}
	s.store(ctx, stats)
	return stats, nil
}

// Invalidate drops the cached summary.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, CacheKey).Err()
}

func (s *Service) compute(ctx context.Context) (models.DashboardStats, error) {
	now := s.now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	monthStart := calendar.MonthStart(now)
	monthEnd := calendar.NextMonth(now)

	total, active, err := s.patients.Counts(ctx)
	if err != nil {
		return models.DashboardStats{}, err
	}
	month, err := s.appointments.CountRange(ctx, monthStart, monthEnd)
	if err != nil {
		return models.DashboardStats{}, err
	}
	today, err := s.appointments.CountRange(ctx, dayStart, dayEnd)
	if err != nil {
		return models.DashboardStats{}, err
	}
	upcoming, err := s.appointments.Upcoming(ctx, models.AppointmentPending, now, dayEnd, UpcomingLimit)
	if err != nil {
		return models.DashboardStats{}, err
	}
	byStatus, err := s.appointments.CountByStatus(ctx)
	if err != nil {
		return models.DashboardStats{}, err
	}

	stats := models.DashboardStats{
		TotalPatients:         total,
		ActivePatients:        active,
		AppointmentsThisMonth: month,
		AppointmentsToday:     today,
		Upcoming:              make([]models.UpcomingAppointment, 0, len(upcoming)),
		ByStatus:              byStatus,
		GeneratedAt:           now.UTC(),
	}
	for _, a := range upcoming {
		u := models.UpcomingAppointment{ID: a.ID, ScheduledAt: a.ScheduledAt, Status: a.Status, Reason: a.Reason}
		if a.Patient != nil {
			u.Patient = *a.Patient
		}
		stats.Upcoming = append(stats.Upcoming, u)
	}
	return stats, nil
}

func (s *Service) lookup(ctx context.Context) (models.DashboardStats, bool) {
	if s.cache == nil {
		return models.DashboardStats{}, false
	}
	raw, err := s.cache.Get(ctx, CacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.WithError(err).Warn("stats cache read failed")
		}
		s.metrics.ObserveCache(false)
		return models.DashboardStats{}, false
	}
	var stats models.DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		logger.Log.WithError(err).Warn("discarding malformed stats cache entry")
		s.metrics.ObserveCache(false)
		return models.DashboardStats{}, false
	}
	s.metrics.ObserveCache(true)
	return stats, true
}

func (s *Service) store(ctx context.Context, stats models.DashboardStats) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, CacheKey, raw, s.ttl).Err(); err != nil {
		logger.Log.WithError(err).Warn("stats cache write failed")
	}
}
