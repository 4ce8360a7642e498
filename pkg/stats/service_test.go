package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/observability/metrics"
)

type fakePatients struct {
	total, active int64
	calls         int
}

func (f *fakePatients) Counts(context.Context) (int64, int64, error) {
	f.calls++
	return f.total, f.active, nil
}

type rangeCall struct{ start, end time.Time }

type fakeAppointments struct {
	ranges   []rangeCall
	upcoming []models.Appointment
	from, to time.Time
	limit    int
	err      error
}

func (f *fakeAppointments) CountRange(_ context.Context, start, end time.Time) (int64, error) {
	f.ranges = append(f.ranges, rangeCall{start, end})
	if f.err != nil {
		return 0, f.err
	}
	return int64(10 * len(f.ranges)), nil
}

func (f *fakeAppointments) Upcoming(_ context.Context, status string, from, to time.Time, limit int) ([]models.Appointment, error) {
	f.from, f.to, f.limit = from, to, limit
	return f.upcoming, nil
}

func (f *fakeAppointments) CountByStatus(context.Context) ([]models.StatusCount, error) {
	return []models.StatusCount{{Status: models.AppointmentPending, Count: 3}}, nil
}

var fixedNow = time.Date(2024, time.April, 10, 14, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakePatients, *fakeAppointments, *miniredis.Miniredis, *prometheus.Registry) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	p := &fakePatients{total: 12, active: 9}
	a := &fakeAppointments{upcoming: []models.Appointment{{
		ID:          uuid.New(),
		ScheduledAt: fixedNow.Add(time.Hour),
		Status:      models.AppointmentPending,
		Reason:      "control",
		Patient:     &models.PatientSummary{FirstNames: "Ana", LastNames: "Pérez"},
	}}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := NewService(p, a, client, time.Minute, time.UTC, m)
	svc.now = func() time.Time { return fixedNow }
	return svc, p, a, mr, reg
}

func TestDashboardComputesWindows(t *testing.T) {
	svc, _, a, _, _ := newTestService(t)

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.TotalPatients)
	assert.Equal(t, int64(9), stats.ActivePatients)
	assert.Equal(t, int64(10), stats.AppointmentsThisMonth)
	assert.Equal(t, int64(20), stats.AppointmentsToday)
	require.Len(t, stats.Upcoming, 1)
	assert.Equal(t, "Ana Pérez", stats.Upcoming[0].Patient.FullName())
	assert.Equal(t, []models.StatusCount{{Status: "pendiente", Count: 3}}, stats.ByStatus)

	require.Len(t, a.ranges, 2)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), a.ranges[0].start)
	assert.Equal(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), a.ranges[0].end)
	assert.Equal(t, time.Date(2024, time.April, 10, 0, 0, 0, 0, time.UTC), a.ranges[1].start)
	assert.Equal(t, time.Date(2024, time.April, 11, 0, 0, 0, 0, time.UTC), a.ranges[1].end)
	assert.Equal(t, fixedNow, a.from)
	assert.Equal(t, a.ranges[1].end, a.to)
	assert.Equal(t, UpcomingLimit, a.limit)
}

func TestDashboardIsCachedUntilInvalidated(t *testing.T) {
	svc, p, _, mr, reg := newTestService(t)
	ctx := context.Background()

	_, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists(CacheKey))
	assert.Equal(t, time.Minute, mr.TTL(CacheKey))

	p.total = 99
	cached, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), cached.TotalPatients)
	assert.Equal(t, 1, p.calls)
	series, err := testutil.GatherAndCount(reg, "clinic_stats_cache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series, "one miss series and one hit series")

	require.NoError(t, svc.Invalidate(ctx))
	assert.False(t, mr.Exists(CacheKey))
	fresh, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(99), fresh.TotalPatients)
}

func TestDashboardSurvivesCacheOutage(t *testing.T) {
	svc, p, _, mr, _ := newTestService(t)
	mr.Close()

	stats, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), stats.TotalPatients)
	assert.Equal(t, 1, p.calls)
}

func TestDashboardIgnoresMalformedCacheEntry(t *testing.T) {
	svc, p, _, mr, _ := newTestService(t)
	require.NoError(t, mr.Set(CacheKey, "{broken"))

	_, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestDashboardWithoutCache(t *testing.T) {
	p := &fakePatients{total: 1}
	svc := NewService(p, &fakeAppointments{}, nil, time.Minute, time.UTC, nil)
	_, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	_, err = svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, p.calls)
	assert.NoError(t, svc.Invalidate(context.Background()))
}

func TestDashboardHandler(t *testing.T) {
	svc, _, a, _, _ := newTestService(t)
	router := mux.NewRouter()
	NewHandler(svc).Register(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 12, body["totalPacientes"])
	assert.Contains(t, body, "proximasCitas")

	a.err = errors.New("db down")
	require.NoError(t, svc.Invalidate(context.Background()))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats/dashboard", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
