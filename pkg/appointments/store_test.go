package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
)

type memStore struct {
	mu       sync.Mutex
	rows     []models.Appointment
	patients map[uuid.UUID]models.PatientSummary
}

func newMemStore(patients ...models.PatientSummary) *memStore {
	m := &memStore{patients: map[uuid.UUID]models.PatientSummary{}}
	for _, p := range patients {
		m.patients[p.ID] = p
	}
	return m
}

func (m *memStore) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.patients[id]
	return ok, nil
}

func (m *memStore) withPatient(a models.Appointment) models.Appointment {
	if p, ok := m.patients[a.PatientID]; ok {
		a.Patient = &p
	}
	return a
}

func (m *memStore) Create(_ context.Context, a models.Appointment) (models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.rows = append(m.rows, a)
	return m.withPatient(a), nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			return m.withPatient(row), nil
		}
	}
	return models.Appointment{}, ErrAppointmentNotFound
}

func (m *memStore) List(context.Context) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Appointment, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, m.withPatient(row))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.After(out[j].ScheduledAt) })
	return out, nil
}

func (m *memStore) ListRange(_ context.Context, start, end time.Time) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, row := range m.rows {
		if !row.ScheduledAt.Before(start) && row.ScheduledAt.Before(end) {
			out = append(out, m.withPatient(row))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (m *memStore) ListByPatient(_ context.Context, patientID uuid.UUID) ([]models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Appointment
	for _, row := range m.rows {
		if row.PatientID == patientID {
			out = append(out, m.withPatient(row))
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, id uuid.UUID, fields map[string]interface{}) (models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID != id {
			continue
		}
		a := &m.rows[i]
		for column, value := range fields {
			switch column {
			case "patient_id":
				a.PatientID = value.(uuid.UUID)
			case "scheduled_at":
				a.ScheduledAt = value.(time.Time)
			case "duration_minutes":
				a.DurationMinutes = value.(int)
			case "reason":
				a.Reason = value.(string)
			case "notes":
				a.Notes = value.(string)
			case "status":
				a.Status = value.(string)
			}
		}
		a.UpdatedAt = time.Now().UTC()
		return m.withPatient(*a), nil
	}
	return models.Appointment{}, ErrAppointmentNotFound
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return ErrAppointmentNotFound
}

type recordedEvent struct {
	Type string
	Data map[string]interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) PublishEvent(_ context.Context, eventType, _ string, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Data: data})
	return nil
}

func (p *recordingPublisher) last() recordedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return recordedEvent{}
	}
	return p.events[len(p.events)-1]
}

var (
	ana  = models.PatientSummary{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000a"), FirstNames: "Ana", LastNames: "Pérez", Document: "111"}
	luis = models.PatientSummary{ID: uuid.MustParse("00000000-0000-0000-0000-00000000000b"), FirstNames: "Luis", LastNames: "Gómez", Document: "222"}
)

func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.April, day, hour, minute, 0, 0, time.UTC)
}
