package patients

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
)

// memStore keeps patients in insertion order.
type memStore struct {
	mu   sync.Mutex
	rows []models.Patient
}

func (m *memStore) Create(_ context.Context, p models.Patient) (models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Document == p.Document {
			return models.Patient{}, ErrDocumentExists
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	m.rows = append(m.rows, p)
	return p, nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return models.Patient{}, ErrPatientNotFound
}

func (m *memStore) List(context.Context) ([]models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Patient(nil), m.rows...), nil
}

func (m *memStore) Update(_ context.Context, id uuid.UUID, fields map[string]interface{}) (models.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID != id {
			continue
		}
		p := &m.rows[i]
		for column, value := range fields {
			switch column {
			case "first_names":
				p.FirstNames = value.(string)
			case "last_names":
				p.LastNames = value.(string)
			case "document_type":
				p.DocumentType = value.(string)
			case "document":
				p.Document = value.(string)
			case "email":
				p.Email = value.(string)
			case "phone":
				p.Phone = value.(string)
			case "sex":
				p.Sex = value.(string)
			case "address":
				p.Address = value.(string)
			case "notes":
				p.Notes = value.(string)
			case "status":
				p.Status = value.(string)
			case "tags":
				p.Tags = value.(string)
			case "birth_date":
				p.BirthDate = value.(*time.Time)
			}
		}
		p.UpdatedAt = time.Now().UTC()
		return *p, nil
	}
	return models.Patient{}, ErrPatientNotFound
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
	return ErrPatientNotFound
}

func (m *memStore) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

func (m *memStore) CountByStatus(_ context.Context, status string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, row := range m.rows {
		if row.Status == status {
			n++
		}
	}
	return n, nil
}

type recordedEvent struct {
	Type string
	Data map[string]interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, eventType, _ string, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Data: data})
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}
