package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/clinic-console/pkg/common/kafka"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const eventSource = "patients"

var ErrValidation = errors.New("invalid patient")

var tracer = otel.Tracer("clinic.patients")

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	Create(ctx context.Context, patient models.Patient) (models.Patient, error)
	Get(ctx context.Context, id uuid.UUID) (models.Patient, error)
	List(ctx context.Context) ([]models.Patient, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (models.Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
}

type Service struct {
	store  Store
	events kafka.Publisher
}

func NewService(store Store, events kafka.Publisher) *Service {
	if events == nil {
		events = kafka.NopPublisher{}
	}
	return &Service{store: store, events: events}
}

func (s *Service) Create(ctx context.Context, req models.CreatePatientRequest, actor string) (models.Patient, error) {
	ctx, span := tracer.Start(ctx, "patients.Create")
	defer span.End()

	patient, err := newPatient(req)
	if err != nil {
		span.RecordError(err)
		return models.Patient{}, err
	}

	created, err := s.store.Create(ctx, patient)
	if err != nil {
		span.RecordError(err)
		return models.Patient{}, err
	}
	span.SetAttributes(attribute.String("clinic.patient_id", created.ID.String()))

	s.publish(ctx, models.EventPatientCreated, created, actor)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Patient, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.Patient, error) {
	ctx, span := tracer.Start(ctx, "patients.List")
	defer span.End()

	patients, err := s.store.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("clinic.rows", len(patients)))
	return patients, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req models.UpdatePatientRequest, actor string) (models.Patient, error) {
	ctx, span := tracer.Start(ctx, "patients.Update")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.patient_id", id.String()))

	fields, err := updateFields(req)
	if err != nil {
		span.RecordError(err)
		return models.Patient{}, err
	}
	if len(fields) == 0 {
		return s.store.Get(ctx, id)
	}

	updated, err := s.store.Update(ctx, id, fields)
	if err != nil {
		span.RecordError(err)
		return models.Patient{}, err
	}

	s.publish(ctx, models.EventPatientUpdated, updated, actor)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	ctx, span := tracer.Start(ctx, "patients.Delete")
	defer span.End()

	patient, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}

	s.publish(ctx, models.EventPatientDeleted, patient, actor)
	return nil
}

// Counts returns the total and active patient counts.
func (s *Service) Counts(ctx context.Context) (total, active int64, err error) {
	if total, err = s.store.Count(ctx); err != nil {
		return 0, 0, err
	}
	if active, err = s.store.CountByStatus(ctx, models.PatientActive); err != nil {
		return 0, 0, err
	}
	return total, active, nil
}

// Exists reports whether a patient id is known.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.store.Get(ctx, id)
	if errors.Is(err, ErrPatientNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Publishing is best effort; the write already succeeded.
func (s *Service) publish(ctx context.Context, eventType string, p models.Patient, actor string) {
	data := map[string]interface{}{
		"id":        p.ID.String(),
		"documento": p.Document,
		"estado":    p.Status,
		"actor":     actor,
	}
	if err := s.events.PublishEvent(ctx, eventType, eventSource, data); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_type": eventType,
			"patient_id": p.ID,
		}).Warn("patient event not published")
	}
}

func newPatient(req models.CreatePatientRequest) (models.Patient, error) {
	p := models.Patient{
		FirstNames:   strings.TrimSpace(req.FirstNames),
		LastNames:    strings.TrimSpace(req.LastNames),
		DocumentType: strings.TrimSpace(req.DocumentType),
		Document:     strings.TrimSpace(req.Document),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		Sex:          strings.TrimSpace(req.Sex),
		Address:      strings.TrimSpace(req.Address),
		Notes:        req.Notes,
		Status:       strings.TrimSpace(req.Status),
		Tags:         normalizeTags(req.Tags),
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"nombres", p.FirstNames},
		{"apellidos", p.LastNames},
		{"tipoDocumento", p.DocumentType},
		{"documento", p.Document},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return models.Patient{}, fmt.Errorf("%w: required %s", ErrValidation, strings.Join(missing, ", "))
	}

	if p.Status == "" {
		p.Status = models.PatientActive
	}
	if p.Sex == "" {
		p.Sex = models.DefaultSex
	}
	if err := validateStatus(p.Status); err != nil {
		return models.Patient{}, err
	}
	if err := validateEmail(p.Email); err != nil {
		return models.Patient{}, err
	}
	birth, err := ParseBirthDate(req.BirthDate)
	if err != nil {
		return models.Patient{}, err
	}
	p.BirthDate = birth
	return p, nil
}

func updateFields(req models.UpdatePatientRequest) (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	required := func(column, name string, v *string) error {
		if v == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*v)
		if trimmed == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrValidation, name)
		}
		fields[column] = trimmed
		return nil
	}
	optional := func(column string, v *string) {
		if v != nil {
			fields[column] = strings.TrimSpace(*v)
		}
	}

	if err := required("first_names", "nombres", req.FirstNames); err != nil {
		return nil, err
	}
	if err := required("last_names", "apellidos", req.LastNames); err != nil {
		return nil, err
	}
	if err := required("document_type", "tipoDocumento", req.DocumentType); err != nil {
		return nil, err
	}
	if err := required("document", "documento", req.Document); err != nil {
		return nil, err
	}
	optional("phone", req.Phone)
	optional("sex", req.Sex)
	optional("address", req.Address)
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	if req.Tags != nil {
		fields["tags"] = normalizeTags(*req.Tags)
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		fields["email"] = email
	}
	if req.Status != nil {
		status := strings.TrimSpace(*req.Status)
		if err := validateStatus(status); err != nil {
			return nil, err
		}
		fields["status"] = status
	}
	if req.BirthDate != nil {
		birth, err := ParseBirthDate(*req.BirthDate)
		if err != nil {
			return nil, err
		}
		fields["birth_date"] = birth
	}
	return fields, nil
}

// ParseBirthDate accepts YYYY-MM-DD or RFC3339 and keeps only the date. An
// empty string clears the date.
func ParseBirthDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		t, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: nacimiento %q is not a date", ErrValidation, raw)
		}
	}
	y, m, d := t.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &date, nil
}

func validateStatus(status string) error {
	switch status {
	case models.PatientActive, models.PatientInactive:
		return nil
	}
	return fmt.Errorf("%w: estado %q", ErrValidation, status)
}

func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("%w: email %q", ErrValidation, email)
	}
	return nil
}

func normalizeTags(raw string) string {
	p := models.Patient{Tags: raw}
	return strings.Join(p.TagList(), ",")
}
