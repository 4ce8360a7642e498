package appointments

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/clinic-console/pkg/calendar"
	"github.com/synaptica-ai/clinic-console/pkg/common/kafka"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/patients"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const eventSource = "appointments"

var (
	ErrValidation        = errors.New("invalid appointment")
	ErrInvalidStatus     = errors.New("unknown appointment status")
	ErrInvalidTransition = errors.New("status transition not allowed")
)

var tracer = otel.Tracer("clinic.appointments")

// transitions lists the statuses reachable from each status. completada and
// cancelada are terminal.
var transitions = map[string][]string{
	models.AppointmentPending:    {models.AppointmentInProgress, models.AppointmentCompleted, models.AppointmentCancelled},
	models.AppointmentInProgress: {models.AppointmentCompleted},
}

func ValidStatus(status string) bool {
	return slices.Contains(models.AppointmentStatuses, status)
}

// CanTransition reports whether an appointment may move from one status to
// another. Staying on the same status is allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	return slices.Contains(transitions[from], to)
}

type Store interface {
	Create(ctx context.Context, a models.Appointment) (models.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (models.Appointment, error)
	List(ctx context.Context) ([]models.Appointment, error)
	ListRange(ctx context.Context, start, end time.Time) ([]models.Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (models.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PatientChecker confirms that a referenced patient exists.
type PatientChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	store    Store
	patients PatientChecker
	events   kafka.Publisher
}

func NewService(store Store, patients PatientChecker, events kafka.Publisher) *Service {
	if events == nil {
		events = kafka.NopPublisher{}
	}
	return &Service{store: store, patients: patients, events: events}
}

func (s *Service) Create(ctx context.Context, req models.CreateAppointmentRequest, actor string) (models.Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.Create")
	defer span.End()

	a := models.Appointment{
		PatientID:       req.PatientID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: models.DefaultAppointmentMinutes,
		Status:          strings.TrimSpace(req.Status),
		Reason:          strings.TrimSpace(req.Reason),
		Notes:           req.Notes,
	}
	if req.DurationMinutes != nil {
		a.DurationMinutes = *req.DurationMinutes
	}
	if a.Status == "" {
		a.Status = models.AppointmentPending
	}
	if err := validate(a); err != nil {
		span.RecordError(err)
		return models.Appointment{}, err
	}
	if err := s.requirePatient(ctx, a.PatientID); err != nil {
		span.RecordError(err)
		return models.Appointment{}, err
	}

	created, err := s.store.Create(ctx, a)
	if err != nil {
		span.RecordError(err)
		return models.Appointment{}, err
	}
	span.SetAttributes(attribute.String("clinic.appointment_id", created.ID.String()))

	s.publish(ctx, models.EventAppointmentCreated, created, actor, nil)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Appointment, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.Appointment, error) {
	return s.store.List(ctx)
}

// ListRange returns appointments in [start, end).
func (s *Service) ListRange(ctx context.Context, start, end time.Time) ([]models.Appointment, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("%w: endDate must be after startDate", ErrValidation)
	}
	return s.store.ListRange(ctx, start, end)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Appointment, error) {
	return s.store.ListByPatient(ctx, patientID)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req models.UpdateAppointmentRequest, actor string) (models.Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.Update")
	defer span.End()

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Appointment{}, err
	}

	next := current
	fields := map[string]interface{}{}
	if req.PatientID != nil && *req.PatientID != current.PatientID {
		if err := s.requirePatient(ctx, *req.PatientID); err != nil {
			return models.Appointment{}, err
		}
		next.PatientID = *req.PatientID
		fields["patient_id"] = *req.PatientID
	}
	if req.ScheduledAt != nil {
		next.ScheduledAt = *req.ScheduledAt
		fields["scheduled_at"] = req.ScheduledAt.UTC()
	}
	if req.DurationMinutes != nil {
		next.DurationMinutes = *req.DurationMinutes
		fields["duration_minutes"] = *req.DurationMinutes
	}
	if req.Reason != nil {
		next.Reason = strings.TrimSpace(*req.Reason)
		fields["reason"] = next.Reason
	}
	if req.Notes != nil {
		next.Notes = *req.Notes
		fields["notes"] = *req.Notes
	}
	// The edit form may correct any field, status included; the lifecycle
	// table only guards UpdateStatus.
	var extra map[string]interface{}
	if req.Status != nil {
		next.Status = strings.TrimSpace(*req.Status)
		fields["status"] = next.Status
		if next.Status != current.Status {
			extra = map[string]interface{}{"estadoAnterior": current.Status}
		}
	}
	if err := validate(next); err != nil {
		span.RecordError(err)
		return models.Appointment{}, err
	}
	if len(fields) == 0 {
		return current, nil
	}

	updated, err := s.store.Update(ctx, id, fields)
	if err != nil {
		span.RecordError(err)
		return models.Appointment{}, err
	}
	s.publish(ctx, models.EventAppointmentUpdated, updated, actor, extra)
	return updated, nil
}

// UpdateStatus moves an appointment through its lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string, actor string) (models.Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", id.String()), attribute.String("clinic.status", status))

	status = strings.TrimSpace(status)
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Appointment{}, err
	}
	if err := checkTransition(current.Status, status); err != nil {
		span.RecordError(err)
		return models.Appointment{}, err
	}
	if current.Status == status {
		return current, nil
	}

	updated, err := s.store.Update(ctx, id, map[string]interface{}{"status": status})
	if err != nil {
		span.RecordError(err)
		return models.Appointment{}, err
	}
	s.publish(ctx, models.EventAppointmentStatusChanged, updated, actor, map[string]interface{}{
		"estadoAnterior": current.Status,
	})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor string) error {
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, models.EventAppointmentDeleted, current, actor, nil)
	return nil
}

// Month builds the calendar grid for reference's month with the
// appointments that fall inside it.
func (s *Service) Month(ctx context.Context, reference, today time.Time) ([]calendar.Day[models.Appointment], error) {
	ctx, span := tracer.Start(ctx, "appointments.Month")
	defer span.End()

	start, end := calendar.GridRange(reference)
	rows, err := s.store.ListRange(ctx, start, end.AddDate(0, 0, 1))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("clinic.rows", len(rows)))
	return calendar.Build(reference, rows, scheduledAt, today), nil
}

func scheduledAt(a models.Appointment) time.Time { return a.ScheduledAt }

func (s *Service) requirePatient(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return fmt.Errorf("%w: pacienteId is required", ErrValidation)
	}
	ok, err := s.patients.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return patients.ErrPatientNotFound
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, a models.Appointment, actor string, extra map[string]interface{}) {
	data := map[string]interface{}{
		"id":         a.ID.String(),
		"pacienteId": a.PatientID.String(),
		"fecha":      a.ScheduledAt.UTC().Format(time.RFC3339),
		"estado":     a.Status,
		"actor":      actor,
	}
	for k, v := range extra {
		data[k] = v
	}
	if err := s.events.PublishEvent(ctx, eventType, eventSource, data); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_type":     eventType,
			"appointment_id": a.ID,
		}).Warn("appointment event not published")
	}
}

func checkTransition(from, to string) error {
	if !ValidStatus(to) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func validate(a models.Appointment) error {
	if a.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: fecha is required", ErrValidation)
	}
	if a.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duracion must be positive", ErrValidation)
	}
	if !ValidStatus(a.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, a.Status)
	}
	return nil
}
