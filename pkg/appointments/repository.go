package appointments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/patients"
	"gorm.io/gorm"
)

var ErrAppointmentNotFound = errors.New("appointment not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type AppointmentModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	PatientID       uuid.UUID `gorm:"type:uuid;index;not null"`
	ScheduledAt     time.Time `gorm:"index;not null"`
	DurationMinutes int
	Status          string `gorm:"index"`
	Reason          string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Patient patients.PatientModel `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
}

func (AppointmentModel) TableName() string {
	return "appointments"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&patients.PatientModel{}, &AppointmentModel{})
}

func (r *Repository) Create(ctx context.Context, a models.Appointment) (models.Appointment, error) {
	now := time.Now().UTC()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	model := AppointmentModel{
		ID:              a.ID,
		PatientID:       a.PatientID,
		ScheduledAt:     a.ScheduledAt.UTC(),
		DurationMinutes: a.DurationMinutes,
		Status:          a.Status,
		Reason:          a.Reason,
		Notes:           a.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.db.WithContext(ctx).Omit("Patient").Create(&model).Error; err != nil {
		return models.Appointment{}, err
	}
	return r.Get(ctx, model.ID)
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.Appointment, error) {
	var model AppointmentModel
	err := r.db.WithContext(ctx).Preload("Patient").Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Appointment{}, ErrAppointmentNotFound
	}
	if err != nil {
		return models.Appointment{}, err
	}
	return mapAppointmentModel(model), nil
}

// List returns every appointment, latest first.
func (r *Repository) List(ctx context.Context) ([]models.Appointment, error) {
	return r.find(ctx, r.db.WithContext(ctx).Order("scheduled_at DESC"))
}

// ListRange returns appointments scheduled in [start, end), earliest first.
func (r *Repository) ListRange(ctx context.Context, start, end time.Time) ([]models.Appointment, error) {
	q := r.db.WithContext(ctx).
		Where("scheduled_at >= ? AND scheduled_at < ?", start.UTC(), end.UTC()).
		Order("scheduled_at ASC")
	return r.find(ctx, q)
}

func (r *Repository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]models.Appointment, error) {
	q := r.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("scheduled_at DESC")
	return r.find(ctx, q)
}

// Upcoming returns appointments with status in [from, to), earliest first.
func (r *Repository) Upcoming(ctx context.Context, status string, from, to time.Time, limit int) ([]models.Appointment, error) {
	q := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at >= ? AND scheduled_at < ?", status, from.UTC(), to.UTC()).
		Order("scheduled_at ASC").
		Limit(limit)
	return r.find(ctx, q)
}

func (r *Repository) find(_ context.Context, q *gorm.DB) ([]models.Appointment, error) {
	var rows []AppointmentModel
	if err := q.Preload("Patient").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Appointment, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapAppointmentModel(row))
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (models.Appointment, error) {
	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&AppointmentModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.Appointment{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Appointment{}, ErrAppointmentNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&AppointmentModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// CountRange counts appointments scheduled in [start, end).
func (r *Repository) CountRange(ctx context.Context, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&AppointmentModel{}).
		Where("scheduled_at >= ? AND scheduled_at < ?", start.UTC(), end.UTC()).
		Count(&count).Error
	return count, err
}

func (r *Repository) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&AppointmentModel{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Order("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.StatusCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.StatusCount{Status: row.Status, Count: row.Total})
	}
	return out, nil
}

func mapAppointmentModel(m AppointmentModel) models.Appointment {
	a := models.Appointment{
		ID:              m.ID,
		PatientID:       m.PatientID,
		ScheduledAt:     m.ScheduledAt,
		DurationMinutes: m.DurationMinutes,
		Status:          m.Status,
		Reason:          m.Reason,
		Notes:           m.Notes,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.Patient.ID != uuid.Nil {
		a.Patient = &models.PatientSummary{
			ID:         m.Patient.ID,
			FirstNames: m.Patient.FirstNames,
			LastNames:  m.Patient.LastNames,
			Document:   m.Patient.Document,
			Phone:      m.Patient.Phone,
			Email:      m.Patient.Email,
		}
	}
	return a
}
