package patients

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"gorm.io/gorm"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrDocumentExists  = errors.New("document already registered")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type PatientModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstNames   string    `gorm:"not null"`
	LastNames    string    `gorm:"not null"`
	DocumentType string
	Document     string `gorm:"uniqueIndex"`
	Email        string
	Phone        string
	BirthDate    *time.Time `gorm:"type:date"`
	Sex          string
	Address      string
	Notes        string
	Status       string `gorm:"index"`
	Tags         string
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

func (PatientModel) TableName() string {
	return "patients"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PatientModel{})
}

func (r *Repository) Create(ctx context.Context, patient models.Patient) (models.Patient, error) {
	var existing int64
	if err := r.db.WithContext(ctx).Model(&PatientModel{}).Where("document = ?", patient.Document).Count(&existing).Error; err != nil {
		return models.Patient{}, err
	}
	if existing > 0 {
		return models.Patient{}, ErrDocumentExists
	}

	now := time.Now().UTC()
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	model := toModel(patient)
	model.CreatedAt = now
	model.UpdatedAt = now

	// The count above is only a fast path; the unique index decides races.
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return models.Patient{}, mapWriteError(err)
	}
	return mapPatientModel(model), nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (models.Patient, error) {
	var model PatientModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Patient{}, ErrPatientNotFound
	}
	if err != nil {
		return models.Patient{}, err
	}
	return mapPatientModel(model), nil
}

// List returns every patient, newest first.
func (r *Repository) List(ctx context.Context) ([]models.Patient, error) {
	var rows []PatientModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Patient, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapPatientModel(row))
	}
	return out, nil
}

// Update applies column updates and returns the stored row.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (models.Patient, error) {
	if doc, ok := fields["document"].(string); ok {
		var clash int64
		if err := r.db.WithContext(ctx).Model(&PatientModel{}).
			Where("document = ? AND id <> ?", doc, id).Count(&clash).Error; err != nil {
			return models.Patient{}, err
		}
		if clash > 0 {
			return models.Patient{}, ErrDocumentExists
		}
	}

	fields["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&PatientModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.Patient{}, mapWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.Patient{}, ErrPatientNotFound
	}
	return r.Get(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&PatientModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&PatientModel{}).Count(&count).Error
	return count, err
}

func (r *Repository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&PatientModel{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func mapWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDocumentExists
	}
	return err
}

func toModel(p models.Patient) PatientModel {
	return PatientModel{
		ID:           p.ID,
		FirstNames:   p.FirstNames,
		LastNames:    p.LastNames,
		DocumentType: p.DocumentType,
		Document:     strings.TrimSpace(p.Document),
		Email:        p.Email,
		Phone:        p.Phone,
		BirthDate:    p.BirthDate,
		Sex:          p.Sex,
		Address:      p.Address,
		Notes:        p.Notes,
		Status:       p.Status,
		Tags:         p.Tags,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func mapPatientModel(m PatientModel) models.Patient {
	return models.Patient{
		ID:           m.ID,
		FirstNames:   m.FirstNames,
		LastNames:    m.LastNames,
		DocumentType: m.DocumentType,
		Document:     m.Document,
		Email:        m.Email,
		Phone:        m.Phone,
		BirthDate:    m.BirthDate,
		Sex:          m.Sex,
		Address:      m.Address,
		Notes:        m.Notes,
		Status:       m.Status,
		Tags:         m.Tags,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
