package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type AuditModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	EventID    string `gorm:"uniqueIndex"`
	Type       string `gorm:"index"`
	Source     string
	Entity     string `gorm:"index"`
	EntityID   string `gorm:"index"`
	Actor      string
	Payload    datatypes.JSON `gorm:"type:jsonb"`
	OccurredAt time.Time      `gorm:"index"`
	CreatedAt  time.Time
}

func (AuditModel) TableName() string {
	return "audit_entries"
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&AuditModel{})
}

// Insert stores an entry once per event id; redelivered events are ignored.
func (r *Repository) Insert(ctx context.Context, entry models.AuditEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}
	model := AuditModel{
		EventID:    entry.EventID,
		Type:       entry.Type,
		Source:     entry.Source,
		Entity:     entry.Entity,
		EntityID:   entry.EntityID,
		Actor:      entry.Actor,
		Payload:    datatypes.JSON(payload),
		OccurredAt: entry.OccurredAt.UTC(),
		CreatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(&model).Error
}

// Recent returns up to limit entries, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	var rows []AuditModel
	if err := r.db.WithContext(ctx).Order("occurred_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.AuditEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapAuditModel(row))
	}
	return out, nil
}

// Summary counts entries by kind of change since the given time.
func (r *Repository) Summary(ctx context.Context, since time.Time) (Summary, error) {
	var summary Summary
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN type LIKE '%.created' THEN 1 ELSE 0 END), 0) AS created,
			COALESCE(SUM(CASE WHEN type LIKE '%.updated' THEN 1 ELSE 0 END), 0) AS updated,
			COALESCE(SUM(CASE WHEN type LIKE '%.status_changed' THEN 1 ELSE 0 END), 0) AS status_changed,
			COALESCE(SUM(CASE WHEN type LIKE '%.deleted' THEN 1 ELSE 0 END), 0) AS deleted
		FROM audit_entries
		WHERE occurred_at >= ?
	`, since.UTC()).Scan(&summary).Error
	return summary, err
}

func mapAuditModel(m AuditModel) models.AuditEntry {
	payload := map[string]interface{}{}
	if len(m.Payload) > 0 {
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			payload = map[string]interface{}{"raw": string(m.Payload)}
		}
	}
	return models.AuditEntry{
		ID:         m.ID,
		EventID:    m.EventID,
		Type:       m.Type,
		Source:     m.Source,
		Entity:     m.Entity,
		EntityID:   m.EntityID,
		Actor:      m.Actor,
		Payload:    payload,
		OccurredAt: m.OccurredAt,
		CreatedAt:  m.CreatedAt,
	}
}
