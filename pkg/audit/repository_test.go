package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return NewRepository(db), mock
}

func TestInsertIgnoresDuplicateEvents(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`INSERT INTO "audit_entries" .* ON CONFLICT \("event_id"\) DO NOTHING RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	err := repo.Insert(context.Background(), models.AuditEntry{
		EventID:    "e1",
		Type:       models.EventPatientCreated,
		Payload:    map[string]interface{}{"id": "p-1"},
		OccurredAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentDecodesPayload(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT \* FROM "audit_entries" ORDER BY occurred_at DESC LIMIT \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "type", "source", "entity", "entity_id", "actor", "payload", "occurred_at", "created_at"}).
			AddRow(7, "e7", "patient.updated", "patients", "patient", "p-1", "ana", []byte(`{"estado":"inactivo"}`), now, now).
			AddRow(6, "e6", "patient.created", "patients", "patient", "p-1", "ana", []byte(`[1,2]`), now, now))

	entries, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "inactivo", entries[0].Payload["estado"])
	assert.Equal(t, "[1,2]", entries[1].Payload["raw"])
}

func TestSummaryScansCounts(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(`SELECT .* FROM audit_entries WHERE occurred_at >= \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"created", "updated", "status_changed", "deleted"}).AddRow(4, 3, 2, 1))

	summary, err := repo.Summary(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, Summary{Created: 4, Updated: 3, StatusChanged: 2, Deleted: 1}, summary)
}
