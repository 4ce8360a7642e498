package patients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
)

func validRequest(doc string) models.CreatePatientRequest {
	return models.CreatePatientRequest{
		FirstNames:   " Ana ",
		LastNames:    "Pérez",
		DocumentType: "DNI",
		Document:     doc,
		Email:        "ana@clinic.test",
		BirthDate:    "1990-03-05",
		Tags:         "vip, , control ",
	}
}

func TestCreateAppliesDefaults(t *testing.T) {
	events := &recordingPublisher{}
	svc := NewService(&memStore{}, events)

	p, err := svc.Create(context.Background(), validRequest("123"), "ana@clinic.test")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, "Ana", p.FirstNames)
	assert.Equal(t, models.PatientActive, p.Status)
	assert.Equal(t, models.DefaultSex, p.Sex)
	assert.Equal(t, "vip,control", p.Tags)
	require.NotNil(t, p.BirthDate)
	assert.Equal(t, time.Date(1990, time.March, 5, 0, 0, 0, 0, time.UTC), *p.BirthDate)

	assert.Equal(t, []string{models.EventPatientCreated}, events.types())
	assert.Equal(t, "ana@clinic.test", events.events[0].Data["actor"])
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(&memStore{}, nil)
	tests := []struct {
		name   string
		mutate func(*models.CreatePatientRequest)
	}{
		{"missing names", func(r *models.CreatePatientRequest) { r.FirstNames = "  " }},
		{"missing document", func(r *models.CreatePatientRequest) { r.Document = "" }},
		{"bad status", func(r *models.CreatePatientRequest) { r.Status = "dormido" }},
		{"bad email", func(r *models.CreatePatientRequest) { r.Email = "ana@" }},
		{"bad birth date", func(r *models.CreatePatientRequest) { r.BirthDate = "05/03/1990" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest("123")
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), req, "")
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateDuplicateDocument(t *testing.T) {
	svc := NewService(&memStore{}, nil)
	_, err := svc.Create(context.Background(), validRequest("123"), "")
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), validRequest("123"), "")
	assert.ErrorIs(t, err, ErrDocumentExists)
}

func TestUpdateIsPartial(t *testing.T) {
	events := &recordingPublisher{}
	svc := NewService(&memStore{}, events)
	created, err := svc.Create(context.Background(), validRequest("123"), "")
	require.NoError(t, err)

	status := models.PatientInactive
	phone := " 555-0101 "
	empty := ""
	updated, err := svc.Update(context.Background(), created.ID, models.UpdatePatientRequest{
		Status:    &status,
		Phone:     &phone,
		BirthDate: &empty,
	}, "")
	require.NoError(t, err)

	assert.Equal(t, models.PatientInactive, updated.Status)
	assert.Equal(t, "555-0101", updated.Phone)
	assert.Nil(t, updated.BirthDate)
	assert.Equal(t, "Ana", updated.FirstNames, "untouched fields survive")
	assert.Equal(t, []string{models.EventPatientCreated, models.EventPatientUpdated}, events.types())

	blank := " "
	_, err = svc.Update(context.Background(), created.ID, models.UpdatePatientRequest{FirstNames: &blank}, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(context.Background(), uuid.New(), models.UpdatePatientRequest{Status: &status}, "")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestDeletePublishesAndToleratesBrokerFailure(t *testing.T) {
	events := &recordingPublisher{err: errors.New("broker down")}
	store := &memStore{}
	svc := NewService(store, events)
	created, err := svc.Create(context.Background(), validRequest("123"), "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID, "admin@clinic.test"))
	assert.Equal(t, []string{models.EventPatientCreated, models.EventPatientDeleted}, events.types())

	assert.ErrorIs(t, svc.Delete(context.Background(), created.ID, ""), ErrPatientNotFound)
}

func TestCountsAndExists(t *testing.T) {
	svc := NewService(&memStore{}, nil)
	a, err := svc.Create(context.Background(), validRequest("1"), "")
	require.NoError(t, err)
	inactive := validRequest("2")
	inactive.Status = models.PatientInactive
	_, err = svc.Create(context.Background(), inactive, "")
	require.NoError(t, err)

	total, active, err := svc.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), active)

	ok, err := svc.Exists(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Exists(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseBirthDate(t *testing.T) {
	got, err := ParseBirthDate("1990-03-05T22:00:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, time.March, 5, 0, 0, 0, 0, time.UTC), *got)

	got, err = ParseBirthDate("")
	require.NoError(t, err)
	assert.Nil(t, got)
}
