package patients

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/tableview"
)

func samplePatients() []models.Patient {
	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	return []models.Patient{
		{FirstNames: "beto", LastNames: "Gómez", Document: "2", Status: models.PatientActive, CreatedAt: base.AddDate(0, 0, 2)},
		{FirstNames: "Ana", LastNames: "Pérez", Document: "1", Status: models.PatientInactive, Tags: "vip,control", CreatedAt: base},
		{FirstNames: "Carla", LastNames: "Ruiz", Document: "3", Status: models.PatientActive, Phone: "555-9", CreatedAt: base.AddDate(0, 0, 1)},
	}
}

func docs(rows []models.Patient) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Document)
	}
	return out
}

func TestTableSortsByNameIgnoringCase(t *testing.T) {
	got := Table().Render(samplePatients(), tableview.NewViewState().WithSort("paciente", tableview.Ascending))
	assert.Equal(t, []string{"1", "2", "3"}, docs(got.Rows))
}

func TestTableSortsByRegistrationDate(t *testing.T) {
	got := Table().Render(samplePatients(), tableview.NewViewState().WithSort("createdAt", tableview.Descending))
	assert.Equal(t, []string{"2", "3", "1"}, docs(got.Rows))
}

func TestTableFilters(t *testing.T) {
	table := Table()
	active := table.Render(samplePatients(), tableview.NewViewState().WithFilter("estado", models.PatientActive))
	assert.Equal(t, []string{"2", "3"}, docs(active.Rows))

	tagged := table.Render(samplePatients(), tableview.NewViewState().WithFilter("etiqueta", "VIP"))
	assert.Equal(t, []string{"1"}, docs(tagged.Rows))

	byPhone := table.Render(samplePatients(), tableview.NewViewState().WithGlobalSearch("555"))
	assert.Equal(t, []string{"3"}, docs(byPhone.Rows))
}

func TestDocumentColumnIsNotSortable(t *testing.T) {
	err := Table().Validate(tableview.NewViewState().WithSort("documento", tableview.Ascending))
	assert.ErrorIs(t, err, tableview.ErrInvalidView)
}
