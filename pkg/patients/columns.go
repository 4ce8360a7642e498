package patients

import (
	"strings"

	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/tableview"
)

// Entity keys the view presets.
const Entity = "pacientes"

// Table is the patient list: name and registration date sort, estado filters
// by exact value and the search box looks at names, document, contact data
// and tags.
func Table() *tableview.Table[models.Patient] {
	return tableview.NewTable([]tableview.Column[models.Patient]{
		tableview.NewColumn("paciente",
			func(p models.Patient) string { return strings.ToLower(p.FullName()) },
			tableview.WithHeader[models.Patient]("Paciente"),
			tableview.Sortable[models.Patient](),
			tableview.WithText(func(p models.Patient) string { return p.FullName() }),
		),
		tableview.NewColumn("documento",
			func(p models.Patient) string { return p.Document },
			tableview.WithHeader[models.Patient]("Documento"),
			tableview.WithText(func(p models.Patient) string {
				return strings.TrimSpace(p.DocumentType + " " + p.Document)
			}),
		),
		tableview.NewColumn("contacto",
			func(p models.Patient) string { return p.Email },
			tableview.WithHeader[models.Patient]("Contacto"),
			tableview.WithText(func(p models.Patient) string {
				return strings.TrimSpace(p.Email + " " + p.Phone)
			}),
		),
		tableview.NewColumn("createdAt",
			func(p models.Patient) int64 { return p.CreatedAt.UnixMilli() },
			tableview.WithHeader[models.Patient]("Fecha registro"),
			tableview.Sortable[models.Patient](),
			tableview.WithText(func(p models.Patient) string { return p.CreatedAt.Format("02/01/2006") }),
		),
		tableview.NewColumn("estado",
			func(p models.Patient) string { return p.Status },
			tableview.WithHeader[models.Patient]("Estado"),
		),
		tableview.NewColumn("etiqueta",
			func(p models.Patient) string { return p.Tags },
			tableview.WithHeader[models.Patient]("Etiquetas"),
			tableview.WithFilter(hasTag),
		),
	}, SearchText)
}

func SearchText(p models.Patient) string {
	return strings.Join([]string{
		p.FirstNames, p.LastNames, p.Document, p.Email, p.Phone, p.Tags,
	}, " ")
}

func hasTag(p models.Patient, tag string) bool {
	for _, t := range p.TagList() {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
