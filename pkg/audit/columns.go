package audit

import (
	"strings"
	"time"

	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/tableview"
)

const Entity = "auditoria"

func Table(loc *time.Location) *tableview.Table[models.AuditEntry] {
	if loc == nil {
		loc = time.Local
	}
	return tableview.NewTable([]tableview.Column[models.AuditEntry]{
		tableview.NewColumn("fecha",
			func(e models.AuditEntry) int64 { return e.OccurredAt.UnixMilli() },
			tableview.WithHeader[models.AuditEntry]("Fecha"),
			tableview.Sortable[models.AuditEntry](),
			tableview.WithText(func(e models.AuditEntry) string {
				return e.OccurredAt.In(loc).Format("02/01/2006 15:04")
			}),
		),
		tableview.NewColumn("tipo",
			func(e models.AuditEntry) string { return e.Type },
			tableview.WithHeader[models.AuditEntry]("Evento"),
			tableview.Sortable[models.AuditEntry](),
		),
		tableview.NewColumn("entidad",
			func(e models.AuditEntry) string { return e.Entity },
			tableview.WithHeader[models.AuditEntry]("Entidad"),
		),
		tableview.NewColumn("actor",
			func(e models.AuditEntry) string { return strings.ToLower(e.Actor) },
			tableview.WithHeader[models.AuditEntry]("Usuario"),
			tableview.Sortable[models.AuditEntry](),
			tableview.WithText(func(e models.AuditEntry) string { return e.Actor }),
		),
		tableview.NewColumn("entidadId",
			func(e models.AuditEntry) string { return e.EntityID },
			tableview.WithHeader[models.AuditEntry]("ID"),
		),
	}, SearchText)
}

func SearchText(e models.AuditEntry) string {
	return strings.Join([]string{e.Type, e.Actor, e.EntityID, e.Source}, " ")
}
