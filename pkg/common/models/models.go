package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Patient statuses
const (
	PatientActive   = "activo"
	PatientInactive = "inactivo"
)

// Appointment statuses
const (
	AppointmentPending    = "pendiente"
	AppointmentInProgress = "en_curso"
	AppointmentCompleted  = "completada"
	AppointmentCancelled  = "cancelada"
)

// AppointmentStatuses lists every status in display order.
var AppointmentStatuses = []string{
	AppointmentPending,
	AppointmentInProgress,
	AppointmentCompleted,
	AppointmentCancelled,
}

const (
	DefaultAppointmentMinutes = 30
	DefaultSex                = "no_especifica"
)

// Clinical records
type Patient struct {
	ID           uuid.UUID  `json:"id"`
	FirstNames   string     `json:"nombres"`
	LastNames    string     `json:"apellidos"`
	DocumentType string     `json:"tipoDocumento"`
	Document     string     `json:"documento"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"telefono,omitempty"`
	BirthDate    *time.Time `json:"nacimiento,omitempty"`
	Sex          string     `json:"sexo"`
	Address      string     `json:"direccion,omitempty"`
	Notes        string     `json:"notas,omitempty"`
	Status       string     `json:"estado"`
	Tags         string     `json:"etiquetas,omitempty"` // comma separated
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (p Patient) FullName() string {
	return strings.TrimSpace(p.FirstNames + " " + p.LastNames)
}

// TagList splits the comma separated tags, dropping blanks.
func (p Patient) TagList() []string {
	var tags []string
	for _, t := range strings.Split(p.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// PatientSummary is the patient excerpt embedded in appointments.
type PatientSummary struct {
	ID         uuid.UUID `json:"id"`
	FirstNames string    `json:"nombres"`
	LastNames  string    `json:"apellidos"`
	Document   string    `json:"documento"`
	Phone      string    `json:"telefono,omitempty"`
	Email      string    `json:"email,omitempty"`
}

func (p PatientSummary) FullName() string {
	return strings.TrimSpace(p.FirstNames + " " + p.LastNames)
}

type Appointment struct {
	ID              uuid.UUID       `json:"id"`
	PatientID       uuid.UUID       `json:"pacienteId"`
	ScheduledAt     time.Time       `json:"fecha"`
	DurationMinutes int             `json:"duracion"`
	Status          string          `json:"estado"`
	Reason          string          `json:"motivo,omitempty"`
	Notes           string          `json:"notas,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Patient         *PatientSummary `json:"paciente,omitempty"`
}

// PatientName is empty when the patient was not loaded.
func (a Appointment) PatientName() string {
	if a.Patient == nil {
		return ""
	}
	return a.Patient.FullName()
}

func (a Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Requests
type CreatePatientRequest struct {
	FirstNames   string `json:"nombres"`
	LastNames    string `json:"apellidos"`
	DocumentType string `json:"tipoDocumento"`
	Document     string `json:"documento"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"telefono,omitempty"`
	BirthDate    string `json:"nacimiento,omitempty"` // YYYY-MM-DD or RFC3339
	Sex          string `json:"sexo,omitempty"`
	Address      string `json:"direccion,omitempty"`
	Notes        string `json:"notas,omitempty"`
	Status       string `json:"estado,omitempty"`
	Tags         string `json:"etiquetas,omitempty"`
}

// UpdatePatientRequest only touches the fields that are present.
type UpdatePatientRequest struct {
	FirstNames   *string `json:"nombres,omitempty"`
	LastNames    *string `json:"apellidos,omitempty"`
	DocumentType *string `json:"tipoDocumento,omitempty"`
	Document     *string `json:"documento,omitempty"`
	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"telefono,omitempty"`
	BirthDate    *string `json:"nacimiento,omitempty"`
	Sex          *string `json:"sexo,omitempty"`
	Address      *string `json:"direccion,omitempty"`
	Notes        *string `json:"notas,omitempty"`
	Status       *string `json:"estado,omitempty"`
	Tags         *string `json:"etiquetas,omitempty"`
}

type CreateAppointmentRequest struct {
	PatientID       uuid.UUID `json:"pacienteId"`
	ScheduledAt     time.Time `json:"fecha"`
	DurationMinutes *int      `json:"duracion,omitempty"`
	Reason          string    `json:"motivo,omitempty"`
	Status          string    `json:"estado,omitempty"`
	Notes           string    `json:"notas,omitempty"`
}

type UpdateAppointmentRequest struct {
	PatientID       *uuid.UUID `json:"pacienteId,omitempty"`
	ScheduledAt     *time.Time `json:"fecha,omitempty"`
	DurationMinutes *int       `json:"duracion,omitempty"`
	Reason          *string    `json:"motivo,omitempty"`
	Status          *string    `json:"estado,omitempty"`
	Notes           *string    `json:"notas,omitempty"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"estado"`
}

// Identity
type User struct {
	ID        uuid.UUID              `json:"id"`
	Email     string                 `json:"email"`
	FirstName string                 `json:"nombre"`
	LastName  string                 `json:"apellido"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        User   `json:"user"`
}

// Dashboard
type DashboardStats struct {
	TotalPatients         int64                 `json:"totalPacientes"`
	ActivePatients        int64                 `json:"pacientesActivos"`
	AppointmentsThisMonth int64                 `json:"citasMes"`
	AppointmentsToday     int64                 `json:"citasHoy"`
	Upcoming              []UpcomingAppointment `json:"proximasCitas"`
	ByStatus              []StatusCount         `json:"citasPorEstado"`
	GeneratedAt           time.Time             `json:"generatedAt"`
}

type UpcomingAppointment struct {
	ID          uuid.UUID      `json:"id"`
	ScheduledAt time.Time      `json:"fecha"`
	Status      string         `json:"estado"`
	Reason      string         `json:"motivo,omitempty"`
	Patient     PatientSummary `json:"paciente"`
}

type StatusCount struct {
	Status string `json:"estado"`
	Count  int64  `json:"cantidad"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

const (
	EventPatientCreated           = "patient.created"
	EventPatientUpdated           = "patient.updated"
	EventPatientDeleted           = "patient.deleted"
	EventAppointmentCreated       = "appointment.created"
	EventAppointmentUpdated       = "appointment.updated"
	EventAppointmentStatusChanged = "appointment.status_changed"
	EventAppointmentDeleted       = "appointment.deleted"
)

// AuditEntry is one recorded lifecycle event.
type AuditEntry struct {
	ID         int64                  `json:"id"`
	EventID    string                 `json:"event_id"`
	Type       string                 `json:"type"`
	Source     string                 `json:"source"`
	Entity     string                 `json:"entity"`
	EntityID   string                 `json:"entity_id"`
	Actor      string                 `json:"actor"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Calendar
type CalendarMonth struct {
	Month     string          `json:"month"` // YYYY-MM
	PrevMonth string          `json:"prev_month"`
	NextMonth string          `json:"next_month"`
	Weeks     [][]CalendarDay `json:"weeks"`
}

type CalendarDay struct {
	Date           string          `json:"date"` // YYYY-MM-DD
	InCurrentMonth bool            `json:"in_current_month"`
	IsToday        bool            `json:"is_today"`
	Events         []CalendarEntry `json:"events"`
	More           int             `json:"more"`
	Total          int             `json:"total"`
}

type CalendarEntry struct {
	ID      uuid.UUID `json:"id"`
	Time    string    `json:"hora"` // HH:mm
	Patient string    `json:"paciente"`
	Status  string    `json:"estado"`
	Reason  string    `json:"motivo,omitempty"`
}
