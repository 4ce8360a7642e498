// Package client is a typed client for the console REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/gateway/httpclient"
	"github.com/synaptica-ai/clinic-console/pkg/tableview"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	baseURL  string
	http     *http.Client
	token    string
	attempts int
	backoff  time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRetry sets how many times idempotent GETs are attempted.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.backoff = backoff
	}
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpclient.New(timeout),
		attempts: 3,
		backoff:  200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string { return c.token }

func (c *Client) SetToken(token string) { c.token = token }

// Auth

func (c *Client) Login(ctx context.Context, email, password string) (models.AuthResponse, error) {
	var resp models.AuthResponse
	err := c.send(ctx, http.MethodPost, "/api/auth/login", nil, models.LoginRequest{Email: email, Password: password}, &resp)
	if err == nil {
		c.token = resp.AccessToken
	}
	return resp, err
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (models.AuthResponse, error) {
	var resp models.AuthResponse
	err := c.send(ctx, http.MethodPost, "/api/auth/register", nil, req, &resp)
	if err == nil {
		c.token = resp.AccessToken
	}
	return resp, err
}

func (c *Client) Validate(ctx context.Context) (models.User, error) {
	var resp struct {
		User models.User `json:"user"`
	}
	err := c.get(ctx, "/api/auth/validate", nil, &resp)
	return resp.User, err
}

// Patients

func (c *Client) Patients(ctx context.Context) ([]models.Patient, error) {
	var rows []models.Patient
	err := c.get(ctx, "/api/pacientes", url.Values{"all": {"true"}}, &rows)
	return rows, err
}

// PatientsPage lets the server render the view.
func (c *Client) PatientsPage(ctx context.Context, state tableview.ViewState) (tableview.Result[models.Patient], error) {
	var page tableview.Result[models.Patient]
	err := c.get(ctx, "/api/pacientes", state.Query(), &page)
	return page, err
}

func (c *Client) Patient(ctx context.Context, id uuid.UUID) (models.Patient, error) {
	var p models.Patient
	err := c.get(ctx, "/api/pacientes/"+id.String(), nil, &p)
	return p, err
}

func (c *Client) CreatePatient(ctx context.Context, req models.CreatePatientRequest) (models.Patient, error) {
	var p models.Patient
	err := c.send(ctx, http.MethodPost, "/api/pacientes", nil, req, &p)
	return p, err
}

func (c *Client) UpdatePatient(ctx context.Context, id uuid.UUID, req models.UpdatePatientRequest) (models.Patient, error) {
	var p models.Patient
	err := c.send(ctx, http.MethodPatch, "/api/pacientes/"+id.String(), nil, req, &p)
	return p, err
}

func (c *Client) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return c.send(ctx, http.MethodDelete, "/api/pacientes/"+id.String(), nil, nil, nil)
}

// Appointments

func (c *Client) Appointments(ctx context.Context) ([]models.Appointment, error) {
	var rows []models.Appointment
	err := c.get(ctx, "/api/citas", url.Values{"all": {"true"}}, &rows)
	return rows, err
}

// AppointmentsInRange returns appointments in [start, end).
func (c *Client) AppointmentsInRange(ctx context.Context, start, end time.Time) ([]models.Appointment, error) {
	var rows []models.Appointment
	q := url.Values{
		"startDate": {start.Format(time.RFC3339)},
		"endDate":   {end.Format(time.RFC3339)},
	}
	err := c.get(ctx, "/api/citas", q, &rows)
	return rows, err
}

func (c *Client) PatientAppointments(ctx context.Context, patientID uuid.UUID) ([]models.Appointment, error) {
	var rows []models.Appointment
	err := c.get(ctx, "/api/citas/paciente/"+patientID.String(), nil, &rows)
	return rows, err
}

func (c *Client) Appointment(ctx context.Context, id uuid.UUID) (models.Appointment, error) {
	var a models.Appointment
	err := c.get(ctx, "/api/citas/"+id.String(), nil, &a)
	return a, err
}

func (c *Client) CreateAppointment(ctx context.Context, req models.CreateAppointmentRequest) (models.Appointment, error) {
	var a models.Appointment
	err := c.send(ctx, http.MethodPost, "/api/citas", nil, req, &a)
	return a, err
}

func (c *Client) UpdateAppointment(ctx context.Context, id uuid.UUID, req models.UpdateAppointmentRequest) (models.Appointment, error) {
	var a models.Appointment
	err := c.send(ctx, http.MethodPatch, "/api/citas/"+id.String(), nil, req, &a)
	return a, err
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status string) (models.Appointment, error) {
	var a models.Appointment
	err := c.send(ctx, http.MethodPatch, "/api/citas/"+id.String()+"/estado", nil, models.UpdateAppointmentStatusRequest{Status: status}, &a)
	return a, err
}

func (c *Client) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	return c.send(ctx, http.MethodDelete, "/api/citas/"+id.String(), nil, nil, nil)
}

// Calendar fetches a month view; month is YYYY-MM or empty for the current
// month.
func (c *Client) Calendar(ctx context.Context, month string) (models.CalendarMonth, error) {
	var view models.CalendarMonth
	var q url.Values
	if month != "" {
		q = url.Values{"month": {month}}
	}
	err := c.get(ctx, "/api/calendario", q, &view)
	return view, err
}

func (c *Client) Dashboard(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	err := c.get(ctx, "/api/stats/dashboard", nil, &stats)
	return stats, err
}

func (c *Client) Audit(ctx context.Context, state tableview.ViewState) (tableview.Result[models.AuditEntry], error) {
	var page tableview.Result[models.AuditEntry]
	err := c.get(ctx, "/api/auditoria", state.Query(), &page)
	return page, err
}

// get retries transport failures and 5xx answers; other errors return at
// once.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return httpclient.Retry(ctx, c.attempts, c.backoff, func() error {
		err := c.send(ctx, http.MethodGet, path, query, nil, out)
		if err != nil && !retriable(err) {
			return httpclient.Permanent(err)
		}
		return err
	})
}

func retriable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return httpclient.IsRetriable(err)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var payload struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
			apiErr.Message = payload.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
