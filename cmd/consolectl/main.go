package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/clinic-console/pkg/appointments"
	"github.com/synaptica-ai/clinic-console/pkg/audit"
	"github.com/synaptica-ai/clinic-console/pkg/client"
	"github.com/synaptica-ai/clinic-console/pkg/common/config"
	"github.com/synaptica-ai/clinic-console/pkg/common/logger"
	"github.com/synaptica-ai/clinic-console/pkg/common/models"
	"github.com/synaptica-ai/clinic-console/pkg/patients"
	"github.com/synaptica-ai/clinic-console/pkg/tableview"
)

const usage = `consolectl manages the clinic console from the terminal.

Usage:
  consolectl [-api URL] [-token-file PATH] [-v] <command> [flags]

Commands:
  login          sign in and keep the session token
  logout         forget the saved session
  whoami         show the signed in user
  patients       list patients
  appointments   list appointments
  status         change an appointment status
  calendar       show the monthly calendar
  stats          show the dashboard summary
  audit          list recorded lifecycle events
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type app struct {
	cfg       *config.Config
	api       *client.Client
	tokenFile string
	out       io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()

	global := flag.NewFlagSet("consolectl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	apiURL := global.String("api", cfg.APIBaseURL, "console API base URL")
	tokenFile := global.String("token-file", cfg.TokenFile, "where the session token is kept")
	verbose := global.Bool("v", false, "verbose logging")
	if err := global.Parse(args); err != nil {
		return 2
	}
	logger.InitCLI(stderr, *verbose)

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}

	path, err := tokenPath(*tokenFile)
	if err != nil {
		fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		return 1
	}
	a := &app{cfg: cfg, tokenFile: path, out: stdout}

	var opts []client.Option
	if token, err := loadToken(path); err == nil {
		opts = append(opts, client.WithToken(token))
	}
	a.api = client.New(*apiURL, cfg.RequestTimeout, opts...)

	commands := map[string]func(context.Context, []string) error{
		"login":        a.login,
		"logout":       a.logout,
		"whoami":       a.whoami,
		"patients":     a.patients,
		"appointments": a.appointments,
		"status":       a.status,
		"calendar":     a.calendar,
		"stats":        a.stats,
		"audit":        a.audit,
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		global.Usage()
		return 2
	}

	logger.WithField("command", rest[0]).Debug("Running command")
	if err := cmd(ctx, rest[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if rest[0] != "login" && client.IsStatus(err, http.StatusUnauthorized) {
			err = errors.New("session expired or missing, run `consolectl login`")
		}
		fmt.Fprintln(stderr, errorStyle.Render(err.Error()))
		return 1
	}
	return 0
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("CONSOLE_PASSWORD"), "account password (or CONSOLE_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login needs -email and -password")
	}

	resp, err := a.api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := saveToken(a.tokenFile, resp.AccessToken); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	fmt.Fprintf(a.out, "Sesión iniciada como %s\n", titleStyle.Render(resp.User.Email))
	return nil
}

func (a *app) logout(_ context.Context, _ []string) error {
	if err := clearToken(a.tokenFile); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Sesión cerrada")
	return nil
}

func (a *app) whoami(ctx context.Context, _ []string) error {
	user, err := a.api.Validate(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s <%s>\n", user.FirstName, user.LastName, user.Email)
	return nil
}

// viewFlags binds the common sort/filter/page flags of list commands.
type viewFlags struct {
	search   *string
	sort     *string
	dir      *string
	status   *string
	page     *int
	pageSize *int
}

func bindViewFlags(fs *flag.FlagSet) viewFlags {
	return viewFlags{
		search:   fs.String("q", "", "global search"),
		sort:     fs.String("sort", "", "sort column id"),
		dir:      fs.String("dir", "asc", "sort direction (asc|desc)"),
		status:   fs.String("estado", "", "filter by status"),
		page:     fs.Int("page", 1, "page number, starting at 1"),
		pageSize: fs.Int("page-size", 0, "rows per page"),
	}
}

// apply layers the flags over the initial state of the view.
func (v viewFlags) apply(state tableview.ViewState) (tableview.ViewState, error) {
	if *v.sort != "" {
		dir, ok := tableview.ParseDirection(*v.dir)
		if !ok {
			return state, fmt.Errorf("invalid direction %q", *v.dir)
		}
		state = state.WithSort(*v.sort, dir)
	}
	if *v.status != "" {
		state = state.WithFilter("estado", *v.status)
	}
	if *v.search != "" {
		state = state.WithGlobalSearch(*v.search)
	}
	if *v.pageSize > 0 {
		state = state.WithPageSize(*v.pageSize)
	}
	if *v.page > 1 {
		state = state.WithPage(*v.page - 1)
	}
	return state, nil
}

func (a *app) presets() tableview.Presets {
	if a.cfg.ViewPresetsFile == "" {
		return tableview.DefaultPresets()
	}
	presets, err := tableview.LoadPresets(a.cfg.ViewPresetsFile)
	if err != nil {
		logger.Log.WithError(err).Warn("Falling back to default view presets")
		return tableview.DefaultPresets()
	}
	return presets
}

func (a *app) patients(ctx context.Context, args []string) error {
	fs := newFlagSet("patients")
	view := bindViewFlags(fs)
	tag := fs.String("etiqueta", "", "filter by tag")
	if err := fs.Parse(args); err != nil {
		return err
	}

	state, err := view.apply(a.presets().Initial(patients.Entity))
	if err != nil {
		return err
	}
	if *tag != "" {
		state = state.WithFilter("etiqueta", *tag)
	}
	table := patients.Table()
	if err := table.Validate(state); err != nil {
		return err
	}

	records, err := a.api.Patients(ctx)
	if err != nil {
		return err
	}
	result := table.RenderClamped(records, state)
	fmt.Fprintln(a.out, renderPage(table, result, []string{"paciente", "documento", "contacto", "estado", "createdAt"}))
	return nil
}

func (a *app) appointments(ctx context.Context, args []string) error {
	fs := newFlagSet("appointments")
	view := bindViewFlags(fs)
	patient := fs.String("paciente", "", "only appointments of this patient id")
	from := fs.String("desde", "", "range start, YYYY-MM-DD")
	to := fs.String("hasta", "", "range end (inclusive), YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loc := a.cfg.Location()
	state, err := view.apply(a.presets().Initial(appointments.Entity))
	if err != nil {
		return err
	}
	table := appointments.Table(loc)
	if err := table.Validate(state); err != nil {
		return err
	}

	var records []models.Appointment
	switch {
	case *patient != "":
		id, perr := uuid.Parse(*patient)
		if perr != nil {
			return fmt.Errorf("invalid patient id %q", *patient)
		}
		records, err = a.api.PatientAppointments(ctx, id)
	case *from != "" || *to != "":
		start, end, rerr := parseRange(*from, *to, loc)
		if rerr != nil {
			return rerr
		}
		records, err = a.api.AppointmentsInRange(ctx, start, end)
	default:
		records, err = a.api.Appointments(ctx)
	}
	if err != nil {
		return err
	}

	result := table.RenderClamped(records, state)
	fmt.Fprintln(a.out, renderPage(table, result, []string{"fecha", "paciente", "motivo", "estado", "duracion"}))
	return nil
}

// parseRange reads inclusive calendar dates; the end is moved to the start
// of the following day.
func parseRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	if from == "" || to == "" {
		return time.Time{}, time.Time{}, errors.New("-desde and -hasta go together")
	}
	start, err := time.ParseInLocation("2006-01-02", from, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -desde: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02", to, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -hasta: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("-hasta is before -desde")
	}
	return start, end.AddDate(0, 0, 1), nil
}

func (a *app) status(ctx context.Context, args []string) error {
	fs := newFlagSet("status")
	id := fs.String("id", "", "appointment id")
	status := fs.String("estado", "", "new status: "+strings.Join(models.AppointmentStatuses, ", "))
	if err := fs.Parse(args); err != nil {
		return err
	}
	appointmentID, err := uuid.Parse(*id)
	if err != nil {
		return fmt.Errorf("invalid appointment id %q", *id)
	}
	if *status == "" {
		return errors.New("status needs -estado")
	}

	updated, err := a.api.UpdateAppointmentStatus(ctx, appointmentID, *status)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Cita %s: %s\n", updated.ScheduledAt.In(a.cfg.Location()).Format("02/01/2006 15:04"), statusBadge(updated.Status))
	return nil
}

func (a *app) calendar(ctx context.Context, args []string) error {
	fs := newFlagSet("calendar")
	month := fs.String("month", "", "month to show, YYYY-MM (default current)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *month != "" {
		if _, err := time.Parse("2006-01", *month); err != nil {
			return fmt.Errorf("invalid month %q, want YYYY-MM", *month)
		}
	}

	view, err := a.api.Calendar(ctx, *month)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, renderCalendar(view))
	return nil
}

func (a *app) stats(ctx context.Context, _ []string) error {
	dashboard, err := a.api.Dashboard(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, renderDashboard(dashboard, a.cfg.Location()))
	return nil
}

func (a *app) audit(ctx context.Context, args []string) error {
	fs := newFlagSet("audit")
	view := bindViewFlags(fs)
	kind := fs.String("tipo", "", "filter by event type")
	if err := fs.Parse(args); err != nil {
		return err
	}
	state, err := view.apply(a.presets().Initial(audit.Entity))
	if err != nil {
		return err
	}
	if *kind != "" {
		state = state.WithFilter("tipo", *kind)
	}

	result, err := a.api.Audit(ctx, state)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, renderPage(audit.Table(a.cfg.Location()), result, []string{"fecha", "tipo", "entidad", "entidadId", "actor"}))
	return nil
}
