package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/nkiryanov/statusboard/internal/api"
	"github.com/nkiryanov/statusboard/internal/apperrors"
	"github.com/nkiryanov/statusboard/internal/changeform"
	"github.com/nkiryanov/statusboard/internal/dashboard"
	"github.com/nkiryanov/statusboard/internal/history"
	"github.com/nkiryanov/statusboard/internal/logger"
	"github.com/nkiryanov/statusboard/internal/models"
	"github.com/nkiryanov/statusboard/internal/session"
	"github.com/nkiryanov/statusboard/internal/stats"
	"github.com/nkiryanov/statusboard/internal/timeutil"
	"github.com/nkiryanov/statusboard/internal/tokenstore"
)

const usage = `Usage: statusboard [flags] <command> [args]

Commands:
  login <username>       authenticate and persist the session
  logout                 drop the persisted session
  whoami                 show the current identity
  watch                  live employee status dashboard
  employees              print the employee list once
  statuses               print the status catalog
  status <employee-id>   change an employee's status (see 'status' flags)
  history <employee-id>  print an employee's status history
  stats <employee-id>    print an employee's per-status time totals
  report                 download the Excel report
`

type App struct {
	cfg     *Config
	logger  logger.Logger
	store   tokenstore.Store
	client  *api.Client
	session *session.Controller

	in  io.Reader
	out io.Writer
}

func NewApp(cfg *Config) (*App, error) {
	log, err := logger.New(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	store, err := tokenstore.NewFileStore(cfg.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("error while initializing token store: %w", err)
	}

	// The session controller observes terminal auth failures through the
	// client hook; the indirection lets the client be built first.
	var sess *session.Controller
	client := api.New(cfg.APIBaseURL, store,
		api.WithLogger(log),
		api.WithSessionExpiredHook(func() {
			if sess != nil {
				sess.HandleSessionExpired()
			}
		}),
	)
	sess = session.New(store, client, log)

	return &App{
		cfg:     cfg,
		logger:  log,
		store:   store,
		client:  client,
		session: sess,
		in:      os.Stdin,
		out:     os.Stdout,
	}, nil
}

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return nil
	}

	command, rest := args[0], args[1:]

	switch command {
	case "login":
		return a.runLogin(ctx, rest)
	case "logout":
		return a.runLogout()
	case "whoami":
		return a.runWhoami()
	case "watch":
		return a.runWatch(ctx)
	case "employees":
		return a.runEmployees(ctx)
	case "statuses":
		return a.runStatuses(ctx)
	case "status":
		return a.runChangeStatus(ctx, rest)
	case "history":
		return a.runHistory(ctx, rest)
	case "stats":
		return a.runStats(ctx, rest)
	case "report":
		return a.runReport(ctx)
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command: %s", command)
	}
}

// requireAuth fails fast for protected commands instead of letting the first
// request bounce with a 401.
func (a *App) requireAuth() error {
	if !a.session.Current().Active() {
		return fmt.Errorf("not logged in, run 'statusboard login <username>' first")
	}
	return nil
}

func (a *App) runLogin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: statusboard login <username>")
	}
	username := args[0]

	fmt.Fprint(a.out, "Password: ")
	password, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && password == "" {
		return fmt.Errorf("failed to read password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")

	result, err := a.session.Login(ctx, username, password)
	if !result.Success {
		fmt.Fprintln(a.out, result.Message)
		return err
	}

	snap := a.session.Current()
	fmt.Fprintf(a.out, "Logged in as %s\n", snap.User.Username)
	return nil
}

func (a *App) runLogout() error {
	if err := a.session.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) runWhoami() error {
	snap := a.session.Current()
	if !snap.Active() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}

	fmt.Fprintf(a.out, "%s (id %d)\n", snap.User.Username, snap.User.ID)
	return nil
}

func (a *App) runWatch(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	board := dashboard.New(a.client, a.out, a.cfg.PollInterval, a.logger,
		dashboard.WithSessionGuard(func() bool { return a.session.Current().Active() }))

	err := board.Run(ctx)
	if errors.Is(err, apperrors.ErrSessionExpired) {
		return fmt.Errorf("session expired, run 'statusboard login <username>' again")
	}
	return err
}

func (a *App) runEmployees(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	employees, err := a.client.ListEmployees(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, e := range employees {
		if e.CurrentStatus == nil {
			fmt.Fprintf(a.out, "%d\t%s\t-\n", e.ID, e.Name)
			continue
		}

		elapsed := timeutil.ElapsedSeconds(e.CurrentStatus.StartTime, now)
		fmt.Fprintf(a.out, "%d\t%s\t%s\t%s\n", e.ID, e.Name, e.CurrentStatus.StatusName, timeutil.HumanDuration(&elapsed))
	}
	return nil
}

func (a *App) runStatuses(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	statuses, err := a.client.ListStatuses(ctx)
	if err != nil {
		return err
	}

	for _, s := range statuses {
		line := fmt.Sprintf("%d\t%s\t%s", s.ID, s.Name, s.Color)
		if s.HasEndTime {
			line += "\t(потребує часу завершення)"
		}
		fmt.Fprintln(a.out, line)
	}
	return nil
}

func (a *App) runChangeStatus(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	fs := pflag.NewFlagSet("status", pflag.ContinueOnError)
	statusID := fs.Int64P("status", "s", 0, "Status ID to set")
	end := fs.StringP("end", "e", "", "Planned end time, RFC 3339")
	notes := fs.StringP("notes", "n", "", "Notes for the change")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: statusboard status <employee-id> --status <status-id> [--end <rfc3339>] [--notes <text>]")
	}

	employeeID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid employee id %q: %w", fs.Arg(0), err)
	}

	statuses, err := a.client.ListStatuses(ctx)
	if err != nil {
		return err
	}

	form, err := buildForm(statuses, *statusID, *end, *notes)
	if err != nil {
		return err
	}

	// Client-side validation: an invalid form never issues a request.
	if fields := form.Validate(); fields != nil {
		for field, message := range fields {
			fmt.Fprintf(a.out, "%s: %s\n", field, message)
		}
		return fmt.Errorf("status change rejected by validation")
	}

	if err := a.client.ChangeStatus(ctx, employeeID, form.Request()); err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Code == api.CodeValidation {
			fmt.Fprintln(a.out, apiErr.UserMessage("Помилка зміни статусу"))
		}
		return err
	}

	fmt.Fprintln(a.out, "Статус змінено")
	return nil
}

// buildForm binds the selected catalog entry and the flag values into a
// status-change form.
func buildForm(statuses []models.Status, statusID int64, end string, notes string) (changeform.Form, error) {
	var selected *models.Status
	for i := range statuses {
		if statuses[i].ID == statusID {
			selected = &statuses[i]
			break
		}
	}
	if selected == nil {
		return changeform.Form{}, fmt.Errorf("status %d: %w", statusID, apperrors.ErrStatusNotFound)
	}

	form := changeform.NewForm(*selected)
	form.Notes = notes

	if end != "" {
		t, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return changeform.Form{}, fmt.Errorf("invalid planned end time %q: %w", end, err)
		}
		form.PlannedEndTime = &t
	}
	return form, nil
}

func (a *App) runHistory(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	fs := pflag.NewFlagSet("history", pflag.ContinueOnError)
	all := fs.Bool("all", false, "Fetch every page, not only the first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: statusboard history <employee-id> [--all]")
	}

	employeeID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid employee id %q: %w", fs.Arg(0), err)
	}

	employee, err := a.client.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}

	acc := history.NewAccumulator(a.client, employeeID)
	if err := acc.LoadPage(ctx); err != nil {
		return err
	}
	for *all && acc.HasMore() {
		if err := acc.LoadMore(); err != nil {
			break
		}
		if err := acc.LoadPage(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintf(a.out, "Історія статусів: %s\n\n", employee.Name)
	for _, entry := range acc.Items() {
		start := entry.StartTime
		duration := entry.DurationSeconds

		fmt.Fprintf(a.out, "%s — %s\t[%s]\t%s",
			timeutil.FormatDate(&start),
			timeutil.FormatDate(entry.EndTime),
			entry.StatusName,
			timeutil.ClockDuration(&duration),
		)
		if entry.OverdueDuration > 0 {
			overdue := entry.OverdueDuration
			fmt.Fprintf(a.out, "\tпрострочено на %s", timeutil.HumanDuration(&overdue))
		}
		if entry.Notes != "" {
			fmt.Fprintf(a.out, "\t(%s)", entry.Notes)
		}
		fmt.Fprintln(a.out)
	}

	if acc.HasMore() && !*all {
		fmt.Fprintln(a.out, "\nЄ ще сторінки, додайте --all")
	}
	return nil
}

func (a *App) runStats(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: statusboard stats <employee-id>")
	}

	employeeID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid employee id %q: %w", args[0], err)
	}

	aggregates, err := a.client.Statistics(ctx, employeeID)
	if err != nil {
		return err
	}

	summary := stats.Build(aggregates)
	for _, row := range summary.Rows {
		fmt.Fprintf(a.out, "%s\t%s год\t%s%%\t%d разів\n", row.StatusName, row.Hours, row.Share, row.Count)
	}

	total := summary.TotalSeconds
	fmt.Fprintf(a.out, "Всього: %s\n", timeutil.HumanDuration(&total))
	return nil
}

func (a *App) runReport(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}

	report, err := a.client.DownloadReport(ctx)
	if err != nil {
		return err
	}

	path := filepath.Join(a.cfg.OutputDir, report.Filename)
	if err := os.WriteFile(path, report.Data, 0o644); err != nil {
		return fmt.Errorf("error writing report: %w", err)
	}

	fmt.Fprintf(a.out, "Звіт збережено: %s\n", path)
	return nil
}
