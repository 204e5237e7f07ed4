// Package dashboard renders the live employee status board to a terminal.
// Two independent tickers drive it: a one-second display tick recomputing
// elapsed/remaining values locally, and a multi-second polling tick
// re-fetching the employee list from the server. The display tick never
// touches the network.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/nkiryanov/statusboard/internal/api"
	"github.com/nkiryanov/statusboard/internal/apperrors"
	"github.com/nkiryanov/statusboard/internal/logger"
	"github.com/nkiryanov/statusboard/internal/models"
	"github.com/nkiryanov/statusboard/internal/poller"
	"github.com/nkiryanov/statusboard/internal/timeutil"
)

const (
	displayTick = time.Second

	clearScreen = "\x1b[2J\x1b[H"

	fetchFailure = "Помилка завантаження співробітників"
)

type employeeAPI interface {
	ListEmployees(ctx context.Context) ([]models.Employee, error)
}

type Dashboard struct {
	api           employeeAPI
	out           io.Writer
	logger        logger.Logger
	pollInterval  time.Duration
	now           func() time.Time
	sessionActive func() bool

	mu        sync.Mutex
	employees []models.Employee
	fetchErr  string
	syncedAt  time.Time
}

type Option func(*Dashboard)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) { d.now = now }
}

// WithSessionGuard stops Run with ErrSessionExpired once active reports
// false. Without it a dropped session would keep the board polling without
// credentials and re-rendering stale protected data forever.
func WithSessionGuard(active func() bool) Option {
	return func(d *Dashboard) { d.sessionActive = active }
}

func New(employeeAPI employeeAPI, out io.Writer, pollInterval time.Duration, log logger.Logger, opts ...Option) *Dashboard {
	d := &Dashboard{
		api:          employeeAPI,
		out:          out,
		logger:       log,
		pollInterval: pollInterval,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run blocks until the context is cancelled. The first fetch happens
// immediately; afterwards the poller re-fetches on its own interval while the
// display re-renders every second from the last snapshot.
func (d *Dashboard) Run(ctx context.Context) error {
	d.refresh(ctx)
	if !d.sessionOK() {
		return apperrors.ErrSessionExpired
	}

	p := poller.New(d.pollInterval, d.logger)
	p.SetAction(d.refresh)
	handle := p.Start(ctx)
	defer handle.Stop()

	ticker := time.NewTicker(displayTick)
	defer ticker.Stop()

	d.render()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !d.sessionOK() {
				return apperrors.ErrSessionExpired
			}
			d.render()
		}
	}
}

func (d *Dashboard) sessionOK() bool {
	return d.sessionActive == nil || d.sessionActive()
}

// refresh fetches the employee list and replaces the snapshot. Responses
// apply last-write-wins; a failed fetch keeps the previous snapshot and
// records an inline error instead of crashing the loop.
func (d *Dashboard) refresh(ctx context.Context) {
	employees, err := d.api.ListEmployees(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}

		message := fetchFailure
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			message = apiErr.UserMessage(fetchFailure)
		}
		d.fetchErr = message
		d.logger.Warn("Employee list fetch failed", "error", err)
		return
	}

	d.employees = employees
	d.fetchErr = ""
	d.syncedAt = d.now()
}

func (d *Dashboard) render() {
	var b strings.Builder
	b.WriteString(clearScreen)
	d.renderTo(&b)
	_, _ = io.WriteString(d.out, b.String())
}

// renderTo writes the current board. Split from render so tests can inspect
// plain output without terminal control sequences.
func (d *Dashboard) renderTo(w io.Writer) {
	d.mu.Lock()
	employees := d.employees
	fetchErr := d.fetchErr
	syncedAt := d.syncedAt
	d.mu.Unlock()

	now := d.now()

	fmt.Fprintln(w, "Панель статусів співробітників")
	if !syncedAt.IsZero() {
		fmt.Fprintf(w, "Оновлено: %s\n", timeutil.FormatDate(&syncedAt))
	}
	if fetchErr != "" {
		fmt.Fprintf(w, "! %s\n", fetchErr)
	}
	fmt.Fprintln(w)

	if len(employees) == 0 {
		fmt.Fprintln(w, "Співробітників немає")
		return
	}

	for _, e := range employees {
		writeEmployee(w, e, now)
	}
}

func writeEmployee(w io.Writer, e models.Employee, now time.Time) {
	if e.CurrentStatus == nil {
		fmt.Fprintf(w, "%-25s  без статусу\n", e.Name)
		return
	}

	cs := e.CurrentStatus
	elapsed := timeutil.ElapsedSeconds(cs.StartTime, now)
	remaining := timeutil.RemainingSeconds(cs.PlannedEndTime, now)

	fmt.Fprintf(w, "%-25s  [%s]  Минуло: %s", e.Name, cs.StatusName, timeutil.HumanDuration(&elapsed))

	// Overdue-ness is recomputed locally for a smooth countdown; the server
	// snapshot in cs.IsOverdue may lag it by up to one polling interval.
	if remaining != nil {
		if timeutil.IsOverdue(cs.PlannedEndTime, now) {
			fmt.Fprintf(w, "  Прострочено: %s", timeutil.HumanDuration(remaining))
		} else {
			fmt.Fprintf(w, "  Залишилось: %s", timeutil.HumanDuration(remaining))
		}
	}

	if cs.Notes != "" {
		fmt.Fprintf(w, "  (%s)", cs.Notes)
	}
	fmt.Fprintln(w)
}
