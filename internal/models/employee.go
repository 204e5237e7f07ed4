package models

import "time"

// Employee as returned by the list and detail endpoints.
// CurrentStatus is nil when no status has been set yet.
type Employee struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email,omitempty"`
	IsActive      bool           `json:"is_active"`
	CurrentStatus *CurrentStatus `json:"current_status"`
}

// CurrentStatus is the still-open status log entry of an employee together
// with server-computed timing snapshots. IsOverdue is a snapshot taken at
// response time; live overdue display is recomputed client-side from
// PlannedEndTime and may disagree with it for up to one polling interval.
type CurrentStatus struct {
	ID               int64      `json:"id"`
	StatusName       string     `json:"status_name"`
	StatusColor      string     `json:"status_color"`
	StartTime        time.Time  `json:"start_time"`
	PlannedEndTime   *time.Time `json:"planned_end_time"`
	ElapsedSeconds   int64      `json:"elapsed_seconds"`
	RemainingSeconds *int64     `json:"remaining_seconds"`
	IsOverdue        bool       `json:"is_overdue"`
	OverdueSeconds   int64      `json:"overdue_seconds"`
	Notes            string     `json:"notes,omitempty"`
}
