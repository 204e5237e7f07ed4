package models

import "time"

// Status is a catalog entry. When HasEndTime is true, any status change
// referencing it must carry a planned end time; the change is rejected
// client-side before submission otherwise.
type Status struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	HasEndTime   bool   `json:"has_end_time"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
}

// StatusLogEntry is one row of an employee's status history. EndTime is nil
// for the still-open entry; the server maintains at most one such entry per
// employee.
type StatusLogEntry struct {
	ID                int64      `json:"id"`
	EmployeeName      string     `json:"employee_name,omitempty"`
	StatusName        string     `json:"status_name"`
	StatusColor       string     `json:"status_color"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time"`
	PlannedEndTime    *time.Time `json:"planned_end_time"`
	OverdueDuration   int64      `json:"overdue_duration"`
	DurationSeconds   int64      `json:"duration_seconds"`
	Notes             string     `json:"notes,omitempty"`
	CreatedByUsername string     `json:"created_by_username,omitempty"`
}

// StatusStat is a per-status aggregate for one employee.
type StatusStat struct {
	StatusName          string `json:"status_name"`
	StatusColor         string `json:"status_color"`
	TotalSeconds        int64  `json:"total_seconds"`
	Count               int64  `json:"count"`
	TotalOverdueSeconds int64  `json:"total_overdue_seconds"`
}
