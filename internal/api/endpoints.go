package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/nkiryanov/statusboard/internal/models"
)

// DefaultReportFilename is used when the server did not name the report.
const DefaultReportFilename = "employee_status_report.xlsx"

// LoginResponse is the payload of a successful login.
type LoginResponse struct {
	models.TokenPair
	User *models.User `json:"user"`
}

// ChangeStatusRequest mutates an employee's status. PlannedEndTime is
// required by the server iff the target status has an end time.
type ChangeStatusRequest struct {
	StatusID       int64      `json:"status_id"`
	Notes          string     `json:"notes,omitempty"`
	PlannedEndTime *time.Time `json:"planned_end_time,omitempty"`
}

// HistoryPage is one page of an employee's status log. HasMore mirrors the
// presence of the server's "next" link.
type HistoryPage struct {
	Results []models.StatusLogEntry
	HasMore bool
}

// Report is the downloaded Excel payload with its server-chosen filename.
type Report struct {
	Filename string
	Data     []byte
}

// paginated is the DRF-style envelope around list results.
type paginated[T any] struct {
	Results []T     `json:"results"`
	Next    *string `json:"next"`
}

// decodeList accepts both list shapes the server may produce: a paginated
// envelope or a bare array.
func decodeList[T any](data []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return items, nil
	}

	var page paginated[T]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return page.Results, nil
}

// Login authenticates and returns the issued token pair with the identity.
// Persisting the pair is the session controller's job, not the client's.
func (c *Client) Login(ctx context.Context, username string, password string) (LoginResponse, error) {
	type loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	var out LoginResponse

	data, _, err := c.do(ctx, http.MethodPost, "/auth/login/", loginRequest{Username: username, Password: password})
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to decode login response: %w", err)
	}
	return out, nil
}

// ListEmployees returns all employees with their current statuses.
func (c *Client) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	data, _, err := c.do(ctx, http.MethodGet, "/employees/", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Employee](data)
}

// GetEmployee returns one employee with the current status.
func (c *Client) GetEmployee(ctx context.Context, employeeID int64) (*models.Employee, error) {
	data, _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/employees/%d/", employeeID), nil)
	if err != nil {
		return nil, err
	}

	var e models.Employee
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode employee: %w", err)
	}
	return &e, nil
}

// ChangeStatus submits a status change for the employee.
func (c *Client) ChangeStatus(ctx context.Context, employeeID int64, req ChangeStatusRequest) error {
	_, _, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/employees/%d/change_status/", employeeID), req)
	return err
}

// History returns one page of the employee's status log, pages start at 1.
func (c *Client) History(ctx context.Context, employeeID int64, page int) (HistoryPage, error) {
	var out HistoryPage

	data, _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/employees/%d/history/?page=%d", employeeID, page), nil)
	if err != nil {
		return out, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		// Bare array means the server does not paginate this endpoint.
		if err := json.Unmarshal(trimmed, &out.Results); err != nil {
			return out, fmt.Errorf("failed to decode history: %w", err)
		}
		return out, nil
	}

	var envelope paginated[models.StatusLogEntry]
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return out, fmt.Errorf("failed to decode history: %w", err)
	}

	out.Results = envelope.Results
	out.HasMore = envelope.Next != nil && *envelope.Next != ""
	return out, nil
}

// ListStatuses returns the status catalog.
func (c *Client) ListStatuses(ctx context.Context) ([]models.Status, error) {
	data, _, err := c.do(ctx, http.MethodGet, "/statuses/", nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.Status](data)
}

// Statistics returns per-status time aggregates for the employee.
func (c *Client) Statistics(ctx context.Context, employeeID int64) ([]models.StatusStat, error) {
	data, _, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/employees/%d/statistics/", employeeID), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[models.StatusStat](data)
}

// DownloadReport fetches the Excel report. The filename comes from the
// Content-Disposition header when present, else DefaultReportFilename.
func (c *Client) DownloadReport(ctx context.Context) (Report, error) {
	data, header, err := c.do(ctx, http.MethodGet, "/reports/excel/", nil)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Filename: reportFilename(header.Get("Content-Disposition")),
		Data:     data,
	}, nil
}

func reportFilename(contentDisposition string) string {
	if contentDisposition == "" {
		return DefaultReportFilename
	}

	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return DefaultReportFilename
	}

	// The header is server-controlled; strip any path so the name can never
	// escape the directory it is joined with.
	name := params["filename"]
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return DefaultReportFilename
	}
	return name
}
