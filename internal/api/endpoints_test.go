package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/statusboard/internal/tokenstore"
)

// jsonServer serves a fixed body for every request and records the last one.
type jsonServer struct {
	status int
	body   string
	header map[string]string

	lastMethod string
	lastPath   string
	lastBody   []byte
}

func newJSONServer(t *testing.T, s *jsonServer) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.lastMethod = r.Method
		s.lastPath = r.URL.RequestURI()

		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		s.lastBody = b

		for k, v := range s.header {
			w.Header().Set(k, v)
		}
		if s.status != 0 {
			w.WriteHeader(s.status)
		}
		_, _ = w.Write([]byte(s.body))
	}))
	t.Cleanup(srv.Close)

	return New(srv.URL+"/api", tokenstore.NewMemStore())
}

func TestListEmployees_Shapes(t *testing.T) {
	t.Run("paginated envelope", func(t *testing.T) {
		client := newJSONServer(t, &jsonServer{body: `{"results": [{"id": 1, "name": "Олена"}], "next": null}`})

		employees, err := client.ListEmployees(t.Context())

		require.NoError(t, err)
		require.Len(t, employees, 1)
		assert.Equal(t, "Олена", employees[0].Name)
	})

	t.Run("bare array", func(t *testing.T) {
		client := newJSONServer(t, &jsonServer{body: `[{"id": 1, "name": "Олена"}, {"id": 2, "name": "Іван"}]`})

		employees, err := client.ListEmployees(t.Context())

		require.NoError(t, err)
		assert.Len(t, employees, 2)
	})

	t.Run("malformed payload", func(t *testing.T) {
		client := newJSONServer(t, &jsonServer{body: `{"results": "nope"}`})

		_, err := client.ListEmployees(t.Context())
		require.Error(t, err)
	})
}

func TestHistory(t *testing.T) {
	t.Run("next link signals more pages", func(t *testing.T) {
		server := &jsonServer{body: `{"results": [{"id": 5, "status_name": "Обід"}], "next": "http://x/api/employees/7/history/?page=2"}`}
		client := newJSONServer(t, server)

		page, err := client.History(t.Context(), 7, 1)

		require.NoError(t, err)
		assert.Equal(t, "/api/employees/7/history/?page=1", server.lastPath)
		require.Len(t, page.Results, 1)
		assert.True(t, page.HasMore)
	})

	t.Run("null next means last page", func(t *testing.T) {
		client := newJSONServer(t, &jsonServer{body: `{"results": [], "next": null}`})

		page, err := client.History(t.Context(), 7, 3)

		require.NoError(t, err)
		assert.False(t, page.HasMore)
	})

	t.Run("bare array means no pagination", func(t *testing.T) {
		client := newJSONServer(t, &jsonServer{body: `[{"id": 5, "status_name": "Обід"}]`})

		page, err := client.History(t.Context(), 7, 1)

		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.False(t, page.HasMore)
	})
}

func TestChangeStatus(t *testing.T) {
	server := &jsonServer{body: `{"id": 42}`}
	client := newJSONServer(t, server)

	end := time.Date(2030, 1, 2, 18, 0, 0, 0, time.UTC)
	err := client.ChangeStatus(t.Context(), 3, ChangeStatusRequest{
		StatusID:       2,
		Notes:          "нарада",
		PlannedEndTime: &end,
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, server.lastMethod)
	assert.Equal(t, "/api/employees/3/change_status/", server.lastPath)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(server.lastBody, &sent))
	assert.Equal(t, float64(2), sent["status_id"])
	assert.Equal(t, "нарада", sent["notes"])
	assert.Equal(t, "2030-01-02T18:00:00Z", sent["planned_end_time"])
}

func TestLogin(t *testing.T) {
	server := &jsonServer{body: `{"access": "access-token", "refresh": "refresh-token", "user": {"id": 1, "username": "operator"}}`}
	client := newJSONServer(t, server)

	resp, err := client.Login(t.Context(), "operator", "password")

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, server.lastMethod)
	assert.Equal(t, "/api/auth/login/", server.lastPath)
	assert.Equal(t, "access-token", resp.Access)
	assert.Equal(t, "refresh-token", resp.Refresh)
	require.NotNil(t, resp.User)
	assert.Equal(t, "operator", resp.User.Username)
}

func TestDownloadReport(t *testing.T) {
	payload := "\x50\x4b\x03\x04fake-xlsx-bytes"

	t.Run("quoted filename from header", func(t *testing.T) {
		client := newJSONServer(t, &jsonServer{
			body:   payload,
			header: map[string]string{"Content-Disposition": `attachment; filename="report_2024.xlsx"`},
		})

		report, err := client.DownloadReport(t.Context())

		require.NoError(t, err)
		assert.Equal(t, "report_2024.xlsx", report.Filename)
		assert.Equal(t, []byte(payload), report.Data)
	})

	t.Run("bare filename from header", func(t *testing.T) {
		client := newJSONServer(t, &jsonServer{
			body:   payload,
			header: map[string]string{"Content-Disposition": `attachment; filename=report.xlsx`},
		})

		report, err := client.DownloadReport(t.Context())

		require.NoError(t, err)
		assert.Equal(t, "report.xlsx", report.Filename)
	})

	t.Run("missing header falls back to default", func(t *testing.T) {
		client := newJSONServer(t, &jsonServer{body: payload})

		report, err := client.DownloadReport(t.Context())

		require.NoError(t, err)
		assert.Equal(t, DefaultReportFilename, report.Filename)
	})

	t.Run("unparsable header falls back to default", func(t *testing.T) {
		assert.Equal(t, DefaultReportFilename, reportFilename(";;;"))
	})

	t.Run("traversal path is reduced to its base name", func(t *testing.T) {
		client := newJSONServer(t, &jsonServer{
			body:   payload,
			header: map[string]string{"Content-Disposition": `attachment; filename="../../tmp/evil.xlsx"`},
		})

		report, err := client.DownloadReport(t.Context())

		require.NoError(t, err)
		assert.Equal(t, "evil.xlsx", report.Filename)
	})

	t.Run("path-only filenames fall back to default", func(t *testing.T) {
		for _, header := range []string{
			`attachment; filename=".."`,
			`attachment; filename="."`,
			`attachment; filename="/"`,
			`attachment; filename="dir/"`,
			`attachment; filename=""`,
		} {
			assert.Equal(t, DefaultReportFilename, reportFilename(header), "header %q", header)
		}
	})

	t.Run("windows separators are stripped too", func(t *testing.T) {
		assert.Equal(t, "evil.xlsx", reportFilename(`attachment; filename*=utf-8''..%5C..%5Cevil.xlsx`))
	})
}
