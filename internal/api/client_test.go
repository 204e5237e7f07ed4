package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/statusboard/internal/tokenstore"
)

const employeesPayload = `{
	"results": [
		{"id": 1, "name": "Олена Петренко", "is_active": true, "current_status": {
			"id": 10, "status_name": "Обід", "status_color": "#ff9900",
			"start_time": "2024-01-02T12:00:00Z", "planned_end_time": "2024-01-02T13:00:00Z",
			"elapsed_seconds": 600, "remaining_seconds": 3000, "is_overdue": false, "overdue_seconds": 0
		}},
		{"id": 2, "name": "Іван Коваль", "is_active": true, "current_status": null}
	],
	"next": null
}`

type serverState struct {
	refreshCalls   atomic.Int64
	employeeCalls  atomic.Int64
	seenAuth       []string
	refreshStatus  int
	employeeStatus func(call int64, auth string) int
}

func newTestServer(t *testing.T, state *serverState) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		state.refreshCalls.Add(1)

		var body struct {
			Refresh string `json:"refresh"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotEmpty(t, body.Refresh, "refresh call must carry the stored refresh token")

		if state.refreshStatus != 0 && state.refreshStatus != http.StatusOK {
			w.WriteHeader(state.refreshStatus)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access": "new-access", "refresh": "new-refresh"}`))
	})

	mux.HandleFunc("GET /api/employees/", func(w http.ResponseWriter, r *http.Request) {
		call := state.employeeCalls.Add(1)
		auth := r.Header.Get("Authorization")
		state.seenAuth = append(state.seenAuth, auth)

		status := http.StatusOK
		if state.employeeStatus != nil {
			status = state.employeeStatus(call, auth)
		}

		if status != http.StatusOK {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"detail": "Облікові дані не надано"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(employeesPayload))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_RefreshAndRetry(t *testing.T) {
	t.Run("401 with stored refresh token refreshes once and retries once", func(t *testing.T) {
		state := &serverState{
			employeeStatus: func(call int64, auth string) int {
				if auth == "Bearer new-access" {
					return http.StatusOK
				}
				return http.StatusUnauthorized
			},
		}
		srv := newTestServer(t, state)

		store := tokenstore.NewMemStore()
		require.NoError(t, store.Save("stale-access", "stored-refresh"))

		client := New(srv.URL+"/api", store)

		employees, err := client.ListEmployees(t.Context())

		require.NoError(t, err)
		assert.Len(t, employees, 2)
		assert.Equal(t, int64(1), state.refreshCalls.Load(), "exactly one refresh call expected")
		assert.Equal(t, int64(2), state.employeeCalls.Load(), "exactly one retry expected")
		assert.Equal(t, "Bearer stale-access", state.seenAuth[0])
		assert.Equal(t, "Bearer new-access", state.seenAuth[1], "retry must carry the new token")
		assert.Equal(t, "new-access", store.Access(), "new pair persisted before the retry")
		assert.Equal(t, "new-refresh", store.Refresh())
	})

	t.Run("401 without refresh token clears session without refresh call", func(t *testing.T) {
		state := &serverState{
			employeeStatus: func(int64, string) int { return http.StatusUnauthorized },
		}
		srv := newTestServer(t, state)

		store := tokenstore.NewMemStore()
		require.NoError(t, store.Save("stale-access", ""))

		var expired atomic.Bool
		client := New(srv.URL+"/api", store, WithSessionExpiredHook(func() { expired.Store(true) }))

		_, err := client.ListEmployees(t.Context())

		require.Error(t, err)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, int64(0), state.refreshCalls.Load(), "no refresh call without a refresh token")
		assert.True(t, expired.Load(), "session expired hook must fire")
		assert.Empty(t, store.Access(), "credentials must be wiped")
	})

	t.Run("failed refresh clears session and surfaces original failure", func(t *testing.T) {
		state := &serverState{
			refreshStatus:  http.StatusUnauthorized,
			employeeStatus: func(int64, string) int { return http.StatusUnauthorized },
		}
		srv := newTestServer(t, state)

		store := tokenstore.NewMemStore()
		require.NoError(t, store.Save("stale-access", "expired-refresh"))

		var expired atomic.Bool
		client := New(srv.URL+"/api", store, WithSessionExpiredHook(func() { expired.Store(true) }))

		_, err := client.ListEmployees(t.Context())

		require.Error(t, err)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeUnauthorized, apiErr.Code, "original 401 is surfaced, not the refresh failure")
		assert.Equal(t, int64(1), state.refreshCalls.Load())
		assert.Equal(t, int64(1), state.employeeCalls.Load(), "no retry after failed refresh")
		assert.True(t, expired.Load())
		assert.Empty(t, store.Refresh())
	})

	t.Run("second consecutive 401 is terminal for the request", func(t *testing.T) {
		state := &serverState{
			employeeStatus: func(int64, string) int { return http.StatusUnauthorized },
		}
		srv := newTestServer(t, state)

		store := tokenstore.NewMemStore()
		require.NoError(t, store.Save("stale-access", "stored-refresh"))

		client := New(srv.URL+"/api", store)

		_, err := client.ListEmployees(t.Context())

		require.Error(t, err)
		assert.Equal(t, int64(1), state.refreshCalls.Load(), "at most one refresh per failed request")
		assert.Equal(t, int64(2), state.employeeCalls.Load(), "at most one retry per failed request")
	})

	t.Run("non-401 failure surfaces unmodified without refresh", func(t *testing.T) {
		state := &serverState{
			employeeStatus: func(int64, string) int { return http.StatusBadRequest },
		}
		srv := newTestServer(t, state)

		store := tokenstore.NewMemStore()
		require.NoError(t, store.Save("valid-access", "stored-refresh"))

		client := New(srv.URL+"/api", store)

		_, err := client.ListEmployees(t.Context())

		require.Error(t, err)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeValidation, apiErr.Code)
		assert.Equal(t, "Облікові дані не надано", apiErr.Detail, "server detail must be extracted")
		assert.Equal(t, int64(0), state.refreshCalls.Load())
		assert.Equal(t, "valid-access", store.Access(), "credentials untouched on non-401 failure")
	})
}

func TestClient_RequestShape(t *testing.T) {
	t.Run("bearer header attached when token exists", func(t *testing.T) {
		state := &serverState{}
		srv := newTestServer(t, state)

		store := tokenstore.NewMemStore()
		require.NoError(t, store.Save("valid-access", "stored-refresh"))

		client := New(srv.URL+"/api", store)
		_, err := client.ListEmployees(t.Context())

		require.NoError(t, err)
		assert.Equal(t, "Bearer valid-access", state.seenAuth[0])
	})

	t.Run("bearer header omitted without token", func(t *testing.T) {
		state := &serverState{}
		srv := newTestServer(t, state)

		client := New(srv.URL+"/api", tokenstore.NewMemStore())
		_, err := client.ListEmployees(t.Context())

		require.NoError(t, err)
		assert.Empty(t, state.seenAuth[0], "no Authorization header without a stored token")
	})

	t.Run("transport failure yields transport error", func(t *testing.T) {
		client := New("http://127.0.0.1:1/api", tokenstore.NewMemStore())

		ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
		defer cancel()
		_, err := client.ListEmployees(ctx)

		require.Error(t, err)
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, CodeTransport, apiErr.Code)
	})
}
