// Package session owns the authentication state of the application. All
// mutation funnels through Login and Logout; consumers read an immutable
// snapshot and never touch the token store directly.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nkiryanov/statusboard/internal/api"
	"github.com/nkiryanov/statusboard/internal/logger"
	"github.com/nkiryanov/statusboard/internal/models"
	"github.com/nkiryanov/statusboard/internal/tokenstore"
)

// Fallback shown when the server error payload carried nothing displayable.
const genericLoginFailure = "Login failed. Please check your credentials."

type State int

const (
	// StateInitializing exists only before New returns; consumers must not
	// render protected content while in it.
	StateInitializing State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable read of the session.
type Snapshot struct {
	State State
	User  *models.User
}

// Active reports whether a session exists. Active implies User != nil.
func (s Snapshot) Active() bool {
	return s.State == StateAuthenticated
}

// LoginResult carries the outcome of a login attempt. Message is set only on
// failure and is safe to show to the operator.
type LoginResult struct {
	Success bool
	Message string
}

type loginAPI interface {
	Login(ctx context.Context, username string, password string) (api.LoginResponse, error)
}

type Controller struct {
	mu     sync.Mutex
	state  State
	user   *models.User
	store  tokenstore.Store
	api    loginAPI
	logger logger.Logger
}

// New resolves the initial state synchronously from persisted storage, no
// network call involved: a stored access token with a recoverable identity
// means Authenticated, anything else Unauthenticated.
func New(store tokenstore.Store, loginAPI loginAPI, log logger.Logger) *Controller {
	c := &Controller{
		state:  StateInitializing,
		store:  store,
		api:    loginAPI,
		logger: log,
	}

	user := store.User()
	access := store.Access()

	if access != "" && user == nil {
		// Corrupted identity blob next to a live token: recover the display
		// identity from the token claims without verifying the signature.
		// Token validity is still decided only by server responses.
		user = userFromToken(access)
	}

	if access != "" && user != nil {
		c.state = StateAuthenticated
		c.user = user
		c.logger.Debug("Restored session from storage", "username", user.Username)
	} else {
		c.state = StateUnauthenticated
	}

	return c
}

// Current returns an immutable snapshot of the session.
func (c *Controller) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{State: c.state}
	if c.user != nil {
		u := *c.user
		snap.User = &u
	}
	return snap
}

// Login authenticates and persists the returned pair and identity. A failed
// attempt leaves the session Unauthenticated and returns the server's message
// when it provided one.
func (c *Controller) Login(ctx context.Context, username string, password string) (LoginResult, error) {
	resp, err := c.api.Login(ctx, username, password)
	if err != nil {
		c.mu.Lock()
		c.state = StateUnauthenticated
		c.user = nil
		c.mu.Unlock()

		message := genericLoginFailure
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			message = apiErr.UserMessage(genericLoginFailure)
		}

		c.logger.Warn("Login failed", "username", username, "error", err)
		return LoginResult{Success: false, Message: message}, err
	}

	if err := c.store.Save(resp.Access, resp.Refresh); err != nil {
		return LoginResult{Success: false, Message: genericLoginFailure}, err
	}
	if err := c.store.SaveUser(resp.User); err != nil {
		c.logger.Warn("Failed to persist identity", "error", err)
	}

	c.mu.Lock()
	c.state = StateAuthenticated
	c.user = resp.User
	c.mu.Unlock()

	c.logger.Info("Logged in", "username", username)
	return LoginResult{Success: true}, nil
}

// Logout clears the persisted session. Purely local, no server round-trip.
func (c *Controller) Logout() error {
	err := c.store.Clear()

	c.mu.Lock()
	c.state = StateUnauthenticated
	c.user = nil
	c.mu.Unlock()

	c.logger.Info("Logged out")
	return err
}

// HandleSessionExpired transitions to Unauthenticated after the request
// client wiped the credentials on a terminal auth failure. Wire it as the
// client's session-expired hook.
func (c *Controller) HandleSessionExpired() {
	c.mu.Lock()
	c.state = StateUnauthenticated
	c.user = nil
	c.mu.Unlock()

	c.logger.Warn("Session expired, login required")
}

// userFromToken extracts a display identity from unverified access token
// claims. Best effort: a token without a username claim yields nil.
func userFromToken(access string) *models.User {
	type claims struct {
		jwt.RegisteredClaims
		UserID   int64  `json:"user_id"`
		Username string `json:"username"`
	}

	var c claims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(access, &c); err != nil {
		return nil
	}
	if c.Username == "" {
		return nil
	}

	return &models.User{ID: c.UserID, Username: c.Username}
}
