// Package tokenstore persists the credential pair and cached identity across
// process restarts. Validity of stored tokens is never inspected here; only
// server responses decide whether a token is still good.
package tokenstore

import (
	"encoding/json"
	"sync"

	"github.com/nkiryanov/statusboard/internal/models"
)

// Store is the persistence contract for the credential pair and identity.
type Store interface {
	// Save replaces the credential pair atomically.
	Save(access string, refresh string) error

	// Access returns the stored access token or "" when none exists.
	Access() string

	// Refresh returns the stored refresh token or "" when none exists.
	Refresh() string

	// SaveUser caches the identity next to the credential pair.
	SaveUser(u *models.User) error

	// User returns the cached identity. Missing or corrupted stored data
	// yields nil, never an error.
	User() *models.User

	// Clear removes the credential pair and identity atomically.
	Clear() error
}

// decodeUser tolerates the raw values a broken writer may have left behind:
// absent data, literal "undefined" or "null", or malformed JSON all decode
// to nil.
func decodeUser(raw []byte) *models.User {
	s := string(raw)
	if len(raw) == 0 || s == "undefined" || s == "null" || s == `"undefined"` || s == `"null"` {
		return nil
	}

	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil
	}
	return &u
}

// MemStore is an in-memory Store for tests and one-shot commands.
type MemStore struct {
	mu      sync.Mutex
	access  string
	refresh string
	user    json.RawMessage
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Save(access string, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
	return nil
}

func (s *MemStore) Access() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func (s *MemStore) Refresh() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh
}

func (s *MemStore) SaveUser(u *models.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = raw
	return nil
}

func (s *MemStore) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decodeUser(s.user)
}

func (s *MemStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = ""
	s.refresh = ""
	s.user = nil
	return nil
}
