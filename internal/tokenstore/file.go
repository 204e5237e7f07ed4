package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/nkiryanov/statusboard/internal/models"
)

const sessionFileName = "session.json"

// sessionFile is the on-disk document. User stays raw so that a corrupted
// identity blob does not poison the tokens stored next to it.
type sessionFile struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	User         json.RawMessage `json:"user,omitempty"`
}

// FileStore persists the session under the user config dir as a single JSON
// document replaced atomically on every write.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store rooted at dir. Empty dir selects
// $XDG_CONFIG_HOME/statusboard (or ~/.config/statusboard).
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = defaultConfigDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("error creating config dir %s: %w", dir, err)
	}

	return &FileStore{path: filepath.Join(dir, sessionFileName)}, nil
}

func defaultConfigDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "statusboard")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "statusboard")
}

func (s *FileStore) Save(access string, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.read()
	doc.AccessToken = access
	doc.RefreshToken = refresh
	return s.write(doc)
}

func (s *FileStore) Access() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().AccessToken
}

func (s *FileStore) Refresh() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read().RefreshToken
}

func (s *FileStore) SaveUser(u *models.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("error encoding user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.read()
	doc.User = raw
	return s.write(doc)
}

func (s *FileStore) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decodeUser(s.read().User)
}

// Clear removes the whole session file, dropping tokens and identity in one
// step.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error removing session file: %w", err)
	}
	return nil
}

// read loads the current document; a missing or unreadable file yields an
// empty session.
func (s *FileStore) read() sessionFile {
	var doc sessionFile

	b, err := os.ReadFile(s.path)
	if err != nil {
		return doc
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return sessionFile{}
	}
	return doc
}

// write replaces the document atomically so concurrent readers observe either
// the old or the new session, never a partial one.
func (s *FileStore) write(doc sessionFile) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("error writing session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("error replacing session file: %w", err)
	}
	return nil
}
