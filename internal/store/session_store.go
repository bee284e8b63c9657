package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"qchat/internal/crypto"
	"qchat/internal/domain"
)

const sessionFilename = "session.enc"

// SessionFileStore persists the most recent session context to disk, sealed
// under a passphrase.
type SessionFileStore struct {
	dir  string
	cost scryptCost
	mu   sync.Mutex
}

// NewSessionFileStore returns a SessionFileStore rooted at dir.
func NewSessionFileStore(dir string) *SessionFileStore {
	return &SessionFileStore{dir: dir, cost: defaultScrypt}
}

func (s *SessionFileStore) path() string { return filepath.Join(s.dir, sessionFilename) }

// SaveSession seals session under passphrase, replacing any earlier one.
func (s *SessionFileStore) SaveSession(passphrase string, session domain.SessionContext) error {
	if passphrase == "" {
		return errors.New("passphrase required to save a session")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	defer crypto.Wipe(raw)

	sealed, err := seal(passphrase, raw, s.cost)
	if err != nil {
		return err
	}
	return writeAtomic(s.path(), sealed, 0o600)
}

// LoadSession opens the stored session. It reports false when none exists.
func (s *SessionFileStore) LoadSession(passphrase string) (domain.SessionContext, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sealed, err := readOptional(s.path())
	if err != nil {
		return domain.SessionContext{}, false, err
	}
	if sealed == nil {
		return domain.SessionContext{}, false, nil
	}
	raw, err := open(passphrase, sealed)
	if err != nil {
		return domain.SessionContext{}, false, err
	}
	defer crypto.Wipe(raw)

	var session domain.SessionContext
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.SessionContext{}, false, err
	}
	return session, true, nil
}

// ClearSession removes the stored session, if any.
func (s *SessionFileStore) ClearSession() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Compile-time assertion that SessionFileStore implements domain.SessionStore.
var _ domain.SessionStore = (*SessionFileStore)(nil)
