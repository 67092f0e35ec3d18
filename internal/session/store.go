// Package session owns the console's only cross-component mutable state:
// the bearer credential and the identity derived from it. Every writer
// (login, logout, idle expiry, unauthorized teardown) goes through Store so
// no stale copy of the credential can exist anywhere else.
package session

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BobChen3310/esp32-access-system/internal/token"
)

const credentialFile = "credential"

// Store is the process-wide session state. Invariant: Authenticated() is
// true exactly when a credential is held; Identity() is always derived from
// the credential, never set on its own.
type Store struct {
	mu         sync.Mutex
	path       string
	credential string
	identity   string
}

func NewStore(stateDir string) *Store {
	return &Store{path: filepath.Join(stateDir, credentialFile)}
}

// Initialize reads any persisted credential. A credential that does not
// decode still authenticates the session; the backend decides whether it is
// actually valid, the identity just stays blank until then.
func (s *Store) Initialize() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	credential := strings.TrimSpace(string(data))
	if credential == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = credential
	s.identity = token.Subject(credential)
	return nil
}

// SetCredential persists the credential and recomputes the identity. The
// in-memory state only changes once the credential is safely on disk, so a
// failed login or a full disk never leaves a half-applied session.
func (s *Store) SetCredential(credential string) error {
	if credential == "" {
		s.Clear()
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(s.path, []byte(credential), 0o600); err != nil {
		return err
	}
	s.credential = credential
	s.identity = token.Subject(credential)
	return nil
}

// Clear forgets the credential in memory and on disk. It reports whether
// the call actually ended a session, so callers reacting to a teardown can
// act exactly once. Safe to call when already logged out. The file removal
// happens under the same lock as the memory update, so a login racing a
// teardown cannot leave disk and memory disagreeing.
func (s *Store) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	hadCredential := s.credential != ""
	s.credential = ""
	s.identity = ""
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("session: removing persisted credential: %v", err)
	}
	return hadCredential
}

func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential != ""
}

// Credential returns the current bearer credential, "" when logged out.
func (s *Store) Credential() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// Identity returns the display name decoded from the credential's subject
// claim, or "" when the credential did not decode.
func (s *Store) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}
