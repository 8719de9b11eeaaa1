// Package auth remembers the browser login between runs.
//
// What is stored is the browser's storage state (cookies and local storage)
// as JSON, keyed by profile name. Stores are tried in order: an explicit
// state file named by the environment, the system keyring, then an encrypted
// file in the config directory.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// Session is a saved browser login
type Session struct {
	Profile string          `json:"profile"`
	State   json.RawMessage `json:"state"`
	SavedAt time.Time       `json:"saved_at"`
}

// CookieCount returns the number of cookies in the saved state
func (s *Session) CookieCount() int {
	var state struct {
		Cookies []json.RawMessage `json:"cookies"`
	}
	if err := json.Unmarshal(s.State, &state); err != nil {
		return 0
	}
	return len(state.Cookies)
}

// SessionStore persists sessions
type SessionStore interface {
	Store(session *Session) error
	Retrieve(profile string) (*Session, error)
	List() ([]*Session, error)
	Delete(profile string) error
	Exists(profile string) bool
}

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Manager tries each store in turn
type Manager struct {
	stores []SessionStore
}

// NewManager builds the default store chain
func NewManager() (*Manager, error) {
	stores := []SessionStore{NewEnvironmentStore()}

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "sessions.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores uses exactly the given stores, in order
func NewManagerWithStores(stores ...SessionStore) *Manager {
	return &Manager{stores: stores}
}

// Save stores the browser state for profile in the first store that accepts it
func (m *Manager) Save(profile string, state []byte) error {
	if profile == "" {
		return fmt.Errorf("%w: profile is required", ErrInvalidSession)
	}
	if !json.Valid(state) {
		return fmt.Errorf("%w: state is not JSON", ErrInvalidSession)
	}

	session := &Session{Profile: profile, State: json.RawMessage(state), SavedAt: time.Now()}

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(session)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return errors.New("no available session stores")
}

// Load returns the saved browser state for profile
func (m *Manager) Load(profile string) ([]byte, error) {
	session, err := m.Retrieve(profile)
	if err != nil {
		return nil, err
	}
	return session.State, nil
}

// Retrieve returns the first stored session for profile
func (m *Manager) Retrieve(profile string) (*Session, error) {
	for _, store := range m.stores {
		if session, err := store.Retrieve(profile); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, profile)
}

// List returns the newest session per profile, sorted by profile
func (m *Manager) List() ([]*Session, error) {
	byProfile := make(map[string]*Session)
	for _, store := range m.stores {
		sessions, err := store.List()
		if err != nil {
			continue
		}
		for _, s := range sessions {
			if existing, ok := byProfile[s.Profile]; !ok || s.SavedAt.After(existing.SavedAt) {
				byProfile[s.Profile] = s
			}
		}
	}

	result := make([]*Session, 0, len(byProfile))
	for _, s := range byProfile {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Profile < result[j].Profile })
	return result, nil
}

// Delete removes profile from every store that has it
func (m *Manager) Delete(profile string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(profile); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, profile)
	}
	return nil
}

// DeleteAll removes every listed session
func (m *Manager) DeleteAll() error {
	sessions, err := m.List()
	if err != nil {
		return err
	}
	for _, s := range sessions {
		_ = m.Delete(s.Profile)
	}
	return nil
}

func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "zonerama")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "zonerama")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "zonerama")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "zonerama")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}
