package auth

import (
	"encoding/json"
	"fmt"
	"os"
)

// StateFileEnv names a storage-state JSON file that overrides every saved
// session, for example one exported from another machine.
const StateFileEnv = "ZONERAMA_STORAGE_STATE"

// EnvironmentStore is a read-only store backed by StateFileEnv
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(*Session) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(profile string) (*Session, error) {
	path := os.Getenv(StateFileEnv)
	if path == "" {
		return nil, ErrSessionNotFound
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", StateFileEnv, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", StateFileEnv, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not JSON", ErrInvalidSession, path)
	}

	if profile == "" {
		profile = "default"
	}
	return &Session{Profile: profile, State: json.RawMessage(data), SavedAt: info.ModTime()}, nil
}

func (e *EnvironmentStore) List() ([]*Session, error) {
	session, err := e.Retrieve("")
	if err != nil {
		return []*Session{}, nil
	}
	return []*Session{session}, nil
}

func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(string) bool {
	_, err := e.Retrieve("")
	return err == nil
}
