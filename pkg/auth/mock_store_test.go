package auth

import "sync"

type mockStore struct {
	mu       sync.Mutex
	sessions map[string]Session

	storeErr error
	listErr  error
}

func newMockStore() *mockStore {
	return &mockStore{sessions: make(map[string]Session)}
}

func (m *mockStore) Store(s *Session) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	if s == nil || s.Profile == "" {
		return ErrInvalidSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Profile] = *s
	return nil
}

func (m *mockStore) Retrieve(profile string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[profile]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

func (m *mockStore) List() ([]*Session, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Session
	for _, s := range m.sessions {
		s := s
		out = append(out, &s)
	}
	return out, nil
}

func (m *mockStore) Delete(profile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[profile]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, profile)
	return nil
}

func (m *mockStore) Exists(profile string) bool {
	_, err := m.Retrieve(profile)
	return err == nil
}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
