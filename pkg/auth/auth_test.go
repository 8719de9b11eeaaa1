package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const sampleState = `{"cookies":[{"name":"ZRSESSION","value":"s3cr3t-cookie","domain":"eu.zonerama.com"},{"name":"consent","value":"1","domain":".zonerama.com"}],"origins":[]}`

func TestManagerSaveAndLoad(t *testing.T) {
	store := newMockStore()
	m := NewManagerWithStores(store)

	require.NoError(t, m.Save("default", []byte(sampleState)))

	state, err := m.Load("default")
	require.NoError(t, err)
	assert.JSONEq(t, sampleState, string(state))

	session, err := m.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, 2, session.CookieCount())
	assert.WithinDuration(t, time.Now(), session.SavedAt, time.Minute)
}

func TestManagerRejectsInvalidInput(t *testing.T) {
	m := NewManagerWithStores(newMockStore())

	assert.ErrorIs(t, m.Save("", []byte(sampleState)), ErrInvalidSession)
	assert.ErrorIs(t, m.Save("default", []byte("{not json")), ErrInvalidSession)
}

func TestManagerFallsThroughStores(t *testing.T) {
	broken := newMockStore()
	broken.storeErr = errors.New("secret too large")
	fallback := newMockStore()
	m := NewManagerWithStores(NewEnvironmentStore(), broken, fallback)

	require.NoError(t, m.Save("work", []byte(sampleState)))
	assert.Equal(t, 0, broken.count())
	assert.Equal(t, 1, fallback.count())

	_, err := m.Load("work")
	assert.NoError(t, err)
}

func TestManagerLoadMissing(t *testing.T) {
	m := NewManagerWithStores(newMockStore())
	_, err := m.Load("nobody")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManagerListKeepsNewest(t *testing.T) {
	older := newMockStore()
	newer := newMockStore()
	now := time.Now()
	require.NoError(t, older.Store(&Session{Profile: "default", State: []byte(`{}`), SavedAt: now.Add(-time.Hour)}))
	require.NoError(t, newer.Store(&Session{Profile: "default", State: []byte(sampleState), SavedAt: now}))
	require.NoError(t, newer.Store(&Session{Profile: "alt", State: []byte(`{}`), SavedAt: now}))

	failing := newMockStore()
	failing.listErr = errors.New("locked")

	sessions, err := NewManagerWithStores(failing, older, newer).List()
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "alt", sessions[0].Profile)
	assert.Equal(t, "default", sessions[1].Profile)
	assert.Equal(t, 2, sessions[1].CookieCount())
}

func TestManagerDelete(t *testing.T) {
	a, b := newMockStore(), newMockStore()
	m := NewManagerWithStores(NewEnvironmentStore(), a, b)
	require.NoError(t, a.Store(&Session{Profile: "default", State: []byte(`{}`)}))
	require.NoError(t, b.Store(&Session{Profile: "default", State: []byte(`{}`)}))

	require.NoError(t, m.Delete("default"))
	assert.Equal(t, 0, a.count())
	assert.Equal(t, 0, b.count())

	assert.ErrorIs(t, m.Delete("default"), ErrSessionNotFound)
}

func TestManagerDeleteAll(t *testing.T) {
	store := newMockStore()
	m := NewManagerWithStores(store)
	require.NoError(t, m.Save("a", []byte(`{}`)))
	require.NoError(t, m.Save("b", []byte(`{}`)))

	require.NoError(t, m.DeleteAll())
	assert.Equal(t, 0, store.count())
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "correct horse battery staple")
	path := filepath.Join(t.TempDir(), "sessions.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(&Session{Profile: "default", State: []byte(sampleState), SavedAt: time.Now()}))
	require.NoError(t, store.Store(&Session{Profile: "alt", State: []byte(`{}`), SavedAt: time.Now()}))

	got, err := store.Retrieve("default")
	require.NoError(t, err)
	assert.JSONEq(t, sampleState, string(got.State))
	assert.True(t, store.Exists("alt"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(content, []byte("s3cr3t-cookie")), "file contains plaintext cookie")

	sessions, err := store.List()
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	require.NoError(t, store.Delete("alt"))
	require.NoError(t, store.Delete("default"))
	assert.NoFileExists(t, path, "file is removed with the last session")
	assert.ErrorIs(t, store.Delete("default"), ErrSessionNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Session{Profile: "default", State: []byte(`{}`)}))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("default")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "sessions.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Store(&Session{Profile: "default", State: []byte(`{}`)}))

	info, err := os.Stat(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "sessions.enc"))
	require.NoError(t, err)
	assert.True(t, reopened.Exists("default"))
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(StateFileEnv, "")
	_, err := store.Retrieve("default")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleState), 0600))
	t.Setenv(StateFileEnv, path)

	s, err := store.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, "work", s.Profile)
	assert.Equal(t, 2, s.CookieCount())
	assert.True(t, store.Exists(""))

	assert.ErrorIs(t, store.Store(s), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("work"), ErrStoreUnavailable)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(&Session{Profile: "default", State: []byte(sampleState)}))
	assert.True(t, store.Exists("default"))

	s, err := store.Retrieve("default")
	require.NoError(t, err)
	assert.JSONEq(t, sampleState, string(s.State))

	require.NoError(t, store.Delete("default"))
	_, err = store.Retrieve("default")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Delete("default"), ErrSessionNotFound)
}

func TestShowLoginGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowLoginGuide(&buf, "https://eu.zonerama.com/Profile/Albums")
	assert.Contains(t, buf.String(), "press Enter")
	assert.Contains(t, buf.String(), "https://eu.zonerama.com/Profile/Albums")
}
