package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:9222", cfg.DebuggerURL)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 1920, cfg.ViewportWidth)
	assert.Equal(t, 1080, cfg.ViewportHeight)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout())
}

func TestNavigationTimeoutZeroFallsBack(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout())

	cfg.NavigationTimeoutMs = 1500
	assert.Equal(t, 1500*time.Millisecond, cfg.NavigationTimeout())
}

func TestSessionStoreRoundTrip(t *testing.T) {
	store := filepath.Join(t.TempDir(), "state", "sessions.json")

	m := NewSessionManager(Config{SessionStore: store})
	now := time.Now()
	m.sessions["s1"] = &sessionRecord{meta: Session{
		ID:        "s1",
		URL:       "https://example.com/article",
		Status:    "active",
		CreatedAt: now,
	}}
	require.NoError(t, m.persistSessions())

	// A fresh manager sees the record, but as detached: the page handle
	// from the previous run is gone.
	reloaded := NewSessionManager(Config{SessionStore: store})
	require.NoError(t, reloaded.loadSessionsLocked())

	rec, ok := reloaded.sessions["s1"]
	require.True(t, ok)
	assert.Equal(t, "detached", rec.meta.Status)
	assert.Equal(t, "https://example.com/article", rec.meta.URL)
	assert.Nil(t, rec.page)
}

func TestSessionStoreMissingFileIsFine(t *testing.T) {
	m := NewSessionManager(Config{SessionStore: filepath.Join(t.TempDir(), "nope.json")})
	assert.NoError(t, m.loadSessionsLocked())
	assert.Empty(t, m.sessions)
}

func TestDetachPageSurvivesShutdown(t *testing.T) {
	m := NewSessionManager(Config{SessionStore: filepath.Join(t.TempDir(), "sessions.json")})
	m.sessions["s1"] = &sessionRecord{meta: Session{ID: "s1", Status: "active"}}

	require.NoError(t, m.DetachPage("s1"))

	// The page handle is released, so Shutdown has nothing to close.
	rec := m.sessions["s1"]
	assert.Nil(t, rec.page)
	assert.Equal(t, "detached", rec.meta.Status)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Empty(t, m.sessions)
}

func TestDetachPageUnknownSession(t *testing.T) {
	m := NewSessionManager(DefaultConfig())
	assert.Error(t, m.DetachPage("missing"))
}

func TestShutdownWithoutStartIsClean(t *testing.T) {
	m := NewSessionManager(DefaultConfig())
	assert.NoError(t, m.Shutdown(context.Background()))
	assert.False(t, m.IsConnected())
}

func TestShutdownConcurrentWithSessionAccess(t *testing.T) {
	m := NewSessionManager(Config{})
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("s%d", i)
		m.sessions[id] = &sessionRecord{meta: Session{ID: id}}
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("s%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Page(id)
			m.GetSession(id)
			_ = m.DetachPage(id)
			_ = m.ClosePage(id)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.Shutdown(context.Background())
	}()
	wg.Wait()

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Empty(t, m.sessions)
}

func TestUnknownSessionLookups(t *testing.T) {
	m := NewSessionManager(DefaultConfig())

	_, ok := m.Page("missing")
	assert.False(t, ok)

	_, ok = m.GetSession("missing")
	assert.False(t, ok)

	err := m.ClosePage("missing")
	assert.Error(t, err)
}
