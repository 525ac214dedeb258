// Package browser provides the CDP session layer. It attaches to an already
// running Chrome or Edge over its remote-debugging port and drives pages
// through go-rod.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"wordfetch/internal/logging"
	"wordfetch/internal/puzzle"
)

// ErrNoReveal is returned when none of the reveal locators matched.
var ErrNoReveal = errors.New("reveal control not found")

// Session describes the public metadata for a tracked page.
type Session struct {
	ID         string    `json:"id"`
	TargetID   string    `json:"target_id,omitempty"`
	URL        string    `json:"url,omitempty"`
	Status     string    `json:"status,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

type sessionRecord struct {
	meta Session
	page *rod.Page
}

// Config holds browser configuration.
type Config struct {
	DebuggerURL         string   `json:"debugger_url"`
	Launch              []string `json:"launch"`
	Headless            bool     `json:"headless"`
	ViewportWidth       int      `json:"viewport_width"`
	ViewportHeight      int      `json:"viewport_height"`
	NavigationTimeoutMs int      `json:"navigation_timeout_ms"`
	SessionStore        string   `json:"session_store"`
}

// DefaultConfig returns sensible defaults: attach to a visible browser on the
// standard debugging port.
func DefaultConfig() Config {
	return Config{
		DebuggerURL:         "http://localhost:9222",
		Headless:            false,
		ViewportWidth:       1920,
		ViewportHeight:      1080,
		NavigationTimeoutMs: 30000,
	}
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// SessionManager owns the CDP connection and tracks open pages.
type SessionManager struct {
	cfg        Config
	mu         sync.RWMutex
	browser    *rod.Browser
	sessions   map[string]*sessionRecord
	controlURL string // WebSocket URL for DevTools

	// launched is true when this process started the browser itself. An
	// attached browser belongs to the user and must never be closed.
	launched bool
	cancel   context.CancelFunc
}

// NewSessionManager creates a new session manager.
func NewSessionManager(cfg Config) *SessionManager {
	return &SessionManager{
		cfg:      cfg,
		sessions: make(map[string]*sessionRecord),
	}
}

// Start connects to the configured debugger, or launches a browser when a
// launch command is configured and nothing is listening.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		logging.BrowserWarn("stale browser connection detected, reconnecting")
		_ = m.disconnectLocked()
		m.sessions = make(map[string]*sessionRecord)
	}

	if err := m.loadSessionsLocked(); err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	controlURL, launched, err := m.resolveControlURL()
	if err != nil {
		return err
	}

	bctx, cancel := context.WithCancel(ctx)
	browser := rod.New().ControlURL(controlURL).Context(bctx)
	if err := browser.Connect(); err != nil {
		cancel()
		return fmt.Errorf("connect to browser: %w", err)
	}

	m.browser = browser
	m.controlURL = controlURL
	m.launched = launched
	m.cancel = cancel
	logging.Browser("connected, control URL %s (launched=%v)", controlURL, launched)
	return nil
}

// disconnectLocked drops the CDP connection. A browser this process launched
// is closed outright; an attached one is left running and only the
// connection goes away. Caller must hold the lock.
func (m *SessionManager) disconnectLocked() error {
	var err error
	if m.browser != nil {
		if m.launched {
			err = m.browser.Close()
		} else if m.cancel != nil {
			m.cancel()
		}
		m.browser = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.launched = false
	m.controlURL = ""
	return err
}

// resolveControlURL turns the configured debugger endpoint into a DevTools
// WebSocket URL, launching a browser as a fallback. The second return is
// true when this process launched the browser.
func (m *SessionManager) resolveControlURL() (string, bool, error) {
	if m.cfg.DebuggerURL != "" {
		if strings.HasPrefix(m.cfg.DebuggerURL, "ws") {
			return m.cfg.DebuggerURL, false, nil
		}
		url, err := launcher.ResolveURL(m.cfg.DebuggerURL)
		if err == nil {
			return url, false, nil
		}
		logging.BrowserWarn("debugger at %s not reachable: %v", m.cfg.DebuggerURL, err)
		if len(m.cfg.Launch) == 0 {
			return "", false, fmt.Errorf("resolve debugger url %s: %w", m.cfg.DebuggerURL, err)
		}
	}

	if len(m.cfg.Launch) > 0 {
		bin := m.cfg.Launch[0]
		launch := launcher.New().Bin(bin).Headless(m.cfg.Headless)
		for _, rawFlag := range m.cfg.Launch[1:] {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				launch = launch.Set(flags.Flag(name), val)
			} else {
				launch = launch.Set(flags.Flag(name))
			}
		}
		url, err := launch.Launch()
		if err != nil {
			// Fallback without the extra flags.
			fallback := launcher.New().Bin(bin).Headless(m.cfg.Headless)
			alt, altErr := fallback.Launch()
			if altErr != nil {
				return "", false, fmt.Errorf("launch browser: %w (fallback: %v)", err, altErr)
			}
			return alt, true, nil
		}
		return url, true, nil
	}

	url, err := launcher.New().Headless(m.cfg.Headless).Launch()
	if err != nil {
		return "", false, fmt.Errorf("no debugger_url and failed to launch: %w", err)
	}
	return url, true, nil
}

func (m *SessionManager) ensureStarted(ctx context.Context) error {
	m.mu.RLock()
	if m.browser != nil {
		m.mu.RUnlock()
		return nil
	}
	m.mu.RUnlock()
	return m.Start(ctx)
}

// ControlURL returns the WebSocket debugger URL.
func (m *SessionManager) ControlURL() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.controlURL
}

// IsConnected returns whether the browser is connected.
func (m *SessionManager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil
}

// Shutdown closes tracked pages and drops the CDP connection. An attached
// browser process is left running; it belongs to the user. Pages released
// with DetachPage are not closed.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, record := range m.sessions {
		if record.page != nil {
			_ = record.page.Close()
		}
		delete(m.sessions, id)
	}

	err := m.disconnectLocked()
	logging.Browser("shutdown complete")
	return err
}

// OpenPage opens a new tab in the browser's default context and navigates it.
// The default context is used on purpose: the review site's login cookies
// live in the user's profile.
func (m *SessionManager) OpenPage(ctx context.Context, url string) (*Session, error) {
	if err := m.ensureStarted(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	browser := m.browser
	m.mu.RUnlock()
	if browser == nil {
		return nil, errors.New("browser not connected")
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.ViewportWidth,
		Height:            m.cfg.ViewportHeight,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		logging.BrowserWarn("failed to set viewport: %v", err)
	}

	if err := page.Context(ctx).Timeout(m.cfg.NavigationTimeout()).Navigate(url); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("navigate to %s: %w", url, err)
	}

	meta := Session{
		ID:         uuid.NewString(),
		TargetID:   string(page.TargetID),
		URL:        url,
		Status:     "active",
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}

	m.mu.Lock()
	m.sessions[meta.ID] = &sessionRecord{meta: meta, page: page}
	m.mu.Unlock()

	_ = m.persistSessions()
	logging.Browser("opened page %s at %s", meta.ID, url)
	return &meta, nil
}

// Page returns the underlying rod page for a session.
func (m *SessionManager) Page(sessionID string) (*rod.Page, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return rec.page, true
}

// GetSession returns session metadata.
func (m *SessionManager) GetSession(sessionID string) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return rec.meta, true
}

// Navigate navigates an open page.
func (m *SessionManager) Navigate(ctx context.Context, sessionID, url string) error {
	page, ok := m.Page(sessionID)
	if !ok {
		return fmt.Errorf("unknown session: %s", sessionID)
	}
	if err := page.Context(ctx).Timeout(m.cfg.NavigationTimeout()).Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	m.touch(sessionID, url)
	return nil
}

// ClickFirst walks the locator fallback chain and clicks the first element
// that appears within perAttempt. Returns ErrNoReveal when nothing matched.
func (m *SessionManager) ClickFirst(ctx context.Context, sessionID string, locators []puzzle.RevealLocator, perAttempt time.Duration) (puzzle.RevealLocator, error) {
	page, ok := m.Page(sessionID)
	if !ok {
		return puzzle.RevealLocator{}, fmt.Errorf("unknown session: %s", sessionID)
	}

	for _, loc := range locators {
		scoped := page.Context(ctx).Timeout(perAttempt)

		var el *rod.Element
		var err error
		if loc.Text != "" {
			el, err = scoped.ElementR(loc.Selector, loc.Text)
		} else {
			el, err = scoped.Element(loc.Selector)
		}
		if err != nil {
			logging.BrowserDebug("locator %q %q not found: %v", loc.Selector, loc.Text, err)
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			logging.BrowserWarn("click on %q failed: %v", loc.Selector, err)
			continue
		}
		m.touch(sessionID, "")
		logging.Browser("clicked %q %q", loc.Selector, loc.Text)
		return loc, nil
	}
	return puzzle.RevealLocator{}, ErrNoReveal
}

// PageText returns the rendered body text of an open page.
func (m *SessionManager) PageText(ctx context.Context, sessionID string) (string, error) {
	page, ok := m.Page(sessionID)
	if !ok {
		return "", fmt.Errorf("unknown session: %s", sessionID)
	}

	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           `() => (document.body && document.body.innerText) || ''`,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return "", fmt.Errorf("evaluate body text: %w", err)
	}
	if res == nil {
		return "", errors.New("evaluate body text: empty result")
	}
	return res.Value.Str(), nil
}

// PageHTML returns the full HTML of an open page, for the failure-path dump.
func (m *SessionManager) PageHTML(ctx context.Context, sessionID string) (string, error) {
	page, ok := m.Page(sessionID)
	if !ok {
		return "", fmt.Errorf("unknown session: %s", sessionID)
	}
	html, err := page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("page html: %w", err)
	}
	return html, nil
}

// DetachPage stops tracking a page without closing it. The tab stays open in
// the browser so the operator can inspect it; Shutdown will not touch it.
func (m *SessionManager) DetachPage(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("unknown session: %s", sessionID)
	}
	rec.page = nil
	rec.meta.Status = "detached"
	_ = m.persistSessionsLocked()
	logging.Browser("detached page %s", sessionID)
	return nil
}

// ClosePage closes a tracked page.
func (m *SessionManager) ClosePage(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("unknown session: %s", sessionID)
	}
	delete(m.sessions, sessionID)

	var err error
	if rec.page != nil {
		err = rec.page.Close()
	}
	_ = m.persistSessionsLocked()
	return err
}

func (m *SessionManager) touch(sessionID, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	rec.meta.LastActive = time.Now()
	if url != "" {
		rec.meta.URL = url
	}
}

// persistSessions writes session metadata to disk.
func (m *SessionManager) persistSessions() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.persistSessionsLocked()
}

func (m *SessionManager) persistSessionsLocked() error {
	if m.cfg.SessionStore == "" {
		return nil
	}

	sessions := make([]Session, 0, len(m.sessions))
	for _, rec := range m.sessions {
		sessions = append(sessions, rec.meta)
	}

	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.cfg.SessionStore), 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.cfg.SessionStore, data, 0o644)
}

// loadSessionsLocked loads persisted metadata. Caller must hold the lock.
// Pages from previous runs cannot be reattached; their records are marked
// detached.
func (m *SessionManager) loadSessionsLocked() error {
	if m.cfg.SessionStore == "" {
		return nil
	}

	data, err := os.ReadFile(m.cfg.SessionStore)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return err
	}
	for _, s := range sessions {
		s.Status = "detached"
		m.sessions[s.ID] = &sessionRecord{meta: s, page: nil}
	}
	return nil
}
