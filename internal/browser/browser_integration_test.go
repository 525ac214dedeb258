//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/require"

	"wordfetch/internal/browser"
	"wordfetch/internal/puzzle"
)

// articleHTML mimics a review article: the answer is hidden behind a
// spoiler button and revealed on click.
const articleHTML = `<html><body>
<h1>Wordle Review</h1>
<p id="answer" style="display:none">Today's word is CRANE.</p>
<button class="reveal-button" onclick="document.getElementById('answer').style.display='block'">Click to reveal</button>
</body></html>`

func TestSessionManager_RevealFlow_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML)
	}))
	defer ts.Close()

	cfg := browser.DefaultConfig()
	cfg.DebuggerURL = "" // launch our own browser instead of attaching
	cfg.Headless = true
	cfg.NavigationTimeoutMs = 10000

	sm := browser.NewSessionManager(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	defer func() {
		if err := sm.Shutdown(context.Background()); err != nil {
			t.Logf("Shutdown error: %v", err)
		}
	}()

	require.NoError(t, sm.Start(ctx), "Failed to start browser")

	session, err := sm.OpenPage(ctx, ts.URL)
	require.NoError(t, err, "Failed to open page")
	require.NotEmpty(t, session.ID)
	require.Equal(t, ts.URL, session.URL)

	// The locator chain should land on the reveal button.
	loc, err := sm.ClickFirst(ctx, session.ID, puzzle.RevealLocators, 3*time.Second)
	require.NoError(t, err, "Failed to click reveal")
	require.NotEmpty(t, loc.Selector)

	// After the click, the hidden answer is part of the rendered text.
	require.Eventually(t, func() bool {
		text, err := sm.PageText(ctx, session.ID)
		if err != nil {
			return false
		}
		word, ok := puzzle.ExtractWord(text)
		return ok && word == "CRANE"
	}, 10*time.Second, 200*time.Millisecond, "Answer not visible after reveal")

	html, err := sm.PageHTML(ctx, session.ID)
	require.NoError(t, err)
	require.Contains(t, html, "reveal-button")

	require.NoError(t, sm.ClosePage(session.ID))
}

func TestSessionManager_ShutdownLeavesAttachedBrowser_Integration(t *testing.T) {
	// The browser here stands in for the user's own Chrome: started outside
	// the manager, attached to via its debugger URL.
	wsURL, err := launcher.New().Headless(true).Launch()
	require.NoError(t, err, "Failed to launch browser")

	owner := rod.New().ControlURL(wsURL)
	require.NoError(t, owner.Connect())
	defer owner.Close()

	cfg := browser.DefaultConfig()
	cfg.DebuggerURL = wsURL
	cfg.Headless = true

	sm := browser.NewSessionManager(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	require.NoError(t, sm.Start(ctx))
	session, err := sm.OpenPage(ctx, "about:blank")
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)

	require.NoError(t, sm.Shutdown(context.Background()))

	// The attached browser must still answer after the manager disconnects.
	_, err = owner.Version()
	require.NoError(t, err, "Attached browser was killed by Shutdown")
}

func TestSessionManager_NoRevealControl_Integration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>The answer is GLYPH.</p></body></html>`)
	}))
	defer ts.Close()

	cfg := browser.DefaultConfig()
	cfg.DebuggerURL = ""
	cfg.Headless = true

	sm := browser.NewSessionManager(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	defer sm.Shutdown(context.Background())

	require.NoError(t, sm.Start(ctx))

	session, err := sm.OpenPage(ctx, ts.URL)
	require.NoError(t, err)

	_, err = sm.ClickFirst(ctx, session.ID, puzzle.RevealLocators, 500*time.Millisecond)
	require.ErrorIs(t, err, browser.ErrNoReveal)

	text, err := sm.PageText(ctx, session.ID)
	require.NoError(t, err)
	word, ok := puzzle.ExtractWord(text)
	require.True(t, ok)
	require.Equal(t, "GLYPH", word)
}
