// Package fetch runs the linear pipeline: connect to the browser, navigate to
// the review article, click reveal, extract the answer, and hand it to the
// addword companion.
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"wordfetch/internal/browser"
	"wordfetch/internal/config"
	"wordfetch/internal/logging"
	"wordfetch/internal/puzzle"
	"wordfetch/internal/runner"
)

// Markers in addword output that mean the word was already recorded rather
// than the hand-off failing.
var duplicateMarkers = []string{"already exists", "No changes made"}

const rule = "======================================================================"

// PageDriver is the slice of the browser session layer the pipeline needs.
type PageDriver interface {
	Start(ctx context.Context) error
	OpenPage(ctx context.Context, url string) (*browser.Session, error)
	ClickFirst(ctx context.Context, sessionID string, locators []puzzle.RevealLocator, perAttempt time.Duration) (puzzle.RevealLocator, error)
	PageText(ctx context.Context, sessionID string) (string, error)
	PageHTML(ctx context.Context, sessionID string) (string, error)
	ClosePage(sessionID string) error
	DetachPage(sessionID string) error
}

// CommandRunner executes the hand-off subprocess.
type CommandRunner interface {
	Execute(ctx context.Context, cmd runner.Command) (*runner.ExecutionResult, error)
}

// Options tweak a single run.
type Options struct {
	// DryRun skips the database hand-off.
	DryRun bool

	// KeepOpen leaves the tab open when extraction fails, so the operator can
	// see what the page looks like.
	KeepOpen bool
}

// Result is the outcome of one fetch.
type Result struct {
	Answer    puzzle.Answer
	Added     bool
	Duplicate bool
}

// Fetcher drives the pipeline.
type Fetcher struct {
	cfg    *config.Config
	driver PageDriver
	runner CommandRunner
	logger *zap.Logger
	opts   Options

	// out receives the operator-facing console report.
	out io.Writer

	// now is replaceable for tests.
	now func() time.Time
}

// New creates a fetcher.
func New(cfg *config.Config, driver PageDriver, cmdRunner CommandRunner, logger *zap.Logger, opts Options) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:    cfg,
		driver: driver,
		runner: cmdRunner,
		logger: logger,
		opts:   opts,
		out:    os.Stdout,
		now:    time.Now,
	}
}

// SetOutput redirects the console report. Used by tests.
func (f *Fetcher) SetOutput(w io.Writer) { f.out = w }

// SetClock replaces the wall clock. Used by tests.
func (f *Fetcher) SetClock(now func() time.Time) { f.now = now }

// Run executes the pipeline. Each step short-circuits on failure; the
// returned error is already reported to the console with guidance.
func (f *Fetcher) Run(ctx context.Context) (*Result, error) {
	plan := puzzle.PlanFor(f.now())

	fmt.Fprintln(f.out, rule)
	fmt.Fprintln(f.out, "WORDLE WORD FETCHER")
	fmt.Fprintln(f.out, rule)
	fmt.Fprintf(f.out, "Tomorrow's date: %s\n", plan.PuzzleDate.Format("01/02/2006"))
	fmt.Fprintf(f.out, "Game number: #%d\n", plan.GameNumber)
	fmt.Fprintf(f.out, "Review URL: %s\n", plan.URL)
	fmt.Fprintln(f.out)

	logging.Fetch("plan: game #%d, article %s", plan.GameNumber, plan.URL)
	f.logger.Info("starting fetch",
		zap.Int("game", plan.GameNumber),
		zap.String("url", plan.URL))

	// Step 0: connect.
	fmt.Fprintln(f.out, "Connecting to your browser...")
	if err := f.driver.Start(ctx); err != nil {
		f.printConnectGuidance()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	fmt.Fprintln(f.out, "[OK] Connected to browser")

	// Step 1: navigate.
	fmt.Fprintln(f.out, "[1/4] Navigating to review article...")
	session, err := f.driver.OpenPage(ctx, plan.URL)
	if err != nil {
		return nil, fmt.Errorf("open review article: %w", err)
	}
	f.sleep(ctx, f.cfg.SettleDelay())
	fmt.Fprintln(f.out, "[2/4] Page loaded")

	// Step 2: reveal. Failure here is a warning, not a stop: some articles
	// show the answer without a spoiler control.
	fmt.Fprintln(f.out, "[3/4] Looking for the reveal control...")
	if loc, err := f.driver.ClickFirst(ctx, session.ID, puzzle.RevealLocators, f.cfg.RevealTimeout()); err != nil {
		fmt.Fprintln(f.out, "[WARNING] Could not find reveal control, extracting anyway...")
		logging.FetchWarn("reveal not clicked: %v", err)
	} else {
		fmt.Fprintln(f.out, "[OK] Clicked reveal")
		logging.Fetch("clicked reveal via %q %q", loc.Selector, loc.Text)
		f.sleep(ctx, f.cfg.RevealSettle())
	}

	// Step 3: extract.
	fmt.Fprintln(f.out, "[4/4] Extracting answer from page...")
	text, err := f.driver.PageText(ctx, session.ID)
	if err != nil {
		f.closePage(session.ID)
		return nil, fmt.Errorf("read page text: %w", err)
	}

	word, ok := puzzle.ExtractWord(text)
	if !ok {
		f.reportExtractionFailure(ctx, session.ID, text)
		if f.opts.KeepOpen {
			// Release the tab from tracking so shutdown leaves it open.
			fmt.Fprintln(f.out, "Leaving the tab open for inspection.")
			if err := f.driver.DetachPage(session.ID); err != nil {
				logging.BrowserWarn("detach page: %v", err)
			}
		} else {
			f.closePage(session.ID)
		}
		return nil, fmt.Errorf("no answer found on page")
	}
	logging.Extract("matched %s", word)

	answer := puzzle.Answer{Word: word, GameNumber: plan.GameNumber, Date: plan.PuzzleDate}
	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, rule)
	fmt.Fprintln(f.out, "INFORMATION GATHERED")
	fmt.Fprintln(f.out, rule)
	fmt.Fprintf(f.out, "Word:  %s\n", answer.Word)
	fmt.Fprintf(f.out, "Game:  #%d\n", answer.GameNumber)
	fmt.Fprintf(f.out, "Date:  %s\n", answer.DateString())
	fmt.Fprintln(f.out, rule)
	fmt.Fprintln(f.out)

	f.closePage(session.ID)

	result := &Result{Answer: answer}
	if f.opts.DryRun {
		fmt.Fprintln(f.out, "[DRY RUN] Skipping database hand-off")
		return result, nil
	}

	// Step 4: hand off.
	if err := f.handOff(ctx, result); err != nil {
		return result, err
	}

	fmt.Fprintln(f.out, rule)
	fmt.Fprintln(f.out, "FINAL RESULT")
	fmt.Fprintln(f.out, rule)
	if result.Added {
		fmt.Fprintf(f.out, "SUCCESS: %s added to database\n", answer.Word)
	} else {
		fmt.Fprintf(f.out, "COMPLETE: %s was already in the database, no changes made\n", answer.Word)
	}
	fmt.Fprintln(f.out, rule)

	return result, nil
}

// handOff runs the addword companion and classifies its outcome by exit
// status and output text.
func (f *Fetcher) handOff(ctx context.Context, result *Result) error {
	a := result.Answer
	fmt.Fprintf(f.out, "[5/5] Adding %s to database...\n", a.Word)

	args := append([]string{}, f.cfg.Execution.AddWordArgs...)
	args = append(args, a.Word, a.DateString(), "--game", strconv.Itoa(a.GameNumber))

	res, err := f.runner.Execute(ctx, runner.Command{
		Binary:           f.cfg.Execution.AddWordBinary,
		Arguments:        args,
		WorkingDirectory: f.cfg.Execution.WorkingDirectory,
		Timeout:          f.cfg.ExecTimeout(),
	})
	if err != nil {
		return fmt.Errorf("run addword: %w", err)
	}

	if res.Stdout != "" {
		fmt.Fprint(f.out, res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprint(f.out, res.Stderr)
	}

	if res.ExitCode == 0 {
		result.Added = true
		return nil
	}
	for _, marker := range duplicateMarkers {
		if res.OutputContains(marker) {
			result.Duplicate = true
			logging.Fetch("word already recorded: %s", a.Word)
			return nil
		}
	}
	return fmt.Errorf("addword exited %d", res.ExitCode)
}

// reportExtractionFailure dumps the page for debugging and prints a preview
// of what the pipeline saw.
func (f *Fetcher) reportExtractionFailure(ctx context.Context, sessionID, text string) {
	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, "[ERROR] Could not find the answer on the page.")
	fmt.Fprintln(f.out, "The page might have a different format than expected.")

	if path := f.cfg.Fetch.DebugPagePath; path != "" {
		if html, err := f.driver.PageHTML(ctx, sessionID); err == nil {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err == nil {
				if err := os.WriteFile(path, []byte(html), 0644); err == nil {
					fmt.Fprintf(f.out, "\nPage saved to: %s\n", path)
				}
			}
		} else {
			logging.FetchWarn("could not capture page html: %v", err)
		}
	}

	preview := text
	if len(preview) > 1000 {
		preview = preview[:1000]
	}
	fmt.Fprintln(f.out, "First 1000 chars of page text:")
	fmt.Fprintln(f.out, strings.Repeat("-", 70))
	if preview == "" {
		fmt.Fprintln(f.out, "No text found")
	} else {
		fmt.Fprintln(f.out, preview)
	}
	fmt.Fprintln(f.out, strings.Repeat("-", 70))
}

func (f *Fetcher) printConnectGuidance() {
	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, rule)
	fmt.Fprintln(f.out, "[ERROR] Could not connect to browser")
	fmt.Fprintln(f.out, rule)
	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, "Start Chrome or Edge with remote debugging enabled, e.g.:")
	fmt.Fprintln(f.out)
	fmt.Fprintln(f.out, "  google-chrome --remote-debugging-port=9222")
	fmt.Fprintln(f.out, "  msedge --remote-debugging-port=9222")
	fmt.Fprintln(f.out)
	fmt.Fprintf(f.out, "then rerun with --debugger-url %s\n", f.cfg.Browser.DebuggerURL)
	fmt.Fprintln(f.out, rule)
}

func (f *Fetcher) closePage(sessionID string) {
	if err := f.driver.ClosePage(sessionID); err != nil {
		logging.BrowserWarn("close page: %v", err)
	}
}

// sleep waits without outliving the context.
func (f *Fetcher) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
