// Command wordfetch fetches tomorrow's Wordle answer from the daily review
// article, using an already running browser over its remote-debugging port,
// and hands the result to the addword companion.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wordfetch/internal/browser"
	"wordfetch/internal/config"
	"wordfetch/internal/fetch"
	"wordfetch/internal/logging"
	"wordfetch/internal/runner"
	"wordfetch/internal/store"
)

var (
	// Global flags
	verbose     bool
	configPath  string
	debuggerURL string
	timeout     time.Duration
	dryRun      bool
	keepOpen    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wordfetch",
	Short: "Fetch tomorrow's Wordle answer from the review article",
	Long: `wordfetch attaches to a locally running Chrome or Edge over the
remote-debugging protocol, opens today's review article (which carries
tomorrow's word), clicks the spoiler control, extracts the five-letter
answer, and records it via the addword companion.

The browser must already be running with remote debugging enabled:

  google-chrome --remote-debugging-port=9222`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cwd, _ := os.Getwd()
		if err := logging.Initialize(cwd, configPath); err != nil {
			logger.Warn("file logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: runFetch,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and word database status",
	RunE:  showStatus,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".wordfetch/config.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&debuggerURL, "debugger-url", "", "Browser remote-debugging URL (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Extract the word but skip the database hand-off")
	rootCmd.Flags().BoolVar(&keepOpen, "keep-open", false, "Leave the tab open when extraction fails")

	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if debuggerURL != "" {
		cfg.Browser.DebuggerURL = debuggerURL
	}
	return cfg, nil
}

func browserConfig(cfg *config.Config) browser.Config {
	cwd, _ := os.Getwd()
	bcfg := browser.Config{
		DebuggerURL:         cfg.Browser.DebuggerURL,
		Launch:              cfg.Browser.Launch,
		Headless:            cfg.Browser.Headless,
		ViewportWidth:       cfg.Browser.ViewportWidth,
		ViewportHeight:      cfg.Browser.ViewportHeight,
		NavigationTimeoutMs: cfg.Browser.NavigationTimeoutMs,
		SessionStore:        cfg.Browser.SessionStore,
	}
	if bcfg.SessionStore == "" {
		bcfg.SessionStore = filepath.Join(cwd, ".wordfetch", "sessions.json")
	}
	return bcfg
}

// runFetch executes the full pipeline.
func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Graceful shutdown on Ctrl+C.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mgr := browser.NewSessionManager(browserConfig(cfg))
	defer func() {
		if err := mgr.Shutdown(context.Background()); err != nil {
			logger.Warn("browser shutdown", zap.Error(err))
		}
	}()

	exec := runner.NewExecutor(cfg.ExecTimeout())
	fetcher := fetch.New(cfg, mgr, exec, logger, fetch.Options{
		DryRun:   dryRun,
		KeepOpen: keepOpen,
	})

	result, err := fetcher.Run(ctx)
	if err != nil {
		fmt.Println()
		fmt.Println("[FAILED] Could not fetch the word")
		return err
	}

	logger.Info("fetch complete",
		zap.String("word", result.Answer.Word),
		zap.Int("game", result.Answer.GameNumber),
		zap.Bool("added", result.Added),
		zap.Bool("duplicate", result.Duplicate))
	return nil
}

// showStatus reports config resolution and database contents.
func showStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println("wordfetch status")
	fmt.Println("================")
	fmt.Printf("Config file:   %s\n", configPath)
	fmt.Printf("Debugger URL:  %s\n", cfg.Browser.DebuggerURL)
	fmt.Printf("Addword:       %s\n", cfg.Execution.AddWordBinary)
	fmt.Printf("Database:      %s\n", cfg.Database.Path)

	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		fmt.Printf("Database:      unavailable (%v)\n", err)
		return nil
	}
	defer s.Close()

	count, err := s.Count()
	if err != nil {
		return err
	}
	fmt.Printf("Words stored:  %d\n", count)

	entries, err := s.Recent(5)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("  %s  #%-5d %s\n", e.PuzzleDate.Format("2006-01-02"), e.GameNumber, e.Word)
	}
	return nil
}
