// Command addword records a puzzle answer in the word database. It is the
// companion the fetcher invokes as a subprocess; the fetcher inspects its
// exit status and output to tell duplicates from failures.
package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"wordfetch/internal/logging"
	"wordfetch/internal/puzzle"
	"wordfetch/internal/store"
)

var (
	verbose    bool
	dbPath     string
	gameNumber int

	logger *zap.Logger
)

var wordPattern = regexp.MustCompile(`^[A-Za-z]{5}$`)

// dateLayouts accepted for the DATE argument. The fetcher passes MM/DD/YYYY.
var dateLayouts = []string{"01/02/2006", "2006-01-02"}

var rootCmd = &cobra.Command{
	Use:   "addword WORD DATE",
	Short: "Record a puzzle answer in the word database",
	Long: `Records a five-letter puzzle answer for a given date.

The word must be exactly five letters. DATE is MM/DD/YYYY (or YYYY-MM-DD).
A word or date that is already recorded exits non-zero with a message
containing "already exists" so callers can treat duplicates as a soft
outcome.

Example:
  addword CRANE 03/15/2024 --game 1000`,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cwd, _ := os.Getwd()
		if err := logging.Initialize(cwd, ""); err != nil {
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
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the most recently recorded answers",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.RunE = runAdd
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", ".wordfetch/words.db", "Word database path")
	rootCmd.Flags().IntVar(&gameNumber, "game", 0, "Game number for the entry (derived from DATE when omitted)")

	rootCmd.AddCommand(listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAdd(cmd *cobra.Command, args []string) error {
	word, dateArg := args[0], args[1]

	if !wordPattern.MatchString(word) {
		return fmt.Errorf("invalid word %q: must be exactly five letters", word)
	}
	word = strings.ToUpper(word)
	date, err := parseDate(dateArg)
	if err != nil {
		return err
	}
	if gameNumber == 0 {
		gameNumber = puzzle.GameNumber(date)
	}

	logger.Info("Recording word",
		zap.String("word", word),
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("game", gameNumber))

	s, err := store.Open(resolveDBPath())
	if err != nil {
		return fmt.Errorf("open word database: %w", err)
	}
	defer s.Close()

	entry := store.Entry{Word: word, GameNumber: gameNumber, PuzzleDate: date}
	if err := s.AddWord(entry); err != nil {
		if err == store.ErrDuplicate {
			fmt.Printf("[INFO] %s already exists in database. No changes made.\n", entry.Word)
			return fmt.Errorf("word not added")
		}
		return fmt.Errorf("add word: %w", err)
	}

	count, _ := s.Count()
	fmt.Printf("[OK] Added %s for %s (database now holds %d words)\n",
		entry.Word, date.Format("01/02/2006"), count)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := store.Open(resolveDBPath())
	if err != nil {
		return fmt.Errorf("open word database: %w", err)
	}
	defer s.Close()

	entries, err := s.Recent(10)
	if err != nil {
		return fmt.Errorf("list words: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No words recorded yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  #%-5d %s\n", e.PuzzleDate.Format("2006-01-02"), e.GameNumber, e.Word)
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected MM/DD/YYYY", s)
}

func resolveDBPath() string {
	if env := os.Getenv("WORDFETCH_DB_PATH"); env != "" && !rootCmd.PersistentFlags().Changed("db") {
		return env
	}
	return dbPath
}
