// Package store is the word database behind the addword companion.
// It is deliberately small: one SQLite table of recorded puzzle answers.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"wordfetch/internal/logging"
)

// ErrDuplicate is returned when the word or date is already recorded.
var ErrDuplicate = errors.New("word already exists in database")

// Entry is one recorded puzzle answer.
type Entry struct {
	Word       string
	GameNumber int
	PuzzleDate time.Time
	AddedAt    time.Time
}

// WordStore wraps the SQLite database holding recorded answers.
type WordStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at the given path, creating the
// schema if needed.
func Open(path string) (*WordStore, error) {
	logging.Store("Opening word store at %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &WordStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *WordStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS words (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		word TEXT NOT NULL UNIQUE,
		game_number INTEGER NOT NULL DEFAULT 0,
		puzzle_date TEXT NOT NULL UNIQUE,
		added_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_words_date ON words(puzzle_date);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// AddWord records an answer. The word is stored uppercased; a word or puzzle
// date already present yields ErrDuplicate.
func (s *WordStore) AddWord(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	word := strings.ToUpper(strings.TrimSpace(e.Word))
	dateKey := e.PuzzleDate.Format("2006-01-02")

	_, err := s.db.Exec(
		`INSERT INTO words (word, game_number, puzzle_date, added_at) VALUES (?, ?, ?, ?)`,
		word, e.GameNumber, dateKey, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			logging.Store("Duplicate entry rejected: %s / %s", word, dateKey)
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert word: %w", err)
	}

	logging.Store("Recorded %s (#%d) for %s", word, e.GameNumber, dateKey)
	return nil
}

// HasWord reports whether the word is already recorded.
func (s *WordStore) HasWord(word string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM words WHERE word = ?`,
		strings.ToUpper(strings.TrimSpace(word))).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query word: %w", err)
	}
	return count > 0, nil
}

// WordForDate returns the recorded entry for a puzzle date, if any.
func (s *WordStore) WordForDate(date time.Time) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		`SELECT word, game_number, puzzle_date, added_at FROM words WHERE puzzle_date = ?`,
		date.Format("2006-01-02"))
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, err
	}
	return e, true, nil
}

// Recent returns the most recently recorded entries, newest puzzle first.
func (s *WordStore) Recent(limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT word, game_number, puzzle_date, added_at FROM words
		 ORDER BY puzzle_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent words: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded answers.
func (s *WordStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM words`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count words: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *WordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var e Entry
	var dateStr, addedStr string
	if err := row.Scan(&e.Word, &e.GameNumber, &dateStr, &addedStr); err != nil {
		return Entry{}, err
	}
	if d, err := time.ParseInLocation("2006-01-02", dateStr, time.Local); err == nil {
		e.PuzzleDate = d
	}
	if a, err := time.Parse(time.RFC3339, addedStr); err == nil {
		e.AddedAt = a
	}
	return e, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
