// Package puzzle holds the Wordle domain model: game numbering, review
// article URLs, and answer extraction from page text.
package puzzle

import (
	"fmt"
	"time"
)

// Epoch is the date of Wordle #0. Game numbers count calendar days from here.
var Epoch = time.Date(2021, time.June, 19, 0, 0, 0, 0, time.Local)

// Answer is the transient record the fetch produces. Persistence is delegated
// to the addword companion.
type Answer struct {
	Word       string    `json:"word"`
	GameNumber int       `json:"game_number"`
	Date       time.Time `json:"date"`
}

// DateString renders the puzzle date the way the addword companion expects it.
func (a Answer) DateString() string {
	return a.Date.Format("01/02/2006")
}

func (a Answer) String() string {
	return fmt.Sprintf("%s (#%d, %s)", a.Word, a.GameNumber, a.DateString())
}

// GameNumber returns the game number for the given puzzle date. Calendar
// days are counted on a UTC-normalized copy so DST transitions cannot skew
// the division.
func GameNumber(date time.Time) int {
	return int(utcDate(date).Sub(utcDate(Epoch)).Hours() / 24)
}

func utcDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ReviewURL builds the review article URL. The article is published under its
// own date, which is not the puzzle date (today's article reviews tomorrow's
// puzzle).
func ReviewURL(articleDate time.Time, gameNumber int) string {
	return fmt.Sprintf("https://www.nytimes.com/%04d/%02d/%02d/crosswords/wordle-review-%d.html",
		articleDate.Year(), int(articleDate.Month()), articleDate.Day(), gameNumber)
}

// Plan describes one fetch: which article to load and which puzzle it covers.
type Plan struct {
	ArticleDate time.Time
	PuzzleDate  time.Time
	GameNumber  int
	URL         string
}

// PlanFor computes the fetch plan relative to now: today's article carries
// tomorrow's word.
func PlanFor(now time.Time) Plan {
	today := midnight(now)
	tomorrow := today.AddDate(0, 0, 1)
	game := GameNumber(tomorrow)
	return Plan{
		ArticleDate: today,
		PuzzleDate:  tomorrow,
		GameNumber:  game,
		URL:         ReviewURL(today, game),
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
