package puzzle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestGameNumber(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want int
	}{
		{"Epoch", date(2021, time.June, 19), 0},
		{"Day one", date(2021, time.June, 20), 1},
		{"Launch month", date(2021, time.July, 19), 30},
		{"Game 1000", date(2024, time.March, 15), 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GameNumber(tt.date))
		})
	}
}

func TestGameNumberIgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2024, time.March, 15, 0, 1, 0, 0, time.Local)
	night := time.Date(2024, time.March, 15, 23, 59, 0, 0, time.Local)
	assert.Equal(t, GameNumber(morning), GameNumber(night))
}

func TestReviewURL(t *testing.T) {
	url := ReviewURL(date(2024, time.March, 14), 1000)
	assert.Equal(t, "https://www.nytimes.com/2024/03/14/crosswords/wordle-review-1000.html", url)
}

func TestPlanFor(t *testing.T) {
	// Article date is today, puzzle date and game number are tomorrow's.
	now := time.Date(2024, time.March, 14, 15, 30, 0, 0, time.Local)
	plan := PlanFor(now)

	require.Equal(t, date(2024, time.March, 14), plan.ArticleDate)
	require.Equal(t, date(2024, time.March, 15), plan.PuzzleDate)
	require.Equal(t, 1000, plan.GameNumber)
	require.Equal(t, "https://www.nytimes.com/2024/03/14/crosswords/wordle-review-1000.html", plan.URL)
}

func TestPlanForMonthBoundary(t *testing.T) {
	now := date(2024, time.January, 31)
	plan := PlanFor(now)

	assert.Equal(t, date(2024, time.February, 1), plan.PuzzleDate)
	assert.Contains(t, plan.URL, "/2024/01/31/")
}

func TestAnswerDateString(t *testing.T) {
	a := Answer{Word: "CRANE", GameNumber: 1000, Date: date(2024, time.March, 15)}
	assert.Equal(t, "03/15/2024", a.DateString())
	assert.Equal(t, "CRANE (#1000, 03/15/2024)", a.String())
}
