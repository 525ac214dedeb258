package puzzle

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractWordPhrasings(t *testing.T) {
	texts := []string{
		"Warning: spoilers ahead. Today's word is CRANE, a common opener.",
		"Today's Word: FLUTE",
		"The answer to Wordle 1000 is BRAVE.",
		"If you scrolled this far, the answer is plumb.",
		"The solution is GLYPH, which stumped many.",
		"Wordle 999 answer: QUIRK",
		"Many guessed it early. SHARD is the answer today.",
		"The word is: MOIST",
	}
	want := []string{"CRANE", "FLUTE", "BRAVE", "PLUMB", "GLYPH", "QUIRK", "SHARD", "MOIST"}

	got := make([]string, 0, len(texts))
	for _, text := range texts {
		word, ok := ExtractWord(text)
		require.True(t, ok, "no match in %q", text)
		got = append(got, word)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("extraction mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractWordNoMatch(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"Empty", ""},
		{"No answer phrasing", "Today's puzzle was harder than usual."},
		{"Wrong length", "The answer is CAT."},
		{"Answer too long", "The answer is STREAMS everywhere."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ExtractWord(tt.text)
			assert.False(t, ok)
		})
	}
}

func TestExtractWordFirstPatternWins(t *testing.T) {
	// Both phrasings present; "Today's word is" outranks "the answer is".
	text := "Today's word is CRANE. Some say the answer is WRONG."
	word, ok := ExtractWord(text)
	require.True(t, ok)
	assert.Equal(t, "CRANE", word)
}

func TestExtractWordUppercases(t *testing.T) {
	word, ok := ExtractWord("the answer is crane")
	require.True(t, ok)
	assert.Equal(t, "CRANE", word)
}

func TestTextFromHTML(t *testing.T) {
	doc := `<html><head><title>Review</title>
	<script>var hidden = "NOISE";</script>
	<style>.spoiler { display: none; }</style>
	</head><body>
	<article><p>Spoilers below.</p><p>Today's word is CRANE.</p></article>
	</body></html>`

	text, err := TextFromHTML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Contains(t, text, "Today's word is CRANE.")
	assert.NotContains(t, text, "NOISE")
	assert.NotContains(t, text, "spoiler {")

	word, ok := ExtractWord(text)
	require.True(t, ok)
	assert.Equal(t, "CRANE", word)
}

func TestTextFromHTMLJoinsBlocks(t *testing.T) {
	// Text split across elements still extracts when the phrase spans one node.
	doc := `<div><span>The solution is </span><strong>GLYPH</strong></div>`
	text, err := TextFromHTML(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "The solution is GLYPH", text)
}
