package puzzle

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// answerPatterns are tried in order against the article's body text. The
// review articles have gone through several phrasings, hence the fallback
// chain. First match wins.
var answerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Today.?s?\s+word\s+is\s+([A-Z]{5})\b`),
	regexp.MustCompile(`(?i)Today.?s?\s+Word[:\s]+([A-Z]{5})\b`),
	regexp.MustCompile(`(?i)answer\s+to\s+Wordle\s+\d+\s+is\s+([A-Z]{5})\b`),
	regexp.MustCompile(`(?i)answer\s+is\s+([A-Z]{5})\b`),
	regexp.MustCompile(`(?i)solution\s+is\s+([A-Z]{5})\b`),
	regexp.MustCompile(`(?i)Wordle\s+\d+\s+answer[:\s]+([A-Z]{5})\b`),
	regexp.MustCompile(`(?i)\b([A-Z]{5})\s+is\s+the\s+answer`),
	regexp.MustCompile(`(?i)The\s+word\s+is[:\s]+([A-Z]{5})\b`),
}

// RevealLocator identifies one candidate for the "Click to reveal" control.
// Text, when set, is a rod ElementR regex filter applied on top of the
// selector.
type RevealLocator struct {
	Selector string
	Text     string
}

// RevealLocators is the fallback chain for the spoiler control. Article markup
// has changed over time; each entry is tried with a short timeout.
var RevealLocators = []RevealLocator{
	{Selector: "button", Text: "/click to reveal/i"},
	{Selector: "button", Text: "/reveal/i"},
	{Selector: `[aria-label*="reveal" i]`},
	{Selector: ".reveal-button"},
	{Selector: "button.spoiler-reveal"},
}

// ExtractWord scans page text for the five-letter answer. The result is
// uppercased. Returns false when no pattern matches.
func ExtractWord(text string) (string, bool) {
	for _, re := range answerPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.ToUpper(m[1]), true
		}
	}
	return "", false
}

// TextFromHTML flattens an HTML document into whitespace-joined text,
// skipping script and style subtrees. Used when extracting from a saved page
// rather than a live one.
func TextFromHTML(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				sb.WriteString(trimmed)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return strings.TrimSpace(sb.String()), nil
}
