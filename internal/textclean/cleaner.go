// Package textclean normalises raw social-media text ahead of tokenisation.
// It removes URLs, @mentions, and platform reserved words, strips the marker
// from #hashtags, and rejoins the surviving words with single spaces.
package textclean

import (
	"regexp"
	"strings"
)

var (
	urlPattern      = regexp.MustCompile(`(?:https?://|www\.)\S+`)
	mentionPattern  = regexp.MustCompile(`@\w+`)
	hashtagPattern  = regexp.MustCompile(`#+(\w+)`)
	reservedPattern = regexp.MustCompile(`\b(?:RT|FAV)\b`)
)

// Clean strips noise from a raw post. URLs and mentions disappear entirely;
// hashtags lose their marker but keep the word. The same input always yields
// the same output.
func Clean(text string) string {
	text = urlPattern.ReplaceAllString(text, " ")
	text = mentionPattern.ReplaceAllString(text, " ")
	text = hashtagPattern.ReplaceAllString(text, "$1")
	text = reservedPattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
