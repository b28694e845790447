// Package tokenize splits cleaned text into sentiment-bearing tokens.
package tokenize

import "strings"

// Split breaks cleaned text on the single-space separator and drops empty
// tokens. Token order within the input is preserved; empty input yields no
// tokens.
func Split(text string) []string {
	if text == "" {
		return nil
	}
	parts := strings.Split(text, " ")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}
