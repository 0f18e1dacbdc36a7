// Package display formats operator console output.
package display

import (
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultWidth = 80

// Wrap word-wraps text to DefaultWidth, preserving ANSI escape sequences.
func Wrap(text string) string {
	return wordwrap.String(text, DefaultWidth)
}

// Title capitalizes every word of s.
func Title(s string) string {
	// Casers carry state and are not shared between goroutines.
	return cases.Title(language.English).String(s)
}
