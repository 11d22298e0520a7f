package ansi

import (
	"regexp"
	"strings"
)

var escapePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`),            // CSI sequences (colors, cursor, DEC modes)
	regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`), // OSC sequences
	regexp.MustCompile(`\x1b[()][AB012]`),                   // Character set selection
	regexp.MustCompile(`\x1b[=>]`),                          // Keypad modes
	regexp.MustCompile(`\x1b[A-Za-z]`),                      // Simple ESC+letter sequences
}

// Strip removes terminal escape sequences from interpreter output.
// Interpreters running on a pty decorate their status line with colors
// and cursor movement; none of it carries text content.
func Strip(s string) string {
	if !strings.ContainsRune(s, 0x1b) {
		return s
	}
	for _, re := range escapePatterns {
		s = re.ReplaceAllString(s, "")
	}
	return s
}

// Normalize converts interpreter line endings to plain \n and drops
// bells and stray carriage returns.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\x07", "")
	return s
}
