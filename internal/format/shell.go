package format

import (
	"fmt"
	"strings"

	"github.com/zplay/zplay/internal/turn"
)

const (
	colorGreen = "\x1b[32m"
	colorRed   = "\x1b[31m"
	colorReset = "\x1b[0m"
)

// Shell is the interactive presentation: game text with a re-drawn
// prompt colored by the last turn's verdict, and ✓/✗ feedback lines
// for session operations.
type Shell struct{}

func (Shell) Name() string { return "shell" }

func (s Shell) Format(resp *turn.Response) string {
	if resp.IsAction() {
		return s.gameOutput(resp)
	}
	return s.systemFeedback(resp)
}

func (s Shell) gameOutput(resp *turn.Response) string {
	content := resp.Output
	if !promptPattern.MatchString(content) {
		return content
	}

	color := colorGreen
	if !resp.Success {
		color = colorRed
	}
	return stripPrompt(content) + "\n\n" + color + "> " + colorReset
}

func (s Shell) systemFeedback(resp *turn.Response) string {
	prefix := colorGreen + "✓" + colorReset
	if !resp.Success {
		prefix = colorRed + "✗" + colorReset
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", prefix, strings.ToUpper(string(resp.Operation)), resp.Message)
	for _, d := range resp.Details {
		fmt.Fprintf(&b, "\n  %s: %v", d.Key, d.Value)
	}
	b.WriteString("\n")
	return b.String()
}
