package turn

import (
	"fmt"
	"regexp"
)

// Patterns is the recognized-output grammar for one interpreter/game
// pairing. Status-line and refusal formats vary across games, so the
// set is a value that callers can override or extend instead of a
// hard-coded table.
type Patterns struct {
	// Prompt marks the end of a turn: a ">" alone on its line, or a
	// trailing "> " waiting for input.
	Prompt *regexp.Regexp
	// FilenamePrompt is the interpreter asking where to save/restore.
	FilenamePrompt *regexp.Regexp
	// Overwrite is the save-dialog overwrite confirmation.
	Overwrite *regexp.Regexp
	// DialogResult ends a save/restore dialog: the interpreter's
	// verdict or the return of the game prompt.
	DialogResult *regexp.Regexp
	// ConfirmQuit is the "are you sure" question some games ask.
	ConfirmQuit *regexp.Regexp
	// More is a pagination prompt the session acknowledges on the
	// caller's behalf.
	More *regexp.Regexp
	// ScoreText matches the verbose reply to the score command.
	ScoreText *regexp.Regexp
	// StatusScore, StatusMoves, and StatusTime match status-line
	// fragments for detail extraction.
	StatusScore *regexp.Regexp
	StatusMoves *regexp.Regexp
	StatusTime  *regexp.Regexp
	// Failure patterns classify a reply as a refused action.
	Failure []*regexp.Regexp
}

var defaultFailureExprs = []string{
	`(?i)I don't understand`,
	`(?i)I don't know`,
	`(?i)You can't`,
	`(?i)You're not`,
	`(?i)I can't see`,
	`(?i)That doesn't make sense`,
	`(?i)That's not a verb I recogni[sz]e`,
	`(?i)What do you want to`,
	`(?i)You don't see`,
	`(?i)There is no`,
	`(?i)I don't see`,
	`(?i)I beg your pardon`,
}

// DefaultPatterns covers dfrotz and the common Infocom/Inform status
// conventions.
func DefaultPatterns() Patterns {
	failure := make([]*regexp.Regexp, len(defaultFailureExprs))
	for i, expr := range defaultFailureExprs {
		failure[i] = regexp.MustCompile(expr)
	}
	return Patterns{
		Prompt:         regexp.MustCompile(`(?m)^>\s*$`),
		FilenamePrompt: regexp.MustCompile(`Please enter a filename \[[^\]]*\]:`),
		Overwrite:      regexp.MustCompile(`(?i)Overwrite existing file\?`),
		DialogResult:   regexp.MustCompile(`(?i)Ok\.|Failed\.|(?m)^>\s*$`),
		ConfirmQuit:    regexp.MustCompile(`(?i)Are you sure`),
		More:           regexp.MustCompile(`(?i)\*\*\*\s*MORE\s*\*\*\*|\[MORE\]|\[Press (?:any key|RETURN or ENTER|SPACE)[^\]]*\]`),
		ScoreText:      regexp.MustCompile(`(?i)score is (\d+)(?:\s*\((?:total of\s*)?(\d+)\s*points?[^)]*\))?`),
		StatusScore:    regexp.MustCompile(`(?i)Score:\s*(-?\d+)`),
		StatusMoves:    regexp.MustCompile(`(?i)Moves:\s*(\d+)`),
		StatusTime:     regexp.MustCompile(`\d{1,2}:\d{2}\s*(?:AM|PM)`),
		Failure:        failure,
	}
}

// WithFailure returns a copy with extra refusal patterns appended.
func (p Patterns) WithFailure(exprs ...string) (Patterns, error) {
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return p, fmt.Errorf("invalid failure pattern %q: %w", expr, err)
		}
		p.Failure = append(p.Failure, re)
	}
	return p, nil
}

// WithPrompt returns a copy with the prompt pattern replaced.
func (p Patterns) WithPrompt(expr string) (Patterns, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return p, fmt.Errorf("invalid prompt pattern %q: %w", expr, err)
	}
	p.Prompt = re
	return p, nil
}
