package turn

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/zplay/zplay/internal/ansi"
)

var statusSplit = regexp.MustCompile(`\s{3,}`)

// Parser turns raw interpreter bytes into Responses. Parsing is pure:
// the same raw input always yields the same Response.
type Parser struct {
	pats Patterns
}

func NewParser(pats Patterns) *Parser {
	return &Parser{pats: pats}
}

// Clean strips escape sequences, normalizes line endings, and removes
// pagination markers. The semantic text is never altered.
func (p *Parser) Clean(raw string) string {
	s := ansi.Normalize(ansi.Strip(raw))
	s = p.pats.More.ReplaceAllString(s, "")
	return s
}

// Parse builds the Response for one turn. input is the command that was
// written; when the interpreter echoes it back (pty transports do) the
// echoed line is dropped from the output. Detail extraction is
// best-effort: an unrecognized reply simply has no details.
func (p *Parser) Parse(op Operation, input, raw string) *Response {
	out := p.Clean(raw)
	out = dropEcho(out, input)

	success := true
	if op == OpAction {
		success = !p.FailureDetected(out)
	}

	return &Response{
		Input:     input,
		Output:    out,
		Operation: op,
		Success:   success,
		Details:   p.extractStatus(out),
	}
}

// FailureDetected reports whether the reply matches a known refusal.
func (p *Parser) FailureDetected(text string) bool {
	for _, re := range p.pats.Failure {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// HasPrompt reports whether the text ends at a game prompt.
func (p *Parser) HasPrompt(text string) bool {
	return p.pats.Prompt.MatchString(text)
}

// StripPrompt removes trailing game prompts from the text.
func (p *Parser) StripPrompt(text string) string {
	return strings.TrimRight(p.pats.Prompt.ReplaceAllString(text, ""), " \n")
}

// ExtractScore parses the verbose score reply ("Your score is 30
// (total of 350 points)..."). outOf is zero when the game does not
// report a maximum.
func (p *Parser) ExtractScore(text string) (score, outOf int, ok bool) {
	m := p.pats.ScoreText.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	score, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, false
	}
	if m[2] != "" {
		outOf, _ = strconv.Atoi(m[2])
	}
	return score, outOf, true
}

// extractStatus pulls location/score/moves/time details from a status
// line when one is recognizable.
func (p *Parser) extractStatus(text string) []Detail {
	var details []Detail

	if loc, ok := p.extractLocation(text); ok {
		details = append(details, Detail{Key: "location", Value: loc})
	}
	if m := p.pats.StatusScore.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			details = append(details, Detail{Key: "score", Value: n})
		}
	}
	if m := p.pats.StatusMoves.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			details = append(details, Detail{Key: "moves", Value: n})
		}
	}
	if m := p.pats.StatusTime.FindString(text); m != "" {
		details = append(details, Detail{Key: "time", Value: m})
	}
	return details
}

// extractLocation reads a location banner off the first non-empty
// line. Status lines pad the location from the stats with runs of
// spaces; a short bare line with no sentence punctuation also counts.
func (p *Parser) extractLocation(text string) (string, bool) {
	var first string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			first = strings.TrimSpace(line)
			break
		}
	}
	if first == "" {
		return "", false
	}

	if parts := statusSplit.Split(first, -1); len(parts) >= 2 {
		candidate := strings.TrimSpace(parts[0])
		if validLocation(candidate) {
			return candidate, true
		}
		return "", false
	}

	if strings.ContainsAny(first, ".!?:") || len(first) >= 50 {
		return "", false
	}
	if strings.Contains(first, "Score") || strings.Contains(first, "Moves") {
		return "", false
	}
	if validLocation(first) {
		return first, true
	}
	return "", false
}

var refusalPrefixes = []string{
	"I don't ", "I can't ", "What do you ", "You're ", "You ",
	"That's not ", "I beg your pardon",
}

func validLocation(candidate string) bool {
	if candidate == "" {
		return false
	}
	for _, prefix := range refusalPrefixes {
		if strings.HasPrefix(candidate, prefix) {
			return false
		}
	}
	return true
}

// dropEcho removes the echoed command from the head of the reply.
func dropEcho(out, input string) string {
	if input == "" {
		return out
	}
	trimmed := strings.TrimLeft(out, "\n")
	if first, rest, found := strings.Cut(trimmed, "\n"); found {
		if strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(first), ">")) == strings.TrimSpace(input) {
			return rest
		}
	}
	return out
}
