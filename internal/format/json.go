package format

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/zplay/zplay/internal/turn"
)

// JSON serializes the whole response as one structured record.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Format(resp *turn.Response) string {
	out, err := json.Marshal(resp)
	if err != nil {
		return "{}"
	}
	return string(out)
}

var (
	dataScore = regexp.MustCompile(`(?i)Score:\s*-?\d+`)
	dataMoves = regexp.MustCompile(`(?i)Moves:\s*\d+`)
	dataTime  = regexp.MustCompile(`\d{1,2}:\d{2}\s*(?:AM|PM)`)
	blankRuns = regexp.MustCompile(`\n{3,}`)
	trailWS   = regexp.MustCompile(`(?m)[ \t]+$`)
)

// Data emits the extracted details plus the prose with status
// artifacts removed, as indented JSON.
type Data struct{}

func (Data) Name() string { return "data" }

func (Data) Format(resp *turn.Response) string {
	record := map[string]any{
		"output":     cleanProse(resp.Output),
		"success":    resp.Success,
		"has_prompt": promptPattern.MatchString(resp.Output),
	}
	for _, d := range resp.Details {
		record[d.Key] = d.Value
	}
	if resp.Message != "" {
		record["message"] = resp.Message
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(out)
}

// cleanProse removes status-line fragments and the prompt, then
// tightens whitespace without touching paragraph breaks.
func cleanProse(text string) string {
	text = dataScore.ReplaceAllString(text, "")
	text = dataMoves.ReplaceAllString(text, "")
	text = dataTime.ReplaceAllString(text, "")
	text = promptPattern.ReplaceAllString(text, "")
	text = trailWS.ReplaceAllString(text, "")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
