// Package format renders structured responses for presentation.
// Formatters are stateless; pick one by name at the boundary.
package format

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/zplay/zplay/internal/turn"
)

var ErrUnknownFormatter = errors.New("unknown formatter")

var promptPattern = regexp.MustCompile(`(?m)^>\s*$`)

// Formatter turns one response into its output representation. Format
// must render the raw output losslessly.
type Formatter interface {
	Name() string
	Format(resp *turn.Response) string
}

var registry = map[string]Formatter{}

func register(f Formatter) {
	registry[f.Name()] = f
}

func init() {
	register(Raw{})
	register(Text{})
	register(Shell{})
	register(JSON{})
	register(Data{})
}

// Lookup resolves a formatter by name. Unknown names fail here, before
// any game output exists to format.
func Lookup(name string) (Formatter, error) {
	f, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownFormatter, name, strings.Join(Names(), ", "))
	}
	return f, nil
}

// Names lists the registered formatter names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Raw passes the output through untouched.
type Raw struct{}

func (Raw) Name() string { return "raw" }

func (Raw) Format(resp *turn.Response) string {
	return resp.Output
}

// Text is plain prose: prompt stripped, one blank line after.
type Text struct{}

func (Text) Name() string { return "text" }

func (Text) Format(resp *turn.Response) string {
	content := resp.Output
	if resp.Message != "" && !resp.IsAction() {
		content = resp.Message
	}
	return stripPrompt(content) + "\n\n"
}

func stripPrompt(content string) string {
	return strings.TrimRight(promptPattern.ReplaceAllString(content, ""), " \n")
}
