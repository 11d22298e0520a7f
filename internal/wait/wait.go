// Package wait polls a growing output buffer until a pattern appears or
// the stream goes quiescent. It is the end-of-turn heuristic for
// interpreters that never emit an explicit turn terminator.
package wait

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

const (
	DefaultPollInterval = 20 * time.Millisecond
	DefaultSettle       = 300 * time.Millisecond
	DefaultTimeout      = 5 * time.Second
)

// ErrTimeout is returned when neither the pattern matched nor the stream
// settled before the deadline. The output collected so far is still
// returned alongside it.
var ErrTimeout = errors.New("timed out waiting for output")

// ReadFunc returns the full buffer contents and the current write
// position. Errors are terminal: polling stops and the error is
// surfaced together with whatever had arrived by the previous poll.
type ReadFunc func() (output string, position int, err error)

type Config struct {
	// Pattern, when non-nil, ends the wait as soon as the new output
	// matches it.
	Pattern *regexp.Regexp
	// Settle is the quiet window: once at least one byte has arrived,
	// the wait ends after this long with no further growth.
	Settle time.Duration
	// Timeout bounds the whole wait. Zero means DefaultTimeout; the
	// wait is never unbounded.
	Timeout       time.Duration
	StartPosition int
	PollInterval  time.Duration
}

// ForOutput polls readFn until the pattern matches, the stream settles,
// or the timeout expires. It returns the output that arrived after
// StartPosition and the final buffer position.
func ForOutput(readFn ReadFunc, cfg Config) (string, int, error) {
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	settle := cfg.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	deadline := time.Now().Add(timeout)
	lastPos := cfg.StartPosition
	lastChange := time.Now()
	var lastNew string

	for time.Now().Before(deadline) {
		output, pos, err := readFn()
		newOutput := sliceFrom(output, pos, cfg.StartPosition)
		if err != nil {
			return lastNew, lastPos, err
		}
		lastNew = newOutput

		if pos != lastPos {
			lastPos = pos
			lastChange = time.Now()
		}

		if cfg.Pattern != nil && cfg.Pattern.MatchString(newOutput) {
			return newOutput, pos, nil
		}

		if pos > cfg.StartPosition && time.Since(lastChange) >= settle {
			return newOutput, pos, nil
		}

		time.Sleep(poll)
	}

	output, pos, err := readFn()
	newOutput := sliceFrom(output, pos, cfg.StartPosition)
	if err != nil {
		return lastNew, lastPos, err
	}
	if cfg.Pattern != nil {
		if cfg.Pattern.MatchString(newOutput) {
			return newOutput, pos, nil
		}
		return newOutput, pos, fmt.Errorf("%w: no match for %q after %s", ErrTimeout, cfg.Pattern, timeout)
	}
	return newOutput, pos, fmt.Errorf("%w: stream did not settle within %s", ErrTimeout, timeout)
}

func sliceFrom(output string, pos, start int) string {
	if pos <= start || start >= len(output) {
		return ""
	}
	return output[start:]
}
