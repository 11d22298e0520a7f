// Package session sequences the lifecycle of one interpreter run:
// spawn, command turns, save/restore dialogs, shutdown.
package session

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zplay/zplay/internal/frotz"
	"github.com/zplay/zplay/internal/game"
	"github.com/zplay/zplay/internal/turn"
	"github.com/zplay/zplay/internal/wait"
)

// State is the session lifecycle phase.
type State string

const (
	StateNotStarted    State = "not_started"
	StateRunning       State = "running"
	StateAwaitingInput State = "awaiting_input"
	StateTerminated    State = "terminated"
)

var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrNotRunning     = errors.New("session not running")
	ErrSessionClosed  = errors.New("session closed")
	// ErrUnexpectedDialog means a save/restore prompt sequence did not
	// match the expected pattern. Fatal to the call, not the session.
	ErrUnexpectedDialog = errors.New("unexpected save/restore dialog state")
)

const maxMorePages = 16

// Transport is the process the session drives. *frotz.Process is the
// production implementation.
type Transport interface {
	Start() error
	WriteCommand(text string) error
	ReadUntil(pattern *regexp.Regexp, timeout time.Duration) (string, error)
	Running() bool
	Terminate() error
}

// Session owns exactly one interpreter child for its lifetime. It is
// not safe for concurrent use; callers wanting parallel games run
// separate Sessions.
type Session struct {
	gamefile game.Gamefile
	proc     Transport
	parser   *turn.Parser
	pats     turn.Patterns
	savesDir string
	timeout  time.Duration
	logger   *log.Logger

	state State
}

type Option func(*options)

type options struct {
	interp    string
	savesDir  string
	timeout   time.Duration
	settle    time.Duration
	pats      turn.Patterns
	logger    *log.Logger
	usePTY    bool
	transport Transport
}

// WithInterpreter sets an explicit interpreter path, overriding
// $DFROTZ_PATH and the PATH lookup.
func WithInterpreter(path string) Option {
	return func(o *options) { o.interp = path }
}

// WithSaveDir sets the directory save slots map into.
func WithSaveDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.savesDir = dir
		}
	}
}

// WithTimeout bounds every read on the interpreter's output.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithSettle sets the quiet window ending a read.
func WithSettle(d time.Duration) Option {
	return func(o *options) { o.settle = d }
}

// WithPatterns replaces the recognized-output grammar.
func WithPatterns(pats turn.Patterns) Option {
	return func(o *options) { o.pats = pats }
}

// WithPTY runs the interpreter on a pseudo-terminal.
func WithPTY(enabled bool) Option {
	return func(o *options) { o.usePTY = enabled }
}

func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTransport substitutes the child process. Used by tests.
func WithTransport(t Transport) Option {
	return func(o *options) { o.transport = t }
}

// New builds a Session for the game image. The interpreter is resolved
// here so a missing binary fails before anything is spawned.
func New(gamefile game.Gamefile, opts ...Option) (*Session, error) {
	o := &options{
		savesDir: "saves",
		timeout:  wait.DefaultTimeout,
		pats:     turn.DefaultPatterns(),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(o)
	}

	if !gamefile.Exists() {
		return nil, fmt.Errorf("%w: %s", game.ErrGameNotFound, gamefile.Path)
	}

	proc := o.transport
	if proc == nil {
		interp, err := frotz.ResolveInterpreter(o.interp)
		if err != nil {
			return nil, err
		}
		proc = frotz.New(interp, gamefile.FullPath(),
			frotz.WithPTY(o.usePTY),
			frotz.WithSettle(o.settle),
			frotz.WithLogger(o.logger),
		)
	}

	return &Session{
		gamefile: gamefile,
		proc:     proc,
		parser:   turn.NewParser(o.pats),
		pats:     o.pats,
		savesDir: o.savesDir,
		timeout:  o.timeout,
		logger:   o.logger,
		state:    StateNotStarted,
	}, nil
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	return s.state
}

// Start spawns the interpreter and captures the game's opening text.
func (s *Session) Start() (*turn.Response, error) {
	switch s.state {
	case StateTerminated:
		return nil, ErrSessionClosed
	case StateRunning, StateAwaitingInput:
		return nil, ErrAlreadyStarted
	}

	if err := s.proc.Start(); err != nil {
		return nil, err
	}
	s.state = StateRunning
	s.logger.Info("session started", "game", s.gamefile.Name)

	raw, err := s.readTurn(s.pats.Prompt)
	if err != nil {
		return s.fatalTurn(turn.OpStart, "", raw, err)
	}
	return s.parser.Parse(turn.OpStart, "", raw), nil
}

// Call executes one command. Session-level commands (score, save,
// restore, quit) are intercepted so slot handling and clean shutdown
// apply no matter how the command arrives.
func (s *Session) Call(command string) (*turn.Response, error) {
	trimmed := strings.TrimSpace(command)
	lower := strings.ToLower(trimmed)

	switch {
	case lower == "score":
		return s.Score()
	case lower == "quit":
		return s.Quit()
	case lower == "save" || strings.HasPrefix(lower, "save "):
		return s.Save(argAfter(trimmed))
	case lower == "restore" || strings.HasPrefix(lower, "restore "):
		return s.Restore(argAfter(trimmed))
	}
	return s.action(trimmed)
}

// Score issues the built-in score inquiry and extracts the numbers.
func (s *Session) Score() (*turn.Response, error) {
	raw, err := s.exchange("score", s.pats.Prompt)
	if err != nil {
		return s.fatalTurn(turn.OpScore, "score", raw, err)
	}

	resp := s.parser.Parse(turn.OpScore, "score", raw)
	if score, outOf, ok := s.parser.ExtractScore(resp.Output); ok {
		details := []turn.Detail{{Key: "score", Value: score}}
		if outOf > 0 {
			details = append(details, turn.Detail{Key: "out_of", Value: outOf})
			resp.Message = fmt.Sprintf("Score: %d/%d", score, outOf)
		} else {
			resp.Message = fmt.Sprintf("Score: %d", score)
		}
		resp.Details = details
	}
	resp.Success = true
	return resp, nil
}

// Save persists the game into the named slot (default slot when empty).
func (s *Session) Save(slot string) (*turn.Response, error) {
	return s.negotiate(turn.OpSave, slot)
}

// Restore loads the game from the named slot (default slot when
// empty). A missing slot is reported through Response.Success, not as
// an error.
func (s *Session) Restore(slot string) (*turn.Response, error) {
	return s.negotiate(turn.OpRestore, slot)
}

// Quit ends the game and terminates the child. The session accepts no
// further commands afterwards.
func (s *Session) Quit() (*turn.Response, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	var transcript string
	if err := s.proc.WriteCommand("quit"); err == nil {
		raw, err := s.proc.ReadUntil(s.pats.ConfirmQuit, s.timeout)
		transcript = raw
		if err == nil && s.pats.ConfirmQuit.MatchString(raw) {
			s.proc.WriteCommand("y")
			extra, _ := s.proc.ReadUntil(nil, s.timeout)
			transcript += extra
		}
	}

	s.close()

	resp := s.parser.Parse(turn.OpQuit, "quit", transcript)
	resp.Success = true
	resp.Message = "game ended"
	return resp, nil
}

// Handler drives the interactive loop: it receives each response and
// returns the next command. Returning false ends the loop.
type Handler func(resp *turn.Response) (command string, ok bool)

// Run is the cooperative interactive mode: one synchronous turn per
// handler call, no internal concurrency. The loop ends when the
// handler declines or the session terminates.
func (s *Session) Run(handler Handler) error {
	resp, err := s.Start()
	if err != nil {
		return err
	}

	for s.state == StateRunning {
		command, ok := handler(resp)
		if !ok {
			break
		}

		resp, err = s.Call(command)
		if err != nil {
			if errors.Is(err, wait.ErrTimeout) {
				// Recoverable: let the handler see the stall and
				// decide what to do next.
				continue
			}
			if errors.Is(err, ErrSessionClosed) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Close terminates the child if it is still alive. Safe to defer on
// every path.
func (s *Session) Close() error {
	if s.state == StateTerminated {
		return nil
	}
	s.close()
	return nil
}

func (s *Session) close() {
	s.state = StateTerminated
	if err := s.proc.Terminate(); err != nil {
		s.logger.Warn("terminate failed", "err", err)
	}
	s.logger.Info("session closed", "game", s.gamefile.Name)
}

func (s *Session) guard() error {
	switch s.state {
	case StateNotStarted:
		return ErrNotRunning
	case StateTerminated:
		return ErrSessionClosed
	case StateAwaitingInput:
		return fmt.Errorf("%w: mid-dialog", ErrNotRunning)
	}
	if !s.proc.Running() {
		s.state = StateTerminated
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) action(command string) (*turn.Response, error) {
	raw, err := s.exchange(command, s.pats.Prompt)
	if err != nil {
		return s.fatalTurn(turn.OpAction, command, raw, err)
	}
	return s.parser.Parse(turn.OpAction, command, raw), nil
}

// exchange writes one command and reads its reply.
func (s *Session) exchange(command string, pattern *regexp.Regexp) (string, error) {
	if err := s.guard(); err != nil {
		return "", err
	}
	if err := s.proc.WriteCommand(command); err != nil {
		return "", err
	}
	return s.readTurn(pattern)
}

// readTurn reads until the pattern, acknowledging pagination prompts
// on the caller's behalf so a long description arrives as one turn.
func (s *Session) readTurn(pattern *regexp.Regexp) (string, error) {
	var out strings.Builder
	for page := 0; ; page++ {
		raw, err := s.proc.ReadUntil(pattern, s.timeout)
		out.WriteString(raw)
		if err != nil {
			return out.String(), err
		}
		if page >= maxMorePages || !s.moreAtTail(raw) {
			return out.String(), nil
		}
		s.logger.Debug("acknowledging pagination prompt")
		if err := s.proc.WriteCommand(""); err != nil {
			return out.String(), err
		}
	}
}

// moreAtTail reports a pagination prompt at the end of the chunk, as
// opposed to a [MORE] the game happened to print mid-text.
func (s *Session) moreAtTail(raw string) bool {
	tail := strings.TrimRight(raw, " \r\n")
	loc := s.pats.More.FindAllStringIndex(tail, -1)
	if loc == nil {
		return false
	}
	return loc[len(loc)-1][1] >= len(tail)
}

// fatalTurn handles transport failures mid-turn: the session moves to
// Terminated on fatal errors, and whatever output was collected rides
// along with the error.
func (s *Session) fatalTurn(op turn.Operation, input, raw string, err error) (*turn.Response, error) {
	if errors.Is(err, wait.ErrTimeout) {
		// Recoverable; the caller may retry the same command.
		return s.parser.Parse(op, input, raw), err
	}

	s.logger.Error("turn failed", "op", string(op), "err", err)
	s.close()
	resp := s.parser.Parse(op, input, raw)
	resp.Success = false
	resp.Message = err.Error()
	return resp, err
}

func argAfter(command string) string {
	_, rest, _ := strings.Cut(command, " ")
	return strings.TrimSpace(rest)
}
