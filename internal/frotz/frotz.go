// Package frotz owns the interpreter child process: spawning, line
// writes, quiescent reads, and guaranteed termination.
package frotz

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"

	"github.com/zplay/zplay/internal/wait"
)

const (
	// EnvPath names the interpreter binary when no explicit path is
	// given.
	EnvPath = "DFROTZ_PATH"
	// DefaultExecutable is looked up on PATH as the last resort.
	DefaultExecutable = "dfrotz"

	ReadBufferSize  = 4096
	KillGracePeriod = 500 * time.Millisecond
)

var (
	ErrInterpreterNotFound = errors.New("interpreter not found")
	ErrNotStarted          = errors.New("process not started")
	ErrAlreadyStarted      = errors.New("process already started")
	// ErrProcessExited is returned when the child dies mid-read. The
	// bytes collected before the exit are returned alongside it.
	ErrProcessExited = errors.New("interpreter process exited")
)

// ResolveInterpreter locates the interpreter binary: explicit path
// first, then $DFROTZ_PATH, then PATH lookup.
func ResolveInterpreter(explicit string) (string, error) {
	candidates := []string{explicit, os.Getenv(EnvPath), DefaultExecutable}
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if strings.ContainsAny(candidate, `/\`) {
			info, err := os.Stat(candidate)
			if err != nil || info.IsDir() {
				return "", fmt.Errorf("%w: %s", ErrInterpreterNotFound, candidate)
			}
			return candidate, nil
		}
		path, err := exec.LookPath(candidate)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrInterpreterNotFound, candidate)
		}
		return path, nil
	}
	return "", ErrInterpreterNotFound
}

// Process is the live interpreter child. One Process drives one child
// for its whole lifetime; after Terminate it cannot be restarted.
type Process struct {
	interp   string
	gamefile string
	usePTY   bool
	settle   time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	ptmx    *os.File
	buf     []byte
	readPos int
	exited  bool
	done    chan struct{}
}

type Option func(*Process)

// WithPTY spawns the interpreter on a pseudo-terminal instead of
// pipes, for interpreters that refuse to run without one.
func WithPTY(enabled bool) Option {
	return func(p *Process) { p.usePTY = enabled }
}

// WithSettle sets the quiet window used to decide a read is complete.
func WithSettle(d time.Duration) Option {
	return func(p *Process) {
		if d > 0 {
			p.settle = d
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(p *Process) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New builds a Process for the given interpreter binary and game
// image. Nothing is spawned until Start.
func New(interp, gamefile string, opts ...Option) *Process {
	p := &Process{
		interp:   interp,
		gamefile: gamefile,
		settle:   wait.DefaultSettle,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start spawns the child and begins capturing its output.
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return ErrAlreadyStarted
	}

	cmd := exec.Command(p.interp, p.gamefile)
	var reader io.Reader

	if p.usePTY {
		ptmx, err := pty.Start(cmd)
		if err != nil {
			return fmt.Errorf("spawn %s: %w", p.interp, err)
		}
		p.ptmx = ptmx
		p.stdin = ptmx
		reader = ptmx
	} else {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return fmt.Errorf("stdin pipe: %w", err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("stdout pipe: %w", err)
		}
		cmd.Stderr = cmd.Stdout
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("spawn %s: %w", p.interp, err)
		}
		p.stdin = stdin
		reader = stdout
	}

	p.cmd = cmd
	p.done = make(chan struct{})
	p.logger.Debug("interpreter started", "pid", cmd.Process.Pid, "game", p.gamefile, "pty", p.usePTY)

	go p.capture(reader)
	return nil
}

// capture drains the child's output into the buffer until EOF, then
// reaps the process.
func (p *Process) capture(reader io.Reader) {
	buf := make([]byte, ReadBufferSize)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			p.mu.Lock()
			p.buf = append(p.buf, buf[:n]...)
			p.mu.Unlock()
		}
		if err != nil {
			break
		}
	}

	p.cmd.Wait()

	p.mu.Lock()
	p.exited = true
	captured := len(p.buf)
	p.mu.Unlock()
	close(p.done)
	p.logger.Debug("interpreter exited", "captured_bytes", captured)
}

// Running reports whether the child is alive.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil && !p.exited
}

// Pid returns the child's process id, or zero before Start.
func (p *Process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// WriteCommand sends one line of input to the child.
func (p *Process) WriteCommand(text string) error {
	p.mu.Lock()
	stdin := p.stdin
	exited := p.exited
	p.mu.Unlock()

	if stdin == nil {
		return ErrNotStarted
	}
	if exited {
		return ErrProcessExited
	}

	p.logger.Debug("write command", "text", text)
	if _, err := io.WriteString(stdin, text+"\n"); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// ReadUntil collects output until the pattern appears, the stream goes
// quiescent, or the timeout expires. Each call starts where the
// previous one left off, so one call returns exactly one command's
// reply. When the child exits mid-read the bytes collected so far are
// returned with ErrProcessExited.
func (p *Process) ReadUntil(pattern *regexp.Regexp, timeout time.Duration) (string, error) {
	p.mu.Lock()
	if p.cmd == nil {
		p.mu.Unlock()
		return "", ErrNotStarted
	}
	start := p.readPos
	p.mu.Unlock()

	readFn := func() (string, int, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		output := string(p.buf)
		if p.exited {
			return output, len(output), ErrProcessExited
		}
		return output, len(output), nil
	}

	out, pos, err := wait.ForOutput(readFn, wait.Config{
		Pattern:       pattern,
		Settle:        p.settle,
		Timeout:       timeout,
		StartPosition: start,
	})

	p.mu.Lock()
	if pos > p.readPos {
		p.readPos = pos
	}
	p.mu.Unlock()

	if errors.Is(err, ErrProcessExited) {
		// The exit races the last flush; hand over everything that
		// made it into the buffer.
		p.mu.Lock()
		out = string(p.buf[min(start, len(p.buf)):])
		p.readPos = len(p.buf)
		p.mu.Unlock()
	}
	p.logger.Debug("read finished", "bytes", len(out), "err", err)
	return out, err
}

// Terminate shuts the child down: a polite quit first, SIGTERM after
// the grace period, SIGKILL after another. Safe to call more than
// once and from any state; the OS process is released on every path.
func (p *Process) Terminate() error {
	p.mu.Lock()
	cmd := p.cmd
	stdin := p.stdin
	done := p.done
	exited := p.exited
	p.stdin = nil
	p.mu.Unlock()

	if cmd == nil || exited {
		p.closePTY()
		return nil
	}

	if stdin != nil {
		// Most games exit on "quit" + confirmation.
		io.WriteString(stdin, "quit\ny\n")
	}

	select {
	case <-done:
		p.closePTY()
		return nil
	case <-time.After(KillGracePeriod):
	}

	p.logger.Debug("graceful quit timed out, signaling", "pid", cmd.Process.Pid)
	cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
		p.closePTY()
		return nil
	case <-time.After(KillGracePeriod):
	}

	cmd.Process.Kill()
	p.closePTY()
	<-done
	return nil
}

// closePTY unblocks the capture read when the child holds the pty
// open.
func (p *Process) closePTY() {
	p.mu.Lock()
	ptmx := p.ptmx
	p.ptmx = nil
	p.mu.Unlock()
	if ptmx != nil {
		ptmx.Close()
	}
}
