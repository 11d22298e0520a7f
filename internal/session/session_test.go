package session

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/zplay/zplay/internal/frotz"
	"github.com/zplay/zplay/internal/game"
	"github.com/zplay/zplay/internal/turn"
	"github.com/zplay/zplay/internal/wait"
)

const opening = " West of House                    Score: 0        Moves: 0\n\n" +
	"ZORK I: The Great Underground Empire\n\n" +
	"West of House\n" +
	"You are standing in an open field west of a white house.\n\n> "

// reply is one scripted ReadUntil result.
type reply struct {
	out string
	err error
}

// scripted is a Transport that replays canned interpreter output.
type scripted struct {
	t       *testing.T
	replies []reply
	writes  []string
	started bool
	alive   bool
}

func newScripted(t *testing.T, replies ...reply) *scripted {
	return &scripted{t: t, replies: replies}
}

func (f *scripted) Start() error {
	f.started = true
	f.alive = true
	return nil
}

func (f *scripted) WriteCommand(text string) error {
	if !f.alive {
		return frotz.ErrProcessExited
	}
	f.writes = append(f.writes, text)
	return nil
}

func (f *scripted) ReadUntil(_ *regexp.Regexp, _ time.Duration) (string, error) {
	if len(f.replies) == 0 {
		f.t.Fatal("unexpected ReadUntil: script exhausted")
	}
	next := f.replies[0]
	f.replies = f.replies[1:]
	if errors.Is(next.err, frotz.ErrProcessExited) {
		f.alive = false
	}
	return next.out, next.err
}

func (f *scripted) Running() bool { return f.alive }
func (f *scripted) Terminate() error {
	f.alive = false
	return nil
}

func testGamefile(t *testing.T) game.Gamefile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zork1.z5")
	if err := os.WriteFile(path, []byte("zcode"), 0o644); err != nil {
		t.Fatalf("write gamefile: %v", err)
	}
	return game.New(path)
}

func testSession(t *testing.T, proc Transport) *Session {
	t.Helper()
	s, err := New(testGamefile(t),
		WithTransport(proc),
		WithSaveDir(t.TempDir()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSession_StartCapturesOpening(t *testing.T) {
	proc := newScripted(t, reply{out: opening})
	s := testSession(t, proc)

	if s.State() != StateNotStarted {
		t.Fatalf("initial state = %s", s.State())
	}

	resp, err := s.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != StateRunning {
		t.Errorf("state after Start = %s, want running", s.State())
	}
	if resp.Operation != turn.OpStart || !resp.Success {
		t.Errorf("start response = %+v", resp)
	}
	if !strings.Contains(resp.Output, "white house") {
		t.Errorf("opening text lost: %q", resp.Output)
	}
}

func TestSession_StartTwice(t *testing.T) {
	proc := newScripted(t, reply{out: opening})
	s := testSession(t, proc)

	if _, err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestSession_CallBeforeStart(t *testing.T) {
	s := testSession(t, newScripted(t))

	if _, err := s.Call("look"); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Call before Start = %v, want ErrNotRunning", err)
	}
}

func TestSession_MissingGamefile(t *testing.T) {
	_, err := New(game.New(filepath.Join(t.TempDir(), "missing.z5")),
		WithTransport(newScripted(t)))
	if !errors.Is(err, game.ErrGameNotFound) {
		t.Fatalf("New with missing gamefile = %v, want ErrGameNotFound", err)
	}
}

func TestSession_CallReturnsParsedResponse(t *testing.T) {
	proc := newScripted(t,
		reply{out: opening},
		reply{out: " Forest                           Score: 0        Moves: 1\n\nForest\nThis is a dimly lit forest.\n\n> "},
	)
	s := testSession(t, proc)

	if _, err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := s.Call("go north")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !resp.Success {
		t.Error("movement should succeed")
	}
	if !strings.Contains(resp.Output, "dimly lit forest") {
		t.Errorf("Output = %q", resp.Output)
	}
	if loc, ok := resp.Detail("location"); !ok || loc != "Forest" {
		t.Errorf("location detail = %v (ok=%v)", loc, ok)
	}
	if proc.writes[len(proc.writes)-1] != "go north" {
		t.Errorf("writes = %v", proc.writes)
	}
}

func TestSession_Score(t *testing.T) {
	proc := newScripted(t,
		reply{out: opening},
		reply{out: "Your score is 0 (total of 350 points), in 1 moves.\n\n> "},
	)
	s := testSession(t, proc)

	if _, err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := s.Score()
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !resp.Success {
		t.Error("score inquiry should succeed")
	}
	if score, ok := resp.Detail("score"); !ok || score != 0 {
		t.Errorf("score detail = %v (ok=%v), want 0", score, ok)
	}
	if outOf, ok := resp.Detail("out_of"); !ok || outOf != 350 {
		t.Errorf("out_of detail = %v (ok=%v), want 350", outOf, ok)
	}
	if resp.Message != "Score: 0/350" {
		t.Errorf("Message = %q", resp.Message)
	}
}

func TestSession_QuitClosesSession(t *testing.T) {
	proc := newScripted(t,
		reply{out: opening},
		reply{out: "Do you wish to leave the game? (Are you sure you want to quit?) "},
		reply{out: "Ok.\n"},
	)
	s := testSession(t, proc)

	if _, err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := s.Quit()
	if err != nil {
		t.Fatalf("Quit: %v", err)
	}
	if !resp.Success || resp.Operation != turn.OpQuit {
		t.Errorf("quit response = %+v", resp)
	}
	if s.State() != StateTerminated {
		t.Errorf("state = %s, want terminated", s.State())
	}
	if proc.alive {
		t.Error("child should be terminated")
	}

	joined := strings.Join(proc.writes, "|")
	if !strings.Contains(joined, "quit") || !strings.Contains(joined, "y") {
		t.Errorf("writes = %v, want quit confirmation", proc.writes)
	}

	// No operation may touch the process after Terminated.
	if _, err := s.Call("look"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Call after Quit = %v, want ErrSessionClosed", err)
	}
	if _, err := s.Score(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Score after Quit = %v, want ErrSessionClosed", err)
	}
	if _, err := s.Save(""); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Save after Quit = %v, want ErrSessionClosed", err)
	}
}

func TestSession_ProcessDiesMidTurn(t *testing.T) {
	proc := newScripted(t,
		reply{out: opening},
		reply{out: "the lamp flickers and", err: frotz.ErrProcessExited},
	)
	s := testSession(t, proc)

	if _, err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := s.Call("rub lamp")
	if !errors.Is(err, frotz.ErrProcessExited) {
		t.Fatalf("err = %v, want ErrProcessExited", err)
	}
	if resp == nil || !strings.Contains(resp.Output, "the lamp flickers") {
		t.Errorf("partial output lost: %+v", resp)
	}
	if s.State() != StateTerminated {
		t.Errorf("state = %s, want terminated after child death", s.State())
	}
}

func TestSession_TimeoutIsRecoverable(t *testing.T) {
	proc := newScripted(t,
		reply{out: opening},
		reply{out: "", err: wait.ErrTimeout},
		reply{out: "Time passes.\n\n> "},
	)
	s := testSession(t, proc)

	if _, err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Call("wait"); !errors.Is(err, wait.ErrTimeout) {
		t.Fatalf("err = %v, want wait.ErrTimeout", err)
	}
	if s.State() != StateRunning {
		t.Fatalf("state = %s, a timeout must not end the session", s.State())
	}

	// The same command can be retried.
	resp, err := s.Call("wait")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !strings.Contains(resp.Output, "Time passes") {
		t.Errorf("retry output = %q", resp.Output)
	}
}

func TestSession_MorePromptsAcknowledged(t *testing.T) {
	proc := newScripted(t,
		reply{out: opening},
		reply{out: "The first page of a very long description.\n***MORE***"},
		reply{out: "\nAnd the rest of it.\n\n> "},
	)
	s := testSession(t, proc)

	if _, err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := s.Call("look")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !strings.Contains(resp.Output, "first page") || !strings.Contains(resp.Output, "the rest of it") {
		t.Errorf("pages not joined: %q", resp.Output)
	}
	if strings.Contains(resp.Output, "MORE") {
		t.Errorf("pagination marker survived: %q", resp.Output)
	}
	if proc.writes[len(proc.writes)-1] != "" {
		t.Errorf("writes = %v, want a blank acknowledgement", proc.writes)
	}
}

func TestSession_Run(t *testing.T) {
	proc := newScripted(t,
		reply{out: opening},
		reply{out: "Forest\nA dim forest.\n\n> "},
		reply{out: "Are you sure you want to quit? "},
		reply{out: "Ok.\n"},
	)
	s := testSession(t, proc)

	var seen []*turn.Response
	commands := []string{"go north", "quit"}
	err := s.Run(func(resp *turn.Response) (string, bool) {
		seen = append(seen, resp)
		if len(commands) == 0 {
			return "", false
		}
		next := commands[0]
		commands = commands[1:]
		return next, true
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) < 2 {
		t.Fatalf("handler saw %d responses, want at least 2", len(seen))
	}
	if seen[0].Operation != turn.OpStart {
		t.Errorf("first response = %s, want the opening", seen[0].Operation)
	}
	if s.State() != StateTerminated {
		t.Errorf("state after quit = %s", s.State())
	}
}

func TestSession_RunStopsWhenHandlerDeclines(t *testing.T) {
	proc := newScripted(t, reply{out: opening})
	s := testSession(t, proc)

	calls := 0
	err := s.Run(func(*turn.Response) (string, bool) {
		calls++
		return "", false
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	if s.State() != StateRunning {
		t.Errorf("declining the loop should leave the session running, state = %s", s.State())
	}
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	proc := newScripted(t, reply{out: opening})
	s := testSession(t, proc)

	if _, err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if proc.alive {
		t.Error("Close must terminate the child")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}
