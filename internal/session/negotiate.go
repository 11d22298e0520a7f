package session

import (
	"fmt"
	"os"
	"strings"

	"github.com/zplay/zplay/internal/game"
	"github.com/zplay/zplay/internal/turn"
)

// The interpreter's save/restore flow is interactive: it asks for a
// filename and may ask again before overwriting. The negotiator walks
// that dialog as an explicit state machine so a version mismatch shows
// up as ErrUnexpectedDialog instead of a hung read.
type dialogPhase int

const (
	phaseFilename dialogPhase = iota
	phaseConfirm
	phaseResult
)

func (d dialogPhase) String() string {
	switch d {
	case phaseFilename:
		return "awaiting-filename"
	case phaseConfirm:
		return "awaiting-confirmation"
	default:
		return "awaiting-result"
	}
}

func (s *Session) negotiate(op turn.Operation, slot string) (*turn.Response, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	sf := game.NewSavefile(s.gamefile.Name, slot)
	if err := game.ValidateSlotName(sf.Slot); err != nil {
		return nil, fmt.Errorf("slot %q: %w", sf.Slot, err)
	}
	if op == turn.OpSave {
		if err := os.MkdirAll(s.savesDir, 0o755); err != nil {
			return nil, fmt.Errorf("create saves dir: %w", err)
		}
	}

	command := "save"
	if op == turn.OpRestore {
		command = "restore"
	}
	filename := sf.Filename(s.savesDir)
	s.logger.Debug("negotiating dialog", "op", command, "slot", sf.Slot, "file", filename)

	s.state = StateAwaitingInput
	defer func() {
		if s.state == StateAwaitingInput {
			s.state = StateRunning
		}
	}()

	if err := s.proc.WriteCommand(command); err != nil {
		return s.fatalTurn(op, command, "", err)
	}

	var transcript strings.Builder
	phase := phaseFilename

	for phase <= phaseResult {
		switch phase {
		case phaseFilename:
			raw, err := s.proc.ReadUntil(s.pats.FilenamePrompt, s.timeout)
			transcript.WriteString(raw)
			if err != nil {
				return s.dialogFailure(op, command, transcript.String(), phase, err)
			}
			if !s.pats.FilenamePrompt.MatchString(raw) {
				return s.dialogFailure(op, command, transcript.String(), phase, nil)
			}
			if err := s.proc.WriteCommand(filename); err != nil {
				return s.fatalTurn(op, command, transcript.String(), err)
			}
			phase = phaseConfirm

		case phaseConfirm:
			raw, err := s.proc.ReadUntil(s.pats.DialogResult, s.timeout)
			transcript.WriteString(raw)
			if err != nil {
				return s.dialogFailure(op, command, transcript.String(), phase, err)
			}
			if s.pats.Overwrite.MatchString(raw) {
				// Saving always overwrites its own slot.
				if err := s.proc.WriteCommand("y"); err != nil {
					return s.fatalTurn(op, command, transcript.String(), err)
				}
				phase = phaseResult
				continue
			}
			if !s.pats.DialogResult.MatchString(raw) {
				return s.dialogFailure(op, command, transcript.String(), phase, nil)
			}
			phase = phaseResult + 1 // verdict already read

		case phaseResult:
			raw, err := s.proc.ReadUntil(s.pats.DialogResult, s.timeout)
			transcript.WriteString(raw)
			if err != nil {
				return s.dialogFailure(op, command, transcript.String(), phase, err)
			}
			phase = phaseResult + 1
		}
	}

	return s.classify(op, command, sf, filename, transcript.String()), nil
}

// classify turns the dialog transcript into the caller-facing verdict.
// Interpreter-reported failures (bad slot, write error) are not Go
// errors; they surface as Success=false.
func (s *Session) classify(op turn.Operation, command string, sf game.Savefile, filename, transcript string) *turn.Response {
	success := strings.Contains(transcript, "Ok.")

	var message string
	switch {
	case success && op == turn.OpSave:
		message = fmt.Sprintf("[%s] game saved", sf.Slot)
	case success:
		message = fmt.Sprintf("[%s] game restored", sf.Slot)
	case op == turn.OpSave:
		message = fmt.Sprintf("[%s] save failed", sf.Slot)
	default:
		message = fmt.Sprintf("[%s] restore failed: no such save or unreadable file", sf.Slot)
	}

	resp := s.parser.Parse(op, command, transcript)
	resp.Success = success
	resp.Message = message
	resp.Details = []turn.Detail{
		{Key: "slot", Value: sf.Slot},
		{Key: "file", Value: filename},
	}
	s.logger.Info("dialog finished", "op", command, "slot", sf.Slot, "success", success)
	return resp
}

// dialogFailure surfaces a prompt mismatch. Process death stays fatal;
// anything else is ErrUnexpectedDialog — the session survives, the
// call does not.
func (s *Session) dialogFailure(op turn.Operation, command, transcript string, phase dialogPhase, cause error) (*turn.Response, error) {
	if cause != nil && !s.proc.Running() {
		return s.fatalTurn(op, command, transcript, cause)
	}

	err := fmt.Errorf("%w: %s during %s", ErrUnexpectedDialog, phase, command)
	if cause != nil {
		err = fmt.Errorf("%w (%v)", err, cause)
	}
	s.logger.Warn("dialog anomaly", "op", command, "phase", phase.String(), "err", err)

	resp := s.parser.Parse(op, command, transcript)
	resp.Success = false
	resp.Message = err.Error()
	return resp, err
}
