package turn

import (
	"reflect"
	"strings"
	"testing"
)

const openingText = " West of House                    Score: 0        Moves: 0\n\n" +
	"ZORK I: The Great Underground Empire\n\n" +
	"West of House\n" +
	"You are standing in an open field west of a white house.\n" +
	"There is a small mailbox here.\n\n> "

func TestParse_ActionSuccess(t *testing.T) {
	p := NewParser(DefaultPatterns())

	resp := p.Parse(OpAction, "go north", " North of House                   Score: 0        Moves: 1\n\nNorth of House\nYou are facing the north side of a white house.\n\n> ")
	if !resp.Success {
		t.Error("plain movement should be a success")
	}
	if resp.Input != "go north" {
		t.Errorf("Input = %q", resp.Input)
	}
	if !strings.Contains(resp.Output, "north side of a white house") {
		t.Errorf("Output lost text: %q", resp.Output)
	}

	loc, ok := resp.Detail("location")
	if !ok || loc != "North of House" {
		t.Errorf("location = %v (ok=%v), want North of House", loc, ok)
	}
	if moves, ok := resp.Detail("moves"); !ok || moves != 1 {
		t.Errorf("moves = %v (ok=%v), want 1", moves, ok)
	}
}

func TestParse_ActionFailure(t *testing.T) {
	p := NewParser(DefaultPatterns())

	for _, reply := range []string{
		"You can't go that way.\n\n> ",
		"That's not a verb I recognise.\n\n> ",
		"I beg your pardon?\n\n> ",
	} {
		resp := p.Parse(OpAction, "go up", reply)
		if resp.Success {
			t.Errorf("reply %q should be classified as a refusal", reply)
		}
	}
}

func TestParse_NoDetailsIsNotAnError(t *testing.T) {
	p := NewParser(DefaultPatterns())

	resp := p.Parse(OpAction, "wait", "Time passes.\n\n> ")
	if !resp.Success {
		t.Error("unrecognized reply should still succeed")
	}
	if len(resp.Details) != 0 {
		t.Errorf("Details = %v, want empty for an unrecognizable reply", resp.Details)
	}
	if resp.Output == "" {
		t.Error("Output must be present even without details")
	}
}

func TestParse_Idempotent(t *testing.T) {
	p := NewParser(DefaultPatterns())

	a := p.Parse(OpStart, "", openingText)
	b := p.Parse(OpStart, "", openingText)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("parsing the same bytes twice diverged:\n%#v\n%#v", a, b)
	}
}

func TestParse_StripsControlSequences(t *testing.T) {
	p := NewParser(DefaultPatterns())

	resp := p.Parse(OpAction, "look", "\x1b[1m West of House \x1b[0m\r\nYou are here.\r\n> ")
	if strings.Contains(resp.Output, "\x1b") {
		t.Errorf("Output still contains escapes: %q", resp.Output)
	}
	if strings.Contains(resp.Output, "\r") {
		t.Errorf("Output still contains carriage returns: %q", resp.Output)
	}
}

func TestParse_DropsEchoedCommand(t *testing.T) {
	p := NewParser(DefaultPatterns())

	resp := p.Parse(OpAction, "open mailbox", "> open mailbox\nOpening the small mailbox reveals a leaflet.\n\n> ")
	if strings.Contains(resp.Output, "open mailbox\nOpening") {
		t.Errorf("echoed command not dropped: %q", resp.Output)
	}
	if !strings.Contains(resp.Output, "reveals a leaflet") {
		t.Errorf("reply text lost: %q", resp.Output)
	}
}

func TestParse_RemovesMoreMarkers(t *testing.T) {
	p := NewParser(DefaultPatterns())

	resp := p.Parse(OpAction, "look", "A long description.\n***MORE***\nIt continues.\n\n> ")
	if strings.Contains(resp.Output, "MORE") {
		t.Errorf("pagination marker survived: %q", resp.Output)
	}
	if !strings.Contains(resp.Output, "It continues.") {
		t.Errorf("continuation text lost: %q", resp.Output)
	}
}

func TestExtractScore(t *testing.T) {
	p := NewParser(DefaultPatterns())

	score, outOf, ok := p.ExtractScore("Your score is 30 (total of 350 points), in 51 moves.")
	if !ok || score != 30 || outOf != 350 {
		t.Errorf("ExtractScore = (%d, %d, %v), want (30, 350, true)", score, outOf, ok)
	}

	score, outOf, ok = p.ExtractScore("Your score is 0, in 1 move.")
	if !ok || score != 0 || outOf != 0 {
		t.Errorf("ExtractScore = (%d, %d, %v), want (0, 0, true)", score, outOf, ok)
	}

	if _, _, ok := p.ExtractScore("Time passes."); ok {
		t.Error("ExtractScore matched text with no score")
	}
}

func TestHasPromptAndStripPrompt(t *testing.T) {
	p := NewParser(DefaultPatterns())

	text := "You are here.\n\n> "
	if !p.HasPrompt(text) {
		t.Error("trailing prompt not detected")
	}
	stripped := p.StripPrompt(text)
	if strings.Contains(stripped, ">") {
		t.Errorf("StripPrompt left %q", stripped)
	}
	if !strings.Contains(stripped, "You are here.") {
		t.Errorf("StripPrompt removed text: %q", stripped)
	}
}

func TestWithFailure(t *testing.T) {
	pats, err := DefaultPatterns().WithFailure(`(?i)nothing happens`)
	if err != nil {
		t.Fatalf("WithFailure: %v", err)
	}
	p := NewParser(pats)
	if resp := p.Parse(OpAction, "push wall", "Nothing happens.\n> "); resp.Success {
		t.Error("configured failure pattern not applied")
	}

	if _, err := DefaultPatterns().WithFailure(`(`); err == nil {
		t.Error("invalid pattern should be rejected")
	}
}
