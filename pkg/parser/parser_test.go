package parser

import (
	"testing"

	"github.com/duskward/lodestone/pkg/action"
	"github.com/duskward/lodestone/pkg/world"
)

func TestParseSayAlias(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	actor := w.CreatePlayer("alice", "hash", room)
	p := New(w)

	intent := p.Parse(actor, "'hello there")
	if intent.Kind != action.IntentSay {
		t.Fatalf("expected IntentSay, got %v", intent.Kind)
	}
	if intent.Text != "hello there" {
		t.Errorf("expected text %q, got %q", "hello there", intent.Text)
	}
}

func TestParseDirectionShorthand(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	actor := w.CreatePlayer("alice", "hash", room)
	p := New(w)

	intent := p.Parse(actor, "n")
	if intent.Kind != action.IntentMove || intent.Direction != world.North {
		t.Fatalf("expected north move intent, got %+v", intent)
	}
}

func TestParseImmortalGating(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	mortal := w.CreatePlayer("bob", "hash", room)
	immortal := w.CreatePlayer("god", "hash", room)
	if pl, ok := w.Player(immortal); ok {
		pl.Flags |= world.PlayerImmortal
	}
	p := New(w)

	if intent := p.Parse(mortal, "shutdown"); intent.Kind != action.IntentPermissionError {
		t.Errorf("expected PermissionError for mortal, got %v", intent.Kind)
	}
	if intent := p.Parse(immortal, "shutdown"); intent.Kind != action.IntentImmortal {
		t.Errorf("expected Immortal intent, got %v", intent.Kind)
	}
}

func TestParseGetResolutionError(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	actor := w.CreatePlayer("alice", "hash", room)
	p := New(w)

	intent := p.Parse(actor, "get nonexistent")
	if intent.Kind != action.IntentResolutionError {
		t.Errorf("expected ResolutionError, got %v", intent.Kind)
	}
}

func TestParseUnknownVerb(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	actor := w.CreatePlayer("alice", "hash", room)
	p := New(w)

	intent := p.Parse(actor, "frobnicate")
	if intent.Kind != action.IntentUnknown {
		t.Errorf("expected Unknown, got %v", intent.Kind)
	}
}
