package session

import (
	"testing"
	"time"

	"github.com/duskward/lodestone/pkg/world"
)

func TestEnqueueDropsPastCap(t *testing.T) {
	s := New(1, TransportTCP, "1.2.3.4")
	for i := 0; i < maxInboundQueue; i++ {
		if !s.Enqueue("line") {
			t.Fatalf("unexpected drop before cap at %d", i)
		}
	}
	if s.Enqueue("overflow") {
		t.Errorf("expected the queue to reject input beyond its cap")
	}
}

func TestDrainInboundClearsQueue(t *testing.T) {
	s := New(1, TransportTCP, "1.2.3.4")
	s.Enqueue("look")
	s.Enqueue("say hi")
	lines := s.DrainInbound()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %v", lines)
	}
	if got := s.DrainInbound(); len(got) != 0 {
		t.Errorf("expected the queue to be empty after draining, got %v", got)
	}
}

func TestPromptConsumesSensitiveFlagOnce(t *testing.T) {
	s := New(1, TransportTCP, "1.2.3.4")
	s.MarkSensitive()
	s.Prompt("Password:")
	s.Prompt("Password:")
	lines := s.DrainOutbound()
	if len(lines) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(lines))
	}
	if !lines[0].Sensitive {
		t.Errorf("expected the first prompt to carry the sensitive flag")
	}
	if lines[1].Sensitive {
		t.Errorf("expected the sensitive flag to be consumed after one prompt")
	}
}

func TestGatewayTellRoutesToBoundSession(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	alice := w.CreatePlayer("alice", "hash", room)
	g := NewGateway(w, time.Minute)

	s := New(g.NextID(), TransportTCP, "1.2.3.4")
	g.Add(s)
	g.Login(s, alice)

	g.Tell(alice, "hello")
	lines := s.DrainOutbound()
	if len(lines) != 1 {
		t.Fatalf("expected 1 outbound line, got %d", len(lines))
	}
}

func TestGatewayRoomExcludesActor(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	alice := w.CreatePlayer("alice", "hash", room)
	bob := w.CreatePlayer("bob", "hash", room)
	g := NewGateway(w, time.Minute)

	sa := New(g.NextID(), TransportTCP, "1")
	g.Add(sa)
	g.Login(sa, alice)
	sb := New(g.NextID(), TransportTCP, "2")
	g.Add(sb)
	g.Login(sb, bob)

	g.Room(room, "a wave ripples", alice)

	if len(sa.DrainOutbound()) != 0 {
		t.Errorf("expected the excluded actor to receive nothing")
	}
	if len(sb.DrainOutbound()) != 1 {
		t.Errorf("expected the other occupant to receive the room message")
	}
}

func TestGatewayEvictIdleRemovesAfterGrace(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	alice := w.CreatePlayer("alice", "hash", room)
	g := NewGateway(w, time.Second)

	s := New(g.NextID(), TransportTCP, "1.2.3.4")
	g.Add(s)
	g.Login(s, alice)
	g.Disconnect(s)

	if evicted := g.EvictIdle(time.Now()); len(evicted) != 0 {
		t.Fatalf("expected no eviction before the grace period elapses")
	}

	evicted := g.EvictIdle(time.Now().Add(2 * time.Second))
	if len(evicted) != 1 || evicted[0] != alice {
		t.Fatalf("expected alice evicted after the grace period, got %v", evicted)
	}
	if _, ok := g.ByPlayer(alice); ok {
		t.Errorf("expected the session to be dropped from the gateway after eviction")
	}
}
