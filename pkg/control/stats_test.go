package control

import "testing"

func TestWorldStatsCountsByKind(t *testing.T) {
	l := newTestLoop(t)
	l.world.CreateRoom("Another room")
	l.world.CreatePrototype("a rock", "It is a rock.", []string{"rock"}, 0)

	counts := l.WorldStats()["counts"].(map[string]int)
	if counts["rooms"] < 2 {
		t.Fatalf("expected at least 2 rooms, got %d", counts["rooms"])
	}
	if counts["prototypes"] != 1 {
		t.Fatalf("expected 1 prototype, got %d", counts["prototypes"])
	}
}

func TestConnectionStatsCountsSessionsByState(t *testing.T) {
	l := newTestLoop(t)
	s := newTestSession(l, 1)
	s.Enqueue("create alice")
	s.Enqueue("swordfish")
	s.Enqueue("swordfish")
	l.handleLoginLines(s)

	stats := l.ConnectionStats()
	if stats["conn"].(int) != 1 {
		t.Fatalf("expected 1 connected session, got %v", stats["conn"])
	}
}
