package control

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/duskward/lodestone/pkg/action"
	"github.com/duskward/lodestone/pkg/parser"
	"github.com/duskward/lodestone/pkg/script"
	"github.com/duskward/lodestone/pkg/session"
	"github.com/duskward/lodestone/pkg/store"
	"github.com/duskward/lodestone/pkg/timer"
	"github.com/duskward/lodestone/pkg/world"
)

type holdingScheduler struct {
	table *timer.Table
}

func (s *holdingScheduler) SetTimer(entity world.EntityID, name string, delayMs float64, repeat bool) {
	s.table.SetTimer(entity, name, delayMs, repeat)
}
func (s *holdingScheduler) After(delayMs float64, fn func()) { s.table.After(delayMs, fn) }
func (s *holdingScheduler) PushFSM(entity world.EntityID, def script.FSMDef) {
	s.table.PushFSM(entity, def)
}
func (s *holdingScheduler) PopFSM(entity world.EntityID)   { s.table.PopFSM(entity) }
func (s *holdingScheduler) FlushFSM(entity world.EntityID) { s.table.FlushFSM(entity) }
func (s *holdingScheduler) Clear(entity world.EntityID)    { s.table.Clear(entity) }

type nopFlusher struct{}

func (nopFlusher) Flush(*session.Session) {}

func newTestLoop(t *testing.T) *Loop {
	t.Helper()
	w := world.New()
	w.SpawnRoom = w.CreateRoom("The Plaza")

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	gateway := session.NewGateway(w, time.Minute)
	p := parser.New(w)

	sched := &holdingScheduler{}
	host := script.NewHost(w, gateway, sched, rand.New(rand.NewSource(1)), 10000)
	tbl := timer.NewTable(host, time.Now)
	sched.table = tbl

	pipeline := action.NewPipeline(w, host, gateway)
	action.RegisterDefaultEffects(pipeline)

	flushers := map[session.Transport]session.Flusher{
		session.TransportTCP:       nopFlusher{},
		session.TransportWebSocket: nopFlusher{},
	}

	cfg := DefaultConfig()
	cfg.TickInterval = time.Hour // tests drive tick() directly, never Run's ticker
	return NewLoop(w, p, pipeline, host, tbl, gateway, st, flushers, cfg)
}

func newTestSession(l *Loop, id int) *session.Session {
	s := session.New(id, session.TransportTCP, "test:0")
	l.gateway.Add(s)
	return s
}

func TestCreateThenConnect(t *testing.T) {
	l := newTestLoop(t)
	s := newTestSession(l, 1)

	s.Enqueue("create alice")
	s.Enqueue("swordfish")
	s.Enqueue("swordfish")
	l.handleLoginLines(s)

	if s.State() != session.StateConnected {
		t.Fatalf("expected StateConnected after create, got %v", s.State())
	}
	if _, ok := l.world.LookupPlayer("alice"); !ok {
		t.Fatalf("expected alice to exist in the world")
	}
	s.DrainOutbound()

	l.gateway.Disconnect(s)
	s2 := newTestSession(l, 2)
	s2.Enqueue("connect alice")
	s2.Enqueue("swordfish")
	l.handleLoginLines(s2)
	if s2.State() != session.StateConnected {
		t.Fatalf("expected StateConnected after connect, got %v", s2.State())
	}
}

func TestConnectWrongPasswordRejected(t *testing.T) {
	l := newTestLoop(t)
	s := newTestSession(l, 1)
	s.Enqueue("create bob")
	s.Enqueue("hunter2")
	s.Enqueue("hunter2")
	l.handleLoginLines(s)
	l.gateway.Disconnect(s)

	s2 := newTestSession(l, 2)
	s2.Enqueue("connect bob")
	s2.Enqueue("wrongpass")
	l.handleLoginLines(s2)
	if s2.State() != session.StateLogin {
		t.Fatalf("expected wrong password to leave session at login state")
	}
}

func TestGuestLoginAssignsSequentialNames(t *testing.T) {
	l := newTestLoop(t)
	s1 := newTestSession(l, 1)
	s1.Enqueue("guest")
	l.handleLoginLines(s1)

	s2 := newTestSession(l, 2)
	s2.Enqueue("guest")
	l.handleLoginLines(s2)

	if s1.Player() == s2.Player() {
		t.Fatalf("expected distinct guest players")
	}
}

func TestGuestLoginDisabledByConfig(t *testing.T) {
	l := newTestLoop(t)
	l.cfg.AllowGuests = false
	s := newTestSession(l, 1)
	s.Enqueue("guest")
	l.handleLoginLines(s)
	if s.State() != session.StateLogin {
		t.Fatalf("expected guest login to be refused")
	}
}

func TestQuitRequestsClose(t *testing.T) {
	l := newTestLoop(t)
	s := newTestSession(l, 1)
	s.Enqueue("quit")
	l.handleLoginLines(s)
	if !s.ShouldClose() {
		t.Fatalf("expected quit to request session close")
	}
}

func TestImmortalTeleport(t *testing.T) {
	l := newTestLoop(t)
	dest := l.world.CreateRoom("The Vault")

	s := newTestSession(l, 1)
	s.Enqueue("create god")
	s.Enqueue("letmein")
	s.Enqueue("letmein")
	l.handleLoginLines(s)
	player, _ := l.world.Player(s.Player())
	player.Flags |= world.PlayerImmortal
	s.DrainOutbound()

	intent := l.parser.Parse(s.Player(), "teleport "+dest.String())
	if intent.Kind != action.IntentImmortal {
		t.Fatalf("expected an immortal intent, got %v", intent.Kind)
	}
	l.handleImmortalCommand(s, intent)

	if player.CurrentRoom != dest {
		t.Fatalf("expected player to be teleported to %v, got %v", dest, player.CurrentRoom)
	}
}

func TestTickHaltsIntakeAfterStoreExhaustsRetries(t *testing.T) {
	l := newTestLoop(t)
	l.cfg.StoreMaxRetries = 0

	s := newTestSession(l, 1)
	s.Enqueue("create alice")
	s.Enqueue("swordfish")
	s.Enqueue("swordfish")
	l.handleLoginLines(s)
	s.DrainOutbound()

	l.store.Close() // force every subsequent SaveTick to fail

	l.tick(context.Background(), time.Now())
	if !l.storeHalted {
		t.Fatalf("expected storeHalted to latch after SaveTick exhausts retries")
	}

	broadcastLines := s.DrainOutbound()
	if len(broadcastLines) == 0 {
		t.Fatalf("expected a broadcast line warning connected sessions")
	}

	s.Enqueue("look")
	before := len(l.host.AllScripts())
	l.tick(context.Background(), time.Now())
	if len(l.host.AllScripts()) != before {
		t.Fatalf("expected no world mutation once intake is halted")
	}
	if remaining := s.DrainOutbound(); len(remaining) != 0 {
		t.Fatalf("expected halted intake to leave the queued command undispatched, got %+v", remaining)
	}
}

func TestPasswordChangeFlow(t *testing.T) {
	l := newTestLoop(t)
	s := newTestSession(l, 1)
	s.Enqueue("create alice")
	s.Enqueue("swordfish")
	s.Enqueue("swordfish")
	l.handleLoginLines(s)
	s.DrainOutbound()

	s.Enqueue("password")
	s.Enqueue("swordfish")
	s.Enqueue("newpassword")
	s.Enqueue("newpassword")
	l.handleCommandLines(s)

	player, _ := l.world.Player(s.Player())
	if !store.VerifyPassword("newpassword", player.PasswordHash) {
		t.Fatalf("expected password to have been changed")
	}
	if store.VerifyPassword("swordfish", player.PasswordHash) {
		t.Fatalf("expected old password to no longer verify")
	}
}

func TestScriptJobRoundTrip(t *testing.T) {
	l := newTestLoop(t)

	res := l.applyScriptJob(scriptJob{op: opCreate, name: "greet", trigger: action.TriggerSay, source: `SELF.tell("hi")`})
	if res.duplicate {
		t.Fatalf("unexpected duplicate on first create")
	}
	if res.script == nil || res.script.Name != "greet" {
		t.Fatalf("expected a script view back, got %+v", res)
	}

	dup := l.applyScriptJob(scriptJob{op: opCreate, name: "greet", trigger: action.TriggerSay, source: `x = 1`})
	if !dup.duplicate {
		t.Fatalf("expected duplicate creation to be rejected")
	}

	del := l.applyScriptJob(scriptJob{op: opDelete, name: "greet"})
	if del.notFound {
		t.Fatalf("unexpected not-found deleting an existing script")
	}
	missing := l.applyScriptJob(scriptJob{op: opRead, name: "greet"})
	if !missing.notFound {
		t.Fatalf("expected script to be gone after delete")
	}
}

func TestSubmitScriptJobDrainedByTick(t *testing.T) {
	l := newTestLoop(t)

	done := make(chan scriptJobResult, 1)
	go func() {
		done <- l.submitScriptJob(scriptJob{op: opCreate, name: "async", trigger: action.TriggerLook, source: `x = 1`})
	}()

	// drainScriptJobs is normally called once per tick, from the single
	// tick goroutine; here the test stands in for that goroutine.
	deadline := time.Now().Add(time.Second)
	for len(l.host.AllScripts()) == 0 && time.Now().Before(deadline) {
		l.drainScriptJobs()
	}

	res := <-done
	if res.script == nil || res.script.Name != "async" {
		t.Fatalf("expected the async job to be applied, got %+v", res)
	}
}
