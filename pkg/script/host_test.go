package script

import (
	"math/rand"
	"testing"

	"github.com/duskward/lodestone/pkg/action"
	"github.com/duskward/lodestone/pkg/world"
)

type fakeMessenger struct {
	tells []string
}

func (m *fakeMessenger) Tell(who world.EntityID, text string) { m.tells = append(m.tells, text) }
func (m *fakeMessenger) Room(room world.EntityID, text string, except world.EntityID) {
	m.tells = append(m.tells, text)
}
func (m *fakeMessenger) Online() []world.EntityID { return nil }

type fakeScheduler struct {
	timers []string
	afters []func()
	pushed []FSMDef
	popped int
}

func (s *fakeScheduler) SetTimer(entity world.EntityID, name string, delayMs float64, repeat bool) {
	s.timers = append(s.timers, name)
}
func (s *fakeScheduler) After(delayMs float64, fn func()) { s.afters = append(s.afters, fn) }
func (s *fakeScheduler) PushFSM(entity world.EntityID, def FSMDef) {
	s.pushed = append(s.pushed, def)
}
func (s *fakeScheduler) PopFSM(entity world.EntityID)   { s.popped++ }
func (s *fakeScheduler) FlushFSM(entity world.EntityID) {}
func (s *fakeScheduler) Clear(entity world.EntityID) {
	s.timers = nil
	s.pushed = nil
	s.popped = 0
}

func newTestHost(w *world.World) (*Host, *fakeMessenger, *fakeScheduler) {
	m := &fakeMessenger{}
	sched := &fakeScheduler{}
	h := NewHost(w, m, sched, rand.New(rand.NewSource(1)), 10000)
	return h, m, sched
}

func TestCompileErrorRecordedNotFatal(t *testing.T) {
	w := world.New()
	h, _, _ := newTestHost(w)

	s := h.AddScript("broken", action.TriggerGet, "let x = ")
	if s.CompileError == nil {
		t.Fatalf("expected a compile error for malformed source")
	}
}

func TestVetoScriptCancelsAllowAction(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	actor := w.CreatePlayer("alice", "hash", room)
	h, _, _ := newTestHost(w)

	h.AddScript("veto", action.TriggerGet, `allow_action = false`)
	h.Attach(Attachment{Entity: actor, Kind: action.AttachPre, ScriptName: "veto", Trigger: action.TriggerGet})

	refs := h.PreScripts(action.TriggerGet, actor, room)
	if len(refs) != 1 {
		t.Fatalf("expected 1 pre-script, got %d", len(refs))
	}
	ev := &action.Event{Kind: action.TriggerGet, Actor: actor}
	if allow := h.RunPre(refs[0], ev); allow {
		t.Errorf("expected veto script to cancel allow_action")
	}
}

func TestSelfEmoteDeliversToRoom(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	actor := w.CreatePlayer("alice", "hash", room)
	h, msgr, _ := newTestHost(w)

	h.AddScript("greet", action.TriggerGet, `SELF.emote("waves.")`)
	h.Attach(Attachment{Entity: actor, Kind: action.AttachPost, ScriptName: "greet", Trigger: action.TriggerGet})

	refs := h.PostScripts(action.TriggerGet, actor, room)
	ev := &action.Event{Kind: action.TriggerGet, Actor: actor}
	h.RunPost(refs[0], ev)

	if len(msgr.tells) != 1 || msgr.tells[0] != "alice waves." {
		t.Errorf("expected emote delivered to room, got %v", msgr.tells)
	}
}

func TestSelfTimerRegistersOnScheduler(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	actor := w.CreatePlayer("alice", "hash", room)
	h, _, sched := newTestHost(w)

	h.AddScript("arm", action.TriggerInit, `SELF.timer("boom", time.secs(5))`)
	h.Attach(Attachment{Entity: actor, Kind: action.AttachInit, ScriptName: "arm", Trigger: action.TriggerInit})

	h.InitEntity(actor)

	if len(sched.timers) != 1 || sched.timers[0] != "boom" {
		t.Errorf("expected timer 'boom' scheduled, got %v", sched.timers)
	}
}

func TestInitEntityClearsSchedulerStateBeforeRerunning(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	actor := w.CreatePlayer("alice", "hash", room)
	h, _, sched := newTestHost(w)

	h.AddScript("arm", action.TriggerInit, `SELF.timer("boom", time.secs(5))`)
	h.Attach(Attachment{Entity: actor, Kind: action.AttachInit, ScriptName: "arm", Trigger: action.TriggerInit})

	h.InitEntity(actor)
	if len(sched.timers) != 1 {
		t.Fatalf("expected 1 timer after first init, got %v", sched.timers)
	}

	sched.pushed = append(sched.pushed, FSMDef{})
	h.Detach(Attachment{Entity: actor, Kind: action.AttachInit, ScriptName: "arm", Trigger: action.TriggerInit})
	h.InitEntity(actor)

	if len(sched.timers) != 0 {
		t.Errorf("expected re-init to clear the prior timer table, got %v", sched.timers)
	}
	if len(sched.pushed) != 0 {
		t.Errorf("expected re-init to clear the prior FSM stack, got %v", sched.pushed)
	}
}

func TestObjectNewRunsInitAndBoundsReentrancy(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	proto := w.CreatePrototype("a rat", "A rat.", []string{"rat"}, 0)
	h, msgr, _ := newTestHost(w)

	h.AddScript("spawn-init", action.TriggerInit, `SELF.message("I am born.")`)
	newObj, err := h.CreateObjectAndInit(room, proto)
	if err != nil {
		t.Fatalf("CreateObjectAndInit: %v", err)
	}
	h.Attach(Attachment{Entity: newObj, Kind: action.AttachInit, ScriptName: "spawn-init", Trigger: action.TriggerInit})
	h.InitEntity(newObj)

	if len(msgr.tells) != 1 {
		t.Errorf("expected the new object's init script to fire, got %v", msgr.tells)
	}

	h.depth = maxReentrancyDepth
	if _, err := h.CreateObjectAndInit(room, proto); err == nil {
		t.Errorf("expected object_new past the reentrancy depth to fail")
	}
}

func TestBudgetExhaustionAbortsWithoutPanicking(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	actor := w.CreatePlayer("alice", "hash", room)
	h := NewHost(w, &fakeMessenger{}, &fakeScheduler{}, rand.New(rand.NewSource(1)), 5)

	h.AddScript("loop", action.TriggerGet, `let x = 0
while true {
  x = x + 1
}`)
	h.Attach(Attachment{Entity: actor, Kind: action.AttachPre, ScriptName: "loop", Trigger: action.TriggerGet})

	refs := h.PreScripts(action.TriggerGet, actor, room)
	ev := &action.Event{Kind: action.TriggerGet, Actor: actor}
	allow := h.RunPre(refs[0], ev)
	if !allow {
		t.Errorf("budget exhaustion must not veto")
	}
	if len(h.Errors) != 1 {
		t.Errorf("expected a recorded runtime error, got %d", len(h.Errors))
	}
}
