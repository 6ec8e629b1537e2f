package action

import (
	"testing"

	"github.com/duskward/lodestone/pkg/world"
)

// recordingMessenger captures every message sent, for assertions.
type recordingMessenger struct {
	tells  []string
	rooms  []string
	online []world.EntityID
}

func (m *recordingMessenger) Tell(who world.EntityID, text string) {
	m.tells = append(m.tells, text)
}

func (m *recordingMessenger) Room(room world.EntityID, text string, except world.EntityID) {
	m.rooms = append(m.rooms, text)
}

func (m *recordingMessenger) Online() []world.EntityID { return m.online }

// scriptedDispatcher is a fake ScriptDispatcher whose pre-script verdicts
// and collected refs are configured per test.
type scriptedDispatcher struct {
	pre     []ScriptRef
	post    []ScriptRef
	verdict map[string]bool
	ran     []string
}

func (d *scriptedDispatcher) PreScripts(trig Trigger, actor, locus world.EntityID) []ScriptRef {
	return d.pre
}
func (d *scriptedDispatcher) PostScripts(trig Trigger, actor, locus world.EntityID) []ScriptRef {
	return d.post
}
func (d *scriptedDispatcher) TimerScripts(entity world.EntityID, timerName string) []ScriptRef {
	return nil
}
func (d *scriptedDispatcher) RunPre(ref ScriptRef, ev *Event) bool {
	d.ran = append(d.ran, ref.Script)
	return d.verdict[ref.Script]
}
func (d *scriptedDispatcher) RunPost(ref ScriptRef, ev *Event) {
	d.ran = append(d.ran, "post:"+ref.Script)
}

func TestRunPreExecutesAllScriptsDespiteEarlyVeto(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	actor := w.CreatePlayer("alice", "hash", room)

	dispatcher := &scriptedDispatcher{
		pre: []ScriptRef{
			{Entity: actor, Script: "vetoer"},
			{Entity: actor, Script: "never-skipped"},
		},
		verdict: map[string]bool{"vetoer": false, "never-skipped": true},
	}
	msgr := &recordingMessenger{}
	p := NewPipeline(w, dispatcher, msgr)

	p.Dispatch(ActionIntent{Kind: IntentSay, Actor: actor, Text: "hi"})

	if len(dispatcher.ran) != 2 {
		t.Fatalf("expected both pre-scripts to run, got %v", dispatcher.ran)
	}
	if len(msgr.tells) != 1 || msgr.tells[0] != "You can't do that." {
		t.Errorf("expected veto message, got %v", msgr.tells)
	}
}

func TestDispatchGetMovesObjectAndRunsPostScripts(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	actor := w.CreatePlayer("alice", "hash", room)
	proto := w.CreatePrototype("a coin", "A shiny coin.", []string{"coin"}, 0)
	obj, _ := w.CreateObject(proto, true, world.KindRoom, room)

	dispatcher := &scriptedDispatcher{post: []ScriptRef{{Entity: actor, Script: "on-get"}}}
	msgr := &recordingMessenger{}
	p := NewPipeline(w, dispatcher, msgr)
	RegisterDefaultEffects(p)

	p.Dispatch(ActionIntent{Kind: IntentGet, Actor: actor, Target: obj, TargetResolved: true})

	o, _ := w.Object(obj)
	if o.ContainerKind != world.KindPlayer || o.Container != actor {
		t.Errorf("expected object in actor's inventory, got kind=%v container=%v", o.ContainerKind, o.Container)
	}
	if len(dispatcher.ran) != 1 || dispatcher.ran[0] != "post:on-get" {
		t.Errorf("expected post-script to run, got %v", dispatcher.ran)
	}
}

func TestDispatchResolutionErrorSkipsSystemEffectButRunsScripts(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	actor := w.CreatePlayer("alice", "hash", room)

	dispatcher := &scriptedDispatcher{post: []ScriptRef{{Entity: actor, Script: "observer"}}}
	msgr := &recordingMessenger{}
	p := NewPipeline(w, dispatcher, msgr)
	RegisterDefaultEffects(p)

	p.Dispatch(ActionIntent{Kind: IntentResolutionError, Actor: actor, Target: world.Nothing, Text: "You don't see that here.", Trigger: TriggerGet})

	if len(dispatcher.ran) != 1 || dispatcher.ran[0] != "post:observer" {
		t.Errorf("expected post-script to still observe the miss, got %v", dispatcher.ran)
	}
	if len(msgr.tells) != 1 || msgr.tells[0] != "You don't see that here." {
		t.Errorf("expected the resolution error surfaced to the actor, got %v", msgr.tells)
	}
}

func TestDispatchWhoListsOnlinePlayers(t *testing.T) {
	w := world.New()
	room := w.CreateRoom("A room")
	actor := w.CreatePlayer("alice", "hash", room)
	other := w.CreatePlayer("bob", "hash", room)

	dispatcher := &scriptedDispatcher{}
	msgr := &recordingMessenger{online: []world.EntityID{actor, other}}
	p := NewPipeline(w, dispatcher, msgr)
	RegisterDefaultEffects(p)

	p.Dispatch(ActionIntent{Kind: IntentWho, Actor: actor})

	if len(msgr.tells) != 3 {
		t.Fatalf("expected a header line plus one line per online player, got %v", msgr.tells)
	}
	if msgr.tells[1] != "alice" || msgr.tells[2] != "bob" {
		t.Errorf("expected both online players listed, got %v", msgr.tells[1:])
	}
}

func TestDispatchMoveTwoLocusPostScripts(t *testing.T) {
	w := world.New()
	a := w.CreateRoom("Room A")
	b := w.CreateRoom("Room B")
	w.Link(a, world.North, b)
	actor := w.CreatePlayer("alice", "hash", a)

	dispatcher := &scriptedDispatcher{post: []ScriptRef{{Entity: actor, Script: "arrival"}}}
	msgr := &recordingMessenger{}
	p := NewPipeline(w, dispatcher, msgr)
	RegisterDefaultEffects(p)

	p.Dispatch(ActionIntent{Kind: IntentMove, Actor: actor, Direction: world.North})

	pl, _ := w.Player(actor)
	if pl.CurrentRoom != b {
		t.Errorf("expected actor moved to room B, got %v", pl.CurrentRoom)
	}
	if len(dispatcher.ran) != 1 {
		t.Errorf("expected post-script at destination, got %v", dispatcher.ran)
	}
}
