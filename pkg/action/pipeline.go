package action

import (
	"log"

	"github.com/duskward/lodestone/pkg/world"
)

// ScriptRef names one (entity, attached-script) pair queued for dispatch.
type ScriptRef struct {
	Entity world.EntityID
	Script string
}

// Messenger is the minimal interface the pipeline needs to deliver output;
// implemented by the session gateway. Kept separate from the session
// package so pkg/action never imports it.
type Messenger interface {
	Tell(who world.EntityID, text string)
	// Room sends text to every connected player in room, optionally
	// skipping one actor (world.Nothing to skip none).
	Room(room world.EntityID, text string, except world.EntityID)
	// Online lists every player entity with a live session, for the who
	// listing effect.
	Online() []world.EntityID
}

// ScriptDispatcher collects and executes attached scripts. Implemented by
// pkg/script.Host, which alone knows how attachments, prototypes and
// inherit_scripts combine into the collection order.
type ScriptDispatcher interface {
	// PreScripts and PostScripts return script references in a
	// deterministic order: actor-attached, then room-attached, then
	// objects in stable id order; attachment-insertion order within an entity.
	PreScripts(trig Trigger, actor, locus world.EntityID) []ScriptRef
	PostScripts(trig Trigger, actor, locus world.EntityID) []ScriptRef
	// TimerScripts returns attach-timer(name) scripts on entity, in
	// attachment order.
	TimerScripts(entity world.EntityID, timerName string) []ScriptRef

	// RunPre executes a pre-attached script and reports whether it vetoed
	// the action (false = veto). A script with a compile error or that
	// exceeds its budget never vetoes.
	RunPre(ref ScriptRef, ev *Event) bool
	// RunPost executes a post-attached or timer-attached script; return value unused.
	RunPost(ref ScriptRef, ev *Event)
}

// EffectFunc implements the built-in system behavior for one trigger kind:
// world mutation plus outbound messages. A non-nil error means the effect
// did not complete; the pipeline then tells the actor and skips post-scripts.
type EffectFunc func(w *world.World, ev *Event, intent ActionIntent, msgr Messenger) error

// Pipeline drives the deterministic pre-script -> system-effect ->
// post-script sequence for one intent at a time.
type Pipeline struct {
	World      *world.World
	Dispatcher ScriptDispatcher
	Messenger  Messenger
	Effects    map[Trigger]EffectFunc
}

// NewPipeline wires a Pipeline over its collaborators.
func NewPipeline(w *world.World, d ScriptDispatcher, m Messenger) *Pipeline {
	return &Pipeline{
		World:      w,
		Dispatcher: d,
		Messenger:  m,
		Effects:    make(map[Trigger]EffectFunc),
	}
}

// Register installs the built-in system effect for a trigger kind.
func (p *Pipeline) Register(trig Trigger, fn EffectFunc) {
	p.Effects[trig] = fn
}

// intentTrigger maps a resolved ActionIntent to the Trigger its Event carries.
// Intents that never reach the pipeline (parse/permission errors) return ok=false.
func intentTrigger(kind IntentKind) (Trigger, bool) {
	switch kind {
	case IntentSay:
		return TriggerSay, true
	case IntentEmote:
		return TriggerEmote, true
	case IntentSend:
		return TriggerSend, true
	case IntentGet:
		return TriggerGet, true
	case IntentDrop:
		return TriggerDrop, true
	case IntentInventory:
		return TriggerInventory, true
	case IntentMove, IntentTeleport:
		return TriggerMove, true
	case IntentLook:
		return TriggerLook, true
	case IntentLookAt:
		return TriggerLookAt, true
	case IntentExits:
		return TriggerExits, true
	case IntentWho:
		return TriggerWho, true
	default:
		return 0, false
	}
}

// Dispatch runs one intent through the full pipeline. ParseError and
// PermissionError intents never build an Event: they surface directly
// and return. ResolutionError intents DO build an Event, so post-observing
// scripts can react to a miss, but the system effect never applies.
func (p *Pipeline) Dispatch(intent ActionIntent) {
	switch intent.Kind {
	case IntentParseError:
		p.Messenger.Tell(intent.Actor, intent.Text)
		return
	case IntentPermissionError:
		p.Messenger.Tell(intent.Actor, "Permission denied.")
		return
	case IntentUnknown:
		p.Messenger.Tell(intent.Actor, "Huh?  (Type \"help\" for help.)")
		return
	}

	trig, ok := intentTrigger(intent.Kind)
	if !ok {
		if intent.Kind != IntentResolutionError {
			return
		}
		// A failed target resolution still carries the trigger the command
		// would have used, set by the parser, so an Event still reaches
		// post-scripts even though the system effect never applies.
		trig = intent.Trigger
	}

	ev := p.buildEvent(trig, intent)

	if trig == TriggerMove {
		p.dispatchMove(ev, intent)
		return
	}

	locus := p.actorRoom(intent.Actor)
	p.dispatchSingleLocus(trig, ev, intent, locus)
}

// buildEvent constructs the Event snapshot scripts will observe for this intent.
func (p *Pipeline) buildEvent(trig Trigger, intent ActionIntent) Event {
	ev := Event{
		Kind:           trig,
		Actor:          intent.Actor,
		Target:         intent.Target,
		TargetResolved: intent.TargetResolved,
		Direction:      intent.Direction,
		Text:           intent.Text,
	}
	if trig == TriggerMove {
		ev.OriginRoom = p.actorRoom(intent.Actor)
		if dest, ok := p.destinationRoom(intent); ok {
			ev.DestRoom = dest
		} else {
			ev.DestRoom = world.Nothing
		}
	}
	return ev
}

func (p *Pipeline) actorRoom(actor world.EntityID) world.EntityID {
	player, ok := p.World.Player(actor)
	if !ok {
		return world.Nothing
	}
	return player.CurrentRoom
}

func (p *Pipeline) destinationRoom(intent ActionIntent) (world.EntityID, bool) {
	if intent.Kind == IntentTeleport {
		return intent.Target, intent.Target != world.Nothing
	}
	origin := p.actorRoom(intent.Actor)
	room, ok := p.World.Room(origin)
	if !ok {
		return world.Nothing, false
	}
	dest, ok := room.Exits[intent.Direction]
	return dest, ok
}

// dispatchSingleLocus runs the pre -> effect -> post sequence for events
// whose observable locus is a single room (everything except movement).
func (p *Pipeline) dispatchSingleLocus(trig Trigger, ev Event, intent ActionIntent, locus world.EntityID) {
	if !p.runPre(trig, intent.Actor, locus, &ev) {
		p.Messenger.Tell(intent.Actor, "You can't do that.")
		return
	}

	if intent.Kind == IntentResolutionError {
		p.Messenger.Tell(intent.Actor, intent.Text)
	} else if fn, ok := p.Effects[trig]; ok {
		if err := fn(p.World, &ev, intent, p.Messenger); err != nil {
			log.Printf("action: system effect for %s failed: %v", trig, err)
			p.Messenger.Tell(intent.Actor, "Something went wrong.")
			return
		}
	}

	p.runPost(trig, intent.Actor, locus, &ev)
}

// dispatchMove runs the two-locus movement sequence: pre-scripts in the
// origin room, the move itself, then post-scripts in the destination room.
func (p *Pipeline) dispatchMove(ev Event, intent ActionIntent) {
	origin := ev.OriginRoom
	if !p.runPre(TriggerMove, intent.Actor, origin, &ev) {
		p.Messenger.Tell(intent.Actor, "You can't go that way.")
		return
	}

	if fn, ok := p.Effects[TriggerMove]; ok {
		if err := fn(p.World, &ev, intent, p.Messenger); err != nil {
			log.Printf("action: move effect failed: %v", err)
			p.Messenger.Tell(intent.Actor, "You can't go that way.")
			return
		}
	}

	p.runPost(TriggerMove, intent.Actor, ev.DestRoom, &ev)
}

// runPre executes every pre-attached script for trig at locus, in
// deterministic order. All collected scripts run regardless of an earlier
// veto (the dispatch-order law requires a fixed, deterministic invocation
// sequence); the return value is false if ANY of them vetoed.
func (p *Pipeline) runPre(trig Trigger, actor, locus world.EntityID, ev *Event) bool {
	allow := true
	for _, ref := range p.Dispatcher.PreScripts(trig, actor, locus) {
		if !p.Dispatcher.RunPre(ref, ev) {
			allow = false
		}
	}
	return allow
}

func (p *Pipeline) runPost(trig Trigger, actor, locus world.EntityID, ev *Event) {
	for _, ref := range p.Dispatcher.PostScripts(trig, actor, locus) {
		p.Dispatcher.RunPost(ref, ev)
	}
}

// DispatchTimer fires the attach-timer(name) scripts on entity when a timer
// with that name comes due. Timer dispatch is single-phase: no system
// effect, no veto, just the attached scripts in attachment order.
func (p *Pipeline) DispatchTimer(entity world.EntityID, timerName string) {
	ev := Event{Kind: TriggerTimer, Actor: entity, TimerName: timerName}
	for _, ref := range p.Dispatcher.TimerScripts(entity, timerName) {
		p.Dispatcher.RunPost(ref, &ev)
	}
}
