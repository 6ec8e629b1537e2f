package script

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/duskward/lodestone/pkg/action"
	"github.com/duskward/lodestone/pkg/world"
)

const maxReentrancyDepth = 8

// Scheduler is the timer/FSM half of the script host's collaborators,
// implemented by pkg/timer.Table. Kept as an interface so pkg/script never
// imports pkg/timer.
type Scheduler interface {
	// SetTimer creates or replaces the named timer on entity, delayMs from
	// now; repeat selects one-shot vs. repeating.
	SetTimer(entity world.EntityID, name string, delayMs float64, repeat bool)
	// After schedules an arbitrary callback delayMs from now, independent
	// of any entity's named timer table; backs the SELF.*_after variants.
	After(delayMs float64, fn func())
	PushFSM(entity world.EntityID, def FSMDef)
	PopFSM(entity world.EntityID)
	// FlushFSM applies any push_fsm/pop_fsm queued by the script that just
	// finished running on entity.
	FlushFSM(entity world.EntityID)
	// Clear drops every named timer and FSM frame belonging to entity
	// without removing the entity itself.
	Clear(entity world.EntityID)
}

// Host is the script host: it compiles scripts, holds attachments
// and per-entity script-data, and executes them against an
// operation-budgeted interpreter. It implements action.ScriptDispatcher.
type Host struct {
	world  *world.World
	msgr   action.Messenger
	sched  Scheduler
	rng    *rand.Rand
	budget int

	scripts     map[string]*Script
	attachments map[world.EntityID][]Attachment // insertion order preserved
	scriptData  map[world.EntityID]map[string]string

	Errors []RuntimeError

	depth int // WORLD.object_new reentrancy guard
}

// NewHost wires a Host over its collaborators. rng must be seeded
// explicitly by the caller for reproducible tests.
func NewHost(w *world.World, msgr action.Messenger, sched Scheduler, rng *rand.Rand, operationBudget int) *Host {
	return &Host{
		world:       w,
		msgr:        msgr,
		sched:       sched,
		rng:         rng,
		budget:      operationBudget,
		scripts:     make(map[string]*Script),
		attachments: make(map[world.EntityID][]Attachment),
		scriptData:  make(map[world.EntityID]map[string]string),
	}
}

func (h *Host) messenger() action.Messenger { return h.msgr }
func (h *Host) scheduler() Scheduler        { return h.sched }

func (h *Host) roomOf(actor world.EntityID) world.EntityID {
	if p, ok := h.world.Player(actor); ok {
		return p.CurrentRoom
	}
	return world.Nothing
}

func (h *Host) nameOf(id world.EntityID) string {
	if p, ok := h.world.Player(id); ok {
		return p.Username
	}
	if name, ok := h.world.EffectiveName(id); ok {
		return name
	}
	return "someone"
}

func (h *Host) dataGet(entity world.EntityID, key string) string {
	m := h.scriptData[entity]
	if m == nil {
		return ""
	}
	return m[key]
}

func (h *Host) dataSet(entity world.EntityID, key, value string) {
	m := h.scriptData[entity]
	if m == nil {
		m = make(map[string]string)
		h.scriptData[entity] = m
	}
	m[key] = value
}

func (h *Host) dataRemove(entity world.EntityID, key string) {
	if m := h.scriptData[entity]; m != nil {
		delete(m, key)
	}
}

// CreateObjectAndInit implements WORLD.object_new: it drops a new object
// of prototypeID into room and runs its init scripts synchronously,
// bounded by maxReentrancyDepth so an init script that itself calls
// object_new cannot recurse without limit.
func (h *Host) CreateObjectAndInit(room, prototypeID world.EntityID) (world.EntityID, error) {
	if h.depth >= maxReentrancyDepth {
		return world.Nothing, fmt.Errorf("object_new: reentrancy depth exceeded")
	}
	id, err := h.world.CreateObject(prototypeID, true, world.KindRoom, room)
	if err != nil {
		return world.Nothing, err
	}
	h.depth++
	h.InitEntity(id)
	h.depth--
	return id, nil
}

// AddScript compiles and stores source under name, replacing any prior
// version. A compile failure is recorded on the Script, not returned:
// attachments of a broken script simply no-op.
func (h *Host) AddScript(name string, trig action.Trigger, source string) *Script {
	s := &Script{Name: name, Trigger: trig, Code: source}
	prog, cerr := compile(source)
	if cerr != nil {
		s.CompileError = cerr
	} else {
		s.compiled = prog
	}
	h.scripts[name] = s
	return s
}

// RemoveScript deletes a script and detaches it from every entity.
func (h *Host) RemoveScript(name string) {
	delete(h.scripts, name)
	for entity, list := range h.attachments {
		kept := list[:0]
		for _, a := range list {
			if a.ScriptName != name {
				kept = append(kept, a)
			}
		}
		h.attachments[entity] = kept
	}
}

// Attach records an attachment, preserving per-entity insertion order.
// Duplicate (entity, kind, script, trigger) tuples are rejected silently.
func (h *Host) Attach(a Attachment) {
	for _, existing := range h.attachments[a.Entity] {
		if existing == a {
			return
		}
	}
	h.attachments[a.Entity] = append(h.attachments[a.Entity], a)
}

// Detach removes one attachment tuple.
func (h *Host) Detach(a Attachment) {
	list := h.attachments[a.Entity]
	for i, existing := range list {
		if existing == a {
			h.attachments[a.Entity] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// DetachAll drops every attachment and script-data entry for an entity;
// wired to world.World.OnEntityRemoved so removal cascades.
func (h *Host) DetachAll(entity world.EntityID) {
	delete(h.attachments, entity)
	delete(h.scriptData, entity)
}

// AllScripts returns every compiled/pending script, keyed by name, for the
// store's end-of-tick snapshot write.
func (h *Host) AllScripts() map[string]*Script {
	return h.scripts
}

// AllAttachments returns every entity's attachment list, in insertion
// order, for the store's end-of-tick snapshot write.
func (h *Host) AllAttachments() map[world.EntityID][]Attachment {
	return h.attachments
}

func (h *Host) attachmentsFor(entity world.EntityID, kind AttachKind, trig action.Trigger) []ScriptRef {
	var refs []ScriptRef
	for _, a := range h.attachments[entity] {
		if a.Kind == kind && a.Trigger == trig {
			refs = append(refs, ScriptRef{Entity: entity, Script: a.ScriptName})
		}
	}
	return refs
}

// ScriptRef re-exports action.ScriptRef so callers of this package don't
// need a second import for the same type.
type ScriptRef = action.ScriptRef

// collect implements the deterministic order shared by pre and post
// dispatch: actor-attached, then room-attached, then objects in stable id
// order (each object's own attachments, then its prototype's if
// inherit_scripts is set).
func (h *Host) collect(kind AttachKind, trig action.Trigger, actor, locus world.EntityID) []ScriptRef {
	var refs []ScriptRef
	refs = append(refs, h.attachmentsFor(actor, kind, trig)...)
	refs = append(refs, h.attachmentsFor(locus, kind, trig)...)

	var objectIDs []world.EntityID
	for id, obj := range h.objectsIn(locus) {
		objectIDs = append(objectIDs, id)
		_ = obj
	}
	sort.Slice(objectIDs, func(i, j int) bool { return objectIDs[i] < objectIDs[j] })

	for _, id := range objectIDs {
		refs = append(refs, h.attachmentsFor(id, kind, trig)...)
		obj, _ := h.world.Object(id)
		if obj != nil && obj.InheritScripts {
			refs = append(refs, h.attachmentsFor(obj.PrototypeID, kind, trig)...)
		}
	}
	return refs
}

func (h *Host) objectsIn(room world.EntityID) map[world.EntityID]*world.Object {
	out := make(map[world.EntityID]*world.Object)
	_, objects, err := h.world.RoomContents(room)
	if err != nil {
		return out
	}
	for _, id := range objects {
		if obj, ok := h.world.Object(id); ok {
			out[id] = obj
		}
	}
	return out
}

// PreScripts implements action.ScriptDispatcher.
func (h *Host) PreScripts(trig action.Trigger, actor, locus world.EntityID) []ScriptRef {
	return h.collect(action.AttachPre, trig, actor, locus)
}

// PostScripts implements action.ScriptDispatcher.
func (h *Host) PostScripts(trig action.Trigger, actor, locus world.EntityID) []ScriptRef {
	return h.collect(action.AttachPost, trig, actor, locus)
}

// TimerScripts implements action.ScriptDispatcher: attach-timer(name)
// scripts on entity, in attachment order.
func (h *Host) TimerScripts(entity world.EntityID, timerName string) []ScriptRef {
	var refs []ScriptRef
	for _, a := range h.attachments[entity] {
		if a.Kind == action.AttachTimer && a.TimerName == timerName {
			refs = append(refs, ScriptRef{Entity: entity, Script: a.ScriptName})
		}
	}
	return refs
}

// RunPre implements action.ScriptDispatcher: executes a pre-attached
// script and reports its allow_action verdict. A missing script, a
// compile error, or budget exhaustion never vetoes.
func (h *Host) RunPre(ref ScriptRef, ev *action.Event) bool {
	s, ok := h.scripts[ref.Script]
	if !ok || s.CompileError != nil {
		return true
	}
	root := newEnv(nil)
	root.declare("allow_action", true)
	err := h.execute(s, ref.Entity, ev, root)
	h.sched.FlushFSM(ref.Entity)
	if err != nil {
		h.recordError(ref, err)
		return true
	}
	allow, _ := root.get("allow_action")
	b, ok := allow.(bool)
	if !ok {
		return true
	}
	return b
}

// RunPost implements action.ScriptDispatcher: executes a post-attached or
// timer-attached script; its return value is unused.
func (h *Host) RunPost(ref ScriptRef, ev *action.Event) {
	s, ok := h.scripts[ref.Script]
	if !ok || s.CompileError != nil {
		return
	}
	err := h.execute(s, ref.Entity, ev, newEnv(nil))
	h.sched.FlushFSM(ref.Entity)
	if err != nil {
		h.recordError(ref, err)
	}
}

// RunNamed executes a single named script directly on entity with no
// Event in scope, used by the timer/FSM scheduler to invoke a state's
// on_enter/on_tick/on_exit script. Implements timer.ScriptRunner
// (defined in pkg/timer) by structural typing.
func (h *Host) RunNamed(entity world.EntityID, scriptName string) {
	s, ok := h.scripts[scriptName]
	if !ok || s.CompileError != nil {
		return
	}
	if err := h.execute(s, entity, nil, newEnv(nil)); err != nil {
		h.recordError(ScriptRef{Entity: entity, Script: scriptName}, err)
	}
	h.sched.FlushFSM(entity)
}

// InitEntity runs every init-attached script on entity directly, bypassing
// the pre/post pipeline entirely: init scripts see SELF and WORLD but
// never EVENT, since there is no event to observe at creation time.
func (h *Host) InitEntity(entity world.EntityID) {
	delete(h.scriptData, entity)
	h.sched.Clear(entity)
	for _, a := range h.attachments[entity] {
		if a.Kind != action.AttachInit {
			continue
		}
		s, ok := h.scripts[a.ScriptName]
		if !ok || s.CompileError != nil {
			continue
		}
		ref := ScriptRef{Entity: entity, Script: a.ScriptName}
		err := h.execute(s, entity, nil, newEnv(nil))
		h.sched.FlushFSM(entity)
		if err != nil {
			h.recordError(ref, err)
		}
	}
}

func (h *Host) execute(s *Script, entity world.EntityID, ev *action.Event, root *env) error {
	globals := map[string]any{
		"SELF":        &selfObject{entity: entity, host: h},
		"WORLD":       &worldObject{host: h, actor: entity},
		"time":        timeObject{},
		"random":      &randomObject{rng: h.rng},
		"fsm_builder": fsmBuilderFunc{},
	}
	if ev != nil {
		globals["EVENT"] = &eventObject{ev: ev}
	}
	in := newInterp(globals, h.budget)
	return in.run(s.compiled, root)
}

func (h *Host) recordError(ref ScriptRef, err error) {
	h.Errors = append(h.Errors, RuntimeError{Entity: ref.Entity, ScriptName: ref.Script, Message: err.Error()})
}
