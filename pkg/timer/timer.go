// Package timer implements the timer/FSM scheduler: a per-entity
// named timer table backed by a deadline min-heap, plus a per-entity FSM
// stack whose push/pop take effect only after the triggering callback
// returns.
package timer

import (
	"container/heap"
	"time"

	"github.com/duskward/lodestone/pkg/script"
	"github.com/duskward/lodestone/pkg/world"
)

// ScriptRunner executes one named script directly against an entity, with
// no Event in scope. Implemented by script.Host.
type ScriptRunner interface {
	RunNamed(entity world.EntityID, scriptName string)
}

// TimerFired is what Table.Tick reports for each named timer that came
// due, so the caller can route it through the action pipeline's
// single-phase Timer dispatch.
type TimerFired struct {
	Entity world.EntityID
	Name   string
}

type namedTimer struct {
	entity    world.EntityID
	name      string
	deadline  time.Time
	interval  time.Duration
	repeating bool
	index     int
}

type namedHeap []*namedTimer

func (h namedHeap) Len() int           { return len(h) }
func (h namedHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }
func (h namedHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *namedHeap) Push(x any) {
	t := x.(*namedTimer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *namedHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

type genericTimer struct {
	deadline time.Time
	fire     func()
	index    int
}

type genericHeap []*genericTimer

func (h genericHeap) Len() int           { return len(h) }
func (h genericHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }
func (h genericHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *genericHeap) Push(x any) {
	t := x.(*genericTimer)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *genericHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

type namedKey struct {
	entity world.EntityID
	name   string
}

// frame is one live FSM activation: a compiled definition plus which of
// its states is current. Transitions between states within one frame are
// not exposed to scripts; forward
// progress is modeled as pushing a new frame, matching the "the top FSM
// frame's on_tick is invoked" wording without inventing an unspecified
// in-frame transition primitive.
type frame struct {
	def     script.FSMDef
	current int
}

// Table is the concrete timer/FSM scheduler, implementing script.Scheduler
// so the script host can create timers and manipulate FSM stacks without
// importing this package.
type Table struct {
	runner ScriptRunner
	now    func() time.Time

	named   namedHeap
	byKey   map[namedKey]*namedTimer
	generic genericHeap

	fsmStacks   map[world.EntityID][]frame
	pendingPush map[world.EntityID][]script.FSMDef
	pendingPop  map[world.EntityID]int
}

// NewTable constructs a Table. now is injectable for deterministic tests;
// production callers pass time.Now.
func NewTable(runner ScriptRunner, now func() time.Time) *Table {
	t := &Table{
		runner:      runner,
		now:         now,
		byKey:       make(map[namedKey]*namedTimer),
		fsmStacks:   make(map[world.EntityID][]frame),
		pendingPush: make(map[world.EntityID][]script.FSMDef),
		pendingPop:  make(map[world.EntityID]int),
	}
	heap.Init(&t.named)
	heap.Init(&t.generic)
	return t
}

// SetTimer implements script.Scheduler. Creating a timer with an existing
// name replaces it and resets the deadline.
func (t *Table) SetTimer(entity world.EntityID, name string, delayMs float64, repeat bool) {
	key := namedKey{entity, name}
	deadline := t.now().Add(time.Duration(delayMs) * time.Millisecond)
	if existing, ok := t.byKey[key]; ok {
		existing.deadline = deadline
		existing.repeating = repeat
		existing.interval = time.Duration(delayMs) * time.Millisecond
		heap.Fix(&t.named, existing.index)
		return
	}
	nt := &namedTimer{
		entity:    entity,
		name:      name,
		deadline:  deadline,
		interval:  time.Duration(delayMs) * time.Millisecond,
		repeating: repeat,
	}
	heap.Push(&t.named, nt)
	t.byKey[key] = nt
}

// After implements script.Scheduler: a one-off callback independent of
// any entity's named timer table, backing the SELF.*_after message
// variants.
func (t *Table) After(delayMs float64, fn func()) {
	heap.Push(&t.generic, &genericTimer{
		deadline: t.now().Add(time.Duration(delayMs) * time.Millisecond),
		fire:     fn,
	})
}

// CancelEntity removes every named timer and FSM state belonging to
// entity. Wired to world.World.OnEntityRemoved so removal cascades.
func (t *Table) CancelEntity(entity world.EntityID) {
	t.clear(entity)
}

// Clear implements script.Scheduler: it drops every named timer and FSM
// frame belonging to entity without removing the entity itself, so a
// re-run of init starts the scheduler over from a blank slate.
func (t *Table) Clear(entity world.EntityID) {
	t.clear(entity)
}

func (t *Table) clear(entity world.EntityID) {
	for key, nt := range t.byKey {
		if key.entity != entity {
			continue
		}
		if nt.index >= 0 {
			heap.Remove(&t.named, nt.index)
		}
		delete(t.byKey, key)
	}
	delete(t.fsmStacks, entity)
	delete(t.pendingPush, entity)
	delete(t.pendingPop, entity)
}

// PushFSM implements script.Scheduler: queues a push, applied by FlushFSM.
func (t *Table) PushFSM(entity world.EntityID, def script.FSMDef) {
	t.pendingPush[entity] = append(t.pendingPush[entity], def)
}

// PopFSM implements script.Scheduler: queues a pop, applied by FlushFSM.
func (t *Table) PopFSM(entity world.EntityID) {
	t.pendingPop[entity]++
}

// FlushFSM implements script.Scheduler: applies any push/pop queued during
// the script callback that just returned for entity, running on_exit for
// a popped frame and on_enter for a pushed one's first state.
func (t *Table) FlushFSM(entity world.EntityID) {
	for i := 0; i < t.pendingPop[entity]; i++ {
		stack := t.fsmStacks[entity]
		if len(stack) == 0 {
			break
		}
		top := stack[len(stack)-1]
		if st := currentState(top); st != nil && st.OnExit != "" {
			t.runner.RunNamed(entity, st.OnExit)
		}
		t.fsmStacks[entity] = stack[:len(stack)-1]
	}
	delete(t.pendingPop, entity)

	for _, def := range t.pendingPush[entity] {
		f := frame{def: def}
		t.fsmStacks[entity] = append(t.fsmStacks[entity], f)
		if st := currentState(f); st != nil && st.OnEnter != "" {
			t.runner.RunNamed(entity, st.OnEnter)
		}
	}
	delete(t.pendingPush, entity)
}

func currentState(f frame) *script.FSMState {
	if f.current < 0 || f.current >= len(f.def.States) {
		return nil
	}
	return &f.def.States[f.current]
}

// Tick fires every named timer and generic callback whose deadline has
// passed, then runs on_tick for every entity's top FSM frame. Repeating
// timers reschedule; one-shots are removed.
func (t *Table) Tick() []TimerFired {
	now := t.now()
	var fired []TimerFired

	for t.named.Len() > 0 && !t.named[0].deadline.After(now) {
		nt := heap.Pop(&t.named).(*namedTimer)
		fired = append(fired, TimerFired{Entity: nt.entity, Name: nt.name})
		key := namedKey{nt.entity, nt.name}
		if nt.repeating {
			nt.deadline = nt.deadline.Add(nt.interval)
			heap.Push(&t.named, nt)
		} else {
			delete(t.byKey, key)
		}
	}

	for t.generic.Len() > 0 && !t.generic[0].deadline.After(now) {
		gt := heap.Pop(&t.generic).(*genericTimer)
		gt.fire()
	}

	for entity, stack := range t.fsmStacks {
		if len(stack) == 0 {
			continue
		}
		top := stack[len(stack)-1]
		if st := currentState(top); st != nil && st.OnTick != "" {
			t.runner.RunNamed(entity, st.OnTick)
		}
	}

	return fired
}
