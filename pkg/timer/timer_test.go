package timer

import (
	"testing"
	"time"

	"github.com/duskward/lodestone/pkg/script"
	"github.com/duskward/lodestone/pkg/world"
)

type fakeRunner struct {
	ran []string
}

func (r *fakeRunner) RunNamed(entity world.EntityID, scriptName string) {
	r.ran = append(r.ran, scriptName)
}

func newTestTable(runner *fakeRunner, start time.Time) (*Table, *time.Time) {
	clock := start
	tbl := NewTable(runner, func() time.Time { return clock })
	return tbl, &clock
}

func TestRepeatingTimerReschedulesAndOneShotDoesNot(t *testing.T) {
	runner := &fakeRunner{}
	start := time.Unix(0, 0)
	tbl, clock := newTestTable(runner, start)

	tbl.SetTimer(1, "heartbeat", 1000, true)
	tbl.SetTimer(1, "once", 1000, false)

	*clock = start.Add(1100 * time.Millisecond)
	fired := tbl.Tick()
	if len(fired) != 2 {
		t.Fatalf("expected both timers to fire, got %d", len(fired))
	}

	*clock = start.Add(2200 * time.Millisecond)
	fired = tbl.Tick()
	if len(fired) != 1 || fired[0].Name != "heartbeat" {
		t.Errorf("expected only the repeating timer to fire again, got %v", fired)
	}
}

func TestSetTimerReplacesExistingName(t *testing.T) {
	runner := &fakeRunner{}
	start := time.Unix(0, 0)
	tbl, clock := newTestTable(runner, start)

	tbl.SetTimer(1, "boom", 5000, false)
	tbl.SetTimer(1, "boom", 1000, false) // replaces, resets deadline

	*clock = start.Add(1100 * time.Millisecond)
	fired := tbl.Tick()
	if len(fired) != 1 {
		t.Fatalf("expected the replaced timer to fire at its new deadline, got %d", len(fired))
	}
}

func TestCancelEntityClearsTimersAndFSM(t *testing.T) {
	runner := &fakeRunner{}
	start := time.Unix(0, 0)
	tbl, clock := newTestTable(runner, start)

	tbl.SetTimer(1, "boom", 1000, false)
	tbl.PushFSM(1, script.FSMDef{States: []script.FSMState{{Name: "idle", OnEnter: "enter", OnTick: "tick"}}, Order: []string{"idle"}})
	tbl.FlushFSM(1)

	tbl.CancelEntity(1)

	*clock = start.Add(2000 * time.Millisecond)
	fired := tbl.Tick()
	if len(fired) != 0 {
		t.Errorf("expected no timers after cancellation, got %v", fired)
	}
	if len(runner.ran) != 1 { // only the on_enter from the push above
		t.Errorf("expected FSM stack cleared, on_tick should not fire, ran=%v", runner.ran)
	}
}

func TestFSMPushRunsOnEnterAndTickRunsOnTick(t *testing.T) {
	runner := &fakeRunner{}
	start := time.Unix(0, 0)
	tbl, _ := newTestTable(runner, start)

	tbl.PushFSM(1, script.FSMDef{
		States: []script.FSMState{{Name: "idle", OnEnter: "enter-idle", OnTick: "tick-idle"}},
		Order:  []string{"idle"},
	})
	tbl.FlushFSM(1)
	if len(runner.ran) != 1 || runner.ran[0] != "enter-idle" {
		t.Fatalf("expected on_enter to run on push, got %v", runner.ran)
	}

	tbl.Tick()
	if len(runner.ran) != 2 || runner.ran[1] != "tick-idle" {
		t.Errorf("expected on_tick to run for the top frame, got %v", runner.ran)
	}
}

func TestFSMPopRunsOnExit(t *testing.T) {
	runner := &fakeRunner{}
	start := time.Unix(0, 0)
	tbl, _ := newTestTable(runner, start)

	tbl.PushFSM(1, script.FSMDef{
		States: []script.FSMState{{Name: "idle", OnEnter: "enter", OnExit: "exit"}},
		Order:  []string{"idle"},
	})
	tbl.FlushFSM(1)
	tbl.PopFSM(1)
	tbl.FlushFSM(1)

	if len(runner.ran) != 2 || runner.ran[1] != "exit" {
		t.Errorf("expected on_exit to run on pop, got %v", runner.ran)
	}
}
