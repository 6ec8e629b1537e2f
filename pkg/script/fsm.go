package script

// FSMDef is the artifact produced by fsm_builder()/build() and consumed by
// the timer scheduler's push_fsm. States are data — named script
// references, not native code — since scripts are the only place a state
// machine can be authored in this engine.
type FSMDef struct {
	States []FSMState
	Order  []string // registration order; first state is the initial state
}

// FSMState names the pre/post/init-style script to run for each phase of
// one state's lifetime.
type FSMState struct {
	Name    string
	OnEnter string
	OnTick  string
	OnExit  string
}

// fsmBuilder is the SELF-facing object returned by fsm_builder().
type fsmBuilder struct {
	def FSMDef
}

func newFSMBuilder() *fsmBuilder {
	return &fsmBuilder{}
}

func (b *fsmBuilder) prop(name string) (any, bool) { return nil, false }

func (b *fsmBuilder) method(name string, args []any) (any, error) {
	switch name {
	case "state":
		st := FSMState{Name: argString(args, 0)}
		b.def.States = append(b.def.States, st)
		b.def.Order = append(b.def.Order, st.Name)
		return b, nil
	case "on_enter":
		b.setLastState(func(s *FSMState) { s.OnEnter = argString(args, 0) })
		return b, nil
	case "on_tick":
		b.setLastState(func(s *FSMState) { s.OnTick = argString(args, 0) })
		return b, nil
	case "on_exit":
		b.setLastState(func(s *FSMState) { s.OnExit = argString(args, 0) })
		return b, nil
	case "build":
		return b.def, nil
	}
	return nil, unknownMethod("fsm_builder", name)
}

func (b *fsmBuilder) setLastState(fn func(*FSMState)) {
	if len(b.def.States) == 0 {
		return
	}
	fn(&b.def.States[len(b.def.States)-1])
}
