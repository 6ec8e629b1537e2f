package script

import (
	"fmt"
	"math/rand"

	"github.com/duskward/lodestone/pkg/action"
	"github.com/duskward/lodestone/pkg/world"
)

func unknownMethod(receiver, name string) error {
	return fmt.Errorf("%s has no method %q", receiver, name)
}

func argString(args []any, i int) string {
	if i >= len(args) {
		return ""
	}
	s, _ := args[i].(string)
	return s
}

func argFloat(args []any, i int) float64 {
	if i >= len(args) {
		return 0
	}
	f, _ := args[i].(float64)
	return f
}

func argEntity(args []any, i int) world.EntityID {
	if i >= len(args) {
		return world.Nothing
	}
	f, ok := args[i].(float64)
	if !ok {
		return world.Nothing
	}
	return world.EntityID(int64(f))
}

func entityValue(id world.EntityID) float64 { return float64(id) }

// arrayObject wraps a list of values so scripts can inspect it with
// .length and .at(i) without the language needing real list literals.
type arrayObject struct{ items []any }

func (a *arrayObject) prop(name string) (any, bool) {
	if name == "length" {
		return float64(len(a.items)), true
	}
	return nil, false
}

func (a *arrayObject) method(name string, args []any) (any, error) {
	switch name {
	case "at":
		i := int(argFloat(args, 0))
		if i < 0 || i >= len(a.items) {
			return nil, nil
		}
		return a.items[i], nil
	}
	return nil, unknownMethod("array", name)
}

// selfObject implements SELF: messaging, timers, script-data, and
// FSM stack control, all scoped to the attached entity.
type selfObject struct {
	entity world.EntityID
	host   *Host
}

func (s *selfObject) prop(name string) (any, bool) { return nil, false }

func (s *selfObject) method(name string, args []any) (any, error) {
	switch name {
	case "emote":
		s.host.messenger().Room(s.host.roomOf(s.entity), fmt.Sprintf("%s %s", s.host.nameOf(s.entity), argString(args, 0)), world.Nothing)
		return nil, nil
	case "message":
		s.host.messenger().Tell(s.entity, argString(args, 0))
		return nil, nil
	case "say":
		text := argString(args, 0)
		room := s.host.roomOf(s.entity)
		s.host.messenger().Tell(s.entity, fmt.Sprintf("You say, \"%s\"", text))
		s.host.messenger().Room(room, fmt.Sprintf("%s says, \"%s\"", s.host.nameOf(s.entity), text), s.entity)
		return nil, nil
	case "send":
		target := argEntity(args, 0)
		s.host.messenger().Tell(target, fmt.Sprintf("%s sends, \"%s\"", s.host.nameOf(s.entity), argString(args, 1)))
		return nil, nil
	case "whisper":
		target := argEntity(args, 0)
		s.host.messenger().Tell(target, fmt.Sprintf("%s whispers, \"%s\"", s.host.nameOf(s.entity), argString(args, 1)))
		return nil, nil
	case "emote_after":
		s.host.scheduler().After(argFloat(args, 0), func() {
			s.host.messenger().Room(s.host.roomOf(s.entity), fmt.Sprintf("%s %s", s.host.nameOf(s.entity), argString(args, 1)), world.Nothing)
		})
		return nil, nil
	case "message_after":
		s.host.scheduler().After(argFloat(args, 0), func() { s.host.messenger().Tell(s.entity, argString(args, 1)) })
		return nil, nil
	case "say_after":
		text := argString(args, 1)
		s.host.scheduler().After(argFloat(args, 0), func() {
			room := s.host.roomOf(s.entity)
			s.host.messenger().Tell(s.entity, fmt.Sprintf("You say, \"%s\"", text))
			s.host.messenger().Room(room, fmt.Sprintf("%s says, \"%s\"", s.host.nameOf(s.entity), text), s.entity)
		})
		return nil, nil
	case "send_after":
		target := argEntity(args, 1)
		text := argString(args, 2)
		s.host.scheduler().After(argFloat(args, 0), func() {
			s.host.messenger().Tell(target, fmt.Sprintf("%s sends, \"%s\"", s.host.nameOf(s.entity), text))
		})
		return nil, nil
	case "whisper_after":
		target := argEntity(args, 1)
		text := argString(args, 2)
		s.host.scheduler().After(argFloat(args, 0), func() {
			s.host.messenger().Tell(target, fmt.Sprintf("%s whispers, \"%s\"", s.host.nameOf(s.entity), text))
		})
		return nil, nil
	case "timer":
		s.host.scheduler().SetTimer(s.entity, argString(args, 0), argFloat(args, 1), false)
		return nil, nil
	case "timer_repeating":
		s.host.scheduler().SetTimer(s.entity, argString(args, 0), argFloat(args, 1), true)
		return nil, nil
	case "get":
		return s.host.dataGet(s.entity, argString(args, 0)), nil
	case "set":
		s.host.dataSet(s.entity, argString(args, 0), argString(args, 1))
		return nil, nil
	case "remove":
		s.host.dataRemove(s.entity, argString(args, 0))
		return nil, nil
	case "push_fsm":
		def, _ := args[0].(FSMDef)
		s.host.scheduler().PushFSM(s.entity, def)
		return nil, nil
	case "pop_fsm":
		s.host.scheduler().PopFSM(s.entity)
		return nil, nil
	}
	return nil, unknownMethod("SELF", name)
}

// eventObject implements EVENT: a read-only snapshot of the
// triggering action.Event.
type eventObject struct{ ev *action.Event }

func (e *eventObject) prop(name string) (any, bool) {
	if e.ev == nil {
		return nil, false
	}
	switch name {
	case "actor":
		return entityValue(e.ev.Actor), true
	case "target":
		return entityValue(e.ev.Target), true
	case "target_resolved":
		return e.ev.TargetResolved, true
	case "direction":
		return e.ev.Direction.String(), true
	case "emote", "text":
		return e.ev.Text, true
	case "timer_name":
		return e.ev.TimerName, true
	}
	return nil, false
}

func (e *eventObject) method(name string, args []any) (any, error) {
	if e.ev == nil {
		return false, nil
	}
	switch name {
	case "is_move":
		return e.ev.IsMove(), nil
	case "is_emote":
		return e.ev.IsEmote(), nil
	case "is_say":
		return e.ev.IsSay(), nil
	case "is_get":
		return e.ev.IsGet(), nil
	case "is_drop":
		return e.ev.IsDrop(), nil
	case "is_look":
		return e.ev.IsLook(), nil
	case "is_look_at":
		return e.ev.IsLookAt(), nil
	case "is_send":
		return e.ev.IsSend(), nil
	case "is_use":
		return e.ev.IsUse(), nil
	case "is_timer":
		return e.ev.IsTimer(), nil
	case "is_inventory":
		return e.ev.IsInventory(), nil
	case "is_exits":
		return e.ev.IsExits(), nil
	}
	return nil, unknownMethod("EVENT", name)
}

// worldObject implements WORLD: entity classifiers, accessors, and
// the one mutator, object_new. actor is the attached entity running the
// current script, used to resolve object_new's destination room.
type worldObject struct {
	host  *Host
	actor world.EntityID
}

func (w *worldObject) prop(name string) (any, bool) { return nil, false }

func (w *worldObject) method(name string, args []any) (any, error) {
	ww := w.host.world
	switch name {
	case "is_player":
		k, ok := ww.KindOf(argEntity(args, 0))
		return ok && k == world.KindPlayer, nil
	case "is_room":
		k, ok := ww.KindOf(argEntity(args, 0))
		return ok && k == world.KindRoom, nil
	case "is_object":
		k, ok := ww.KindOf(argEntity(args, 0))
		return ok && k == world.KindObject, nil
	case "name":
		return w.host.nameOf(argEntity(args, 0)), nil
	case "description":
		view, err := ww.Lookup(argEntity(args, 0))
		if err != nil {
			return "", nil
		}
		return view.Description, nil
	case "keywords":
		view, err := ww.Lookup(argEntity(args, 0))
		if err != nil {
			return &arrayObject{}, nil
		}
		items := make([]any, len(view.Keywords))
		for i, k := range view.Keywords {
			items[i] = k
		}
		return &arrayObject{items: items}, nil
	case "location":
		if p, ok := ww.Player(argEntity(args, 0)); ok {
			return entityValue(p.CurrentRoom), nil
		}
		return entityValue(world.Nothing), nil
	case "container":
		if o, ok := ww.Object(argEntity(args, 0)); ok {
			return entityValue(o.Container), nil
		}
		return entityValue(world.Nothing), nil
	case "contents":
		_, objects, err := ww.RoomContents(argEntity(args, 0))
		if err != nil {
			return &arrayObject{}, nil
		}
		items := make([]any, len(objects))
		for i, id := range objects {
			items[i] = entityValue(id)
		}
		return &arrayObject{items: items}, nil
	case "players":
		players, _, err := ww.RoomContents(argEntity(args, 0))
		if err != nil {
			return &arrayObject{}, nil
		}
		items := make([]any, len(players))
		for i, id := range players {
			items[i] = entityValue(id)
		}
		return &arrayObject{items: items}, nil
	case "object_new":
		room := w.host.roomOf(w.actor)
		newID, err := w.host.CreateObjectAndInit(room, argEntity(args, 0))
		if err != nil {
			return entityValue(world.Nothing), nil
		}
		return entityValue(newID), nil
	}
	return nil, unknownMethod("WORLD", name)
}

type timeObject struct{}

func (timeObject) prop(name string) (any, bool) { return nil, false }

func (timeObject) method(name string, args []any) (any, error) {
	switch name {
	case "ms":
		return argFloat(args, 0), nil
	case "secs":
		return argFloat(args, 0) * 1000, nil
	}
	return nil, unknownMethod("time", name)
}

type randomObject struct{ rng *rand.Rand }

func (r *randomObject) prop(name string) (any, bool) { return nil, false }

func (r *randomObject) method(name string, args []any) (any, error) {
	switch name {
	case "chance":
		return r.rng.Float64() < argFloat(args, 0), nil
	case "choose":
		if len(args) == 0 {
			return nil, nil
		}
		return args[r.rng.Intn(len(args))], nil
	case "range":
		lo, hi := argFloat(args, 0), argFloat(args, 1)
		if hi <= lo {
			return lo, nil
		}
		return lo + r.rng.Float64()*(hi-lo), nil
	}
	return nil, unknownMethod("random", name)
}

// fsmBuilderFunc is the bare global function fsm_builder().
type fsmBuilderFunc struct{}

func (fsmBuilderFunc) call(args []any) (any, error) { return newFSMBuilder(), nil }
