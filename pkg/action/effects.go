package action

import (
	"fmt"

	"github.com/duskward/lodestone/pkg/world"
)

// RegisterDefaultEffects installs the built-in system effect
// for every trigger that has one. Say/Emote/Send/Look/LookAt/Inventory/Exits
// are pure messaging effects; Get/Drop/Move mutate the world.
func RegisterDefaultEffects(p *Pipeline) {
	p.Register(TriggerSay, effectSay)
	p.Register(TriggerEmote, effectEmote)
	p.Register(TriggerSend, effectSend)
	p.Register(TriggerGet, effectGet)
	p.Register(TriggerDrop, effectDrop)
	p.Register(TriggerMove, effectMove)
	p.Register(TriggerLook, effectLook)
	p.Register(TriggerLookAt, effectLookAt)
	p.Register(TriggerInventory, effectInventory)
	p.Register(TriggerExits, effectExits)
	p.Register(TriggerWho, effectWho)
}

func effectSay(w *world.World, ev *Event, intent ActionIntent, msgr Messenger) error {
	room := roomOf(w, ev.Actor)
	name := actorName(w, ev.Actor)
	msgr.Tell(ev.Actor, fmt.Sprintf("You say, \"%s\"", ev.Text))
	msgr.Room(room, fmt.Sprintf("%s says, \"%s\"", name, ev.Text), ev.Actor)
	return nil
}

func effectEmote(w *world.World, ev *Event, intent ActionIntent, msgr Messenger) error {
	room := roomOf(w, ev.Actor)
	name := actorName(w, ev.Actor)
	msgr.Room(room, fmt.Sprintf("%s %s", name, ev.Text), world.Nothing)
	return nil
}

func effectSend(w *world.World, ev *Event, intent ActionIntent, msgr Messenger) error {
	name := actorName(w, ev.Actor)
	msgr.Tell(ev.Target, fmt.Sprintf("%s sends, \"%s\"", name, ev.Text))
	msgr.Tell(ev.Actor, fmt.Sprintf("You send, \"%s\"", ev.Text))
	return nil
}

func effectGet(w *world.World, ev *Event, intent ActionIntent, msgr Messenger) error {
	if err := w.Move(ev.Target, world.KindPlayer, ev.Actor); err != nil {
		return err
	}
	name, _ := w.EffectiveName(ev.Target)
	msgr.Tell(ev.Actor, fmt.Sprintf("You pick up %s.", name))
	msgr.Room(roomOf(w, ev.Actor), fmt.Sprintf("%s picks up %s.", actorName(w, ev.Actor), name), ev.Actor)
	return nil
}

func effectDrop(w *world.World, ev *Event, intent ActionIntent, msgr Messenger) error {
	room := roomOf(w, ev.Actor)
	if err := w.Move(ev.Target, world.KindRoom, room); err != nil {
		return err
	}
	name, _ := w.EffectiveName(ev.Target)
	msgr.Tell(ev.Actor, fmt.Sprintf("You drop %s.", name))
	msgr.Room(room, fmt.Sprintf("%s drops %s.", actorName(w, ev.Actor), name), ev.Actor)
	return nil
}

func effectMove(w *world.World, ev *Event, intent ActionIntent, msgr Messenger) error {
	if ev.DestRoom == world.Nothing {
		return fmt.Errorf("no exit that way")
	}
	name := actorName(w, ev.Actor)
	msgr.Room(ev.OriginRoom, fmt.Sprintf("%s leaves.", name), ev.Actor)
	if err := w.MovePlayer(ev.Actor, ev.DestRoom); err != nil {
		return err
	}
	msgr.Room(ev.DestRoom, fmt.Sprintf("%s arrives.", name), ev.Actor)
	return effectLook(w, ev, intent, msgr)
}

func effectLook(w *world.World, ev *Event, intent ActionIntent, msgr Messenger) error {
	room := roomOf(w, ev.Actor)
	r, ok := w.Room(room)
	if !ok {
		return nil
	}
	msgr.Tell(ev.Actor, r.Description)
	players, objects, err := w.RoomContents(room)
	if err != nil {
		return err
	}
	for _, id := range players {
		if id == ev.Actor {
			continue
		}
		msgr.Tell(ev.Actor, actorName(w, id)+" is here.")
	}
	for _, id := range objects {
		name, _ := w.EffectiveName(id)
		msgr.Tell(ev.Actor, "You see "+name+".")
	}
	return nil
}

func effectLookAt(w *world.World, ev *Event, intent ActionIntent, msgr Messenger) error {
	view, err := w.Lookup(ev.Target)
	if err != nil {
		return err
	}
	msgr.Tell(ev.Actor, view.Description)
	return nil
}

func effectInventory(w *world.World, ev *Event, intent ActionIntent, msgr Messenger) error {
	objects, err := w.PlayerInventory(ev.Actor)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		msgr.Tell(ev.Actor, "You are carrying nothing.")
		return nil
	}
	for _, id := range objects {
		name, _ := w.EffectiveName(id)
		msgr.Tell(ev.Actor, "You are carrying "+name+".")
	}
	return nil
}

func effectExits(w *world.World, ev *Event, intent ActionIntent, msgr Messenger) error {
	room, ok := w.Room(roomOf(w, ev.Actor))
	if !ok {
		return world.ErrNotFound
	}
	if len(room.Exits) == 0 {
		msgr.Tell(ev.Actor, "There are no obvious exits.")
		return nil
	}
	for dir := range room.Exits {
		msgr.Tell(ev.Actor, "There is an exit "+dir.String()+".")
	}
	return nil
}

func effectWho(w *world.World, ev *Event, intent ActionIntent, msgr Messenger) error {
	online := msgr.Online()
	msgr.Tell(ev.Actor, fmt.Sprintf("Players online: %d", len(online)))
	for _, id := range online {
		msgr.Tell(ev.Actor, actorName(w, id))
	}
	return nil
}

func roomOf(w *world.World, actor world.EntityID) world.EntityID {
	if p, ok := w.Player(actor); ok {
		return p.CurrentRoom
	}
	return world.Nothing
}

func actorName(w *world.World, id world.EntityID) string {
	if p, ok := w.Player(id); ok {
		return p.Username
	}
	if name, ok := w.EffectiveName(id); ok {
		return name
	}
	return "someone"
}
