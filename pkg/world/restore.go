package world

import "strings"

// The RestoreX family reconstructs entities at their originally persisted
// ids, for the store's load path. Unlike CreateX, they never allocate a
// new id and never mark the entity dirty (a freshly loaded world starts
// clean). Callers must call SetNextID once loading is complete.

func (w *World) RestoreRoom(id EntityID, room *Room) {
	w.kinds[id] = KindRoom
	w.rooms[id] = room
}

func (w *World) RestorePrototype(id EntityID, p *Prototype) {
	w.kinds[id] = KindPrototype
	w.prototypes[id] = p
}

func (w *World) RestoreObject(id EntityID, o *Object) {
	w.kinds[id] = KindObject
	w.objects[id] = o
}

func (w *World) RestorePlayer(id EntityID, p *Player) {
	w.kinds[id] = KindPlayer
	w.players[id] = p
	w.usernames[strings.ToLower(p.Username)] = id
}
