package world

// Move relocates an object to a new container atomically: it must appear
// removed from its old container before the insert takes effect, so a
// mid-move observer never sees the object in two places.
func (w *World) Move(object EntityID, toKind Kind, toContainer EntityID) error {
	obj, ok := w.objects[object]
	if !ok {
		return ErrNotFound
	}
	if obj.ContainerKind == toKind && obj.Container == toContainer {
		return ErrAlreadyContained
	}
	obj.ContainerKind = toKind
	obj.Container = toContainer
	w.MarkDirty(object)
	return nil
}

// MovePlayer updates a player's current room. Emitting the observable
// enter/leave events is the action pipeline's responsibility; this
// mutation only updates the location itself.
func (w *World) MovePlayer(player EntityID, toRoom EntityID) error {
	p, ok := w.players[player]
	if !ok {
		return ErrNotFound
	}
	if _, ok := w.rooms[toRoom]; !ok {
		return ErrNotFound
	}
	p.CurrentRoom = toRoom
	w.MarkDirty(player)
	return nil
}
