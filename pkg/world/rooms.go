package world

// CreateRoom allocates a new Room entity.
func (w *World) CreateRoom(description string) EntityID {
	id := w.allocate(KindRoom)
	w.rooms[id] = NewRoom(description)
	w.MarkDirty(id)
	return id
}

// Room returns the Room component for id.
func (w *World) Room(id EntityID) (*Room, bool) {
	r, ok := w.rooms[id]
	return r, ok
}

// Link creates a one-way exit from `from` in direction `dir` to `to`. Room
// creation helper commands call this twice (with opposite directions) to
// create a reciprocal link; the engine itself never implies the reverse.
func (w *World) Link(from EntityID, dir Direction, to EntityID) error {
	room, ok := w.rooms[from]
	if !ok {
		return ErrNotFound
	}
	room.Exits[dir] = to
	w.MarkDirty(from)
	return nil
}

// Unlink removes an exit.
func (w *World) Unlink(from EntityID, dir Direction) error {
	room, ok := w.rooms[from]
	if !ok {
		return ErrNotFound
	}
	delete(room.Exits, dir)
	w.MarkDirty(from)
	return nil
}

// RemoveRoom deletes a room, teleporting its occupants to SpawnRoom and
// cascading deletion of its exits (both the room's own and any other
// room's exit pointing at it).
func (w *World) RemoveRoom(id EntityID) error {
	if _, ok := w.rooms[id]; !ok {
		return ErrNotFound
	}

	for pid, p := range w.players {
		if p.CurrentRoom == id {
			p.CurrentRoom = w.SpawnRoom
			w.MarkDirty(pid)
		}
	}

	var toRemove []EntityID
	for objID, obj := range w.objects {
		if obj.ContainerKind == KindRoom && obj.Container == id {
			toRemove = append(toRemove, objID)
		}
	}
	for _, objID := range toRemove {
		delete(w.objects, objID)
		delete(w.kinds, objID)
		w.fireRemoved(objID)
	}

	for _, other := range w.rooms {
		for dir, dest := range other.Exits {
			if dest == id {
				delete(other.Exits, dir)
			}
		}
	}

	delete(w.rooms, id)
	delete(w.kinds, id)
	w.fireRemoved(id)
	return nil
}
