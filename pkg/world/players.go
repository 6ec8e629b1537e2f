package world

import "strings"

// CreatePlayer allocates a new Player entity, placing it in room and
// indexing it by lowercased username for LookupPlayer.
func (w *World) CreatePlayer(username, passwordHash string, room EntityID) EntityID {
	id := w.allocate(KindPlayer)
	w.players[id] = NewPlayer(username, passwordHash, room)
	w.usernames[strings.ToLower(username)] = id
	w.MarkDirty(id)
	return id
}

// Player returns the Player component for id.
func (w *World) Player(id EntityID) (*Player, bool) {
	p, ok := w.players[id]
	return p, ok
}

// LookupPlayer resolves a username (case-insensitive) to its entity id.
func (w *World) LookupPlayer(username string) (EntityID, bool) {
	id, ok := w.usernames[strings.ToLower(username)]
	return id, ok
}

// RemovePlayer deletes a player permanently, cascading deletion of every
// object it carries.
func (w *World) RemovePlayer(id EntityID) error {
	p, ok := w.players[id]
	if !ok {
		return ErrNotFound
	}

	var toRemove []EntityID
	for objID, obj := range w.objects {
		if obj.ContainerKind == KindPlayer && obj.Container == id {
			toRemove = append(toRemove, objID)
		}
	}
	for _, objID := range toRemove {
		delete(w.objects, objID)
		delete(w.kinds, objID)
		w.fireRemoved(objID)
	}

	delete(w.usernames, strings.ToLower(p.Username))
	delete(w.players, id)
	delete(w.kinds, id)
	w.fireRemoved(id)
	return nil
}
