package world

// RemovalHook is called after an entity has been deleted from the world,
// so collaborators that key their own state off entity ids (script
// attachments, timers, FSM stacks) can cascade the deletion without World
// needing to know about them.
type RemovalHook func(id EntityID)

// hookedRemoval holds the removal hooks of one World: each World keeps its own list.
type hookedRemoval struct {
	hooks []RemovalHook
}

// OnEntityRemoved registers a hook invoked whenever RemoveObject, RemoveRoom,
// RemovePlayer or RemovePrototype deletes an entity.
func (w *World) OnEntityRemoved(hook RemovalHook) {
	w.removal.hooks = append(w.removal.hooks, hook)
}

func (w *World) fireRemoved(id EntityID) {
	for _, h := range w.removal.hooks {
		h(id)
	}
}
