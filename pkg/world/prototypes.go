package world

// CreatePrototype allocates a new Prototype entity.
func (w *World) CreatePrototype(name, description string, keywords []string, flags PrototypeFlag) EntityID {
	id := w.allocate(KindPrototype)
	w.prototypes[id] = &Prototype{
		Name:        name,
		Description: description,
		Keywords:    keywords,
		Flags:       flags,
	}
	w.MarkDirty(id)
	return id
}

// Prototype returns the Prototype component for id.
func (w *World) Prototype(id EntityID) (*Prototype, bool) {
	p, ok := w.prototypes[id]
	return p, ok
}

// RemovePrototype deletes a prototype. Forbidden while any Object
// references it.
func (w *World) RemovePrototype(id EntityID) error {
	if _, ok := w.prototypes[id]; !ok {
		return ErrNotFound
	}
	for _, obj := range w.objects {
		if obj.PrototypeID == id {
			return ErrPrototypeInUse
		}
	}
	delete(w.prototypes, id)
	delete(w.kinds, id)
	w.fireRemoved(id)
	return nil
}
