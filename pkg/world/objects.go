package world

import "github.com/duskward/lodestone/pkg/proto"

// CreateObject allocates a new Object from prototypeID and places it in
// container (a Room or a Player inventory).
func (w *World) CreateObject(prototypeID EntityID, inheritScripts bool, containerKind Kind, container EntityID) (EntityID, error) {
	if _, ok := w.prototypes[prototypeID]; !ok {
		return Nothing, ErrNotFound
	}
	id := w.allocate(KindObject)
	w.objects[id] = &Object{
		PrototypeID:    prototypeID,
		InheritScripts: inheritScripts,
		ContainerKind:  containerKind,
		Container:      container,
	}
	w.MarkDirty(id)
	return id, nil
}

// Object returns the Object component for id.
func (w *World) Object(id EntityID) (*Object, bool) {
	o, ok := w.objects[id]
	return o, ok
}

// EffectiveName, EffectiveDescription, EffectiveKeywords and EffectiveFlags
// resolve an object's field against its prototype chain, backed by the pure
// resolver in pkg/proto.
func (w *World) EffectiveName(id EntityID) (string, bool) {
	obj, ok := w.objects[id]
	if !ok {
		return "", false
	}
	p, ok := w.prototypes[obj.PrototypeID]
	if !ok {
		return "", false
	}
	return proto.String(obj.OverrideName, p.Name), true
}

func (w *World) EffectiveDescription(id EntityID) (string, bool) {
	obj, ok := w.objects[id]
	if !ok {
		return "", false
	}
	p, ok := w.prototypes[obj.PrototypeID]
	if !ok {
		return "", false
	}
	return proto.String(obj.OverrideDescription, p.Description), true
}

func (w *World) EffectiveKeywords(id EntityID) ([]string, bool) {
	obj, ok := w.objects[id]
	if !ok {
		return nil, false
	}
	p, ok := w.prototypes[obj.PrototypeID]
	if !ok {
		return nil, false
	}
	return proto.Keywords(obj.OverrideKeywords, p.Keywords), true
}

func (w *World) EffectiveFlags(id EntityID) (PrototypeFlag, bool) {
	obj, ok := w.objects[id]
	if !ok {
		return 0, false
	}
	p, ok := w.prototypes[obj.PrototypeID]
	if !ok {
		return 0, false
	}
	return proto.Bits(obj.OverrideFlags, p.Flags), true
}

// RemoveObject deletes an object outright (not a container move).
func (w *World) RemoveObject(id EntityID) error {
	if _, ok := w.objects[id]; !ok {
		return ErrNotFound
	}
	delete(w.objects, id)
	delete(w.kinds, id)
	w.fireRemoved(id)
	return nil
}
