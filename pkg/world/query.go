package world

import "strings"

// EntityView is the read-only summary returned by Lookup: enough to render
// a name/description without exposing the underlying component types.
type EntityView struct {
	ID          EntityID
	Kind        Kind
	Name        string
	Description string
	Keywords    []string
	Subtle      bool
}

// Lookup builds an EntityView for any entity kind.
func (w *World) Lookup(id EntityID) (EntityView, error) {
	kind, ok := w.kinds[id]
	if !ok {
		return EntityView{}, ErrNotFound
	}
	switch kind {
	case KindRoom:
		r := w.rooms[id]
		return EntityView{ID: id, Kind: kind, Description: r.Description}, nil
	case KindPrototype:
		p := w.prototypes[id]
		return EntityView{ID: id, Kind: kind, Name: p.Name, Description: p.Description, Keywords: p.Keywords, Subtle: p.Flags&FlagSubtle != 0}, nil
	case KindObject:
		name, _ := w.EffectiveName(id)
		desc, _ := w.EffectiveDescription(id)
		kws, _ := w.EffectiveKeywords(id)
		flags, _ := w.EffectiveFlags(id)
		return EntityView{ID: id, Kind: kind, Name: name, Description: desc, Keywords: kws, Subtle: flags&FlagSubtle != 0}, nil
	case KindPlayer:
		p := w.players[id]
		return EntityView{ID: id, Kind: kind, Name: p.Username, Description: p.Description}, nil
	default:
		return EntityView{}, ErrNotFound
	}
}

// RoomContents lists the players and non-subtle objects visible in a room.
// Subtle objects are omitted from this listing but remain addressable by
// keyword through ResolveTarget.
func (w *World) RoomContents(room EntityID) (players []EntityID, objects []EntityID, err error) {
	if _, ok := w.rooms[room]; !ok {
		return nil, nil, ErrNotFound
	}
	for id, p := range w.players {
		if p.CurrentRoom == room {
			players = append(players, id)
		}
	}
	for id, obj := range w.objects {
		if obj.ContainerKind != KindRoom || obj.Container != room {
			continue
		}
		flags, _ := w.EffectiveFlags(id)
		if flags&FlagSubtle != 0 {
			continue
		}
		objects = append(objects, id)
	}
	sortIDs(players)
	sortIDs(objects)
	return players, objects, nil
}

// PlayerInventory lists the objects a player is carrying, in stable id order.
func (w *World) PlayerInventory(player EntityID) ([]EntityID, error) {
	if _, ok := w.players[player]; !ok {
		return nil, ErrNotFound
	}
	var objects []EntityID
	for id, obj := range w.objects {
		if obj.ContainerKind == KindPlayer && obj.Container == player {
			objects = append(objects, id)
		}
	}
	sortIDs(objects)
	return objects, nil
}

func sortIDs(ids []EntityID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// ResolveTarget implements the target search order: actor's inventory first,
// then the actor's current room's objects (case-insensitive partial-keyword
// match), then the room's players (exact-case name match, used for `send`).
// Within a set the lowest stable id wins.
func (w *World) ResolveTarget(actor EntityID, keyword string) (EntityID, bool) {
	player, ok := w.players[actor]
	if !ok {
		return Nothing, false
	}

	if id, ok := w.matchObjectsIn(KindPlayer, actor, keyword); ok {
		return id, true
	}
	if id, ok := w.matchObjectsIn(KindRoom, player.CurrentRoom, keyword); ok {
		return id, true
	}

	var best EntityID = Nothing
	for id, p := range w.players {
		if p.CurrentRoom != player.CurrentRoom {
			continue
		}
		if p.Username != keyword {
			continue
		}
		if best == Nothing || id < best {
			best = id
		}
	}
	if best != Nothing {
		return best, true
	}
	return Nothing, false
}

func (w *World) matchObjectsIn(containerKind Kind, container EntityID, keyword string) (EntityID, bool) {
	needle := strings.ToLower(keyword)
	var best EntityID = Nothing
	for id, obj := range w.objects {
		if obj.ContainerKind != containerKind || obj.Container != container {
			continue
		}
		kws, _ := w.EffectiveKeywords(id)
		for _, kw := range kws {
			if strings.Contains(strings.ToLower(kw), needle) {
				if best == Nothing || id < best {
					best = id
				}
				break
			}
		}
	}
	if best != Nothing {
		return best, true
	}
	return Nothing, false
}
