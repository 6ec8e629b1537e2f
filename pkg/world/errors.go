package world

import "errors"

// ErrNotFound is returned by Lookup and friends for an unknown id.
var ErrNotFound = errors.New("world: entity not found")

// ErrAlreadyContained is a diagnostic-only error: the engine must never
// produce a state where an object would end up in two containers at once.
// Seeing it surfaced means an invariant was about to break.
var ErrAlreadyContained = errors.New("world: object already contained elsewhere")

// ErrWrongKind is returned when an operation expects one entity kind and
// finds another (e.g. Room() called on a Player id).
var ErrWrongKind = errors.New("world: entity is not the expected kind")

// ErrPrototypeInUse is returned by RemovePrototype when an Object still
// references it.
var ErrPrototypeInUse = errors.New("world: prototype still referenced by an object")
