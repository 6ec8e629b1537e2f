// Package proto implements the prototype inheritance resolver: a
// pure function of an Object and its Prototype that computes the effective
// value of each inheritable field, honoring the object's per-field override.
//
// Inheritance is single-level: an Object references exactly one Prototype,
// and there is no prototype-of-prototype chain. The resolver takes plain
// values rather than importing pkg/world so it stays a leaf package with no
// dependency on the entity store it resolves fields for.
package proto

// String returns the effective value of a nullable-override text field:
// the override if present, else the prototype's base value.
func String(override *string, base string) string {
	if override != nil {
		return *override
	}
	return base
}

// Keywords returns the effective keyword list: override if the object
// overrides keywords at all (even with an empty, non-nil list), else base.
// There is no union of the two lists.
func Keywords(override, base []string) []string {
	if override != nil {
		return override
	}
	return base
}

// Bits returns the effective value of a nullable-override bitset field, for
// any of the engine's ~uint32 flag types.
func Bits[T ~uint32](override *T, base T) T {
	if override != nil {
		return *override
	}
	return base
}
