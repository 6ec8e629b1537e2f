package control

import (
	"testing"

	"github.com/duskward/lodestone/pkg/world"
)

func TestObjectOverrideThenInheritRestoresPrototype(t *testing.T) {
	l := newTestLoop(t)
	proto := l.world.CreatePrototype("an apple", "A plain apple.", []string{"apple"}, 0)
	obj, err := l.world.CreateObject(proto, true, world.KindRoom, l.world.SpawnRoom)
	if err != nil {
		t.Fatalf("CreateObject: %v", err)
	}

	s := newTestSession(l, 1)

	l.doObjectOverride(s, obj, `name=shiny apple`)
	name, _ := l.world.EffectiveName(obj)
	if name != "shiny apple" {
		t.Fatalf("expected overridden name, got %q", name)
	}

	l.doObjectInherit(s, obj, "name")
	o, _ := l.world.Object(obj)
	if o.OverrideName != nil {
		t.Fatalf("expected OverrideName to be nilled, got %v", o.OverrideName)
	}
	name, _ = l.world.EffectiveName(obj)
	if name != "an apple" {
		t.Fatalf("expected fallback prototype name after inherit, got %q", name)
	}
}

func TestObjectInheritKeywordsClearsToNilNotEmptySlice(t *testing.T) {
	l := newTestLoop(t)
	proto := l.world.CreatePrototype("a key", "A small key.", []string{"key"}, 0)
	obj, _ := l.world.CreateObject(proto, true, world.KindRoom, l.world.SpawnRoom)

	s := newTestSession(l, 1)
	l.doObjectOverride(s, obj, "keywords=brass,key")
	l.doObjectInherit(s, obj, "keywords")

	o, _ := l.world.Object(obj)
	if o.OverrideKeywords != nil {
		t.Fatalf("expected OverrideKeywords nil after inherit, got %v", o.OverrideKeywords)
	}
}

func TestObjectInheritUnknownFieldRejected(t *testing.T) {
	l := newTestLoop(t)
	proto := l.world.CreatePrototype("a rock", "A rock.", []string{"rock"}, 0)
	obj, _ := l.world.CreateObject(proto, true, world.KindRoom, l.world.SpawnRoom)

	s := newTestSession(l, 1)
	l.doObjectInherit(s, obj, "color")

	lines := s.DrainOutbound()
	if len(lines) != 1 || len(lines[0].Segments) == 0 || lines[0].Segments[0].Text != "bad flag" {
		t.Fatalf("expected a bad flag response, got %+v", lines)
	}
}
