package color

import "testing"

func TestParsePlainText(t *testing.T) {
	segs := Parse("hello world")
	if len(segs) != 1 || segs[0].Kind != Text || segs[0].Text != "hello world" {
		t.Fatalf("unexpected segments: %+v", segs)
	}
}

func TestParseEscapedPipe(t *testing.T) {
	segs := Parse("a||b")
	if len(segs) != 1 || segs[0].Text != "a|b" {
		t.Fatalf("expected escaped pipe collapsed to one, got %+v", segs)
	}
}

func TestParseNamedColorOpensAndCloses(t *testing.T) {
	segs := Parse("|red|alert|-|")
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d: %+v", len(segs), segs)
	}
	if segs[0].Kind != Start || segs[0].Hex != "#ff0000" {
		t.Errorf("expected red start, got %+v", segs[0])
	}
	if segs[1].Kind != Text || segs[1].Text != "alert" {
		t.Errorf("expected text 'alert', got %+v", segs[1])
	}
	if segs[2].Kind != End {
		t.Errorf("expected explicit end, got %+v", segs[2])
	}
}

func TestParseHexColor(t *testing.T) {
	segs := Parse("|#00ffaa|x")
	if len(segs) != 3 || segs[0].Hex != "#00ffaa" {
		t.Fatalf("unexpected segments: %+v", segs)
	}
}

func TestParseUnclosedColorClosesImplicitly(t *testing.T) {
	segs := Parse("|blue|no closer")
	if len(segs) != 3 {
		t.Fatalf("expected start, text, implicit end, got %+v", segs)
	}
	if segs[2].Kind != End {
		t.Errorf("expected the trailing region to be implicitly closed")
	}
}

func TestParseNestedColors(t *testing.T) {
	segs := Parse("|red|outer|blue|inner|-||-|")
	var starts, ends int
	for _, s := range segs {
		switch s.Kind {
		case Start:
			starts++
		case End:
			ends++
		}
	}
	if starts != 2 || ends != 2 {
		t.Errorf("expected 2 starts and 2 ends, got %d/%d", starts, ends)
	}
}

func TestParseUnknownTokenPassesThrough(t *testing.T) {
	segs := Parse("|nonsense|")
	if len(segs) != 1 || segs[0].Kind != Text || segs[0].Text != "|nonsense|" {
		t.Fatalf("expected unknown token literal, got %+v", segs)
	}
}

func TestParsePaletteIndex(t *testing.T) {
	segs := Parse("|9|red-ish")
	if len(segs) != 3 || segs[0].Hex != "#ff0000" {
		t.Fatalf("expected xterm index 9 to resolve to bright red, got %+v", segs)
	}
}
