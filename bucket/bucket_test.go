package bucket

import (
	"testing"
	"time"
)

func TestIsPNG(t *testing.T) {
	for _, tt := range []struct {
		name string
		want bool
	}{
		{"q1.png", true},
		{"shots/q1.PNG", true},
		{"q1.jpg", false},
		{"q1.png.bak", false},
		{"", false},
	} {
		if got := IsPNG(tt.name); got != tt.want {
			t.Errorf("IsPNG(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	if got := BaseName("uploads/2025/shot_20251201_144858.png"); got != "shot_20251201_144858.png" {
		t.Errorf("BaseName = %q", got)
	}
	if got := BaseName("q1.png"); got != "q1.png" {
		t.Errorf("BaseName = %q", got)
	}
}

func TestNameTime(t *testing.T) {
	ts, ok := NameTime("shot_20251201_144858.png")
	if !ok {
		t.Fatal("expected parseable timestamp")
	}
	want := time.Date(2025, 12, 1, 14, 48, 58, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("got %v, want %v", ts, want)
	}

	// Trailing suffix after the clock digits is tolerated.
	ts, ok = NameTime("screen_20251201_144858123.png")
	if !ok {
		t.Fatal("expected parseable timestamp with suffix")
	}
	if !ts.Equal(want) {
		t.Errorf("got %v, want %v", ts, want)
	}

	for _, name := range []string{"q1.png", "shot_notadate_norclock.png", "20251201.png"} {
		if _, ok := NameTime(name); ok {
			t.Errorf("NameTime(%q) should not parse", name)
		}
	}
}

func TestFakeListerScript(t *testing.T) {
	f := NewFakeLister(
		[]Object{{Name: "q1.png", Key: "q1.png"}},
		[]Object{{Name: "q1.png", Key: "q1.png"}, {Name: "q2.png", Key: "q2.png"}},
	)

	first, err := f.List(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("first listing has %d objects", len(first))
	}

	second, _ := f.List(t.Context())
	third, _ := f.List(t.Context())
	if len(second) != 2 || len(third) != 2 {
		t.Errorf("later listings = %d, %d objects, want 2, 2", len(second), len(third))
	}
}
