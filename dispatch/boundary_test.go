package dispatch

import (
	"testing"
	"time"

	"sage/transcriber"
)

func TestDefaultBoundary(t *testing.T) {
	cases := []struct {
		name   string
		buffer string
		final  bool
		want   Boundary
	}{
		{"end of turn submits", "what is a heap", true, Boundary{Submit: true}},
		{"question mark arms short flush", "what is a heap?", false, Boundary{FlushAfter: time.Second}},
		{"period arms short flush", "explain mutexes.", false, Boundary{FlushAfter: time.Second}},
		{"trailing quote ignored", `he said "done."`, false, Boundary{FlushAfter: time.Second}},
		{"mid sentence waits for pause", "what is a", false, Boundary{FlushAfter: 3 * time.Second}},
		{"whitespace only waits", "   ", false, Boundary{FlushAfter: 3 * time.Second}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frag := transcriber.Fragment{EndOfTurn: tc.final}
			got := DefaultBoundary(tc.buffer, frag)
			if got != tc.want {
				t.Fatalf("DefaultBoundary(%q) = %+v, want %+v", tc.buffer, got, tc.want)
			}
		})
	}
}

func TestEndsSentence(t *testing.T) {
	if endsSentence("") {
		t.Fatal("empty string reported as finished")
	}
	if !endsSentence("done!") {
		t.Fatal("exclamation not recognized")
	}
	if endsSentence("still going,") {
		t.Fatal("comma recognized as sentence end")
	}
}
