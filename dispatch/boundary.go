package dispatch

import (
	"strings"
	"time"

	"sage/transcriber"
)

// Boundary is a policy verdict for the buffer after one fragment landed.
// Submit wins over FlushAfter; a zero value means keep accumulating.
type Boundary struct {
	Submit     bool
	FlushAfter time.Duration
}

// BoundaryPolicy decides when the rolling transcript buffer holds a complete
// question. buffer already includes the fragment just appended.
type BoundaryPolicy func(buffer string, frag transcriber.Fragment) Boundary

const (
	// Speakers often tack a clause onto a finished sentence, so a short
	// grace period follows punctuation before the buffer is submitted.
	sentenceFlushDelay = 1 * time.Second
	// Without punctuation, only a real pause in speech ends the question.
	pauseFlushDelay = 3 * time.Second
)

// DefaultBoundary submits on the provider's end-of-turn signal and otherwise
// arms a debounce timer sized by whether the text looks finished.
func DefaultBoundary(buffer string, frag transcriber.Fragment) Boundary {
	if frag.EndOfTurn {
		return Boundary{Submit: true}
	}
	if endsSentence(buffer) {
		return Boundary{FlushAfter: sentenceFlushDelay}
	}
	return Boundary{FlushAfter: pauseFlushDelay}
}

func endsSentence(s string) bool {
	s = strings.TrimRight(strings.TrimSpace(s), "\"')")
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '.', '?', '!':
		return true
	}
	return false
}

func trimSpeech(s string) string {
	return strings.TrimSpace(s)
}
