// Package transcriber streams microphone PCM to a speech-to-text service
// and yields transcript fragments as they are committed.
package transcriber

import (
	"context"
	"time"
)

// Fragment is one partial or final unit of transcribed speech. Text holds
// only the words not yet emitted for the current turn, so consumers can
// append fragments to a rolling buffer. EndOfTurn marks the service's
// turn boundary.
type Fragment struct {
	Text      string
	EndOfTurn bool
	At        time.Time
}

type Session interface {
	// Feed accepts raw PCM16 audio. Safe to call from the capture callback.
	Feed(pcm []byte)
	// Updates yields fragments until the session closes.
	Updates() <-chan Fragment
	// Close flushes buffered audio, terminates the stream, and returns
	// any transport error. Updates is closed before Close returns.
	Close() error
}

type Transcriber interface {
	Name() string
	NewSession(ctx context.Context) (Session, error)
}
