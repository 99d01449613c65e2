package transcriber

import (
	"context"
	"time"
)

// FakeTranscriber replays a scripted sequence of fragments.
type FakeTranscriber struct {
	fragments []Fragment
	err       error
}

func NewFake(fragments []Fragment, err error) *FakeTranscriber {
	return &FakeTranscriber{fragments: fragments, err: err}
}

func (f *FakeTranscriber) Name() string { return "fake" }

func (f *FakeTranscriber) NewSession(_ context.Context) (Session, error) {
	updates := make(chan Fragment, len(f.fragments)+1)
	sess := &fakeSession{err: f.err, updates: updates, done: make(chan struct{})}
	go func() {
		for _, frag := range f.fragments {
			if frag.At.IsZero() {
				frag.At = time.Now()
			}
			select {
			case updates <- frag:
			case <-sess.done:
				return
			}
		}
	}()
	return sess, nil
}

type fakeSession struct {
	err     error
	updates chan Fragment
	done    chan struct{}
	closed  bool
}

func (s *fakeSession) Feed([]byte) {}

func (s *fakeSession) Updates() <-chan Fragment { return s.updates }

func (s *fakeSession) Close() error {
	if !s.closed {
		s.closed = true
		close(s.done)
		close(s.updates)
	}
	return s.err
}
