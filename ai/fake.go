package ai

import (
	"context"
	"sync"
)

// FakeAnswerer returns canned answers and records every question it sees.
type FakeAnswerer struct {
	Answer Answer
	Err    error
	// Delay, when non-nil, is closed by the test to release blocked calls.
	Delay chan struct{}

	mu     sync.Mutex
	texts  []string
	images []string
}

func (f *FakeAnswerer) AnswerText(ctx context.Context, transcript string) (Answer, error) {
	f.mu.Lock()
	f.texts = append(f.texts, transcript)
	f.mu.Unlock()
	return f.respond(ctx)
}

func (f *FakeAnswerer) AnswerImage(ctx context.Context, name string, _ []byte) (Answer, error) {
	f.mu.Lock()
	f.images = append(f.images, name)
	f.mu.Unlock()
	return f.respond(ctx)
}

func (f *FakeAnswerer) respond(ctx context.Context) (Answer, error) {
	if f.Delay != nil {
		select {
		case <-f.Delay:
		case <-ctx.Done():
			return Answer{}, ctx.Err()
		}
	}
	if f.Err != nil {
		return Answer{}, f.Err
	}
	return f.Answer, nil
}

func (f *FakeAnswerer) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func (f *FakeAnswerer) Images() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.images...)
}
