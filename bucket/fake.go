package bucket

import (
	"context"
	"sync"
)

// FakeLister serves scripted listings: each call to List returns the next
// scripted slice, repeating the last one once the script runs out.
type FakeLister struct {
	mu       sync.Mutex
	listings [][]Object
	calls    int
	data     map[string][]byte
	listErr  error
	dlErr    error
}

func NewFakeLister(listings ...[]Object) *FakeLister {
	return &FakeLister{listings: listings, data: make(map[string][]byte)}
}

func (f *FakeLister) SetData(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = data
}

func (f *FakeLister) SetErrors(listErr, dlErr error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = listErr
	f.dlErr = dlErr
}

func (f *FakeLister) List(_ context.Context) ([]Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.listings) == 0 {
		return nil, nil
	}
	idx := f.calls
	if idx >= len(f.listings) {
		idx = len(f.listings) - 1
	}
	f.calls++
	return append([]Object(nil), f.listings[idx]...), nil
}

func (f *FakeLister) Download(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dlErr != nil {
		return nil, f.dlErr
	}
	if data, ok := f.data[key]; ok {
		return data, nil
	}
	return []byte("png"), nil
}

func (f *FakeLister) ListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
