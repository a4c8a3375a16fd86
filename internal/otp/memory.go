package otp

import (
	"context"
	"sync"
)

// MemoryBackend keeps challenges in process memory. Codes are lost on restart.
type MemoryBackend struct {
	mu    sync.Mutex
	items map[string]Challenge
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]Challenge)}
}

func (b *MemoryBackend) Put(_ context.Context, email string, challenge Challenge) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[email] = challenge
	return nil
}

func (b *MemoryBackend) Get(_ context.Context, email string) (*Challenge, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	challenge, ok := b.items[email]
	if !ok {
		return nil, nil
	}
	return &challenge, nil
}

func (b *MemoryBackend) Delete(_ context.Context, email string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.items, email)
	return nil
}
