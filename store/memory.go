package store

import (
	"context"
	"sync"
)

// Memory keeps the encoded document in process. Loads decode a fresh copy
// so callers never share state with the store.
type Memory struct {
	mu      sync.RWMutex
	payload []byte
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Decode(m.payload)
}

func (m *Memory) Save(_ context.Context, d *Document) error {
	b, err := Encode(d)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = b
	return nil
}

func (m *Memory) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payload = nil
	return nil
}

// Raw returns the stored bytes.
func (m *Memory) Raw() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.payload...)
}

func (m *Memory) Close() error { return nil }
