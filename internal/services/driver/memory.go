package driver

import "sync"

// Memory is a headless driver that keeps the last rendered frame. It backs
// simulation runs and tests.
type Memory struct {
	mu       sync.RWMutex
	buffer   []uint32
	last     []uint32
	renders  int
	shutdown bool

	// RenderErr, when set, is returned by the next Render calls.
	RenderErr error
}

// NewMemory creates a memory driver for ledCount pixels.
func NewMemory(ledCount int) *Memory {
	return &Memory{
		buffer: make([]uint32, ledCount),
		last:   make([]uint32, ledCount),
	}
}

// Buffer implements Driver.
func (m *Memory) Buffer() []uint32 {
	return m.buffer
}

// Render implements Driver.
func (m *Memory) Render() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return ErrClosed
	}
	if m.RenderErr != nil {
		return m.RenderErr
	}
	copy(m.last, m.buffer)
	m.renders++
	return nil
}

// Shutdown implements Driver.
func (m *Memory) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = true
	return nil
}

// LastFrame returns a copy of the last rendered frame.
func (m *Memory) LastFrame() []uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uint32, len(m.last))
	copy(out, m.last)
	return out
}

// RenderCount returns the number of successful renders.
func (m *Memory) RenderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.renders
}

// IsShutdown reports whether Shutdown was called.
func (m *Memory) IsShutdown() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shutdown
}
