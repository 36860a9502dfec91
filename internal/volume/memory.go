package volume

import (
	"context"
	"sync"
)

// Memory is an in-process Controller. It backs headless runs and tests.
type Memory struct {
	mu     sync.Mutex
	level  float64
	getErr error
	setErr error
	sets   int
}

// NewMemory creates a Memory controller starting at level.
func NewMemory(level float64) *Memory {
	return &Memory{level: Clamp(level)}
}

// Get returns the stored level, or the configured get error.
func (m *Memory) Get(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return 0, unavailable("get volume", m.getErr)
	}
	return m.level, nil
}

// Set stores the clamped level, or returns the configured set error.
func (m *Memory) Set(ctx context.Context, level float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.setErr != nil {
		return unavailable("set volume", m.setErr)
	}
	m.level = Clamp(level)
	m.sets++
	return nil
}

// FailWith makes subsequent Get and Set calls fail. Pass nil to recover.
func (m *Memory) FailWith(getErr, setErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = getErr
	m.setErr = setErr
}

// Level returns the stored level without going through the error path.
func (m *Memory) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Writes returns the number of successful Set calls.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}
