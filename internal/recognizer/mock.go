package recognizer

import (
	"sync"

	"gocv.io/x/gocv"
)

// Mock replays scripted classifications. Once the script is exhausted it
// returns NoHand.
type Mock struct {
	mu     sync.Mutex
	script []Classification
	err    error
	calls  int
	closed bool
}

// NewMock returns a Mock that yields script in order.
func NewMock(script ...Classification) *Mock {
	return &Mock{script: script}
}

// Push appends classifications to the script.
func (m *Mock) Push(c ...Classification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, c...)
}

// SetError makes Recognize fail until cleared with nil.
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Recognize implements Recognizer. The frame is not inspected.
func (m *Mock) Recognize(frame *gocv.Mat) (Classification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return Classification{}, m.err
	}
	if len(m.script) == 0 {
		return NoHand, nil
	}
	c := m.script[0]
	m.script = m.script[1:]
	return c, nil
}

// Calls returns how many times Recognize ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close implements Recognizer.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
