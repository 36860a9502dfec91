package volume

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

// DefaultTimeout bounds a single Get or Set so a stuck audio service cannot
// stall the frame loop.
const DefaultTimeout = 100 * time.Millisecond

type getResult struct {
	level float64
	err   error
}

// timeoutController bounds every call of the wrapped controller.
type timeoutController struct {
	inner   Controller
	timeout time.Duration
}

// WithTimeout wraps c so that each call returns ErrDeviceUnavailable once
// timeout has elapsed, even if the backend ignores its context.
// A non-positive timeout returns c unchanged.
func WithTimeout(c Controller, timeout time.Duration) Controller {
	if timeout <= 0 {
		return c
	}
	return &timeoutController{inner: c, timeout: timeout}
}

func (t *timeoutController) Get(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan getResult, 1)
	go func() {
		level, err := t.inner.Get(ctx)
		done <- getResult{level: level, err: err}
	}()

	select {
	case r := <-done:
		return r.level, deadlineErr("get volume", r.err)
	case <-ctx.Done():
		return 0, unavailable("get volume", ctx.Err())
	}
}

func (t *timeoutController) Set(ctx context.Context, level float64) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- t.inner.Set(ctx, Clamp(level))
	}()

	select {
	case err := <-done:
		return deadlineErr("set volume", err)
	case <-ctx.Done():
		return unavailable("set volume", ctx.Err())
	}
}

// deadlineErr reports a backend that gave up on its own deadline as
// unavailable, the same as if the wrapper had timed out first.
func deadlineErr(op string, err error) error {
	if err != nil && !errors.Is(err, ErrDeviceUnavailable) && errors.Is(err, context.DeadlineExceeded) {
		return unavailable(op, err)
	}
	return err
}

// Close closes the wrapped controller if it holds resources.
func (t *timeoutController) Close() error {
	if c, ok := t.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// synchronized serializes access to a controller.
type synchronized struct {
	mu    sync.Mutex
	inner Controller
}

// Synchronized returns a controller that is safe for concurrent use even when
// c is not.
func Synchronized(c Controller) Controller {
	return &synchronized{inner: c}
}

func (s *synchronized) Get(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Get(ctx)
}

func (s *synchronized) Set(ctx context.Context, level float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Set(ctx, level)
}

// Close closes the wrapped controller if it holds resources.
func (s *synchronized) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.inner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
