// Package volume provides platform-abstracted access to the normalized
// speaker volume of the host.
//
// Every backend exposes the same two-method Controller contract. Levels are
// normalized to [0.0, 1.0] and any platform failure is reported as an error
// wrapping ErrDeviceUnavailable, so callers can treat it as recoverable.
package volume

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrDeviceUnavailable is returned when the output device cannot be read or
// written: no default device, permission denied, IPC failure or timeout.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// Controller reads and writes the normalized output volume.
type Controller interface {
	// Get returns the current output level in [0.0, 1.0].
	Get(ctx context.Context) (float64, error)

	// Set changes the output level. Values outside [0.0, 1.0] are clamped.
	Set(ctx context.Context, level float64) error
}

// Clamp limits level to [0.0, 1.0]. NaN maps to 0.
func Clamp(level float64) float64 {
	switch {
	case math.IsNaN(level), level < 0:
		return 0
	case level > 1:
		return 1
	default:
		return level
	}
}

// unavailable wraps a backend failure so it matches ErrDeviceUnavailable.
func unavailable(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, op)
	}
	return fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, op, err)
}
