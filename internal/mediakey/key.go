// Package mediakey injects system media-key events.
package mediakey

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned when no media-key mechanism exists on the host.
var ErrUnsupported = errors.New("media keys not supported")

// Key is a media key.
type Key int

const (
	PlayPause Key = iota + 1
	Previous
	Next
)

// Keys lists every media key.
var Keys = []Key{PlayPause, Previous, Next}

func (k Key) String() string {
	switch k {
	case PlayPause:
		return "play_pause"
	case Previous:
		return "previous"
	case Next:
		return "next"
	default:
		return fmt.Sprintf("key(%d)", int(k))
	}
}

// ParseKey parses the name produced by String.
func ParseKey(s string) (Key, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "play_pause", "playpause", "play-pause":
		return PlayPause, nil
	case "previous", "prev":
		return Previous, nil
	case "next":
		return Next, nil
	default:
		return 0, fmt.Errorf("unknown media key %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(b []byte) error {
	parsed, err := ParseKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Sender delivers a media key to the host.
type Sender interface {
	Send(ctx context.Context, key Key) error
}

// Func adapts a function to Sender.
type Func func(ctx context.Context, key Key) error

// Send calls f.
func (f Func) Send(ctx context.Context, key Key) error {
	return f(ctx, key)
}

// Unsupported is a Sender that always fails with ErrUnsupported.
type Unsupported struct{}

// Send implements Sender.
func (Unsupported) Send(ctx context.Context, key Key) error {
	return fmt.Errorf("send %s: %w", key, ErrUnsupported)
}
