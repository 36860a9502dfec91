package gesture

import (
	"time"

	"github.com/ayusman/mudra/internal/mediakey"
)

// Event is one classified frame.
type Event struct {
	Label      Label     `json:"label"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Action is what the dispatcher did for an event.
type Action int

const (
	NoAction Action = iota
	VolumeChanged
	MediaKeyPressed
	VolumeSetMax
)

func (a Action) String() string {
	switch a {
	case VolumeChanged:
		return "volume_changed"
	case MediaKeyPressed:
		return "media_key_pressed"
	case VolumeSetMax:
		return "volume_set_max"
	default:
		return "no_action"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Reason explains a NoAction result that is not an error.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonLowConfidence  Reason = "low_confidence"
	ReasonNoGesture      Reason = "no_gesture"
	ReasonCooldownActive Reason = "cooldown_active"
)

// Result describes the outcome of one Handle call.
//
// Level is set for VolumeChanged and VolumeSetMax, Key for MediaKeyPressed.
type Result struct {
	Action     Action       `json:"action"`
	Label      Label        `json:"label"`
	Confidence float64      `json:"confidence"`
	Level      float64      `json:"level,omitempty"`
	Key        mediakey.Key `json:"key,omitempty"`
	Reason     Reason       `json:"reason,omitempty"`
}

// Acted reports whether the result changed anything on the host.
func (r Result) Acted() bool {
	return r.Action != NoAction
}
