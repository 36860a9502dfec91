// Package gesture turns classified hand-gesture events into media and volume
// actions.
package gesture

import (
	"fmt"
	"strings"
)

// Label is a recognised hand gesture.
type Label int

const (
	None Label = iota
	ThumbUp
	ThumbDown
	ClosedFist
	Victory
	PointingUp
	ILoveYou
)

// Labels lists every label except None.
var Labels = []Label{ThumbUp, ThumbDown, ClosedFist, Victory, PointingUp, ILoveYou}

var labelNames = map[Label]string{
	None:       "None",
	ThumbUp:    "ThumbUp",
	ThumbDown:  "ThumbDown",
	ClosedFist: "ClosedFist",
	Victory:    "Victory",
	PointingUp: "PointingUp",
	ILoveYou:   "ILoveYou",
}

// categories maps classifier category names onto labels.
var categories = map[string]Label{
	"none":        None,
	"thumb_up":    ThumbUp,
	"thumb_down":  ThumbDown,
	"closed_fist": ClosedFist,
	"victory":     Victory,
	"pointing_up": PointingUp,
	"iloveyou":    ILoveYou,
}

func (l Label) String() string {
	if s, ok := labelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("Label(%d)", int(l))
}

// ParseLabel maps a classifier category name (Thumb_Up, Closed_Fist, ...) or
// a label name (ThumbUp, ClosedFist, ...) to a Label. Anything else, including
// categories the dispatcher has no action for such as Open_Palm, is None.
func ParseLabel(s string) Label {
	key := strings.ToLower(strings.TrimSpace(s))
	if l, ok := categories[key]; ok {
		return l
	}
	for l, name := range labelNames {
		if strings.EqualFold(name, key) {
			return l
		}
	}
	return None
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(b []byte) error {
	*l = ParseLabel(string(b))
	return nil
}

// Class partitions labels by how they act.
type Class int

const (
	// Unclassified is the class of None and unknown labels.
	Unclassified Class = iota
	// Continuous labels adjust the volume on every qualifying tick.
	Continuous
	// Discrete labels fire a one-shot action, rate limited per label.
	Discrete
)

func (c Class) String() string {
	switch c {
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	default:
		return "unclassified"
	}
}

// Class returns the fixed class of l.
func (l Label) Class() Class {
	switch l {
	case ThumbUp, ThumbDown:
		return Continuous
	case ClosedFist, Victory, PointingUp, ILoveYou:
		return Discrete
	default:
		return Unclassified
	}
}
