// Package recognizer classifies camera frames into hand gestures.
package recognizer

import (
	"errors"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/gesture"
)

// ErrEmptyFrame is returned for nil or empty frames.
var ErrEmptyFrame = errors.New("empty frame")

// Recognizer classifies a single frame.
type Recognizer interface {
	// Recognize returns the top gesture of the first detected hand, or a
	// Classification with category "None" when no hand is visible.
	Recognize(frame *gocv.Mat) (Classification, error)

	// Close releases any resources held by the recognizer.
	Close() error
}

// Classification is the classifier output for one frame.
type Classification struct {
	Category   string  `json:"category"`
	Score      float64 `json:"score"`
	Handedness string  `json:"handedness,omitempty"`
}

// NoHand is the classification of a frame without hands.
var NoHand = Classification{Category: "None"}

// HandVisible reports whether a hand was found, even if its pose matched no
// gesture.
func (c Classification) HandVisible() bool {
	return c.Handedness != "" || (c.Category != "" && c.Category != NoHand.Category)
}

// Label maps the category onto a gesture label.
func (c Classification) Label() gesture.Label {
	return gesture.ParseLabel(c.Category)
}

// Event converts the classification into a dispatcher event stamped at now.
func (c Classification) Event(now time.Time) gesture.Event {
	return gesture.Event{
		Label:      c.Label(),
		Confidence: c.Score,
		Timestamp:  now,
	}
}

// Config configures the MediaPipe recognizer.
type Config struct {
	// Python interpreter. Empty picks a virtualenv python if one is found,
	// otherwise python3.
	Python string `koanf:"python" yaml:"python" json:"python"`
	// Script is the path to gesture_service.py. Empty searches the usual
	// locations.
	Script string `koanf:"script" yaml:"script" json:"script"`
	// Model is the gesture_recognizer.task model file.
	Model string `koanf:"model" yaml:"model" json:"model"`
	// NumHands is the maximum number of hands the model looks for.
	NumHands int `koanf:"num_hands" yaml:"num_hands" json:"num_hands"`
	// IdleTimeout stops the subprocess after this long without frames.
	IdleTimeout time.Duration `koanf:"idle_timeout" yaml:"idle_timeout" json:"idle_timeout"`
}

// DefaultConfig returns the default recognizer configuration.
func DefaultConfig() Config {
	return Config{
		Model:       "gesture_recognizer.task",
		NumHands:    1,
		IdleTimeout: 30 * time.Second,
	}
}
