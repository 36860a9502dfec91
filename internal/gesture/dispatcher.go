package gesture

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/ayusman/mudra/internal/logger"
	"github.com/ayusman/mudra/internal/mediakey"
	"github.com/ayusman/mudra/internal/volume"
)

// ErrActionPort wraps a media-key send failure.
var ErrActionPort = errors.New("media key port failed")

// Dispatcher defaults.
const (
	DefaultConfidenceThreshold = 0.7
	DefaultCooldown            = 2 * time.Second
	DefaultVolumeStep          = 0.1
)

// Config holds the dispatcher tunables.
type Config struct {
	// Events at or below this confidence are ignored.
	ConfidenceThreshold float64 `koanf:"confidence_threshold" yaml:"confidence_threshold" json:"confidence_threshold"`
	// Minimum time between two firings of the same discrete label.
	Cooldown time.Duration `koanf:"cooldown" yaml:"cooldown" json:"cooldown"`
	// Volume change per ThumbUp or ThumbDown tick.
	VolumeStep float64 `koanf:"volume_step" yaml:"volume_step" json:"volume_step"`
	// Gate continuous labels with the cooldown as well.
	ContinuousCooldown bool `koanf:"continuous_cooldown" yaml:"continuous_cooldown" json:"continuous_cooldown"`
}

// DefaultConfig returns the stock dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		Cooldown:            DefaultCooldown,
		VolumeStep:          DefaultVolumeStep,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if math.IsNaN(c.ConfidenceThreshold) || c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be within [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative, got %v", c.Cooldown)
	}
	if math.IsNaN(c.VolumeStep) || c.VolumeStep <= 0 || c.VolumeStep > 1 {
		return fmt.Errorf("volume_step must be within (0,1], got %v", c.VolumeStep)
	}
	return nil
}

// Dispatcher maps events onto volume and media-key actions.
//
// Handle must be called from one goroutine at a time. SetConfig may be called
// from any goroutine; the new values apply from the next Handle call.
type Dispatcher struct {
	volume volume.Controller
	keys   mediakey.Sender
	gate   *CooldownGate
	cfg    atomic.Pointer[Config]
	now    func() time.Time
	log    *logger.Logger
}

// NewDispatcher builds a dispatcher. cfg must be valid.
func NewDispatcher(vc volume.Controller, keys mediakey.Sender, cfg Config) *Dispatcher {
	if keys == nil {
		keys = mediakey.Unsupported{}
	}
	d := &Dispatcher{
		volume: vc,
		keys:   keys,
		gate:   NewCooldownGate(cfg.Cooldown),
		now:    time.Now,
		log:    logger.Named("dispatcher"),
	}
	d.cfg.Store(&cfg)
	return d
}

// Config returns the active configuration.
func (d *Dispatcher) Config() Config {
	return *d.cfg.Load()
}

// SetConfig swaps the configuration after validating it.
func (d *Dispatcher) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	d.cfg.Store(&cfg)
	return nil
}

// Handle processes one event. At most one volume write or key press happens
// per call. A returned error always comes with a NoAction result and wraps
// either volume.ErrDeviceUnavailable or ErrActionPort; cooldown state is left
// untouched so the next tick can retry.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (Result, error) {
	cfg := d.Config()
	if d.gate.Cooldown() != cfg.Cooldown {
		d.gate.SetCooldown(cfg.Cooldown)
	}

	res := Result{Action: NoAction, Label: ev.Label, Confidence: ev.Confidence}

	class := ev.Label.Class()
	if class == Unclassified {
		res.Reason = ReasonNoGesture
		return res, nil
	}
	// Written as a negation so NaN confidences are filtered too.
	if !(ev.Confidence > cfg.ConfidenceThreshold) {
		res.Reason = ReasonLowConfidence
		return res, nil
	}

	now := ev.Timestamp
	if now.IsZero() {
		now = d.now()
	}

	gated := class == Discrete || cfg.ContinuousCooldown
	if gated && !d.gate.Ready(ev.Label, now) {
		res.Reason = ReasonCooldownActive
		return res, nil
	}

	var err error
	if class == Continuous {
		err = d.adjustVolume(ctx, ev.Label, cfg.VolumeStep, &res)
	} else {
		err = d.fire(ctx, ev.Label, &res)
	}
	if err != nil {
		res.Action, res.Level, res.Key = NoAction, 0, 0
		return res, err
	}

	if gated {
		d.gate.Record(ev.Label, now)
	}
	d.log.Debug().
		Stringer("label", ev.Label).
		Stringer("action", res.Action).
		Float64("confidence", ev.Confidence).
		Msg("dispatched")
	return res, nil
}

func (d *Dispatcher) adjustVolume(ctx context.Context, label Label, step float64, res *Result) error {
	current, err := d.volume.Get(ctx)
	if err != nil {
		return deviceError("read volume", err)
	}

	next := current + step
	if label == ThumbDown {
		next = current - step
	}
	next = volume.Clamp(roundLevel(next))

	if err := d.volume.Set(ctx, next); err != nil {
		return deviceError("write volume", err)
	}
	res.Action = VolumeChanged
	res.Level = next
	return nil
}

func (d *Dispatcher) fire(ctx context.Context, label Label, res *Result) error {
	if label == ILoveYou {
		if err := d.volume.Set(ctx, 1.0); err != nil {
			return deviceError("set max volume", err)
		}
		res.Action = VolumeSetMax
		res.Level = 1.0
		return nil
	}

	key, ok := KeyFor(label)
	if !ok {
		return fmt.Errorf("%w: no media key for %s", ErrActionPort, label)
	}
	if err := d.keys.Send(ctx, key); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrActionPort, key, err)
	}
	res.Action = MediaKeyPressed
	res.Key = key
	return nil
}

// KeyFor returns the media key pressed by a discrete label.
func KeyFor(label Label) (mediakey.Key, bool) {
	switch label {
	case ClosedFist:
		return mediakey.PlayPause, true
	case Victory:
		return mediakey.Previous, true
	case PointingUp:
		return mediakey.Next, true
	default:
		return 0, false
	}
}

// deviceError makes sure every volume failure reads as ErrDeviceUnavailable.
func deviceError(op string, err error) error {
	if errors.Is(err, volume.ErrDeviceUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, volume.ErrDeviceUnavailable, err)
}

// roundLevel drops float noise so repeated steps land on clean values.
func roundLevel(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
