// Package app runs the capture, recognition and dispatch pipeline.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logger"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/recognizer"
	"github.com/ayusman/mudra/internal/volume"
)

// Dispatch is the record of one dispatcher call.
type Dispatch struct {
	ID     uuid.UUID      `json:"id"`
	Time   time.Time      `json:"time"`
	Result gesture.Result `json:"result"`
	Error  string         `json:"error,omitempty"`
}

// Observer is notified after every dispatch worth reporting.
type Observer interface {
	OnDispatch(Dispatch)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Dispatch)

func (f ObserverFunc) OnDispatch(d Dispatch) { f(d) }

// Config wires the application. Camera and Recognizer may be nil, in which
// case no capture loop runs and events only arrive through Process.
type Config struct {
	Camera     capture.Camera
	Capture    capture.Config
	Recognizer recognizer.Recognizer
	Dispatcher *gesture.Dispatcher
	Volume     volume.Controller
	Metrics    *metrics.Manager
}

// App orchestrates the gesture pipeline.
type App struct {
	config     Config
	camera     capture.Camera
	gate       *capture.MotionGate
	recognizer recognizer.Recognizer
	dispatcher *gesture.Dispatcher
	volume     volume.Controller
	metrics    *metrics.Manager
	log        *logger.Logger

	mu      sync.RWMutex
	enabled bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// handleMu serializes dispatcher calls from the pipeline and the API.
	handleMu       sync.Mutex
	last           *Dispatch
	deviceFailures int

	obsMu     sync.RWMutex
	observers []Observer

	preview previewHub
}

// New creates an App. Gesture control starts enabled.
func New(config Config) *App {
	if config.Metrics == nil {
		config.Metrics = metrics.NewManager()
	}
	a := &App{
		config:     config,
		camera:     config.Camera,
		recognizer: config.Recognizer,
		dispatcher: config.Dispatcher,
		volume:     config.Volume,
		metrics:    config.Metrics,
		log:        logger.Named("app"),
		enabled:    true,
	}
	a.gate = capture.NewMotionGate(config.Capture.MotionThreshold, config.Capture.MotionHold)
	a.preview.subs = make(map[chan []byte]struct{})
	a.metrics.SetEnabled(true)
	return a
}

// AddObserver registers o for dispatch notifications.
func (a *App) AddObserver(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, o)
}

// SetEnabled turns gesture control on or off. While disabled the pipeline
// keeps running but no frames are read.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if changed {
		a.metrics.SetEnabled(enabled)
		a.log.Info().Bool("enabled", enabled).Msg("gesture control toggled")
	}
}

// IsEnabled reports whether gesture control is on.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Running reports whether the capture loop is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Start opens the camera and starts the capture loop. Without a camera or
// recognizer it is a no-op.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil || a.camera == nil || a.recognizer == nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.idleFPS())

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	a.log.Info().Int("fps", a.camera.FPS()).Msg("capture pipeline started")
	return nil
}

// Stop halts the capture loop and releases the camera and recognizer.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if a.camera != nil {
		if err := a.camera.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close camera")
		}
	}
	a.gate.Close()
	if a.recognizer != nil {
		if err := a.recognizer.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close recognizer")
		}
	}
	a.preview.closeAll()

	if stopCh != nil {
		a.log.Info().Msg("capture pipeline stopped")
	}
}

// Process runs one event through the dispatcher and reports the outcome.
// Dispatcher errors are recorded and returned in the Dispatch, never raised.
func (a *App) Process(ctx context.Context, ev gesture.Event) Dispatch {
	a.handleMu.Lock()

	start := time.Now()
	res, err := a.dispatcher.Handle(ctx, ev)
	a.metrics.ObserveHandle(time.Since(start))

	d := Dispatch{ID: uuid.New(), Time: time.Now(), Result: res}
	if err != nil {
		d.Error = err.Error()
		a.recordError(err)
	} else {
		a.deviceFailures = 0
	}

	switch {
	case res.Acted():
		a.metrics.RecordDispatch(res.Label.String(), res.Action.String())
		if res.Action == gesture.VolumeChanged || res.Action == gesture.VolumeSetMax {
			a.metrics.SetVolume(res.Level)
		}
		a.log.Info().
			Str("id", d.ID.String()).
			Stringer("label", res.Label).
			Stringer("action", res.Action).
			Float64("confidence", res.Confidence).
			Msg("gesture dispatched")
	case res.Reason != gesture.ReasonNone:
		a.metrics.RecordSuppressed(string(res.Reason))
		a.log.Debug().
			Stringer("label", res.Label).
			Str("reason", string(res.Reason)).
			Float64("confidence", res.Confidence).
			Msg("gesture suppressed")
	}

	if res.Acted() || err != nil {
		last := d
		a.last = &last
	}
	a.handleMu.Unlock()

	if res.Reason != gesture.ReasonNoGesture {
		a.notify(d)
	}
	return d
}

// recordError must be called with handleMu held.
func (a *App) recordError(err error) {
	if errors.Is(err, volume.ErrDeviceUnavailable) {
		a.deviceFailures++
		a.metrics.RecordError(metrics.KindDevice)
		a.log.Warn().Err(err).Int("consecutive", a.deviceFailures).Msg("volume device unavailable")
		return
	}
	a.metrics.RecordError(metrics.KindActionPort)
	a.log.Warn().Err(err).Msg("media key failed")
}

func (a *App) notify(d Dispatch) {
	a.obsMu.RLock()
	observers := append([]Observer(nil), a.observers...)
	a.obsMu.RUnlock()

	for _, o := range observers {
		o.OnDispatch(d)
	}
}

// LastDispatch returns the most recent dispatch that acted or failed.
func (a *App) LastDispatch() (Dispatch, bool) {
	a.handleMu.Lock()
	defer a.handleMu.Unlock()
	if a.last == nil {
		return Dispatch{}, false
	}
	return *a.last, true
}

// DeviceFailures returns the number of consecutive volume failures.
func (a *App) DeviceFailures() int {
	a.handleMu.Lock()
	defer a.handleMu.Unlock()
	return a.deviceFailures
}

// ApplyDispatcherConfig swaps the dispatcher tunables at runtime.
func (a *App) ApplyDispatcherConfig(cfg gesture.Config) error {
	if err := a.dispatcher.SetConfig(cfg); err != nil {
		return err
	}
	a.log.Info().
		Float64("confidence_threshold", cfg.ConfidenceThreshold).
		Dur("cooldown", cfg.Cooldown).
		Float64("volume_step", cfg.VolumeStep).
		Bool("continuous_cooldown", cfg.ContinuousCooldown).
		Msg("dispatcher config applied")
	return nil
}

// Status is a snapshot of the application state.
type Status struct {
	Enabled        bool           `json:"enabled"`
	Running        bool           `json:"running"`
	Volume         *float64       `json:"volume,omitempty"`
	VolumeError    string         `json:"volume_error,omitempty"`
	DeviceFailures int            `json:"device_failures"`
	LastDispatch   *Dispatch      `json:"last_dispatch,omitempty"`
	Dispatcher     gesture.Config `json:"dispatcher"`
}

// Status reads the current volume and reports the application state.
func (a *App) Status(ctx context.Context) Status {
	st := Status{
		Enabled:        a.IsEnabled(),
		Running:        a.Running(),
		DeviceFailures: a.DeviceFailures(),
		Dispatcher:     a.dispatcher.Config(),
	}
	if d, ok := a.LastDispatch(); ok {
		st.LastDispatch = &d
	}
	if a.volume != nil {
		if level, err := a.volume.Get(ctx); err != nil {
			st.VolumeError = err.Error()
		} else {
			st.Volume = &level
		}
	}
	return st
}

// Dispatcher returns the dispatcher.
func (a *App) Dispatcher() *gesture.Dispatcher {
	return a.dispatcher
}

// HasCamera reports whether a camera is wired.
func (a *App) HasCamera() bool {
	return a.camera != nil
}

func (a *App) idleFPS() int {
	if a.config.Capture.IdleFPS > 0 {
		return a.config.Capture.IdleFPS
	}
	return capture.DefaultIdleFPS
}

func (a *App) activeFPS() int {
	if a.config.Capture.ActiveFPS > 0 {
		return a.config.Capture.ActiveFPS
	}
	return capture.DefaultActiveFPS
}
