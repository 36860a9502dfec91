// Package capture reads camera frames and decides which of them are worth
// classifying.
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Camera defaults.
const (
	DefaultIdleFPS   = 5
	DefaultActiveFPS = 15
	DefaultWidth     = 640
	DefaultHeight    = 480
)

var (
	// ErrCameraNotOpen is returned when reading from a closed camera.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned when the device produced no usable frame.
	ErrNoFrame = errors.New("no frame captured")
)

// Config configures the camera and the motion gate.
type Config struct {
	Enabled   bool `koanf:"enabled" yaml:"enabled" json:"enabled"`
	Device    int  `koanf:"device" yaml:"device" json:"device"`
	Width     int  `koanf:"width" yaml:"width" json:"width"`
	Height    int  `koanf:"height" yaml:"height" json:"height"`
	IdleFPS   int  `koanf:"idle_fps" yaml:"idle_fps" json:"idle_fps"`
	ActiveFPS int  `koanf:"active_fps" yaml:"active_fps" json:"active_fps"`
	// MotionThreshold is the percentage of changed pixels that counts as
	// motion. Zero disables the gate so every frame is classified.
	MotionThreshold float64 `koanf:"motion_threshold" yaml:"motion_threshold" json:"motion_threshold"`
	// MotionHold keeps classifying this long after the last motion or hand.
	MotionHold time.Duration `koanf:"motion_hold" yaml:"motion_hold" json:"motion_hold"`
}

// DefaultConfig returns the default camera configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Device:          0,
		Width:           DefaultWidth,
		Height:          DefaultHeight,
		IdleFPS:         DefaultIdleFPS,
		ActiveFPS:       DefaultActiveFPS,
		MotionThreshold: 1.0,
		MotionHold:      2 * time.Second,
	}
}

// Validate checks the camera settings.
func (c Config) Validate() error {
	if c.IdleFPS <= 0 || c.ActiveFPS <= 0 {
		return fmt.Errorf("camera fps must be positive (idle %d, active %d)", c.IdleFPS, c.ActiveFPS)
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("camera resolution must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.MotionThreshold < 0 || c.MotionThreshold > 100 {
		return fmt.Errorf("motion_threshold must be within [0,100], got %v", c.MotionThreshold)
	}
	if c.MotionHold < 0 {
		return fmt.Errorf("motion_hold must not be negative, got %v", c.MotionHold)
	}
	return nil
}

// Camera is a frame source.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes it.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// device captures from a local video device with GoCV.
type device struct {
	cfg     Config
	capture *gocv.VideoCapture
	mu      sync.Mutex
	fps     int
}

// NewCamera returns a camera for cfg.Device. It is opened by Open.
func NewCamera(cfg Config) Camera {
	def := DefaultConfig()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	fps := cfg.IdleFPS
	if fps <= 0 {
		fps = def.IdleFPS
	}
	return &device{cfg: cfg, fps: fps}
}

// Open opens the device. Opening an open camera is a no-op.
func (c *device) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.cfg.Device)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.cfg.Device, err)
	}
	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	return nil
}

// Close releases the device.
func (c *device) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	return err
}

func (c *device) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}
	return &mat, nil
}

// SetFPS changes the capture rate. Non-positive values are ignored.
func (c *device) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *device) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *device) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil
}
