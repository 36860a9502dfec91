package recognizer

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/logger"
)

const scriptName = "gesture_service.py"

// MediaPipe classifies frames with a Python MediaPipe GestureRecognizer
// subprocess. The process is started on the first frame and stopped after
// the idle timeout.
//
// Frames are written as a 4-byte big-endian length followed by JPEG bytes.
// The service answers each frame with one JSON line.
type MediaPipe struct {
	config Config
	python string
	script string

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	session   *session
	idleTimer *time.Timer
	log       *logger.Logger
}

// NewMediaPipe resolves the interpreter and service script. The Python
// process itself is started lazily.
func NewMediaPipe(cfg Config) (*MediaPipe, error) {
	def := DefaultConfig()
	if cfg.NumHands <= 0 {
		cfg.NumHands = def.NumHands
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}

	script := cfg.Script
	if script == "" {
		script = findScript()
	}
	if script == "" {
		return nil, fmt.Errorf("%s not found", scriptName)
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("gesture service script: %w", err)
	}

	python := cfg.Python
	if python == "" {
		python = findVenvPython()
	}
	if python == "" {
		python = "python3"
	}

	return &MediaPipe{
		config: cfg,
		python: python,
		script: script,
		log:    logger.Named("recognizer"),
	}, nil
}

// Recognize implements Recognizer.
func (m *MediaPipe) Recognize(frame *gocv.Mat) (Classification, error) {
	if frame == nil || frame.Empty() {
		return Classification{}, ErrEmptyFrame
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return Classification{}, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureStarted(); err != nil {
		return Classification{}, err
	}

	c, err := m.session.classify(buf.GetBytes())
	if err != nil {
		// A broken pipe or garbled stream leaves the service unusable.
		m.log.Warn().Err(err).Msg("gesture service failed, restarting on next frame")
		m.shutdown()
		return Classification{}, err
	}

	m.resetIdleTimer()
	return c, nil
}

// Close stops the Python process.
func (m *MediaPipe) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown()
}

func (m *MediaPipe) ensureStarted() error {
	if m.cmd != nil {
		return nil
	}

	cmd := exec.Command(m.python, m.script,
		"--model", m.config.Model,
		"--num-hands", strconv.Itoa(m.config.NumHands),
	)
	cmd.Dir = filepath.Dir(m.script)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start gesture service: %w", err)
	}

	m.cmd = cmd
	m.stdin = stdin
	m.session = newSession(stdin, stdout)
	m.log.Info().Str("python", m.python).Str("script", m.script).Int("pid", cmd.Process.Pid).Msg("gesture service started")
	return nil
}

// shutdown must be called with m.mu held.
func (m *MediaPipe) shutdown() error {
	if m.cmd == nil {
		return nil
	}
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}

	m.stdin.Close()
	err := m.cmd.Wait()
	m.cmd = nil
	m.stdin = nil
	m.session = nil
	m.log.Info().Msg("gesture service stopped")

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("gesture service exited: %w", err)
	}
	return err
}

func (m *MediaPipe) resetIdleTimer() {
	if m.idleTimer != nil {
		m.idleTimer.Stop()
	}
	m.idleTimer = time.AfterFunc(m.config.IdleTimeout, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.shutdown()
	})
}

// session speaks the frame protocol over a pair of streams.
type session struct {
	w io.Writer
	r *bufio.Reader
}

func newSession(w io.Writer, r io.Reader) *session {
	return &session{w: w, r: bufio.NewReader(r)}
}

type serviceResponse struct {
	Gestures []Classification `json:"gestures"`
	Error    string           `json:"error,omitempty"`
}

// classify sends one JPEG frame and waits for its reply.
func (s *session) classify(jpeg []byte) (Classification, error) {
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(jpeg)))

	if _, err := s.w.Write(header); err != nil {
		return Classification{}, fmt.Errorf("write length: %w", err)
	}
	if _, err := s.w.Write(jpeg); err != nil {
		return Classification{}, fmt.Errorf("write frame: %w", err)
	}

	line, err := s.r.ReadBytes('\n')
	if err != nil {
		return Classification{}, fmt.Errorf("read response: %w", err)
	}

	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return Classification{}, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return Classification{}, fmt.Errorf("gesture service: %s", resp.Error)
	}
	if len(resp.Gestures) == 0 {
		return NoHand, nil
	}
	return resp.Gestures[0], nil
}

func findScript() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		filepath.Join("scripts", scriptName),
		filepath.Join("..", "scripts", scriptName),
		filepath.Join(execDir, "scripts", scriptName),
		filepath.Join(os.Getenv("HOME"), ".mudra", "scripts", scriptName),
	}
	return firstExisting(candidates)
}

// findVenvPython looks for a virtualenv interpreter next to the project or
// in ~/.mudra.
func findVenvPython() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".mudra/venv/bin/python"),
	}
	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
