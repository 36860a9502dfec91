package recognizer

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// fakeService answers frames on the other end of a session.
func fakeService(t *testing.T, replies ...string) (*session, <-chan []byte) {
	t.Helper()

	toService, fromClient := io.Pipe()
	toClient, fromService := io.Pipe()
	frames := make(chan []byte, len(replies))

	go func() {
		defer fromService.Close()
		defer toService.Close()
		for _, reply := range replies {
			header := make([]byte, 4)
			if _, err := io.ReadFull(toService, header); err != nil {
				return
			}
			frame := make([]byte, binary.BigEndian.Uint32(header))
			if _, err := io.ReadFull(toService, frame); err != nil {
				return
			}
			frames <- frame
			if _, err := io.WriteString(fromService, reply+"\n"); err != nil {
				return
			}
		}
	}()

	t.Cleanup(func() {
		fromClient.Close()
		toClient.Close()
	})
	return newSession(fromClient, toClient), frames
}

func TestSession_Classify(t *testing.T) {
	s, frames := fakeService(t,
		`{"gestures":[{"category":"Thumb_Up","score":0.93,"handedness":"Right"},{"category":"Victory","score":0.99}]}`,
		`{"gestures":[]}`,
		`{"error":"model not loaded"}`,
		`not json`,
	)

	c, err := s.classify([]byte("jpeg-1"))
	if err != nil {
		t.Fatalf("classify() error = %v", err)
	}
	if c.Category != "Thumb_Up" || c.Score != 0.93 || c.Handedness != "Right" {
		t.Errorf("expected the first hand's gesture, got %+v", c)
	}
	if got := <-frames; string(got) != "jpeg-1" {
		t.Errorf("service received %q", got)
	}

	c, err = s.classify([]byte("jpeg-2"))
	if err != nil {
		t.Fatalf("classify() error = %v", err)
	}
	if c != NoHand {
		t.Errorf("expected NoHand, got %+v", c)
	}

	if _, err := s.classify([]byte("jpeg-3")); err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("expected service error, got %v", err)
	}
	if _, err := s.classify([]byte("jpeg-4")); err == nil {
		t.Error("expected parse error")
	}
}

func TestSession_ClosedService(t *testing.T) {
	s, _ := fakeService(t)
	if _, err := s.classify([]byte("frame")); err == nil {
		t.Error("expected error when the service is gone")
	}
}

func TestClassification_Event(t *testing.T) {
	now := time.Now()
	ev := Classification{Category: "Closed_Fist", Score: 0.88}.Event(now)

	if ev.Label != gesture.ClosedFist {
		t.Errorf("expected ClosedFist, got %v", ev.Label)
	}
	if ev.Confidence != 0.88 {
		t.Errorf("expected 0.88, got %v", ev.Confidence)
	}
	if !ev.Timestamp.Equal(now) {
		t.Errorf("unexpected timestamp %v", ev.Timestamp)
	}

	if l := (Classification{Category: "Open_Palm", Score: 0.99}).Label(); l != gesture.None {
		t.Errorf("Open_Palm must not map to an actionable label, got %v", l)
	}
	if l := NoHand.Label(); l != gesture.None {
		t.Errorf("NoHand should be None, got %v", l)
	}
}

func TestMock(t *testing.T) {
	m := NewMock(Classification{Category: "Victory", Score: 0.9})
	m.Push(Classification{Category: "ILoveYou", Score: 0.8})

	want := []string{"Victory", "ILoveYou", "None", "None"}
	for i, w := range want {
		c, err := m.Recognize(nil)
		if err != nil {
			t.Fatalf("Recognize() error = %v", err)
		}
		if c.Category != w {
			t.Errorf("call %d: got %q, want %q", i, c.Category, w)
		}
	}

	m.SetError(errors.New("camera unplugged"))
	if _, err := m.Recognize(nil); err == nil {
		t.Error("expected scripted error")
	}
	if m.Calls() != 5 {
		t.Errorf("expected 5 calls, got %d", m.Calls())
	}

	m.Close()
	if !m.Closed() {
		t.Error("expected Closed() after Close")
	}
}

func TestNewMediaPipe_MissingScript(t *testing.T) {
	_, err := NewMediaPipe(Config{Script: filepath.Join(t.TempDir(), scriptName)})
	if err == nil {
		t.Fatal("expected error for missing script")
	}
}

func TestNewMediaPipe_Defaults(t *testing.T) {
	script := filepath.Join(t.TempDir(), scriptName)
	if err := os.WriteFile(script, []byte("print('hi')\n"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := NewMediaPipe(Config{Script: script, Python: "/usr/bin/python3"})
	if err != nil {
		t.Fatalf("NewMediaPipe() error = %v", err)
	}
	defer m.Close()

	if m.config.NumHands != 1 || m.config.IdleTimeout != 30*time.Second || m.config.Model == "" {
		t.Errorf("defaults not applied: %+v", m.config)
	}
	if m.python != "/usr/bin/python3" {
		t.Errorf("explicit python ignored: %q", m.python)
	}
	if _, err := m.Recognize(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("expected ErrEmptyFrame, got %v", err)
	}
}
