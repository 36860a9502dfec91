package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/mediakey"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/volume"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	vol := volume.NewMemory(0.5)
	keys := mediakey.Func(func(ctx context.Context, k mediakey.Key) error { return nil })
	a := app.New(app.Config{
		Dispatcher: gesture.NewDispatcher(vol, keys, gesture.DefaultConfig()),
		Volume:     vol,
	})
	t.Cleanup(a.Stop)
	return a
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventHub_Broadcast(t *testing.T) {
	a := newTestApp(t)
	srv := New(Config{App: a})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return srv.config.Events.Clients() == 1 })

	d := a.Process(context.Background(), gesture.Event{Label: gesture.ThumbUp, Confidence: 0.9, Timestamp: time.Now()})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}

	var msg struct {
		Type     string `json:"type"`
		Dispatch struct {
			ID     string `json:"id"`
			Result struct {
				Action string  `json:"action"`
				Label  string  `json:"label"`
				Level  float64 `json:"level"`
			} `json:"result"`
		} `json:"dispatch"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if msg.Type != "dispatch" || msg.Dispatch.ID != d.ID.String() {
		t.Errorf("event = %s", data)
	}
	if msg.Dispatch.Result.Action != "volume_changed" || msg.Dispatch.Result.Label != "ThumbUp" || msg.Dispatch.Result.Level != 0.6 {
		t.Errorf("event result = %+v", msg.Dispatch.Result)
	}

	conn.Close()
	waitFor(t, func() bool { return srv.config.Events.Clients() == 0 })
}

func TestEventHub_Close(t *testing.T) {
	hub := NewEventHub()
	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.Clients() == 1 })

	hub.Close()
	if hub.Clients() != 0 {
		t.Errorf("Clients() = %d after Close", hub.Clients())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected a normal close, got %v", err)
	}

	// Broadcasting to a closed hub is a no-op.
	hub.OnDispatch(app.Dispatch{})
}

type fakePreview struct {
	frames chan []byte
	done   chan struct{}
}

func (f *fakePreview) Preview() (<-chan []byte, func()) {
	return f.frames, func() { close(f.done) }
}

func TestStreamHandler(t *testing.T) {
	src := &fakePreview{frames: make(chan []byte, 2), done: make(chan struct{})}
	src.frames <- []byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9}
	close(src.frames)

	ts := httptest.NewServer(NewStreamHandler(src))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("GET stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("Content-Type = %q", ct)
	}

	body, _ := io.ReadAll(bufio.NewReader(resp.Body))
	if !strings.Contains(string(body), "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: 5\r\n\r\n") {
		t.Errorf("unexpected stream body %q", body)
	}

	select {
	case <-src.done:
	case <-time.After(2 * time.Second):
		t.Error("stream did not release its subscription")
	}

	rec := httptest.NewRecorder()
	NewStreamHandler(src).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestServer_Routes(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")

	st, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()

	m := metrics.NewManager()
	srv := New(Config{
		App:     newTestApp(t),
		Store:   st,
		Source:  config.NewLoader(config.WithSettings(st.Provider()), config.WithoutEnv()),
		Metrics: m,
	})

	for _, path := range []string{"/api/health", "/api/status", "/api/settings", "/metrics"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: expected status %d, got %d", path, http.StatusOK, rec.Code)
		}
	}

	// No camera is wired, so there is no preview stream.
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/stream: expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_Run(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()

	srv := New(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx, addr) }()

	waitFor(t, func() bool {
		resp, err := http.Get("http://" + addr + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	})

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
