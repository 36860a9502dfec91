package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/mediakey"
	"github.com/ayusman/mudra/internal/volume"
)

func newTestApp(t *testing.T) (*app.App, *volume.Memory) {
	t.Helper()
	vol := volume.NewMemory(0.5)
	keys := mediakey.Func(func(ctx context.Context, k mediakey.Key) error { return nil })
	a := app.New(app.Config{
		Dispatcher: gesture.NewDispatcher(vol, keys, gesture.DefaultConfig()),
		Volume:     vol,
	})
	t.Cleanup(a.Stop)
	return a, vol
}

func TestStatusHandler(t *testing.T) {
	a, _ := newTestApp(t)
	h := NewStatusHandler(a)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var st app.Status
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !st.Enabled || st.Volume == nil || *st.Volume != 0.5 {
		t.Errorf("status = %+v", st)
	}
	if st.Dispatcher.Cooldown != gesture.DefaultCooldown {
		t.Errorf("dispatcher cooldown = %v", st.Dispatcher.Cooldown)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/status", bytes.NewBufferString(`{"enabled":false}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if a.IsEnabled() {
		t.Error("PUT should disable gesture control")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/status", bytes.NewBufferString(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("PUT without enabled expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestDispatchHandler(t *testing.T) {
	a, vol := newTestApp(t)
	h := NewDispatchHandler(a)

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/dispatch", bytes.NewBufferString(body)))
		return rec
	}

	rec := post(`{"label":"ILoveYou","confidence":0.9}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var d struct {
		ID     string `json:"id"`
		Result struct {
			Action string  `json:"action"`
			Level  float64 `json:"level"`
		} `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&d); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if d.ID == "" || d.Result.Action != "volume_set_max" || d.Result.Level != 1.0 {
		t.Errorf("dispatch = %+v", d)
	}
	if vol.Level() != 1.0 {
		t.Errorf("volume = %v, want 1.0", vol.Level())
	}

	if rec := post(`{"label":"Victory","confidence":2}`); rec.Code != http.StatusBadRequest {
		t.Errorf("out of range confidence expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
	if rec := post(`nope`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dispatch", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
