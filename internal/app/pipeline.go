package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/metrics"
)

// runPipeline reads frames until stop is closed.
//
// The camera runs at the idle rate until the motion gate opens, then at the
// active rate. While the gate is open each frame is classified and the
// resulting event dispatched; a visible hand keeps the gate open. Still
// frames are not classified and produce no event.
func (a *App) runPipeline(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(time.Second / time.Duration(a.idleFPS()))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			if fps, changed := a.tick(ctx); changed {
				a.camera.SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
			}
		}
	}
}

// tick handles one frame. It returns the new frame rate when the motion gate
// changed state.
func (a *App) tick(ctx context.Context) (int, bool) {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		if !errors.Is(err, capture.ErrNoFrame) {
			a.metrics.RecordError(metrics.KindCamera)
			a.log.Warn().Err(err).Msg("read frame")
		}
		return 0, false
	}
	defer frame.Close()

	a.preview.publish(frame)

	now := time.Now()
	open, changed := a.gate.Observe(frame, now)
	a.metrics.RecordFrame(open)

	fps := 0
	if changed {
		if open {
			fps = a.activeFPS()
			a.log.Debug().Int("fps", fps).Msg("motion, switched to active rate")
		} else {
			fps = a.idleFPS()
			a.log.Debug().Int("fps", fps).Msg("still, switched to idle rate")
		}
	}
	if !open {
		return fps, changed
	}

	c, err := a.recognizer.Recognize(frame)
	if err != nil {
		a.metrics.RecordError(metrics.KindRecognizer)
		a.log.Warn().Err(err).Msg("recognize frame")
		return fps, changed
	}
	if c.HandVisible() {
		a.gate.Keep(now)
	}

	a.Process(ctx, c.Event(now))
	return fps, changed
}

// previewHub fans encoded JPEG frames out to stream clients. Frames are only
// encoded while someone is watching.
type previewHub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

// Preview subscribes to JPEG frames. The channel is closed when cancel is
// called or the app stops. Slow readers miss frames.
func (a *App) Preview() (<-chan []byte, func()) {
	ch := make(chan []byte, 1)
	a.preview.mu.Lock()
	a.preview.subs[ch] = struct{}{}
	a.preview.mu.Unlock()

	cancel := func() {
		a.preview.mu.Lock()
		defer a.preview.mu.Unlock()
		if _, ok := a.preview.subs[ch]; ok {
			delete(a.preview.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (h *previewHub) publish(frame *gocv.Mat) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) == 0 {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return
	}
	jpeg := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	for ch := range h.subs {
		select {
		case ch <- jpeg:
		default:
		}
	}
}

func (h *previewHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
