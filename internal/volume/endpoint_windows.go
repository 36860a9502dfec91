//go:build windows

package volume

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
)

// sFalse is returned by CoInitializeEx when COM is already initialized on the thread.
const sFalse = 0x00000001

type endpointRequest struct {
	set   bool
	level float64
	reply chan getResult
}

// Endpoint controls the default render endpoint through IAudioEndpointVolume.
//
// COM objects are apartment bound, so every call is executed on one goroutine
// locked to its OS thread. The default device is resolved on every call so a
// headset plugged in mid-run is picked up.
type Endpoint struct {
	requests  chan endpointRequest
	quit      chan struct{}
	closeOnce sync.Once
}

func newEndpoint() (Controller, error) {
	return NewEndpoint()
}

// NewEndpoint starts the COM worker and returns an Endpoint controller.
func NewEndpoint() (*Endpoint, error) {
	e := &Endpoint{
		requests: make(chan endpointRequest),
		quit:     make(chan struct{}),
	}

	ready := make(chan error, 1)
	go e.loop(ready)
	if err := <-ready; err != nil {
		return nil, unavailable("initialize COM", err)
	}
	return e, nil
}

// Get returns the master volume scalar of the default render endpoint.
func (e *Endpoint) Get(ctx context.Context) (float64, error) {
	r, err := e.call(ctx, endpointRequest{})
	if err != nil {
		return 0, unavailable("get master volume", err)
	}
	return Clamp(r), nil
}

// Set writes the master volume scalar of the default render endpoint.
func (e *Endpoint) Set(ctx context.Context, level float64) error {
	if _, err := e.call(ctx, endpointRequest{set: true, level: Clamp(level)}); err != nil {
		return unavailable("set master volume", err)
	}
	return nil
}

// Close stops the COM worker.
func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() { close(e.quit) })
	return nil
}

func (e *Endpoint) call(ctx context.Context, req endpointRequest) (float64, error) {
	req.reply = make(chan getResult, 1)

	select {
	case e.requests <- req:
	case <-e.quit:
		return 0, errors.New("endpoint closed")
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case r := <-req.reply:
		return r.level, r.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (e *Endpoint) loop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
			ready <- err
			return
		}
	}
	defer ole.CoUninitialize()
	ready <- nil

	for {
		select {
		case <-e.quit:
			return
		case req := <-e.requests:
			level, err := e.do(req)
			req.reply <- getResult{level: level, err: err}
		}
	}
}

func (e *Endpoint) do(req endpointRequest) (float64, error) {
	var mmde *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &mmde); err != nil {
		return 0, err
	}
	defer mmde.Release()

	var mmd *wca.IMMDevice
	if err := mmde.GetDefaultAudioEndpoint(wca.ERender, wca.EConsole, &mmd); err != nil {
		return 0, err
	}
	defer mmd.Release()

	var aev *wca.IAudioEndpointVolume
	if err := mmd.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &aev); err != nil {
		return 0, err
	}
	defer aev.Release()

	if req.set {
		if err := aev.SetMasterVolumeLevelScalar(float32(req.level), nil); err != nil {
			return 0, err
		}
		return req.level, nil
	}

	var level float32
	if err := aev.GetMasterVolumeLevelScalar(&level); err != nil {
		return 0, err
	}
	return float64(level), nil
}
