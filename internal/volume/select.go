package volume

import (
	"fmt"
	"runtime"
	"time"
)

// Backend names a Controller implementation.
type Backend string

// Known backends. BackendAuto picks the native backend for the host OS.
const (
	BackendAuto       Backend = "auto"
	BackendCoreAudio  Backend = "coreaudio"
	BackendPulse      Backend = "pulse"
	BackendEndpoint   Backend = "endpoint"
	BackendCamillaDSP Backend = "camilladsp"
	BackendMemory     Backend = "memory"
)

// Backends lists every accepted backend name.
var Backends = []Backend{BackendAuto, BackendCoreAudio, BackendPulse, BackendEndpoint, BackendCamillaDSP, BackendMemory}

// Options selects and configures a backend.
type Options struct {
	Backend      Backend           `koanf:"backend" yaml:"backend" json:"backend"`
	Timeout      time.Duration     `koanf:"timeout" yaml:"timeout" json:"timeout"`
	PulseSink    string            `koanf:"pulse_sink" yaml:"pulse_sink" json:"pulse_sink"`
	InitialLevel float64           `koanf:"initial_level" yaml:"initial_level" json:"initial_level"` // memory backend only
	CamillaDSP   CamillaDSPOptions `koanf:"camilladsp" yaml:"camilladsp" json:"camilladsp"`
}

// Valid reports whether b is a known backend name.
func (b Backend) Valid() bool {
	for _, known := range Backends {
		if b == known {
			return true
		}
	}
	return false
}

// NativeBackend returns the backend used for goos by BackendAuto.
func NativeBackend(goos string) (Backend, error) {
	switch goos {
	case "darwin":
		return BackendCoreAudio, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return BackendPulse, nil
	case "windows":
		return BackendEndpoint, nil
	default:
		return "", fmt.Errorf("no native volume backend for %s", goos)
	}
}

// New builds the controller selected by opts. The result is chosen once and
// wrapped with the call timeout; callers only see the Controller contract.
func New(opts Options) (Controller, error) {
	backend := opts.Backend
	if backend == "" || backend == BackendAuto {
		native, err := NativeBackend(runtime.GOOS)
		if err != nil {
			return nil, err
		}
		backend = native
	}

	var (
		c   Controller
		err error
	)
	switch backend {
	case BackendCoreAudio:
		c = NewCoreAudio()
	case BackendPulse:
		c = NewPulse(opts.PulseSink)
	case BackendEndpoint:
		c, err = newEndpoint()
	case BackendCamillaDSP:
		c, err = NewCamillaDSP(opts.CamillaDSP)
	case BackendMemory:
		c = NewMemory(opts.InitialLevel)
	default:
		return nil, fmt.Errorf("unknown volume backend %q", backend)
	}
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return WithTimeout(c, timeout), nil
}
