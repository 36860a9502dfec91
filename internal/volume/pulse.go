package volume

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// pulseNorm is PA_VOLUME_NORM, the raw value of 100%.
const pulseNorm = 65536

// DefaultSink addresses whatever sink the sound server currently routes to.
const DefaultSink = "@DEFAULT_SINK@"

// rawVolumeRe matches the first channel of `pactl get-sink-volume`, e.g.
// "Volume: front-left: 32768 /  50% / -18.06 dB, ...".
var rawVolumeRe = regexp.MustCompile(`(\d+)\s*/\s*\d+%`)

// Pulse controls a PulseAudio or PipeWire sink through pactl.
type Pulse struct {
	sink string
	run  runner
}

// NewPulse creates a Pulse controller for sink. An empty sink means the
// default sink.
func NewPulse(sink string) *Pulse {
	if sink == "" {
		sink = DefaultSink
	}
	return &Pulse{sink: sink, run: runCommand}
}

// Get reads the first channel's raw volume. Levels above 100% are clamped.
func (p *Pulse) Get(ctx context.Context) (float64, error) {
	out, err := p.run(ctx, "pactl", "get-sink-volume", p.sink)
	if err != nil {
		return 0, unavailable("pactl get-sink-volume", err)
	}

	level, err := parsePulseVolume(string(out))
	if err != nil {
		return 0, unavailable("pactl get-sink-volume", err)
	}
	return level, nil
}

// Set writes the level as a raw volume so no precision is lost to percent
// rounding.
func (p *Pulse) Set(ctx context.Context, level float64) error {
	raw := int(math.Round(Clamp(level) * pulseNorm))
	if _, err := p.run(ctx, "pactl", "set-sink-volume", p.sink, strconv.Itoa(raw)); err != nil {
		return unavailable("pactl set-sink-volume", err)
	}
	return nil
}

func parsePulseVolume(out string) (float64, error) {
	m := rawVolumeRe.FindStringSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("unexpected output %q", out)
	}
	raw, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parse raw volume %q: %w", m[1], err)
	}
	return Clamp(float64(raw) / pulseNorm), nil
}
