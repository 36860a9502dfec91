package volume

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CoreAudio drives the macOS output volume through AppleScript's
// "volume settings", which is backed by Core Audio.
type CoreAudio struct {
	run runner
}

// NewCoreAudio creates a CoreAudio controller.
func NewCoreAudio() *CoreAudio {
	return &CoreAudio{run: runCommand}
}

// Get reads "output volume" (0-100) and normalizes it.
func (c *CoreAudio) Get(ctx context.Context) (float64, error) {
	out, err := c.run(ctx, "osascript", "-e", `output volume of (get volume settings)`)
	if err != nil {
		return 0, unavailable("osascript get volume", err)
	}

	text := strings.TrimSpace(string(out))
	// "missing value" is returned when the default output has no volume control.
	if text == "missing value" {
		return 0, unavailable("osascript get volume", fmt.Errorf("default output has no volume control"))
	}

	percent, err := strconv.Atoi(text)
	if err != nil {
		return 0, unavailable("osascript get volume", fmt.Errorf("unexpected output %q", text))
	}
	return Clamp(float64(percent) / 100), nil
}

// Set writes the level as an integer percentage.
func (c *CoreAudio) Set(ctx context.Context, level float64) error {
	percent := int(math.Round(Clamp(level) * 100))
	script := fmt.Sprintf(`set volume output volume %d`, percent)
	if _, err := c.run(ctx, "osascript", "-e", script); err != nil {
		return unavailable("osascript set volume", err)
	}
	return nil
}
