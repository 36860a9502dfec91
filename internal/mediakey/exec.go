package mediakey

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type runner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// AppleScript sends keys through System Events key codes.
type AppleScript struct {
	run runner
}

// NewAppleScript returns a macOS sender.
func NewAppleScript() *AppleScript {
	return &AppleScript{run: runCommand}
}

var appleKeyCodes = map[Key]int{
	PlayPause: 100,
	Next:      101,
	Previous:  98,
}

// Send implements Sender.
func (a *AppleScript) Send(ctx context.Context, key Key) error {
	code, ok := appleKeyCodes[key]
	if !ok {
		return fmt.Errorf("send %s: %w", key, ErrUnsupported)
	}
	script := fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", code)
	return a.run(ctx, "osascript", "-e", script)
}

// Playerctl drives MPRIS players on Linux.
type Playerctl struct {
	Player string
	run    runner
}

// NewPlayerctl returns a sender controlling player, or whichever player
// playerctl picks when player is empty.
func NewPlayerctl(player string) *Playerctl {
	return &Playerctl{Player: player, run: runCommand}
}

var playerctlCommands = map[Key]string{
	PlayPause: "play-pause",
	Next:      "next",
	Previous:  "previous",
}

// Send implements Sender.
func (p *Playerctl) Send(ctx context.Context, key Key) error {
	cmd, ok := playerctlCommands[key]
	if !ok {
		return fmt.Errorf("send %s: %w", key, ErrUnsupported)
	}
	args := []string{cmd}
	if p.Player != "" {
		args = []string{"--player=" + p.Player, cmd}
	}
	return p.run(ctx, "playerctl", args...)
}
