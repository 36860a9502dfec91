// Package tray provides the system tray menu for mudra.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
)

// Tray is the system tray menu. It shows whether gesture control is on, the
// last action and the volume it left behind.
type Tray struct {
	onToggle   func(enabled bool)
	onSettings func()
	onQuit     func()
	enabled    bool
	last       string
	volume     string
	mu         sync.RWMutex

	menuToggle *systray.MenuItem
	menuLast   *systray.MenuItem
	menuVolume *systray.MenuItem
}

// New creates a Tray in the given enabled state.
func New(enabled bool) *Tray {
	return &Tray{
		enabled: enabled,
		last:    "Last: none",
		volume:  "Volume: unknown",
	}
}

// OnToggle sets the callback run when the user flips the enabled item.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback run by "Open Settings...".
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback run by "Quit".
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray. It blocks until Quit and must be called from the
// main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra gesture media control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture control")
	systray.AddSeparator()
	t.menuLast = systray.AddMenuItem(t.last, "Last gesture action")
	t.menuLast.Disable()
	t.menuVolume = systray.AddMenuItem(t.volume, "Volume after the last action")
	t.menuVolume.Disable()
	t.mu.Unlock()

	systray.AddSeparator()
	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// SetEnabled syncs the toggle item with a change made elsewhere.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// IsEnabled returns the toggle state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// OnDispatch implements app.Observer. Only dispatches that acted or failed
// change the menu.
func (t *Tray) OnDispatch(d app.Dispatch) {
	last, ok := lastTitle(d)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = last
	if t.menuLast != nil {
		t.menuLast.SetTitle(last)
	}
	if v, ok := volumeTitle(d.Result); ok {
		t.volume = v
		if t.menuVolume != nil {
			t.menuVolume.SetTitle(v)
		}
	}
}

// Titles returns the current last-action and volume lines.
func (t *Tray) Titles() (last, volume string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last, t.volume
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func lastTitle(d app.Dispatch) (string, bool) {
	r := d.Result
	switch {
	case d.Error != "":
		return fmt.Sprintf("Last: %s failed", r.Label), true
	case r.Action == gesture.MediaKeyPressed:
		return fmt.Sprintf("Last: %s → %s", r.Label, r.Key), true
	case r.Action == gesture.VolumeChanged || r.Action == gesture.VolumeSetMax:
		return fmt.Sprintf("Last: %s → %s", r.Label, r.Action), true
	default:
		return "", false
	}
}

func volumeTitle(r gesture.Result) (string, bool) {
	if r.Action != gesture.VolumeChanged && r.Action != gesture.VolumeSetMax {
		return "", false
	}
	return fmt.Sprintf("Volume: %.0f%%", r.Level*100), true
}
