package mediakey

import (
	"context"
	"fmt"

	"github.com/ayusman/mudra/internal/plugin"
)

// Plugin action names for each key.
var pluginActions = map[Key]string{
	PlayPause: "media-play-pause",
	Next:      "media-next",
	Previous:  "media-prev",
}

// PluginAction returns the plugin action that presses key.
func PluginAction(key Key) (string, bool) {
	a, ok := pluginActions[key]
	return a, ok
}

// PluginSender presses keys by running whichever discovered plugin
// implements the matching media action.
type PluginSender struct {
	manager  *plugin.Manager
	executor *plugin.Executor
}

// NewPluginSender returns a sender backed by plugins from m, run by e.
func NewPluginSender(m *plugin.Manager, e *plugin.Executor) *PluginSender {
	return &PluginSender{manager: m, executor: e}
}

// Send implements Sender.
func (p *PluginSender) Send(ctx context.Context, key Key) error {
	action, ok := PluginAction(key)
	if !ok {
		return fmt.Errorf("send %s: %w", key, ErrUnsupported)
	}
	if _, err := plugin.Run(ctx, p.manager, p.executor, &plugin.Request{Action: action}); err != nil {
		return fmt.Errorf("send %s: %w", key, err)
	}
	return nil
}

// Fallback tries each sender in order and returns the first success.
// The error of the last sender is returned when all of them fail.
type Fallback []Sender

// Send implements Sender.
func (f Fallback) Send(ctx context.Context, key Key) error {
	err := fmt.Errorf("send %s: %w", key, ErrUnsupported)
	for _, s := range f {
		if err = s.Send(ctx, key); err == nil {
			return nil
		}
	}
	return err
}
