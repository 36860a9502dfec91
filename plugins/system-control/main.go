// Command system-control is a macOS plugin that presses media keys and reads
// or sets the output volume. It reads one plugin request from stdin and
// writes one response to stdout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ayusman/mudra/internal/mediakey"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/volume"
)

type levelData struct {
	Level float64 `json:"level"`
}

type actionHandler func(ctx context.Context, req *plugin.Request, keys mediakey.Sender, vol volume.Controller) (any, error)

var actionHandlers = map[string]actionHandler{
	"media-play-pause": pressKey(mediakey.PlayPause),
	"media-next":       pressKey(mediakey.Next),
	"media-prev":       pressKey(mediakey.Previous),
	"volume-get":       volumeGet,
	"volume-set":       volumeSet,
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(plugin.Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}
	writeResponse(handle(ctx, &req, mediakey.NewAppleScript(), volume.NewCoreAudio()))
}

func handle(ctx context.Context, req *plugin.Request, keys mediakey.Sender, vol volume.Controller) plugin.Response {
	handler, ok := actionHandlers[req.Action]
	if !ok {
		return plugin.Response{Error: fmt.Sprintf("unknown action: %s", req.Action)}
	}

	data, err := handler(ctx, req, keys, vol)
	if err != nil {
		return plugin.Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)}
	}

	resp := plugin.Response{Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return plugin.Response{Error: fmt.Sprintf("encode result: %v", err)}
		}
		resp.Data = raw
	}
	return resp
}

func pressKey(key mediakey.Key) actionHandler {
	return func(ctx context.Context, _ *plugin.Request, keys mediakey.Sender, _ volume.Controller) (any, error) {
		return nil, keys.Send(ctx, key)
	}
}

func volumeGet(ctx context.Context, _ *plugin.Request, _ mediakey.Sender, vol volume.Controller) (any, error) {
	level, err := vol.Get(ctx)
	if err != nil {
		return nil, err
	}
	return levelData{Level: level}, nil
}

func volumeSet(ctx context.Context, req *plugin.Request, _ mediakey.Sender, vol volume.Controller) (any, error) {
	if len(req.Params) == 0 {
		return nil, fmt.Errorf("missing level")
	}
	var p struct {
		Level *float64 `json:"level"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Level == nil {
		return nil, fmt.Errorf("missing level")
	}
	level := volume.Clamp(*p.Level)
	if err := vol.Set(ctx, level); err != nil {
		return nil, err
	}
	return levelData{Level: level}, nil
}

func writeResponse(resp plugin.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
