package main

import (
	"fmt"
	"io"
	"net"
	"os/exec"
	"runtime"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logger"
	"github.com/ayusman/mudra/internal/mediakey"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/recognizer"
	"github.com/ayusman/mudra/internal/volume"
)

// buildApp assembles the application from cfg. The returned cleanup
// releases the volume backend.
func buildApp(cfg *config.Config, m *metrics.Manager) (app.Config, func(), error) {
	log := logger.Named("main")

	vol, err := volume.New(cfg.Volume)
	if err != nil {
		return app.Config{}, nil, fmt.Errorf("volume backend: %w", err)
	}
	cleanup := func() {
		if c, ok := vol.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Msg("close volume backend")
			}
		}
	}

	plugins := plugin.NewManager(cfg.PluginDir())
	if err := plugins.Discover(); err != nil {
		log.Warn().Err(err).Str("dir", cfg.PluginDir()).Msg("plugin discovery failed")
	}
	for _, p := range plugins.List() {
		log.Debug().Str("plugin", p.Manifest.Name).Strs("actions", p.Manifest.Actions).Msg("plugin loaded")
	}
	executor := plugin.NewExecutor(cfg.Plugins.Timeout)

	keys, err := mediaKeys(cfg.MediaKeys, runtime.GOOS, plugins, executor)
	if err != nil {
		cleanup()
		return app.Config{}, nil, err
	}

	appCfg := app.Config{
		Capture:    cfg.Camera,
		Dispatcher: gesture.NewDispatcher(vol, keys, cfg.Dispatcher),
		Volume:     vol,
		Metrics:    m,
	}

	if cfg.Camera.Enabled {
		rec, err := recognizer.NewMediaPipe(cfg.Recognizer)
		if err != nil {
			log.Warn().Err(err).Msg("recognizer unavailable, capture disabled")
		} else {
			appCfg.Camera = capture.NewCamera(cfg.Camera)
			appCfg.Recognizer = rec
		}
	}
	return appCfg, cleanup, nil
}

// mediaKeys picks the media key sender for the configured backend.
func mediaKeys(cfg config.MediaKeysConfig, goos string, m *plugin.Manager, e *plugin.Executor) (mediakey.Sender, error) {
	native := func() mediakey.Sender {
		if goos == "linux" && cfg.Player != "" {
			return mediakey.NewPlayerctl(cfg.Player)
		}
		return mediakey.Native()
	}

	switch cfg.Backend {
	case config.KeysAuto, "":
		return mediakey.Fallback{native(), mediakey.NewPluginSender(m, e)}, nil
	case config.KeysNative:
		return native(), nil
	case config.KeysPlugin:
		return mediakey.NewPluginSender(m, e), nil
	case config.KeysNone:
		return mediakey.Unsupported{}, nil
	default:
		return nil, fmt.Errorf("unknown media key backend %q", cfg.Backend)
	}
}

// settingsURL turns a listen address into a browsable URL.
func settingsURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
