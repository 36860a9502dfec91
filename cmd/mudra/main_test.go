package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/mediakey"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/volume"
)

func TestOptions_Overrides(t *testing.T) {
	got := options{addr: ":9090", volumeBackend: "memory"}.overrides()
	if len(got) != 2 {
		t.Fatalf("overrides = %v", got)
	}
	if got["server.addr"] != ":9090" || got["volume.backend"] != "memory" {
		t.Errorf("overrides = %v", got)
	}
	if len((options{}).overrides()) != 0 {
		t.Error("expected no overrides without flags")
	}
}

func TestFlagSource_FlagsWin(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	src := &flagSource{
		loader:    config.NewLoader(config.WithoutEnv()),
		overrides: map[string]string{"volume.backend": "memory"},
	}

	cfg, err := src.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Volume.Backend != volume.BackendMemory {
		t.Errorf("backend = %q, want memory", cfg.Volume.Backend)
	}

	cfg, err = src.LoadWith(map[string]string{
		"volume.backend":         "pulse",
		"dispatcher.volume_step": "0.2",
	})
	if err != nil {
		t.Fatalf("LoadWith() error = %v", err)
	}
	if cfg.Volume.Backend != volume.BackendMemory {
		t.Errorf("backend = %q, want the flag value", cfg.Volume.Backend)
	}
	if cfg.Dispatcher.VolumeStep != 0.2 {
		t.Errorf("volume_step = %v, want 0.2", cfg.Dispatcher.VolumeStep)
	}
}

func TestMediaKeys(t *testing.T) {
	m := plugin.NewManager(t.TempDir())
	e := plugin.NewExecutor(0)

	tests := []struct {
		backend string
		want    string
	}{
		{config.KeysAuto, "mediakey.Fallback"},
		{config.KeysNative, "*mediakey.Playerctl"},
		{config.KeysPlugin, "*mediakey.PluginSender"},
		{config.KeysNone, "mediakey.Unsupported"},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			s, err := mediaKeys(config.MediaKeysConfig{Backend: tt.backend, Player: "spotify"}, "linux", m, e)
			if err != nil {
				t.Fatalf("mediaKeys() error = %v", err)
			}
			if got := fmt.Sprintf("%T", s); got != tt.want {
				t.Errorf("sender = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := mediaKeys(config.MediaKeysConfig{Backend: "bogus"}, "linux", m, e); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestMediaKeys_PluginWithoutPlugins(t *testing.T) {
	s, err := mediaKeys(config.MediaKeysConfig{Backend: config.KeysPlugin}, "linux", plugin.NewManager(t.TempDir()), plugin.NewExecutor(0))
	if err != nil {
		t.Fatalf("mediaKeys() error = %v", err)
	}
	if err := s.Send(context.Background(), mediakey.Next); err == nil {
		t.Error("expected error without a media plugin")
	}
}

func TestSettingsURL(t *testing.T) {
	tests := map[string]string{
		"127.0.0.1:8080": "http://127.0.0.1:8080/",
		":8080":          "http://127.0.0.1:8080/",
		"0.0.0.0:9000":   "http://127.0.0.1:9000/",
		"[::]:9000":      "http://127.0.0.1:9000/",
		"localhost:80":   "http://localhost:80/",
	}
	for addr, want := range tests {
		if got := settingsURL(addr); got != want {
			t.Errorf("settingsURL(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestBuildApp_Headless(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Volume.Backend = volume.BackendMemory
	cfg.Volume.InitialLevel = 0.5
	cfg.MediaKeys.Backend = config.KeysNone
	cfg.Camera.Enabled = false

	appCfg, cleanup, err := buildApp(cfg, metrics.NewManager())
	if err != nil {
		t.Fatalf("buildApp() error = %v", err)
	}
	defer cleanup()

	if appCfg.Camera != nil || appCfg.Recognizer != nil {
		t.Error("expected no capture with the camera disabled")
	}

	res, err := appCfg.Dispatcher.Handle(context.Background(), gesture.Event{Label: gesture.ThumbUp, Confidence: 0.9})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if res.Action != gesture.VolumeChanged || res.Level != 0.6 {
		t.Errorf("result = %+v, want volume 0.6", res)
	}
}

func TestBuildApp_BadVolumeBackend(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Volume.Backend = "bogus"

	if _, _, err := buildApp(cfg, metrics.NewManager()); err == nil {
		t.Error("expected error for unknown volume backend")
	}
}
