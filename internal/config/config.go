// Package config defines the mudra configuration and how it is layered.
//
// Sources, lowest precedence first:
//  1. defaults (Default)
//  2. YAML file (-config flag or MUDRA_CONFIG)
//  3. settings persisted in the store
//  4. environment (MUDRA_ prefix, "__" separates sections)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/recognizer"
	"github.com/ayusman/mudra/internal/volume"
)

// Media key backends.
const (
	KeysAuto   = "auto"   // native, then plugin
	KeysNative = "native" // OS facility only
	KeysPlugin = "plugin" // system-control plugin only
	KeysNone   = "none"
)

// Config is the full process configuration.
type Config struct {
	// DataDir holds the settings database and the default plugin directory.
	DataDir    string            `koanf:"data_dir" yaml:"data_dir" json:"data_dir"`
	Dispatcher gesture.Config    `koanf:"dispatcher" yaml:"dispatcher" json:"dispatcher"`
	Volume     volume.Options    `koanf:"volume" yaml:"volume" json:"volume"`
	MediaKeys  MediaKeysConfig   `koanf:"media_keys" yaml:"media_keys" json:"media_keys"`
	Camera     capture.Config    `koanf:"camera" yaml:"camera" json:"camera"`
	Recognizer recognizer.Config `koanf:"recognizer" yaml:"recognizer" json:"recognizer"`
	Server     ServerConfig      `koanf:"server" yaml:"server" json:"server"`
	Plugins    PluginsConfig     `koanf:"plugins" yaml:"plugins" json:"plugins"`
	Log        LogConfig         `koanf:"log" yaml:"log" json:"log"`
}

// MediaKeysConfig selects how media keys are sent.
type MediaKeysConfig struct {
	Backend string `koanf:"backend" yaml:"backend" json:"backend"`
	// Player restricts playerctl to one player on Linux.
	Player string `koanf:"player" yaml:"player" json:"player"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Enabled   bool   `koanf:"enabled" yaml:"enabled" json:"enabled"`
	Addr      string `koanf:"addr" yaml:"addr" json:"addr"`
	StaticDir string `koanf:"static_dir" yaml:"static_dir" json:"static_dir"`
}

// PluginsConfig locates action plugins.
type PluginsConfig struct {
	Dir     string        `koanf:"dir" yaml:"dir" json:"dir"`
	Timeout time.Duration `koanf:"timeout" yaml:"timeout" json:"timeout"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `koanf:"level" yaml:"level" json:"level"`
	Format string `koanf:"format" yaml:"format" json:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := ".mudra"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".mudra")
	}

	return &Config{
		DataDir:    dataDir,
		Dispatcher: gesture.DefaultConfig(),
		Volume: volume.Options{
			Backend: volume.BackendAuto,
			Timeout: volume.DefaultTimeout,
			CamillaDSP: volume.CamillaDSPOptions{
				URL:   volume.DefaultCamillaURL,
				MinDB: volume.DefaultCamillaMinDB,
				MaxDB: volume.DefaultCamillaMaxDB,
			},
		},
		MediaKeys:  MediaKeysConfig{Backend: KeysAuto},
		Camera:     capture.DefaultConfig(),
		Recognizer: recognizer.DefaultConfig(),
		Server: ServerConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8080",
		},
		Plugins: PluginsConfig{Timeout: plugin.DefaultTimeout},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// DBPath is the settings database inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "mudra.db")
}

// PluginDir returns Plugins.Dir, defaulting to DataDir/plugins.
func (c *Config) PluginDir() string {
	if c.Plugins.Dir != "" {
		return c.Plugins.Dir
	}
	return filepath.Join(c.DataDir, "plugins")
}

var (
	keyBackends = []string{KeysAuto, KeysNative, KeysPlugin, KeysNone}
	logLevels   = []string{"trace", "debug", "info", "warn", "error", "disabled"}
	logFormats  = []string{"console", "json"}
)

// Validate checks every section. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := c.Dispatcher.Validate(); err != nil {
		return invalid("dispatcher", err)
	}
	if !c.Volume.Backend.Valid() {
		return invalid("volume", fmt.Errorf("unknown backend %q", c.Volume.Backend))
	}
	if c.Volume.Timeout < 0 {
		return invalid("volume", fmt.Errorf("timeout must not be negative, got %v", c.Volume.Timeout))
	}
	if !oneOf(c.MediaKeys.Backend, keyBackends) {
		return invalid("media_keys", fmt.Errorf("unknown backend %q", c.MediaKeys.Backend))
	}
	if err := c.Camera.Validate(); err != nil {
		return invalid("camera", err)
	}
	if c.Recognizer.NumHands <= 0 {
		return invalid("recognizer", fmt.Errorf("num_hands must be positive, got %d", c.Recognizer.NumHands))
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return invalid("server", fmt.Errorf("addr must not be empty"))
	}
	if c.Plugins.Timeout < 0 {
		return invalid("plugins", fmt.Errorf("timeout must not be negative, got %v", c.Plugins.Timeout))
	}
	if !oneOf(strings.ToLower(c.Log.Level), logLevels) {
		return invalid("log", fmt.Errorf("unknown level %q", c.Log.Level))
	}
	if !oneOf(strings.ToLower(c.Log.Format), logFormats) {
		return invalid("log", fmt.Errorf("unknown format %q", c.Log.Format))
	}
	if c.DataDir == "" {
		return invalid("data_dir", fmt.Errorf("must not be empty"))
	}
	return nil
}

func invalid(section string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, section, err)
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
