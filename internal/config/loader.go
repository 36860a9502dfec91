package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/maps"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "MUDRA_"
	// EnvConfigPath names the YAML file when no path is given.
	EnvConfigPath = "MUDRA_CONFIG"
)

// Loader layers the configuration sources.
type Loader struct {
	path     string
	settings koanf.Provider
	noEnv    bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithFile reads the YAML file at path. An empty path falls back to
// MUDRA_CONFIG.
func WithFile(path string) Option {
	return func(l *Loader) { l.path = path }
}

// WithSettings layers persisted settings on top of the file.
func WithSettings(p koanf.Provider) Option {
	return func(l *Loader) { l.settings = p }
}

// WithoutEnv skips the environment layer.
func WithoutEnv() Option {
	return func(l *Loader) { l.noEnv = true }
}

// NewLoader builds a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.path == "" {
		l.path = os.Getenv(EnvConfigPath)
	}
	return l
}

// Load is shorthand for NewLoader(opts...).Load().
func Load(opts ...Option) (*Config, error) {
	return NewLoader(opts...).Load()
}

// Path returns the YAML file in use, if any.
func (l *Loader) Path() string {
	return l.path
}

// Load builds and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	return l.LoadWith(nil)
}

// LoadWith is Load with overrides applied on top of the persisted settings,
// below the environment. It lets a candidate setting be validated before it
// is stored.
func (l *Loader) LoadWith(overrides map[string]string) (*Config, error) {
	for key := range overrides {
		if !IsKnownKey(key) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
	}

	k := koanf.New(".")

	if l.path != "" {
		if err := k.Load(file.Provider(l.path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, l.path, err)
		}
	}

	if l.settings != nil {
		if err := k.Load(l.settings, nil); err != nil {
			return nil, fmt.Errorf("%w: settings: %w", ErrLoadConfig, err)
		}
	}

	if len(overrides) > 0 {
		if err := k.Load(mapProvider(overrides), nil); err != nil {
			return nil, fmt.Errorf("%w: overrides: %w", ErrLoadConfig, err)
		}
	}

	// MUDRA_DISPATCHER__VOLUME_STEP -> dispatcher.volume_step
	if !l.noEnv {
		envProvider := env.Provider(envPrefix, ".", func(s string) string {
			s = strings.TrimPrefix(s, envPrefix)
			s = strings.ToLower(s)
			return strings.ReplaceAll(s, "__", ".")
		})
		if err := k.Load(envProvider, nil); err != nil {
			return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mapProvider serves flat dotted keys as a koanf provider.
type mapProvider map[string]string

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("map provider does not support this method")
}

func (m mapProvider) Read() (map[string]interface{}, error) {
	flat := make(map[string]interface{}, len(m))
	for k, v := range m {
		flat[k] = v
	}
	return maps.Unflatten(flat, "."), nil
}
