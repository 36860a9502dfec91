package store

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// SettingsProvider exposes persisted settings as a koanf provider so they
// can be layered between the config file and the environment.
type SettingsProvider struct {
	repo *SettingsRepository
}

// Provider returns a koanf provider over the settings table.
func (s *Store) Provider() *SettingsProvider {
	return &SettingsProvider{repo: s.Settings()}
}

// ReadBytes is not supported; use Read.
func (p *SettingsProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("store settings provider does not support this method")
}

// Read returns the settings as a nested map keyed on the dotted paths.
func (p *SettingsProvider) Read() (map[string]interface{}, error) {
	all, err := p.repo.All()
	if err != nil {
		return nil, err
	}
	flat := make(map[string]interface{}, len(all))
	for k, v := range all {
		flat[k] = v
	}
	return maps.Unflatten(flat, "."), nil
}
