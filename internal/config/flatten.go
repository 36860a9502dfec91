package config

import (
	"reflect"
	"sort"
	"time"

	"github.com/knadh/koanf/maps"
	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Flatten returns the configuration as dotted keys. Durations are rendered
// as strings so the values read back through Load.
func (c *Config) Flatten() map[string]interface{} {
	out := make(map[string]interface{})
	flatten(reflect.ValueOf(*c), "", out)
	return out
}

func flatten(v reflect.Value, prefix string, out map[string]interface{}) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("koanf")
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		fv := v.Field(i)
		switch {
		case f.Type == durationType:
			out[key] = time.Duration(fv.Int()).String()
		case fv.Kind() == reflect.Struct:
			flatten(fv, key, out)
		case fv.Kind() == reflect.String:
			out[key] = fv.String()
		default:
			out[key] = fv.Interface()
		}
	}
}

var knownKeys = func() map[string]bool {
	keys := make(map[string]bool)
	for k := range Default().Flatten() {
		keys[k] = true
	}
	return keys
}()

// IsKnownKey reports whether key is a settable dotted config path.
func IsKnownKey(key string) bool {
	return knownKeys[key]
}

// Keys lists every settable dotted path in order.
func Keys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dump renders the configuration as YAML.
func (c *Config) Dump() ([]byte, error) {
	return yaml.Marshal(maps.Unflatten(c.Flatten(), "."))
}
