package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Settings is a read-only snapshot of nested configuration values.
type Settings map[string]any

// LoadSettings parses a YAML document into Settings.
func LoadSettings(data []byte) (Settings, error) {
	var raw map[interface{}]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	settings := Settings{}
	for k, v := range raw {
		settings[fmt.Sprint(k)] = normalize(v)
	}
	return settings, nil
}

// LoadSettingsFile reads and parses a YAML settings file.
func LoadSettingsFile(filename string) (Settings, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return LoadSettings(data)
}

// normalize turns yaml.v2 maps into map[string]any recursively.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]any, len(t))
		for k, v := range t {
			m[fmt.Sprint(k)] = normalize(v)
		}
		return m
	case []interface{}:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	}
	return v
}

// SplitPath splits a setting path on "." and ":".
func SplitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return r == '.' || r == ':'
	})
}

// Lookup resolves a path of keys. The second result is false if any key on
// the path is missing.
func (s Settings) Lookup(keys ...string) (any, bool) {
	if len(keys) == 0 {
		return nil, false
	}
	var current any = map[string]any(s)
	for _, key := range keys {
		var m map[string]any
		switch t := current.(type) {
		case map[string]any:
			m = t
		case Settings:
			m = t
		default:
			return nil, false
		}
		var ok bool
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Path resolves a dotted path such as "Neos.Flow.aop.enabled".
func (s Settings) Path(path string) (any, bool) {
	return s.Lookup(SplitPath(path)...)
}
