// Package config holds the configuration snapshot consumed by setting()
// pointcuts and the options of the weaving pipeline.
package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

const (
	DefaultProxySuffix = "AOPProxy"
	DefaultContext     = "Development"

	CacheMemory = "memory"
	CacheBolt   = "bolt"
	CacheGorm   = "gorm"
)

type (
	// Options configure the weaving pipeline.
	Options struct {
		ProxySuffix string       `mapstructure:"proxySuffix" yaml:"proxySuffix"`
		Context     string       `mapstructure:"context" yaml:"context"`
		Blacklist   []string     `mapstructure:"blacklist" yaml:"blacklist"`
		Cache       CacheOptions `mapstructure:"cache" yaml:"cache"`
	}
	// CacheOptions select the build-artifact cache backend.
	CacheOptions struct {
		// Backend is one of "", "memory", "bolt" or "gorm".
		Backend string `mapstructure:"backend" yaml:"backend"`
		Path    string `mapstructure:"path" yaml:"path"`
		DSN     string `mapstructure:"dsn" yaml:"dsn"`
	}
)

func DefaultOptions() Options {
	return Options{
		ProxySuffix: DefaultProxySuffix,
		Context:     DefaultContext,
	}
}

// DecodeOptions decodes a generic map, e.g. a section of Settings, on top of
// the defaults.
func DecodeOptions(input map[string]any) (Options, error) {
	opts := DefaultOptions()
	if err := mapstructure.Decode(input, &opts); err != nil {
		return opts, fmt.Errorf("decode options: %w", err)
	}
	return opts, opts.Validate()
}

// LoadOptions parses a YAML document on top of the defaults.
func LoadOptions(data []byte) (Options, error) {
	opts := DefaultOptions()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse options: %w", err)
	}
	return opts, opts.Validate()
}

func LoadOptionsFile(filename string) (Options, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return DefaultOptions(), err
	}
	return LoadOptions(data)
}

// Validate reports unusable option values.
func (o Options) Validate() error {
	if o.ProxySuffix == "" {
		return fmt.Errorf("config: proxySuffix must not be empty")
	}
	switch o.Cache.Backend {
	case "", CacheMemory:
	case CacheBolt:
		if o.Cache.Path == "" {
			return fmt.Errorf("config: cache.path is required for the bolt backend")
		}
	case CacheGorm:
		if o.Cache.DSN == "" {
			return fmt.Errorf("config: cache.dsn is required for the gorm backend")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q", o.Cache.Backend)
	}
	return nil
}
