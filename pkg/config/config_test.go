package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settingsYAML = `
Acme:
  Shop:
    logging:
      enabled: true
      level: debug
    retries: 3
`

func TestSettings_Path(t *testing.T) {
	s, err := LoadSettings([]byte(settingsYAML))
	require.NoError(t, err)

	tests := []struct {
		path  string
		want  any
		found bool
	}{
		{"Acme.Shop.logging.enabled", true, true},
		{"Acme.Shop.logging.level", "debug", true},
		{"Acme:Shop.retries", 3, true},
		{"Acme.Shop.missing", nil, false},
		{"Acme.Shop.retries.deeper", nil, false},
		{"", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := s.Path(tt.path)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettings_literal(t *testing.T) {
	s := Settings{"a": Settings{"b": map[string]any{"c": "d"}}}
	v, ok := s.Lookup("a", "b", "c")
	assert.True(t, ok)
	assert.Equal(t, "d", v)
}

func TestDecodeOptions(t *testing.T) {
	opts, err := DecodeOptions(map[string]any{
		"context":   "Testing",
		"blacklist": []string{"app.Legacy"},
		"cache":     map[string]any{"backend": "bolt", "path": "/tmp/aop.db"},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultProxySuffix, opts.ProxySuffix)
	assert.Equal(t, "Testing", opts.Context)
	assert.Equal(t, []string{"app.Legacy"}, opts.Blacklist)
	assert.Equal(t, "bolt", opts.Cache.Backend)

	_, err = DecodeOptions(map[string]any{"cache": map[string]any{"backend": "redis"}})
	assert.Error(t, err)
	_, err = DecodeOptions(map[string]any{"cache": map[string]any{"backend": "gorm"}})
	assert.Error(t, err)
}

func TestLoadOptions(t *testing.T) {
	opts, err := LoadOptions([]byte("proxySuffix: Woven\ncache:\n  backend: memory\n"))
	require.NoError(t, err)
	assert.Equal(t, "Woven", opts.ProxySuffix)
	assert.Equal(t, DefaultContext, opts.Context)
	assert.Equal(t, "memory", opts.Cache.Backend)
}
