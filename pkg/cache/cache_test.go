package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-park/weaver/pkg/config"
)

func TestCache(t *testing.T) {
	dir := t.TempDir()
	backends := []struct {
		name string
		opts config.CacheOptions
	}{
		{"memory", config.CacheOptions{Backend: config.CacheMemory}},
		{"bolt", config.CacheOptions{Backend: config.CacheBolt, Path: filepath.Join(dir, "aop.bolt")}},
		{"gorm", config.CacheOptions{Backend: config.CacheGorm, DSN: filepath.Join(dir, "aop.sqlite")}},
	}
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			c, err := New(b.opts)
			require.NoError(t, err)
			require.NotNil(t, c)
			defer c.Close()

			ok, err := c.Has("proxies")
			require.NoError(t, err)
			assert.False(t, ok)
			_, err = c.Get("proxies")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, c.Set("proxies", []byte(`["a"]`), "aop"))
			require.NoError(t, c.Set("proxies", []byte(`["a","b"]`), "aop"))
			require.NoError(t, c.Set("other", []byte("x"), "misc"))

			ok, err = c.Has("proxies")
			require.NoError(t, err)
			assert.True(t, ok)
			v, err := c.Get("proxies")
			require.NoError(t, err)
			assert.Equal(t, `["a","b"]`, string(v))

			require.NoError(t, c.FlushByTag("aop"))
			ok, err = c.Has("proxies")
			require.NoError(t, err)
			assert.False(t, ok)
			ok, err = c.Has("other")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, c.FlushByTag("unknown"))
		})
	}
}

func TestNew(t *testing.T) {
	c, err := New(config.CacheOptions{})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = New(config.CacheOptions{Backend: "redis"})
	assert.Error(t, err)
}
