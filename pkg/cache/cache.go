// Package cache stores weaving results between builds.
package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-park/weaver/pkg/config"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("cache: entry not found")

// Cache is a tagged key/value store for build artifacts.
type Cache interface {
	Has(key string) (bool, error)
	Get(key string) ([]byte, error)
	// Set stores value under key. Tags group entries for FlushByTag.
	Set(key string, value []byte, tags ...string) error
	FlushByTag(tag string) error
	Close() error
}

// New opens the backend selected by opts. An empty backend disables caching
// and returns a nil Cache.
func New(opts config.CacheOptions) (Cache, error) {
	switch opts.Backend {
	case "":
		return nil, nil
	case config.CacheMemory:
		return NewMemory(), nil
	case config.CacheBolt:
		return OpenBolt(opts.Path)
	case config.CacheGorm:
		return OpenGorm(opts.DSN)
	}
	return nil, fmt.Errorf("cache: unknown backend %q", opts.Backend)
}

var _ Cache = (*Memory)(nil)

// Memory is a Cache living in the process.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
	tags    map[string]map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		entries: map[string][]byte{},
		tags:    map[string]map[string]struct{}{},
	}
}

func (m *Memory) Has(key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok, nil
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(key string, value []byte, tags ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), value...)
	for _, tag := range tags {
		keys, ok := m.tags[tag]
		if !ok {
			keys = map[string]struct{}{}
			m.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (m *Memory) FlushByTag(tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.tags[tag] {
		delete(m.entries, key)
	}
	delete(m.tags, tag)
	return nil
}

func (m *Memory) Close() error { return nil }
