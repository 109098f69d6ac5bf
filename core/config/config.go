package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu    sync.Mutex
	cache = make(map[reflect.Type]any)

	dotenvOnce sync.Once
)

// Load populates cfg from environment variables using `env` struct tags.
// Each configuration type is parsed once per process; subsequent calls for
// the same type return the cached value. A .env file, when present, is
// loaded into the environment on first use.
func Load[T any](cfg *T) error {
	dotenvOnce.Do(func() {
		// Missing .env files are expected outside local development.
		_ = godotenv.Load()
	})

	mu.Lock()
	defer mu.Unlock()

	key := reflect.TypeOf(cfg).Elem()
	if cached, ok := cache[key]; ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", key, err)
	}

	cache[key] = *cfg
	return nil
}

// MustLoad is like Load but panics on failure. Useful during startup where
// a missing required variable should abort the process.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}

// Reset clears the configuration cache. Test helper only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cache = make(map[reflect.Type]any)
}
