package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be
	// parsed into the target struct.
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrNilPointer is returned when Load receives a nil destination.
	ErrNilPointer = errors.New("nil pointer provided to config loader")
)

var (
	mu         sync.RWMutex
	loaded     = make(map[string]any)
	dotenvOnce sync.Once
)

// Load populates cfg from environment variables using its `env` field tags.
// The first call in the process also loads a .env file if one is present.
// Each config type is parsed once; later calls return the cached value so
// every component sharing a Config sees identical settings.
func Load[T any](cfg *T) error {
	dotenvOnce.Do(func() {
		_ = godotenv.Load() // missing .env is fine
	})
	if cfg == nil {
		return ErrNilPointer
	}

	key := typeName[T]()

	mu.RLock()
	cached, ok := loaded[key]
	mu.RUnlock()
	if ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	mu.Lock()
	defer mu.Unlock()
	if cached, ok := loaded[key]; ok {
		*cfg = cached.(T)
		return nil
	}
	loaded[key] = *cfg
	return nil
}

// MustLoad is Load that panics on failure. Use for configuration the process
// cannot start without.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

func typeName[T any]() string {
	t := reflect.TypeOf(*new(T))
	if t == nil {
		return fmt.Sprintf("%T", *new(T))
	}
	return t.String()
}
