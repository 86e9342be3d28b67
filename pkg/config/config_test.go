package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantkit/pkg/config"
)

// Config types are cached per type, so each test declares its own struct
// type to stay isolated.

func TestLoad(t *testing.T) {
	t.Run("parses env tags", func(t *testing.T) {
		type appConfig struct {
			Name  string `env:"TEST_APP_NAME"`
			Port  int    `env:"TEST_APP_PORT" envDefault:"8080"`
			Debug bool   `env:"TEST_APP_DEBUG" envDefault:"false"`
		}

		t.Setenv("TEST_APP_NAME", "tenantkit")
		t.Setenv("TEST_APP_DEBUG", "true")

		var cfg appConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "tenantkit", cfg.Name)
		assert.Equal(t, 8080, cfg.Port)
		assert.True(t, cfg.Debug)
	})

	t.Run("missing required variable fails", func(t *testing.T) {
		type strictConfig struct {
			Secret string `env:"TEST_REQUIRED_SECRET,required"`
		}

		var cfg strictConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("second load returns the cached value", func(t *testing.T) {
		type cachedConfig struct {
			Value string `env:"TEST_CACHED_VALUE"`
		}

		t.Setenv("TEST_CACHED_VALUE", "first")
		var first cachedConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("TEST_CACHED_VALUE", "second")
		var second cachedConfig
		require.NoError(t, config.Load(&second))

		assert.Equal(t, "first", second.Value, "env changes after first load are ignored")
	})

	t.Run("nil destination fails", func(t *testing.T) {
		err := config.Load[struct{}](nil)
		assert.ErrorIs(t, err, config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on failure", func(t *testing.T) {
		type mustConfig struct {
			Secret string `env:"TEST_MUST_SECRET,required"`
		}

		assert.Panics(t, func() {
			var cfg mustConfig
			config.MustLoad(&cfg)
		})
	})
}
