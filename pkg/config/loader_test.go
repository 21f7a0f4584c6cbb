package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/todokit/pkg/config"
)

type serverTestConfig struct {
	Addr    string        `env:"TEST_SERVER_ADDR" envDefault:":8080"`
	Timeout time.Duration `env:"TEST_SERVER_TIMEOUT" envDefault:"30s"`
}

type storeTestConfig struct {
	URL      string `env:"TEST_STORE_URL" envDefault:"mongodb://localhost:27017"`
	Database string `env:"TEST_STORE_DB" envDefault:"todokit"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		var cfg serverTestConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		t.Setenv("TEST_STORE_DB", "todos_test")

		var cfg storeTestConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "todos_test", cfg.Database)
	})

	t.Run("cached per type", func(t *testing.T) {
		var first serverTestConfig
		require.NoError(t, config.Load(&first))

		// Changing the environment after the first load must not change
		// the cached result.
		t.Setenv("TEST_SERVER_ADDR", ":9999")

		var second serverTestConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, first.Addr, second.Addr)
	})

	t.Run("nil pointer", func(t *testing.T) {
		err := config.Load[serverTestConfig](nil)
		require.ErrorIs(t, err, config.ErrNilPointer)
	})
}

func TestMustLoad(t *testing.T) {
	t.Run("panics on nil pointer", func(t *testing.T) {
		assert.Panics(t, func() {
			config.MustLoad[serverTestConfig](nil)
		})
	})
}
