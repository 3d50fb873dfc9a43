package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8081/v1",
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing base URL", mutate: func(c *Config) { c.BaseURL = "" }},
		{name: "missing model", mutate: func(c *Config) { c.Model = "" }},
		{name: "zero dimensions", mutate: func(c *Config) { c.Dimensions = 0 }},
		{name: "negative dimensions", mutate: func(c *Config) { c.Dimensions = -4 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNewService(t *testing.T) {
	t.Run("invalid config rejected", func(t *testing.T) {
		_, err := NewService(Config{})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("keyless config gets a placeholder token", func(t *testing.T) {
		svc, err := NewService(validConfig())
		require.NoError(t, err)
		assert.Equal(t, 1536, svc.Dimensions())
	})
}

func TestEmbedEmptyInput(t *testing.T) {
	svc, err := NewService(validConfig())
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = svc.Embed(context.Background(), []string{})
	assert.ErrorIs(t, err, ErrEmptyInput)
}
