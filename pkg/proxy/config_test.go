package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		UpstreamHost:  "localhost",
		UpstreamPort:  "8000",
		Port:          "8080",
		Model:         "qwen3",
		EnableRewrite: true,
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("empty_upstream_host", func(t *testing.T) {
		c := validConfig()
		c.UpstreamHost = ""
		assert.ErrorContains(t, c.Validate(), "upstream host")
	})

	t.Run("empty_upstream_port", func(t *testing.T) {
		c := validConfig()
		c.UpstreamPort = ""
		assert.ErrorContains(t, c.Validate(), "upstream port")
	})

	t.Run("non_numeric_upstream_port", func(t *testing.T) {
		c := validConfig()
		c.UpstreamPort = "eight"
		assert.ErrorContains(t, c.Validate(), "invalid upstream port")
	})

	t.Run("empty_listen_port", func(t *testing.T) {
		c := validConfig()
		c.Port = ""
		assert.ErrorContains(t, c.Validate(), "listen port")
	})

	t.Run("non_numeric_listen_port", func(t *testing.T) {
		c := validConfig()
		c.Port = "http"
		assert.ErrorContains(t, c.Validate(), "invalid listen port")
	})
}

func TestConfig_UpstreamURL(t *testing.T) {
	c := validConfig()
	assert.Equal(t, "http://localhost:8000", c.UpstreamURL())
}
