package proxy

import (
	"fmt"
	"strconv"
)

// Config holds the configuration for the Gateway.
type Config struct {
	UpstreamHost  string
	UpstreamPort  string
	Port          string
	Model         string // tokenizer hint for output token accounting
	StrictParse   bool   // treat never-closing function sections as invalid
	EnableRewrite bool   // rewrite tagged tool calls in upstream responses
	Debug         bool
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.UpstreamHost == "" {
		return fmt.Errorf("upstream host cannot be empty")
	}
	if c.UpstreamPort == "" {
		return fmt.Errorf("upstream port cannot be empty")
	}
	if _, err := strconv.Atoi(c.UpstreamPort); err != nil {
		return fmt.Errorf("invalid upstream port: %w", err)
	}
	if c.Port == "" {
		return fmt.Errorf("listen port cannot be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid listen port: %w", err)
	}
	return nil
}

// UpstreamURL returns the base URL of the upstream server.
func (c *Config) UpstreamURL() string {
	return fmt.Sprintf("http://%s:%s", c.UpstreamHost, c.UpstreamPort)
}
