package ratelimit

import (
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Endpoint path pattern (supports prefix matching)
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// NewConfig returns a configuration allowing limit requests per window per
// client by default. A limit of zero disables rate limiting.
func NewConfig(limit int, window time.Duration) *Config {
	if limit <= 0 {
		return &Config{Enabled: false}
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Config{
		Enabled:         true,
		DefaultLimit:    limit,
		DefaultWindow:   window,
		CleanupInterval: 5 * time.Minute,
		Whitelist:       make(map[string]bool),
		Blacklist:       make(map[string]bool),
		EndpointConfigs: DefaultEndpointConfigs(limit, window),
	}
}

// DefaultEndpointConfigs returns the endpoint-specific configurations derived
// from the default limit.
func DefaultEndpointConfigs(limit int, window time.Duration) []EndpointConfig {
	// Each extract or import makes one LLM call.
	llmLimit := max(limit/3, 1)
	return []EndpointConfig{
		{Path: "/import", Method: "POST", Limit: llmLimit, Window: window, Burst: min(llmLimit, 5)},
		{Path: "/import/stream", Method: "POST", Limit: llmLimit, Window: window, Burst: min(llmLimit, 5)},
		{Path: "/extract", Method: "POST", Limit: llmLimit, Window: window, Burst: min(llmLimit, 5)},
		{Path: "/save", Method: "POST", Limit: limit, Window: window, Burst: min(limit, 10)},
	}
}
