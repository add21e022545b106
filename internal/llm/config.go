// Package llm provides centralized LLM configuration and client abstractions.
// Moonshot (Kimi) is the default provider; Gemini is kept as an alternative.
package llm

import "time"

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for simple tasks: classification, short extraction
	TierLite ModelTier = "lite"
	// TierStandard is for structured extraction from a full page
	TierStandard ModelTier = "standard"
	// TierAdvanced is for long pages that overflow the standard context window
	TierAdvanced ModelTier = "advanced"
)

// Provider represents an LLM provider
type Provider string

// Provider constants define supported LLM providers
const (
	// ProviderMoonshot is Moonshot AI (Kimi), served through an OpenAI-compatible API
	ProviderMoonshot Provider = "moonshot"
	// ProviderGemini is the Google Gemini provider
	ProviderGemini Provider = "gemini"
)

// Moonshot defaults.
const (
	DefaultMoonshotBaseURL = "https://api.moonshot.cn/v1"
	DefaultTemperature     = float32(0.3)
	DefaultTimeout         = 60 * time.Second
)

// Config holds the model configuration for the application
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// BaseURL overrides the provider endpoint. Only Moonshot honours it.
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	// RequestsPerSecond throttles outgoing calls; 0 disables throttling.
	RequestsPerSecond float64
}

// DefaultConfig returns the default configuration (Moonshot)
func DefaultConfig() *Config {
	return DefaultMoonshotConfig()
}

// DefaultMoonshotConfig returns the default Moonshot configuration
func DefaultMoonshotConfig() *Config {
	return &Config{
		Provider: ProviderMoonshot,
		Models: map[ModelTier]string{
			TierLite:     "moonshot-v1-8k",
			TierStandard: "moonshot-v1-8k",
			TierAdvanced: "moonshot-v1-32k",
		},
		BaseURL:     DefaultMoonshotBaseURL,
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
	}
}

// DefaultGeminiConfig returns the default Gemini configuration
func DefaultGeminiConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Temperature: DefaultTemperature,
		Timeout:     DefaultTimeout,
	}
}

// ConfigFor returns the default configuration for a provider name.
// Unknown names fall back to Moonshot.
func ConfigFor(provider string) *Config {
	if Provider(provider) == ProviderGemini {
		return DefaultGeminiConfig()
	}
	return DefaultMoonshotConfig()
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return "" // No model configured
}

// WithModel returns a new Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}
