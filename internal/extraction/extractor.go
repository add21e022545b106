// Package extraction turns page text into an ExtractedProfile with an LLM.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jonathan/profile-importer/internal/config"
	"github.com/jonathan/profile-importer/internal/llm"
	"github.com/jonathan/profile-importer/internal/logging"
	"github.com/jonathan/profile-importer/internal/metrics"
	"github.com/jonathan/profile-importer/internal/schemas"
	"github.com/jonathan/profile-importer/internal/types"
	"go.uber.org/zap"
)

// Extractor extracts profiles from page text.
type Extractor struct {
	client     llm.Client
	provider   string
	tier       llm.ModelTier
	cache      Cache
	normalizer *Normalizer
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithCache enables result caching.
func WithCache(c Cache) Option {
	return func(e *Extractor) { e.cache = c }
}

// WithLogger sets the fallback logger; a logger in the request context wins.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithMetrics records LLM latency and cache lookups.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// WithTier selects the model tier (default TierStandard).
func WithTier(tier llm.ModelTier) Option {
	return func(e *Extractor) { e.tier = tier }
}

// WithProvider labels metrics with the provider name.
func WithProvider(name string) Option {
	return func(e *Extractor) { e.provider = name }
}

// New creates an extractor around client. A nil client yields an extractor
// whose Extract always returns ErrMissingAPIKey.
func New(client llm.Client, opts ...Option) *Extractor {
	e := &Extractor{
		client:     client,
		provider:   string(llm.ProviderMoonshot),
		tier:       llm.TierStandard,
		normalizer: NewNormalizer(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewFromConfig builds the LLM client described by cfg. Without an API key
// it returns an unconfigured extractor rather than an error, so the server
// can start and report the missing key per request.
func NewFromConfig(ctx context.Context, cfg config.LLMConfig, opts ...Option) (*Extractor, error) {
	opts = append([]Option{WithProvider(providerName(cfg.Provider))}, opts...)
	if cfg.APIKey == "" {
		return New(nil, opts...), nil
	}

	client, err := llm.NewClient(ctx, ClientConfig(cfg), cfg.APIKey)
	if err != nil {
		return nil, err
	}
	return New(client, opts...), nil
}

// ClientConfig maps importer configuration onto an llm.Config.
func ClientConfig(cfg config.LLMConfig) *llm.Config {
	c := llm.ConfigFor(cfg.Provider)
	if cfg.Model != "" {
		c = c.WithModel(llm.TierStandard, cfg.Model)
	}
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	if cfg.Temperature > 0 {
		c.Temperature = cfg.Temperature
	}
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}
	return c
}

func providerName(p string) string {
	if p == "" {
		return string(llm.ProviderMoonshot)
	}
	return p
}

// Configured reports whether an LLM client is available.
func (e *Extractor) Configured() bool {
	return e.client != nil
}

// Close releases the LLM client.
func (e *Extractor) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

// Extract asks the model for the profile fields in content. The url and
// avatar fields are always empty on return; callers fill them in.
func (e *Extractor) Extract(ctx context.Context, content string) (*types.ExtractedProfile, error) {
	if e.client == nil {
		return nil, ErrMissingAPIKey
	}
	logger := logging.FromContext(ctx, e.logger)

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, analysisError(ErrEmptyContent)
	}

	key := CacheKey(e.client.GetModel(e.tier), content)
	if cached := e.lookup(ctx, logger, key); cached != nil {
		return cached, nil
	}

	prompt := llm.BuildExtractionPrompt(llm.ProfileSchema(), content)

	start := time.Now()
	raw, err := e.client.GenerateJSON(ctx, prompt, e.tier)
	if e.metrics != nil {
		e.metrics.ObserveLLM(e.provider, time.Since(start), err)
	}
	if err != nil {
		logger.Warn("LLM request failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		if errors.Is(err, llm.ErrEmptyResponse) {
			return nil, analysisError(formatError("empty response", err))
		}
		return nil, analysisError(err)
	}

	profile, err := Decode(raw)
	if err != nil {
		logger.Warn("LLM response rejected", zap.Error(err), zap.Int("response_bytes", len(raw)))
		return nil, analysisError(err)
	}

	e.normalizer.Normalize(profile)
	profile.URL = ""
	profile.Avatar = ""

	logger.Debug("profile extracted",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("fields", len(profile.Fields())),
	)

	e.store(ctx, logger, key, profile)
	return profile, nil
}

// Decode validates a raw model response against the profile schema and
// decodes it.
func Decode(raw string) (*types.ExtractedProfile, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, formatError("empty response", nil)
	}

	if err := schemas.ValidateProfileJSON([]byte(raw)); err != nil {
		var loadErr *schemas.SchemaLoadError
		if errors.As(err, &loadErr) {
			return nil, formatError("response is not valid JSON", err)
		}
		return nil, formatError("response does not match the profile schema", err)
	}

	var profile types.ExtractedProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, formatError("response could not be decoded", err)
	}
	return &profile, nil
}

func (e *Extractor) lookup(ctx context.Context, logger *zap.Logger, key string) *types.ExtractedProfile {
	if e.cache == nil {
		return nil
	}

	profile, ok, err := e.cache.Get(ctx, key)
	switch {
	case err != nil:
		logger.Warn("extraction cache read failed", zap.Error(err))
		e.countCache(metrics.CacheError)
		return nil
	case !ok:
		e.countCache(metrics.CacheMiss)
		return nil
	}

	e.countCache(metrics.CacheHit)
	logger.Debug("extraction cache hit")
	return profile
}

func (e *Extractor) store(ctx context.Context, logger *zap.Logger, key string, profile *types.ExtractedProfile) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, key, profile); err != nil {
		logger.Warn("extraction cache write failed", zap.Error(err))
	}
}

func (e *Extractor) countCache(result string) {
	if e.metrics != nil {
		e.metrics.CacheLookupsTotal.WithLabelValues(result).Inc()
	}
}
