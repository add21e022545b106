package main

import (
	"context"
	"fmt"

	"github.com/jonathan/profile-importer/internal/avatar"
	"github.com/jonathan/profile-importer/internal/config"
	"github.com/jonathan/profile-importer/internal/db"
	"github.com/jonathan/profile-importer/internal/extraction"
	"github.com/jonathan/profile-importer/internal/fetch"
	"github.com/jonathan/profile-importer/internal/importer"
	"github.com/jonathan/profile-importer/internal/logging"
	"github.com/jonathan/profile-importer/internal/metrics"
	"github.com/jonathan/profile-importer/internal/notion"
	"go.uber.org/zap"
)

// app holds the wired collaborators shared by every command.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	extractor *extraction.Extractor
	cache     *extraction.RedisCache
	saver     *notion.Saver
	history   db.Store
	importer  *importer.Importer
}

// loadConfig reads the config file and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if useBrowser {
		cfg.Fetch.UseBrowser = true
	}
	return cfg, nil
}

// newApp wires the importer from configuration. Missing credentials are not
// an error here; operations that need them fail when called.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, metrics: metrics.Default()}

	extractOpts := []extraction.Option{
		extraction.WithLogger(logger),
		extraction.WithMetrics(a.metrics),
	}
	if cfg.Cache.RedisAddr != "" {
		cache := extraction.NewRedisCache(extraction.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
		})
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("extraction cache disabled", zap.Error(err))
			_ = cache.Close()
		} else {
			a.cache = cache
			extractOpts = append(extractOpts, extraction.WithCache(cache))
		}
	}

	a.extractor, err = extraction.NewFromConfig(ctx, cfg.LLM, extractOpts...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	client := notion.NewClient(notion.ClientOptions{
		APIKey:  cfg.Notion.APIKey,
		BaseURL: cfg.Notion.BaseURL,
		Version: cfg.Notion.Version,
		Logger:  logger,
		Metrics: a.metrics,
	})
	a.saver = notion.NewSaver(client, cfg.Notion.DatabaseID, logger)

	a.history, err = db.Open(ctx, cfg.Database)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open import history: %w", err)
	}

	a.importer = importer.New(a.extractor, a.saver, importer.Options{
		Locator: avatar.NewLocator(),
		History: a.history,
		Fetch:   fetchOptions(cfg.Fetch),
		Metrics: a.metrics,
		Logger:  logger,
	})
	return a, nil
}

// Close releases every connection the app opened.
func (a *app) Close() {
	if a.history != nil {
		a.history.Close()
	}
	if a.extractor != nil {
		if err := a.extractor.Close(); err != nil {
			a.logger.Warn("failed to close LLM client", zap.Error(err))
		}
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	_ = logging.Sync(a.logger)
}

func fetchOptions(cfg config.FetchConfig) *fetch.Options {
	return &fetch.Options{
		Timeout:        cfg.Timeout,
		UserAgent:      cfg.UserAgent,
		UseBrowser:     cfg.UseBrowser,
		BrowserTimeout: cfg.BrowserTimeout,
	}
}
