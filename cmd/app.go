package main

import (
	"errors"
	"fmt"

	"searchlens/cache"
	"searchlens/cleaner"
	"searchlens/config"
	"searchlens/coordinator"
	"searchlens/fetcher"
	"searchlens/history"
	"searchlens/inference"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app holds the wired services of one process.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	coordinator *coordinator.Coordinator
	history     *history.BoltStore

	closers []func()
}

func newApp(withHistory bool) (*app, error) {
	// =========
	// Config
	// =========
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// =========
	// Logging
	// =========
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger}

	// =========
	// Fetcher
	// =========
	f, closeFetcher, err := fetcher.New(cfg.Fetcher, logger)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create fetcher: %w", err), a.close())
	}
	a.closers = append(a.closers, closeFetcher)

	// =========
	// Cleaner
	// =========
	extractor, err := cleaner.NewExtractor(cfg.Cleaner.Extractor)
	if err != nil {
		return nil, errors.Join(err, a.close())
	}
	cl := cleaner.New(logger,
		cleaner.WithExtractor(extractor),
		cleaner.WithSentenceMode(cfg.Cleaner.SentenceMode),
	)

	// =========
	// Inference
	// =========
	model, err := inference.NewModel(cfg.Inference)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create model: %w", err), a.close())
	}
	client := inference.NewClient(model, logger)

	// =========
	// Coordinator
	// =========
	coCfg := cfg.Coordinator
	coCfg.SweepInterval = cfg.Cache.SweepInterval
	a.coordinator = coordinator.New(coCfg, f, client, logger,
		coordinator.WithCleaner(cl),
		coordinator.WithRetryPolicy(cfg.Retry.Policy()),
		coordinator.WithCache(cache.New(cache.WithLogger(logger))),
	)

	// =========
	// History
	// =========
	if withHistory && cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path, logger)
		if err != nil {
			return nil, errors.Join(err, a.close())
		}
		a.history = store
	}

	return a, nil
}

// close releases everything in reverse order of creation.
func (a *app) close() error {
	var err error
	if a.coordinator != nil {
		a.coordinator.Close()
	}
	if a.history != nil {
		err = a.history.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
	return err
}

func newLogger(cfg config.Log) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
