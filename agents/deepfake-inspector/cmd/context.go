package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	deepfakeinspector "deepfake-inspector/agents/deepfake-inspector"
	"deepfake-inspector/agents/deepfake-inspector/acquire"
	"deepfake-inspector/agents/deepfake-inspector/youtube"
	"deepfake-inspector/shared/ai"
	"deepfake-inspector/shared/config"
	"deepfake-inspector/shared/storage"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

// services holds everything one command needs to run analyses.
type services struct {
	config   *config.Config
	cache    *storage.MediaCache
	history  *storage.ReportStore
	pipeline *deepfakeinspector.Pipeline
}

func (c *commandContext) services(ctx context.Context) (*services, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	gemini, err := ai.NewGeminiClient(ctx, &cfg.AI)
	if err != nil {
		return nil, err
	}

	history, err := storage.NewReportStore(cfg.History.DataDir, cfg.History.MaxAge())
	if err != nil {
		return nil, fmt.Errorf("failed to open report history: %w", err)
	}

	cache := storage.NewMediaCache(cfg.Cache.Dir)
	opts := []deepfakeinspector.Option{
		deepfakeinspector.WithHistory(history),
		deepfakeinspector.WithParallel(cfg.AI.Parallel),
	}
	if cfg.YouTube.MetadataEnabled() {
		meta, err := youtube.NewMetadataClient(ctx, &cfg.YouTube)
		if err != nil {
			log.Printf("Warning: YouTube metadata disabled: %v", err)
		} else {
			opts = append(opts, deepfakeinspector.WithMetadata(meta))
		}
	}

	pipeline := deepfakeinspector.NewPipeline(
		acquire.New(cache, youtube.NewDownloader(nil)),
		ai.NewIngestor(gemini, &cfg.AI),
		ai.NewClassifier(gemini, &cfg.AI),
		opts...,
	)

	return &services{
		config:   cfg,
		cache:    cache,
		history:  history,
		pipeline: pipeline,
	}, nil
}
