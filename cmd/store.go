package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/veldt-group/boq-cli/internal/aiextract"
	"github.com/veldt-group/boq-cli/internal/pipeline"
	"github.com/veldt-group/boq-cli/internal/store"
	"github.com/veldt-group/boq-cli/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "boq.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initExtractor builds the AI extractor, or nil when no API key is set.
func initExtractor() *aiextract.Extractor {
	if cfg.Anthropic.Key == "" {
		return nil
	}
	return aiextract.NewExtractor(
		anthropic.NewClient(cfg.Anthropic.Key),
		aiextract.WithModel(cfg.Anthropic.Model),
		aiextract.WithRateLimit(cfg.Anthropic.RequestsPerSec),
	)
}

func initProcessor(ctx context.Context) (*pipeline.Processor, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.New(st, initExtractor()), st, nil
}
