package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/azar84/saas-marketing-360-sub004/internal/classifier"
	"github.com/azar84/saas-marketing-360-sub004/internal/config"
	"github.com/azar84/saas-marketing-360-sub004/internal/jobs"
	"github.com/azar84/saas-marketing-360-sub004/internal/monitoring"
	"github.com/azar84/saas-marketing-360-sub004/internal/search"
	"github.com/azar84/saas-marketing-360-sub004/internal/store"
	"github.com/azar84/saas-marketing-360-sub004/pkg/anthropic"
	"github.com/azar84/saas-marketing-360-sub004/pkg/enrich"
	"github.com/azar84/saas-marketing-360-sub004/pkg/searchapi"
)

// env wires the shared application components for a command invocation.
type env struct {
	Store      store.Store
	Search     *search.Service
	Classifier *classifier.Classifier
	Registry   *jobs.Registry
	Submitter  *jobs.Submitter
	Processor  *jobs.Processor
	Collector  *monitoring.Collector
	Enrich     enrich.Client
}

// newStore opens the configured backend. SQLite keeps local runs
// dependency-free; postgres is the deployed default.
func newStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		st, err := store.NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres", "":
		return store.NewPostgres(ctx, cfg.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
	default:
		return nil, eris.New("env: unknown store driver " + cfg.Driver)
	}
}

// initEnv builds the full component graph from config.
func initEnv(ctx context.Context) (*env, error) {
	st, err := newStore(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "env: open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "env: migrate")
	}

	completer := anthropic.NewCompleter(
		anthropic.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.Model,
		cfg.Anthropic.MaxTokens,
	)
	cls := classifier.New(completer, st, cfg.Classifier.BatchQuickPath)

	provider := searchapi.NewClient(cfg.Search.BaseURL, cfg.Search.BypassSecret,
		searchapi.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Search.TimeoutSecs) * time.Second}),
		searchapi.WithRateLimit(cfg.Search.RatePerSecond),
	)

	enrichClient := enrich.NewClient(cfg.Enrich.BaseURL, cfg.Enrich.APIKey,
		enrich.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Enrich.TimeoutSecs) * time.Second}),
	)

	registry := jobs.NewRegistry(st)
	e := &env{
		Store:      st,
		Search:     search.New(provider, st, cls, cfg.Search.DefaultLimit),
		Classifier: cls,
		Registry:   registry,
		Submitter:  jobs.NewSubmitter(enrichClient, registry),
		Processor: jobs.NewProcessor(registry, enrichClient,
			time.Duration(cfg.Jobs.PollIntervalSecs)*time.Second, cfg.Jobs.MaxPollFailures),
		Collector: monitoring.NewCollector(st),
		Enrich:    enrichClient,
	}
	return e, nil
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("env: close store", zap.Error(err))
	}
}
