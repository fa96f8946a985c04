// Package app assembles the translation pipeline from configuration for the
// API and MCP binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uniquery/uniquery/internal/cache"
	"github.com/uniquery/uniquery/internal/config"
	"github.com/uniquery/uniquery/internal/history"
	"github.com/uniquery/uniquery/internal/nl2sql"
	"github.com/uniquery/uniquery/internal/nl2sql/fallback"
	"github.com/uniquery/uniquery/internal/nl2sql/hybrid"
	"github.com/uniquery/uniquery/internal/observability"
	"github.com/uniquery/uniquery/internal/pipeline"
	"github.com/uniquery/uniquery/internal/query/sqldb"
	"github.com/uniquery/uniquery/internal/schema"
)

type App struct {
	Service *pipeline.Service
	Engine  *sqldb.Engine
	// SchemaDrift is what the startup check found missing from the database.
	SchemaDrift schema.Drift

	cachePing func(ctx context.Context) error
	closers   []func() error
}

// Build opens the database and wires registry, model, cache and history into
// a pipeline.Service. Callers must Close the returned App.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{}

	registry, err := NewRegistry(cfg.Schema)
	if err != nil {
		return nil, err
	}

	departments := nl2sql.DefaultDepartments()
	model, err := NewModel(ctx, cfg.Model, departments)
	if err != nil {
		return nil, fmt.Errorf("init model backend: %w", err)
	}
	if model == nil {
		logger.Info("model backend disabled; translations use the pattern fallback")
	}

	translationCache, err := a.newCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	engine, err := sqldb.Open(ctx, sqldb.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		QueryTimeout:    cfg.Database.QueryTimeout,
		RowLimit:        cfg.Database.RowLimit,
	})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.Engine = engine
	a.closers = append(a.closers, engine.Close)

	drift, err := CheckSchema(ctx, engine, registry, cfg.Schema.Strict, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.SchemaDrift = drift

	var store history.Store = history.Nop{}
	if cfg.History.Enabled {
		store = history.NewRepository(engine.DB())
	}

	orchestrator := hybrid.New(hybrid.Options{
		Model:    model,
		Fallback: fallback.New(departments),
		Cache:    translationCache,
		Logger:   logger,
	})
	a.Service = &pipeline.Service{
		Registry:     registry,
		Translator:   orchestrator,
		Engine:       engine,
		HistoryStore: store,
		Logger:       logger,
	}
	logger.Info("pipeline ready",
		slog.String("db_driver", cfg.Database.Driver),
		slog.String("model_provider", cfg.Model.Provider),
		slog.String("cache_backend", cfg.Cache.Backend),
		slog.Bool("history", cfg.History.Enabled),
		slog.String("schema_fingerprint", registry.Fingerprint()),
	)
	return a, nil
}

// SchemaChecker reads the live database structure.
type SchemaChecker interface {
	CheckSchema(ctx context.Context, desc schema.Description) (schema.Drift, error)
}

// CheckSchema compares the registry with the live database. Drift is logged
// and exported as a gauge; in strict mode it fails with *schema.DriftError.
// An introspection failure is only logged.
func CheckSchema(ctx context.Context, checker SchemaChecker, registry *schema.Registry, strict bool, logger *slog.Logger) (schema.Drift, error) {
	drift, err := checker.CheckSchema(ctx, registry.Describe())
	if err != nil {
		logger.Warn("schema drift check skipped", slog.Any("error", err))
		return schema.Drift{}, nil
	}
	observability.ObserveSchemaDrift(drift.Size())
	if drift.Empty() {
		return drift, nil
	}
	logger.Warn("schema drift detected",
		slog.Any("missing_tables", drift.MissingTables),
		slog.Any("missing_columns", drift.MissingColumns),
		slog.String("schema_fingerprint", registry.Fingerprint()),
	)
	if strict {
		return drift, &schema.DriftError{Drift: drift}
	}
	return drift, nil
}

// Ping reports whether the database and the shared cache are reachable.
func (a *App) Ping(ctx context.Context) error {
	if a.Engine != nil {
		if err := a.Engine.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.cachePing != nil {
		if err := a.cachePing(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func NewRegistry(cfg config.SchemaConfig) (*schema.Registry, error) {
	desc := schema.University()
	if cfg.File != "" {
		loaded, err := schema.LoadFile(cfg.File)
		if err != nil {
			return nil, err
		}
		desc = loaded
	}
	registry, err := schema.NewRegistry(desc)
	if err != nil {
		return nil, fmt.Errorf("schema registry: %w", err)
	}
	return registry, nil
}

// NewModel returns nil when no provider is configured.
func NewModel(ctx context.Context, cfg config.ModelConfig, departments []nl2sql.DepartmentAlias) (nl2sql.Generator, error) {
	var backend nl2sql.Generator
	switch cfg.Provider {
	case config.ModelProviderNone, "":
		return nil, nil
	case config.ModelProviderOpenAI:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com"
		}
		translator, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
			BaseURL:         baseURL,
			APIKey:          cfg.APIKey,
			Model:           cfg.Name,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Timeout:         cfg.Timeout,
			Departments:     departments,
		})
		if err != nil {
			return nil, err
		}
		backend = translator
	case config.ModelProviderGemini:
		translator, err := nl2sql.NewGeminiTranslator(ctx, nl2sql.GeminiConfig{
			APIKey:          cfg.APIKey,
			Model:           cfg.Name,
			BaseURL:         cfg.BaseURL,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			Timeout:         cfg.Timeout,
			Departments:     departments,
		})
		if err != nil {
			return nil, err
		}
		backend = translator
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
	return nl2sql.NewRateLimited(backend, cfg.RequestsPerMinute, cfg.Burst), nil
}

func (a *App) newCache(cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheBackendNone, "":
		return cache.Noop{}, nil
	case config.CacheBackendMemory:
		return cache.NewMemory(cfg.MaxEntries, cfg.TTL), nil
	case config.CacheBackendRedis:
		redisCache := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
		a.cachePing = redisCache.Ping
		a.closers = append(a.closers, redisCache.Close)
		return redisCache, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
