package main

import (
	"context"
	"fmt"
	"time"

	"grant-portal/internal/admin"
	"grant-portal/internal/audit"
	"grant-portal/internal/auth"
	"grant-portal/internal/common/config"
	"grant-portal/internal/common/database"
	httpclient "grant-portal/internal/common/http"
	"grant-portal/internal/common/logger"
	"grant-portal/internal/common/observability"
	"grant-portal/internal/form"
	"grant-portal/internal/options"
	"grant-portal/internal/submission"
)

// app holds the clients shared by every command. Connections to Redis and
// Postgres are only opened when the configuration asks for them.
type app struct {
	cfg      *config.Config
	log      logger.Logger
	obs      *observability.Observability
	client   *httpclient.Client
	sessions *auth.Sessions
	auth     *auth.Service
	redis    *database.RedisClient
	pg       *database.PostgresClient
	closers  []func() error
}

func buildApp(ctx context.Context, g *globals) (*app, error) {
	cfg, err := loadConfig(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.verbose {
		cfg.Logging.Level = "debug"
	}

	log := logger.NewFromConfig(cfg.Logging)
	obsOpts := []observability.Option{}
	if g.registerer != nil {
		obsOpts = append(obsOpts, observability.WithRegisterer(g.registerer))
	}
	if g.verbose {
		obsOpts = append(obsOpts, observability.WithSpanProcessor(observability.NewLoggingSpanProcessor(log)))
	}

	a := &app{
		cfg: cfg,
		log: log,
		obs: observability.New(cfg.App.Name, log, obsOpts...),
	}

	if needsRedis(cfg) {
		a.redis, err = connectRedis(ctx, cfg.Database.Redis, log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.redis.Close)
	}

	store, err := auth.NewTokenStore(cfg, a.redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sessions = auth.NewSessions(store, log)
	a.client = httpclient.NewClient(config.GetDuration(cfg.API.Timeout),
		httpclient.WithBaseURL(cfg.API.BaseURL),
		httpclient.WithTokenSource(a.sessions),
	)
	a.auth = auth.NewService(auth.ServiceDependencies{
		Client:   a.client,
		Sessions: a.sessions,
		Logger:   log,
	}, auth.ConfigFrom(cfg))

	log.Debug("Client initialised", map[string]interface{}{
		"baseUrl": cfg.API.BaseURL,
		"session": cfg.Session.Store,
		"audit":   cfg.Audit.Enabled,
	})
	return a, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func needsRedis(cfg *config.Config) bool {
	if cfg.Session.Store == "redis" {
		return true
	}
	return cfg.Form.FetchOptions && cfg.Database.Redis.Address != ""
}

// Close shuts down observability and closes opened connections.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.obs.Shutdown(ctx); err != nil {
		a.log.Debug("Observability shutdown failed", map[string]interface{}{"error": err})
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("Failed to close connection", map[string]interface{}{"error": err})
		}
	}
	a.closers = nil
}

func (a *app) optionsProvider() (*options.Provider, error) {
	return options.NewProvider(options.ProviderDependencies{
		Client: a.client,
		Cache:  a.redis,
		Logger: a.log,
	}, options.ConfigFrom(a.cfg))
}

// newEngine resolves the option sets and builds a form engine posting
// through the submission client, with the audit trail attached when enabled.
func (a *app) newEngine(ctx context.Context) (*form.Engine, error) {
	provider, err := a.optionsProvider()
	if err != nil {
		return nil, err
	}
	set, _, err := provider.Load(ctx)
	if err != nil {
		return nil, err
	}

	var observers []form.Observer
	if a.cfg.Audit.Enabled {
		rec, err := a.auditRecorder(ctx)
		if err != nil {
			return nil, err
		}
		observers = append(observers, rec)
	}

	submitter := submission.NewService(submission.ServiceDependencies{
		Client:        a.client,
		Logger:        a.log,
		Observability: a.obs,
	}, submission.ConfigFrom(a.cfg))

	return form.NewEngine(form.EngineDependencies{
		Client:        submitter,
		Logger:        a.log,
		Observability: a.obs,
		Observers:     observers,
	}, form.ConfigFrom(a.cfg, set))
}

func (a *app) adminService() *admin.Service {
	return admin.NewService(admin.ServiceDependencies{
		Client:        a.client,
		Logger:        a.log,
		Observability: a.obs,
	}, admin.ConfigFrom(a.cfg))
}

// auditRecorder connects to Postgres on first use and makes sure the
// audit table exists.
func (a *app) auditRecorder(ctx context.Context) (*audit.Recorder, error) {
	if a.pg == nil {
		pg, err := connectPostgres(ctx, a.cfg.Database.Postgres, a.log)
		if err != nil {
			return nil, err
		}
		a.pg = pg
		a.closers = append(a.closers, pg.Close)
	}
	rec, err := audit.NewRecorder(a.pg, a.log, audit.ConfigFrom(a.cfg))
	if err != nil {
		return nil, err
	}
	if err := rec.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// ==========================
// Connections
// ==========================

func connectRedis(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (*database.RedisClient, error) {
	client := database.NewRedis(cfg)
	err := retryWithBackoff(ctx, func() error { return client.Ping(ctx) }, 3, 200*time.Millisecond, log, "Redis connection")
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func connectPostgres(ctx context.Context, cfg config.PostgresConfig, log logger.Logger) (*database.PostgresClient, error) {
	pg, err := database.NewPostgres(cfg)
	if err != nil {
		return nil, err
	}
	err = retryWithBackoff(ctx, func() error { return pg.Ping(ctx) }, 3, 200*time.Millisecond, log, "PostgreSQL connection")
	if err != nil {
		_ = pg.Close()
		return nil, err
	}
	return pg, nil
}

// retryWithBackoff runs operation until it succeeds, doubling the delay
// between attempts.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}
		log.Warn(operationName+" failed, retrying", map[string]interface{}{
			"error":       err,
			"attempt":     i + 1,
			"maxRetries":  maxRetries,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
