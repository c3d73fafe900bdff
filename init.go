package main

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/parceldesk/courierhub/internal/bucketmap"
	"github.com/parceldesk/courierhub/internal/cache"
	"github.com/parceldesk/courierhub/internal/config"
	"github.com/parceldesk/courierhub/internal/orchestrator"
	"github.com/parceldesk/courierhub/internal/reconciler"
	"github.com/parceldesk/courierhub/internal/store"
	"github.com/parceldesk/courierhub/internal/telemetry"
	"github.com/parceldesk/courierhub/pkg/courier"
	"github.com/parceldesk/courierhub/pkg/courier/delhivery"
	"github.com/parceldesk/courierhub/pkg/courier/shiprocket"
	"github.com/parceldesk/courierhub/pkg/courier/xpressbees"
)

// app holds the wired object graph for one process.
type app struct {
	cfg          *config.Config
	logger       *otelzap.Logger
	metrics      *telemetry.Metrics
	registry     *courier.Registry
	mappings     *bucketmap.Service
	orchestrator *orchestrator.Orchestrator
	reconciler   *reconciler.Reconciler

	tracerShutdown func(context.Context) error
}

// initApp loads config and builds the full dependency graph. Unreachable
// collaborators (database, Redis) fail startup here; nothing later in the
// process lifetime is allowed to be fatal.
func initApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	tracer := noop.NewTracerProvider().Tracer("courierhub")
	tracerShutdown := func(context.Context) error { return nil }
	if cfg.OTELEnabled {
		t, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
		if err != nil {
			logger.Warn("Failed to initialize tracer", zap.Error(err))
		} else {
			tracer = t
			tracerShutdown = shutdown
		}
	}

	metrics := telemetry.NewMetrics()

	db, err := store.Open(store.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		return nil, err
	}

	var kv cache.Cache
	if cfg.RedisAddr != "" {
		redis, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		kv = redis
	} else {
		logger.Warn("REDIS_ADDR not set, using the in-process cache")
		kv = cache.NewMemory()
	}

	registry := buildRegistry(cfg, kv, logger, tracer)

	mappingRepo := store.NewMappingRepo(db)
	courierRepo := store.NewCourierRepo(db)
	shipmentRepo := store.NewShipmentRepo(db)

	mappings := bucketmap.New(kv, mappingRepo, metrics, logger)
	orch := orchestrator.New(registry, courierRepo, shipmentRepo, mappings, kv, metrics, logger)
	rec := reconciler.New(orch, shipmentRepo, metrics, logger, reconciler.Config{
		BatchSize:   cfg.ReconcilerBatchSize,
		Concurrency: cfg.ReconcilerConcurrency,
	})

	return &app{
		cfg:            cfg,
		logger:         logger,
		metrics:        metrics,
		registry:       registry,
		mappings:       mappings,
		orchestrator:   orch,
		reconciler:     rec,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Close flushes telemetry.
func (a *app) Close(ctx context.Context) {
	if err := a.tracerShutdown(ctx); err != nil {
		a.logger.Warn("Tracer shutdown failed", zap.Error(err))
	}
	a.logger.Sync()
}

// buildRegistry constructs one adapter per enabled vendor variant. Each
// Delhivery weight tier is its own vendor identity with its own API key;
// a tier with no key stays unregistered.
func buildRegistry(cfg *config.Config, kv cache.Cache, logger *otelzap.Logger, tracer trace.Tracer) *courier.Registry {
	registry := courier.NewRegistry()

	if cfg.DelhiveryEnabled {
		tiers := []struct {
			code courier.VendorCode
			key  string
		}{
			{courier.VendorDelhiveryHalfKG, cfg.DelhiveryHalfKGAPIKey},
			{courier.VendorDelhivery5KG, cfg.Delhivery5KGAPIKey},
			{courier.VendorDelhivery10KG, cfg.Delhivery10KGAPIKey},
		}
		for _, tier := range tiers {
			if tier.key == "" && !cfg.DelhiveryUseMock {
				continue
			}
			registry.Register(delhivery.New(delhivery.Config{
				APIKey:  tier.key,
				BaseURL: cfg.DelhiveryBaseURL,
				Tier:    tier.code,
				UseMock: cfg.DelhiveryUseMock,
			}, kv, logger, tracer))
		}
	}

	if cfg.ShiprocketEnabled {
		registry.Register(shiprocket.New(shiprocket.Config{
			Email:    cfg.ShiprocketEmail,
			Password: cfg.ShiprocketPassword,
			BaseURL:  cfg.ShiprocketBaseURL,
			UseMock:  cfg.ShiprocketUseMock,
		}, kv, logger, tracer))
	}

	if cfg.XpressbeesEnabled {
		registry.Register(xpressbees.New(xpressbees.Config{
			Email:    cfg.XpressbeesEmail,
			Password: cfg.XpressbeesPassword,
			BaseURL:  cfg.XpressbeesBaseURL,
			UseMock:  cfg.XpressbeesUseMock,
		}, kv, logger, tracer))
	}

	return registry
}
