package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/joelkehle/venturefit/internal/catalog"
	"github.com/joelkehle/venturefit/internal/config"
	"github.com/joelkehle/venturefit/internal/enrichment"
	"github.com/joelkehle/venturefit/internal/logger"
	"github.com/joelkehle/venturefit/internal/observability"
	"github.com/joelkehle/venturefit/internal/store"
	"github.com/joelkehle/venturefit/internal/submission"
)

// runtime is everything a command needs, built from the loaded config.
type runtime struct {
	cfg     config.Config
	log     *zap.Logger
	catalog *catalog.Catalog
	store   store.Backend
	tracer  *observability.TracerProvider
	metrics *observability.Metrics
	svc     *submission.Service
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}
	log, err := logger.New(cfg.JSON, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.DB, store.Config{})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if cfg.VenturesFile != "" {
		profiles, err := store.LoadVentureFile(cfg.VenturesFile)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		n, err := store.SeedVentures(ctx, st, profiles)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("seed ventures: %w", err)
		}
		log.Info("seeded venture profiles", zap.Int("count", n), zap.String("file", cfg.VenturesFile))
	}

	tracing := cfg.Tracing
	tracing.ServiceVersion = version
	tracer, err := observability.NewTracerProvider(ctx, tracing)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	metrics := observability.DefaultMetrics()

	pub, err := newPublisher(cfg, log)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	svc := submission.New(cat, st, submission.Options{
		Logger:        log,
		Tracer:        tracer,
		Metrics:       metrics,
		Publisher:     pub,
		VentureTTL:    cfg.Cache.VenturesTTL,
		CacheSize:     cfg.Cache.Size,
		EnrichTimeout: cfg.Enrichment.Timeout,
	})

	log.Debug("runtime ready",
		zap.String("db", cfg.DB),
		zap.Int("catalog_version", cat.Version()),
		zap.Int("questions", cat.Len()),
		zap.Bool("enrichment", cfg.Enrichment.Enabled),
		zap.Bool("tracing", cfg.Tracing.Enabled),
	)
	return &runtime{
		cfg:     cfg,
		log:     log,
		catalog: cat,
		store:   st,
		tracer:  tracer,
		metrics: metrics,
		svc:     svc,
	}, nil
}

func newPublisher(cfg config.Config, log *zap.Logger) (enrichment.Publisher, error) {
	if !cfg.Enrichment.Enabled {
		return enrichment.LogPublisher{Logger: logger.OrNop(log).Named("enrichment")}, nil
	}
	secret, err := cfg.EnrichmentSecret()
	if err != nil {
		return nil, err
	}
	return enrichment.NewBusPublisher(enrichment.BusConfig{
		BaseURL: cfg.Enrichment.BusURL,
		AgentID: cfg.Enrichment.AgentID,
		Target:  cfg.Enrichment.Target,
		Secret:  secret,
		Timeout: cfg.Enrichment.Timeout,
	})
}

// Close waits for pending enrichment, then flushes traces and closes the store.
func (rt *runtime) Close(ctx context.Context) {
	rt.svc.Wait()
	if err := rt.tracer.Shutdown(ctx); err != nil {
		rt.log.Warn("tracer shutdown", zap.Error(err))
	}
	if err := rt.store.Close(); err != nil {
		rt.log.Warn("store close", zap.Error(err))
	}
	_ = rt.log.Sync()
}
