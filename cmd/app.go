package cmd

import (
	"context"
	"fmt"

	"LabelDesk/cache"
	"LabelDesk/config"
	"LabelDesk/core/hierarchy"
	"LabelDesk/core/integrity"
	"LabelDesk/core/lifecycle"
	"LabelDesk/core/roster"
	"LabelDesk/core/staging"
	"LabelDesk/db"
	"LabelDesk/logger"
	"LabelDesk/metrics"
	"LabelDesk/repository"
	"LabelDesk/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the wired engine behind the server and the admin commands.
type app struct {
	store    *repository.Store
	resolver *hierarchy.Resolver
	storage  *storage.MinioStorage
	registry *prometheus.Registry
	roster   *roster.Service
	releases *lifecycle.Controller
	pipeline *staging.Pipeline
	closers  []func() error
}

// openStore connects and migrates the entity store.
func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, error) {
	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	store := repository.NewStore(gdb)
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return store, nil
}

// newApp wires every component from cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{registry: prometheus.NewRegistry()}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	descCache, closeCache, err := cache.New(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	if closeCache != nil {
		a.closers = append(a.closers, closeCache)
	}
	a.resolver = hierarchy.NewResolver(store, descCache)

	a.storage, err = storage.NewMinioStorage(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	if err := a.storage.EnsureBucket(ctx); err != nil {
		a.close()
		return nil, err
	}

	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewEngineMetrics(a.registry)
	if err != nil {
		a.close()
		return nil, err
	}

	a.releases = lifecycle.NewController(store, a.resolver, a.storage, lifecycle.WithMetrics(m))
	a.roster = roster.NewService(store, a.resolver, integrity.NewGuard(store),
		roster.WithAssetDeleter(a.storage), roster.WithMetrics(m))
	a.pipeline = staging.NewPipeline(a.storage, a.releases, m)

	logger.Info("引擎初始化完成",
		logger.String("db", cfg.DBDriver),
		logger.String("cache", cfg.CacheBackend),
		logger.String("bucket", a.storage.Bucket()))
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("关闭资源失败", logger.ErrorField(err))
		}
	}
	a.closers = nil
}
