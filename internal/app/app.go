package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/api/rest"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/api/rest/handlers"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/config"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/db"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/kafka"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/metrics"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/middleware"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/repository"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/service"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/internal/storage"
	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App представляет собой контейнер для всех компонентов приложения
type App struct {
	Config        *config.Config
	Logger        *logger.Logger
	Lifecycle     *service.LifecycleService
	Router        *gin.Engine
	Server        *rest.Server
	sampler       *metrics.Sampler
	closers       []func() error
}

// New собирает приложение по конфигурации: хранилище, кэш, Kafka, метрики, HTTP.
// При ошибке уже открытые ресурсы закрываются.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	health := map[string]handlers.HealthChecker{}

	store, err := a.openStore(ctx, health)
	if err != nil {
		return nil, err
	}

	// Инициализация Prometheus
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a.sampler = metrics.NewSampler(log)
	lifecycleMetrics := metrics.NewLifecycleMetrics(registry)

	publisher, err := a.openPublisher(ctx)
	if err != nil {
		return nil, err
	}

	files, err := storage.NewLocalFileStore(cfg.Storage.Dir, cfg.Storage.PublicBaseURL, cfg.Storage.MaxFileSize, log)
	if err != nil {
		return nil, err
	}

	a.Lifecycle = service.NewLifecycleService(store, log,
		service.WithPublisher(publisher),
		service.WithMetrics(lifecycleMetrics),
	)
	a.sampler.Gauge(registry, "subscription_locks_active", "Subscriptions with an operation holding or waiting for the lock",
		func() float64 { return float64(a.Lifecycle.ActiveLocks()) })

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	validator := &middleware.DefaultTokenValidator{Secret: []byte(cfg.Auth.JWTSecret)}
	a.Router = rest.SetupRouter(rest.RouterDeps{
		Log:         log,
		Registry:    registry,
		Auth:        middleware.NewJWTMiddleware(log, validator),
		HTTPMetrics: metrics.NewHTTPMetrics(registry),
		Students:    service.NewStudentService(store.Students, log),
		Plans:       service.NewPlanService(store.Plans, store.Subscriptions, log),
		Lifecycle:   a.Lifecycle,
		Files:       files,
		FilesDir:    files.Dir(),
		Health:      health,
	})
	a.Server = rest.NewServer(a.Router, cfg, log)

	return a, nil
}

func (a *App) openStore(ctx context.Context, health map[string]handlers.HealthChecker) (*repository.Store, error) {
	cfg, log := a.Config, a.Logger

	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("Using in-memory storage, data is lost on restart")
		return repository.NewInMemoryStore(log), nil
	}

	conn, err := db.Connect(ctx, db.Options{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, conn.Close)
	health["postgres"] = func(ctx context.Context) error { return db.Health(ctx, conn) }

	if cfg.Database.Migrate {
		if err := db.RunMigrations(conn, log); err != nil {
			return nil, err
		}
	}

	store := repository.NewPostgresStore(conn, log)

	if cfg.Redis.Enabled {
		cache, err := repository.NewRedisCacheRepository(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, cache.Close)
		health["redis"] = cache.Ping
		store.Subscriptions = repository.NewCachedSubscriptionRepository(store.Subscriptions, cache, log)
	}

	return store, nil
}

func (a *App) openPublisher(ctx context.Context) (service.EventPublisher, error) {
	cfg, log := a.Config, a.Logger

	if !cfg.Kafka.Enabled {
		log.Info("Kafka disabled, lifecycle events are not published")
		return service.NoopPublisher{}, nil
	}

	kafkaConfig := kafka.NewConfig(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if cfg.Kafka.ClientID != "" {
		kafkaConfig.ClientID = cfg.Kafka.ClientID
	}

	if err := kafka.EnsureTopic(kafkaConfig, log); err != nil {
		log.Warnw("Failed to ensure Kafka topic", "topic", kafkaConfig.Topic, "error", err)
	}

	producer, err := kafka.NewSyncProducer(ctx, kafkaConfig, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	lifecycleProducer := kafka.NewLifecycleProducer(producer, kafkaConfig.Topic, log)
	a.closers = append(a.closers, lifecycleProducer.Close)

	return lifecycleProducer, nil
}

// Run запускает HTTP сервер и сбор метрик; возвращается после отмены ctx
// и graceful shutdown сервера.
func (a *App) Run(ctx context.Context) error {
	interval := a.Config.Metrics.Interval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	a.sampler.Start(interval)
	defer a.sampler.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.App.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return <-errCh
}

// Close освобождает ресурсы в обратном порядке открытия
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
