package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/NomadCrew/climapro-backend/config"
	"github.com/NomadCrew/climapro-backend/db"
	"github.com/NomadCrew/climapro-backend/handlers"
	"github.com/NomadCrew/climapro-backend/internal/events"
	"github.com/NomadCrew/climapro-backend/internal/notification"
	"github.com/NomadCrew/climapro-backend/internal/websocket"
	"github.com/NomadCrew/climapro-backend/logger"
	"github.com/NomadCrew/climapro-backend/repository"
	"github.com/NomadCrew/climapro-backend/router"
	"github.com/NomadCrew/climapro-backend/services"
	"github.com/NomadCrew/climapro-backend/store"
	"github.com/NomadCrew/climapro-backend/store/memory"
	"github.com/NomadCrew/climapro-backend/store/objectstore"
	"github.com/NomadCrew/climapro-backend/store/postgres"
	"github.com/NomadCrew/climapro-backend/store/redisstore"
	"github.com/NomadCrew/climapro-backend/store/sqlite"
	"github.com/NomadCrew/climapro-backend/types"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// openedStore is the raw backend plus whatever must be closed on shutdown.
type openedStore struct {
	kv     store.KVStore
	pinger store.Pinger
	close  func()
}

// openStore builds the configured KV backend. rdb is only used by the redis
// backend and may be nil otherwise.
func openStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (*openedStore, error) {
	log := logger.GetLogger()

	switch cfg.Storage.Backend {
	case config.StorageMemory:
		mem := memory.New()
		return &openedStore{kv: mem, pinger: mem, close: func() {}}, nil

	case config.StorageSQLite:
		s, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &openedStore{kv: s, pinger: s, close: func() {
			if err := s.Close(); err != nil {
				log.Errorw("Error closing sqlite store", "error", err)
			}
		}}, nil

	case config.StorageRedis:
		s := redisstore.New(rdb)
		return &openedStore{kv: s, pinger: s, close: func() {}}, nil

	case config.StoragePostgres:
		if cfg.Storage.RunMigrations {
			if err := db.RunMigrations(cfg.Database.URL()); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		poolConfig, err := config.ConfigurePostgresPool(&cfg.Database)
		if err != nil {
			return nil, err
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		s := postgres.NewPgKVStore(pool)
		return &openedStore{kv: s, pinger: s, close: pool.Close}, nil

	case config.StorageS3:
		client, err := objectstore.NewClient(ctx, objectstore.Options{
			Bucket:          cfg.ObjectStore.Bucket,
			Region:          cfg.ObjectStore.Region,
			Endpoint:        cfg.ObjectStore.Endpoint,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		s := objectstore.New(client, cfg.ObjectStore.Bucket)
		return &openedStore{kv: s, pinger: s, close: func() {}}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func loadConfig() (*config.Config, *viper.Viper, error) {
	if file := os.Getenv("CONFIG_FILE"); file != "" {
		return config.LoadConfigFile(file)
	}
	cfg, err := config.LoadConfig()
	return cfg, nil, err
}

func main() {
	// Initialize logger
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, v, err := loadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	var currentConfig atomic.Pointer[config.Config]
	currentConfig.Store(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb = redis.NewClient(config.ConfigureRedisOptions(&cfg.Redis))
		if err := config.TestRedisConnection(ctx, rdb); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rdb.Close()
	}

	backend, err := openStore(ctx, cfg, rdb)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Storage.Backend, err)
	}
	defer backend.close()
	log.Infow("Storage ready", "backend", cfg.Storage.Backend, "keyPrefix", cfg.Storage.KeyPrefix)

	kv := store.Instrumented(store.WithPrefix(backend.kv, cfg.Storage.KeyPrefix), string(cfg.Storage.Backend))
	repo := repository.NewWeatherRepository(kv, repository.Options{
		FreshnessWindow: cfg.Weather.FreshnessWindow,
		RecentLimit:     cfg.Weather.RecentLimit,
	})

	source := services.NewWeatherSource(repo, services.NewMockGenerator(),
		services.WithMinQueryLength(cfg.Weather.MinQueryLength))

	var location services.LocationProvider
	var locationReporter handlers.LocationReporter
	if cfg.Location.UseClientReports {
		client := services.NewClientLocationProvider()
		location, locationReporter = client, client
	} else {
		var coords *types.Coordinates
		if cfg.Location.PermissionGranted {
			coords = &types.Coordinates{Latitude: cfg.Location.Latitude, Longitude: cfg.Location.Longitude}
		}
		location = services.NewStaticLocationProvider(cfg.Location.PermissionGranted, coords)
	}

	// Event delivery
	pool, err := events.NewPool(events.PoolConfig{
		Capacity:         cfg.WorkerPool.MaxWorkers,
		ExpiryDuration:   time.Minute,
		MaxBlockingTasks: 1024,
	})
	if err != nil {
		log.Fatalf("Failed to create event pool: %v", err)
	}
	defer pool.Release()

	eventCfg := events.Config{
		PublishTimeout:   time.Duration(cfg.EventService.PublishTimeoutSeconds) * time.Second,
		SubscribeTimeout: time.Duration(cfg.EventService.SubscribeTimeoutSeconds) * time.Second,
		EventBufferSize:  cfg.EventService.EventBufferSize,
	}
	var eventOpts []events.ServiceOption
	if cfg.EventService.RedisEnabled {
		eventOpts = append(eventOpts, events.WithMirror(events.NewRedisPublisher(rdb, eventCfg)))
		log.Infow("Mirroring state events to Redis", "channel", events.ChannelName(types.StateTopic))
	}
	eventService := events.NewService(pool, eventCfg, eventOpts...)
	repo.SetReporter(services.NewPersistenceReporter(eventService))

	if cfg.Notification.Enabled {
		notifier := services.NewAlertNotifier(
			notification.NewClient(cfg.Notification.APIURL, cfg.Notification.APIKey),
			cfg.Notification.RecipientID,
		)
		defer notifier.Close()
		if err := eventService.RegisterHandler("weather_alerts", notifier); err != nil {
			log.Fatalf("Failed to register alert notifier: %v", err)
		}
	}

	coordinator := services.NewWeatherCoordinator(repo, source, location, eventService, services.CoordinatorOptions{
		DefaultCityID:  cfg.Weather.DefaultCityID,
		StartupTimeout: cfg.Weather.StartupTimeout,
	})
	if err := coordinator.Start(ctx); err != nil {
		log.Fatalf("Failed to start weather coordinator: %v", err)
	}

	theme, err := services.NewThemeService(coordinator)
	if err != nil {
		log.Fatalf("Failed to load theme catalog: %v", err)
	}

	var summarizer handlers.Summarizer
	if cfg.Summary.Enabled {
		generator, err := services.NewGeminiTextGenerator(ctx, cfg.Summary.APIKey, cfg.Summary.Model)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		summarizer = services.NewSummaryService(generator, services.SummaryOptions{
			RequestsPerMinute: cfg.Summary.RequestsPerMinute,
			Timeout:           cfg.Summary.Timeout,
			CacheTTL:          cfg.Summary.CacheTTL,
		})
	}

	var healthRedis redis.Cmdable
	if rdb != nil {
		healthRedis = rdb
	}
	healthService := services.NewHealthService(backend.pinger, string(cfg.Storage.Backend), healthRedis, coordinator, cfg.Server.Version)

	hub := websocket.NewHub(coordinator)

	r := router.SetupRouter(router.Dependencies{
		Config:           cfg,
		CurrentConfig:    currentConfig.Load,
		HealthHandler:    handlers.NewHealthHandler(healthService),
		WeatherHandler:   handlers.NewWeatherHandler(coordinator, locationReporter),
		CityHandler:      handlers.NewCityHandler(source),
		FavoritesHandler: handlers.NewFavoritesHandler(coordinator, source),
		SettingsHandler: handlers.NewSettingsHandler(coordinator, theme,
			handlers.NewClientConfig(cfg.Weather.SearchDebounce, cfg.Weather.MinQueryLength, cfg.Weather.RecentLimit)),
		SummaryHandler: handlers.NewSummaryHandler(coordinator, summarizer),
		WSHandler:      websocket.NewHandler(hub, coordinator, &cfg.Server),
	})

	if v != nil {
		watcher := config.NewWatcher(v)
		watcher.Subscribe("weather", func(next *config.Config) error {
			repo.SetFreshnessWindow(next.Weather.FreshnessWindow)
			currentConfig.Store(next)
			return nil
		})
		watcher.Start()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := hub.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error closing WebSocket connections", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}
	coordinator.Close()
	if err := eventService.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down event service", "error", err)
	}

	log.Info("Server exited")
}
