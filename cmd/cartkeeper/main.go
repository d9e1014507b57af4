package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	h "github.com/mpetrov/cartkeeper/internal/http"
	"github.com/mpetrov/cartkeeper/internal/identity"
	"github.com/mpetrov/cartkeeper/internal/publisher"
	"github.com/mpetrov/cartkeeper/internal/storage"
	"github.com/mpetrov/cartkeeper/internal/syncer"
	"github.com/mpetrov/cartkeeper/pkg/logger"
)

type Config struct {
	HTTPPort         string
	Env              string
	LogLevel         string
	StorageBackend   string
	SQLitePath       string
	MigrationsPath   string
	RedisAddr        string
	RedisPassword    string
	MongoURI         string
	MongoDBName      string
	KafkaBrokers     []string
	SessionTokenFile string
	PollInterval     time.Duration
	RequestTimeout   time.Duration
	ShutdownTimeout  time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		Env:              getEnv("APP_ENV", "dev"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		StorageBackend:   getEnv("STORAGE_BACKEND", "sqlite"),
		SQLitePath:       getEnv("SQLITE_PATH", "./cartkeeper.db"),
		MigrationsPath:   getEnv("MIGRATIONS_PATH", "./internal/storage/migrations"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:      getEnv("MONGO_DB_NAME", "cartdb"),
		KafkaBrokers:     strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		SessionTokenFile: getEnv("SESSION_TOKEN_FILE", "./session.token"),
		PollInterval:     getEnvDuration("POLL_INTERVAL", syncer.DefaultPollInterval),
		RequestTimeout:   30 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	log, err := logger.New("cartkeeper", cfg.Env, cfg.LogLevel)
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open cart storage", zap.Error(err))
	}
	defer closeStore()

	// The session token lives in a file the auth layer maintains; the provider
	// decodes it on every poll, the same way the storefront re-read its local
	// session storage.
	ids := identity.NewTokenProvider(func(context.Context) (string, error) {
		raw, err := os.ReadFile(cfg.SessionTokenFile)
		if err != nil {
			return "", nil
		}
		return strings.TrimSpace(string(raw)), nil
	})

	cart := syncer.New(ctx, store, ids, log, cfg.PollInterval)
	log.Info("cart hydrated",
		zap.String("identity", cart.Identity()),
		zap.Int("items", len(cart.Items())),
		zap.String("backend", cfg.StorageBackend),
	)

	checkout := publisher.NewCheckoutPublisher(log, cfg.KafkaBrokers...)
	cartHandler := h.NewCartHandler(cart, store, checkout, log)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/api/v1", cartHandler.Routes())

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(r, "cartkeeper"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cart.Run(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info("cartkeeper listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("cartkeeper exited with error", zap.Error(err))
	}
	log.Info("cartkeeper stopped")
}

func openStore(ctx context.Context, cfg *Config, log *zap.Logger) (storage.CartStore, func(), error) {
	switch cfg.StorageBackend {
	case "memory":
		return storage.NewMemoryStore(), func() {}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		return storage.NewRedisStore(client), func() { client.Close() }, nil

	case "mongo":
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to mongodb", zap.String("uri", cfg.MongoURI))
		return storage.NewMongoStore(db), func() { db.Client().Disconnect(ctx) }, nil

	case "sqlite":
		store, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := store.RunMigrations(cfg.MigrationsPath); err != nil {
			store.Close()
			return nil, nil, err
		}
		log.Info("opened sqlite store", zap.String("path", cfg.SQLitePath))
		return store, func() { store.Close() }, nil

	default:
		return nil, nil, errors.New("unknown STORAGE_BACKEND: " + cfg.StorageBackend)
	}
}
