// Package main is the entry point for the Pluginverse server, a plugin
// marketplace backend with coin wallets and admin-reviewed deposits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pluginverse/pluginverse/internal/auth"
	"github.com/pluginverse/pluginverse/internal/config"
	"github.com/pluginverse/pluginverse/internal/handler"
	"github.com/pluginverse/pluginverse/internal/lock"
	"github.com/pluginverse/pluginverse/internal/repository"
	"github.com/pluginverse/pluginverse/internal/repository/postgres"
	"github.com/pluginverse/pluginverse/internal/repository/sqlite"
	"github.com/pluginverse/pluginverse/internal/service"
	"github.com/pluginverse/pluginverse/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("pluginverse-server %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
		return
	}

	cfg := config.MustLoad(*configPath)
	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", Version).
		Str("git_commit", GitCommit).
		Msg("starting pluginverse server")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database and repositories
	repos, dbHealth, err := setupRepositories(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("database setup: %w", err)
	}
	defer dbHealth.Close()

	// File storage backend
	backend, err := setupStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("storage setup: %w", err)
	}

	// Distributed lock for deposit processing
	locker, err := setupLocker(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("lock setup: %w", err)
	}

	// Services
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	users := service.NewUserService(repos.Users, tokens, logger)
	catalog := service.NewCatalogService(repos.Plugins, backend, logger)
	purchases := service.NewPurchaseService(repos.Users, repos.Plugins, logger)
	deposits := service.NewDepositService(repos.Deposits, locker, logger)
	settings := service.NewSettingsService(repos.Settings, logger)

	// Bootstrap admin account
	if cfg.Auth.AdminPassword != "" {
		if err := users.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return fmt.Errorf("admin bootstrap: %w", err)
		}
	} else {
		logger.Warn().Msg("no admin password configured, skipping admin bootstrap")
	}

	router := handler.NewRouter(handler.RouterConfig{
		Auth:     handler.NewAuthHandler(users, logger),
		Plugins:  handler.NewPluginHandler(catalog, purchases, backend, logger),
		Deposits: handler.NewDepositHandler(deposits, settings, logger),
		Files:    handler.NewFileHandler(backend, logger),
		Admin: handler.NewAdminHandler(handler.AdminConfig{
			Catalog:   catalog,
			Deposits:  deposits,
			Users:     users,
			Settings:  settings,
			MaxUpload: cfg.Server.MaxUploadSize,
			Logger:    logger,
		}),
		Tokens:         tokens,
		UserStore:      repos.Users,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsPath:    cfg.Metrics.Path,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupRepositories connects to the configured database, applies migrations
// and builds the repository set.
func setupRepositories(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repository.Repositories, repository.DatabaseHealth, error) {
	if cfg.Database.IsEmbedded() {
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			JournalMode:     cfg.Database.JournalMode,
			BusyTimeout:     cfg.Database.BusyTimeout,
			CacheSize:       cfg.Database.CacheSize,
			SynchronousMode: cfg.Database.SynchronousMode,
		}, logger)
		if err != nil {
			return repository.Repositories{}, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return repository.Repositories{}, nil, err
		}
		return repository.Repositories{
			Users:    sqlite.NewUserRepository(db),
			Plugins:  sqlite.NewPluginRepository(db),
			Deposits: sqlite.NewDepositRepository(db),
			Settings: sqlite.NewSettingsRepository(db),
		}, db, nil
	}

	db, err := postgres.NewDB(ctx, cfg.Database, logger)
	if err != nil {
		return repository.Repositories{}, nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return repository.Repositories{}, nil, err
	}
	return repository.Repositories{
		Users:    postgres.NewUserRepository(db),
		Plugins:  postgres.NewPluginRepository(db),
		Deposits: postgres.NewDepositRepository(db),
		Settings: postgres.NewSettingsRepository(db),
	}, db, nil
}

func setupStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case "s3":
		return storage.NewS3Backend(ctx, storage.S3Config{
			Endpoint:        cfg.Storage.S3.Endpoint,
			Region:          cfg.Storage.S3.Region,
			Bucket:          cfg.Storage.S3.Bucket,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			PublicBaseURL:   cfg.Storage.S3.PublicBaseURL,
			UsePathStyle:    cfg.Storage.S3.UsePathStyle,
		}, logger)
	default:
		return storage.NewFilesystemBackend(cfg.Storage.DataDir, logger)
	}
}

// setupLocker picks the deposit lock implementation. Redis serializes
// approvals across nodes; single-node deployments use the in-process lock.
func setupLocker(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (lock.Locker, error) {
	if !cfg.Redis.Enabled {
		logger.Info().Msg("redis disabled, using in-memory lock")
		return lock.NewMemoryLocker(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr(),
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		PoolSize:    cfg.Redis.PoolSize,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Info().Str("addr", cfg.Redis.Addr()).Msg("connected to redis")
	return lock.NewRedisLocker(client), nil
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat
	var out = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(out)
	}
	return logger.Level(level).With().Timestamp().Logger()
}
