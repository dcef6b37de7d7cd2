package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quizmaster-service/internal/app"
	"quizmaster-service/internal/auth"
	"quizmaster-service/internal/config"
	"quizmaster-service/internal/domain"
	"quizmaster-service/internal/infra/memory"
	pgloader "quizmaster-service/internal/infra/postgres"
	"quizmaster-service/internal/infra/rabbit"
	rediscache "quizmaster-service/internal/infra/redis"
	"quizmaster-service/internal/infra/sqlstore"
	transport "quizmaster-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if cfg.Auth.Secret == "" {
		return fmt.Errorf("auth secret not configured (set auth.secret or JWT_SECRET)")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var loader app.ContentLoader = store
	if cfg.Database.Driver == sqlstore.DriverPostgres {
		pool, err := pgxpool.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgloader.NewContentLoader(pool)
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}
	cacheTTL := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)

	var cache app.ContentCache
	var feeds app.FeedRegistry
	if redisClient != nil {
		cache = rediscache.NewContentCache(redisClient, loader, cacheTTL)
		registry := rediscache.NewFeedRegistry(redisClient, logger)
		defer registry.Close()
		feeds = registry
	} else {
		cache = memory.NewContentCache(loader, cacheTTL)
		feeds = memory.NewFeedRegistry()
	}

	var publishers []app.Publisher
	if cfg.AMQP.URL != "" {
		publisher, err := rabbit.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return fmt.Errorf("amqp: %w", err)
		}
		defer publisher.Close()
		publishers = append(publishers, publisher)
	}

	tokens, err := auth.NewService(store, cfg.Auth.Secret,
		config.TTLDuration(cfg.Auth.AccessTTL, 0),
		config.TTLDuration(cfg.Auth.RefreshTTL, 0),
	)
	if err != nil {
		return err
	}
	if err := ensureAdmin(ctx, tokens, store, cfg, logger); err != nil {
		return err
	}

	content := app.NewContentService(store, cache, logger)
	submissions := app.NewSubmissionService(store, feeds, logger, publishers...)
	api := transport.NewAPI(content, submissions, tokens, logger)
	wsHandler := transport.NewWSHandler(api, submissions, logger)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(api, wsHandler, logger),
		ReadTimeout:  config.TTLDuration(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.TTLDuration(cfg.Server.WriteTimeout, 15*time.Second),
	}

	go func() {
		logger.Info("starting quiz service", "port", finalPort, "driver", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// ensureAdmin creates the configured staff account on first start.
func ensureAdmin(ctx context.Context, tokens *auth.Service, users app.UserRepository, cfg config.Config, logger *slog.Logger) error {
	if cfg.Auth.AdminUsername == "" || cfg.Auth.AdminPassword == "" {
		return nil
	}
	_, err := users.FindUserByUsername(ctx, cfg.Auth.AdminUsername)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return err
	}
	user, err := tokens.Register(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, true)
	if err != nil {
		return err
	}
	logger.Info("admin user created", "user_id", user.ID, "username", user.Username)
	return nil
}
