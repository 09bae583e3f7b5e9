package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fashionshop/storefront-notifier/api"
	"github.com/fashionshop/storefront-notifier/internal/delivery"
	"github.com/fashionshop/storefront-notifier/internal/lifecycle"
	"github.com/fashionshop/storefront-notifier/internal/notifications"
	"github.com/fashionshop/storefront-notifier/internal/poller"
	"github.com/fashionshop/storefront-notifier/internal/remote"
	"github.com/fashionshop/storefront-notifier/internal/snapshot"
	"github.com/fashionshop/storefront-notifier/pkg/config"
	"github.com/fashionshop/storefront-notifier/pkg/db"
	"github.com/fashionshop/storefront-notifier/pkg/logger"
	"github.com/fashionshop/storefront-notifier/pkg/metrics"
	"github.com/fashionshop/storefront-notifier/pkg/pubsub"
	"github.com/fashionshop/storefront-notifier/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "notifier"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "notifier",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := dbClient.Migrate(ctx); err != nil {
		logg.Error(ctx, "failed to run migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	snapshots, err := snapshot.NewStore(redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create snapshot store", err)
		os.Exit(1)
	}

	repo := notifications.NewRepository(dbClient.DB())
	notificationsService, err := notifications.NewService(repo, snapshots)
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}

	remoteClient, err := remote.NewClient(cfg.Remote, logg)
	if err != nil {
		logg.Error(ctx, "failed to create remote client", err)
		os.Exit(1)
	}

	presenter, cleanup, err := newPresenter(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to create presenter", err)
		os.Exit(1)
	}
	defer cleanup()

	pollMetrics := metrics.NewPollMetrics(prometheus.DefaultRegisterer)
	appState := lifecycle.NewAppState()

	engine, err := poller.NewEngine(poller.Params{
		Logger:     logg,
		Remote:     remoteClient,
		Snapshots:  snapshots,
		Records:    repo,
		Presenter:  presenter,
		Foreground: appState,
		Metrics:    pollMetrics,
		Config:     cfg.Poll,
		UserID:     cfg.Remote.UserID,
		ChannelID:  cfg.Delivery.ChannelID,
	})
	if err != nil {
		logg.Error(ctx, "failed to create polling engine", err)
		os.Exit(1)
	}

	monitor, err := lifecycle.NewMonitor(lifecycle.Params{
		Logger: logg,
		Engine: engine,
		State:  appState,
		Config: cfg.Poll,
	})
	if err != nil {
		logg.Error(ctx, "failed to create lifecycle monitor", err)
		os.Exit(1)
	}
	go monitor.Run(ctx)

	server := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: api.NewRouter(cfg, logg, dbClient, redisClient, notificationsService, monitor),
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", server.Addr), "starting notifier")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "error during shutdown", err)
		}
		logg.Info(ctx, "notifier shutting down gracefully")
	case err := <-errCh:
		logg.Error(ctx, "server stopped unexpectedly", err)
		os.Exit(1)
	}
}

// newPresenter picks the delivery channel: the push gateway topic in prod,
// plain log output in dev.
func newPresenter(ctx context.Context, cfg *config.Config, logg *logger.Logger) (delivery.Presenter, func(), error) {
	if !cfg.Delivery.IsPubSub() {
		presenter, err := delivery.NewLogPresenter(logg)
		return presenter, func() {}, err
	}

	pub, err := pubsub.NewPublisher(ctx, cfg.Delivery.ProjectID, cfg.Delivery.Topic, logg)
	if err != nil {
		return nil, nil, err
	}
	presenter, err := delivery.NewPubSubPresenter(pub, logg)
	if err != nil {
		pub.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := pub.Close(); err != nil {
			logg.Error(context.Background(), "error closing publisher", err)
		}
	}
	return presenter, cleanup, nil
}
