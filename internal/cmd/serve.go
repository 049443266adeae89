package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/carelog-systems/carelog-projector/internal/config"
	"github.com/carelog-systems/carelog-projector/internal/dlq"
	"github.com/carelog-systems/carelog-projector/internal/logging"
	"github.com/carelog-systems/carelog-projector/internal/messaging/nats"
	"github.com/carelog-systems/carelog-projector/internal/model"
	"github.com/carelog-systems/carelog-projector/internal/projector"
	"github.com/carelog-systems/carelog-projector/internal/readmodel"
	"github.com/carelog-systems/carelog-projector/internal/server"
	"github.com/carelog-systems/carelog-projector/internal/stream"
	"github.com/carelog-systems/carelog-projector/internal/writer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the projector service",
	Long: `Connects to the change stream, projects change-capture batches into
the configured read-model stores, and serves health and metrics over HTTP.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(log)
	log = log.With(logging.Service("projector"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	js, err := nats.NewJetStreamClient(nats.Config{
		URL:      cfg.NATS.URL,
		Name:     cfg.NATS.Name,
		Username: cfg.NATS.Username,
		Password: cfg.NATS.Password,
	})
	if err != nil {
		return fmt.Errorf("connect to nats: %w", err)
	}
	defer js.Close()

	if _, err := js.CreateOrUpdateStream(ctx, nats.ChangeStream); err != nil {
		return fmt.Errorf("ensure change stream: %w", err)
	}

	consumer, err := js.CreateOrUpdateConsumer(ctx, nats.ChangeStream.Name, nats.ConsumerConfig{
		Name:          cfg.Stream.Consumer,
		FilterSubject: cfg.Stream.Subject,
		AckWait:       cfg.Stream.AckWait,
		MaxDeliver:    cfg.Stream.MaxDeliver,
		MaxAckPending: cfg.Stream.BatchSize * 2,
	})
	if err != nil {
		return fmt.Errorf("ensure stream consumer: %w", err)
	}

	var queue *dlq.Queue
	if cfg.DLQ.Enabled {
		queue, err = dlq.NewQueue(ctx, js)
		if err != nil {
			log.Warn("dlq unavailable, continuing without it", logging.Error(err))
			queue = nil
		}
	}

	targets, closers, err := buildTargets(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()
	if len(targets) == 0 {
		return fmt.Errorf("no read-model stores enabled")
	}

	handler := projector.NewHandler(targets, queue, log)

	consumerLoop := stream.NewConsumer(consumer, handler, queue, stream.ConsumerOptions{
		BatchSize: cfg.Stream.BatchSize,
		FetchWait: cfg.Stream.FetchWait,
		NakDelay:  cfg.Stream.NakDelay,
	}, log)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 2)

	go func() {
		log.Info("projector consuming",
			logging.Stream(nats.ChangeStream.Name),
			logging.Consumer(cfg.Stream.Consumer),
		)
		errCh <- consumerLoop.Run(ctx)
	}()

	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("fatal error", logging.Error(err))
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", logging.Error(err))
	}
	return nil
}

// buildTargets constructs a writer per enabled store backend.
func buildTargets(ctx context.Context, cfg *config.Config, log *logging.Logger) ([]projector.Target, []func() error, error) {
	policy := writer.RetryPolicy{
		MaxRetries:      cfg.Writer.MaxRetries,
		InitialInterval: cfg.Writer.InitialInterval,
		MaxInterval:     cfg.Writer.MaxInterval,
	}

	var targets []projector.Target
	var closers []func() error

	if cfg.Redis.Enabled {
		store, err := readmodel.NewRedisStore(ctx, readmodel.RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			BatchSize: cfg.Redis.BatchSize,
		})
		if err != nil {
			return nil, closers, fmt.Errorf("redis store: %w", err)
		}
		kinds, err := parseKinds(cfg.Redis.Kinds)
		if err != nil {
			return nil, closers, fmt.Errorf("redis store: %w", err)
		}
		closers = append(closers, store.Close)
		targets = append(targets, projector.Target{Writer: writer.New(store, policy, log), Kinds: kinds})
	}

	if cfg.Postgres.Enabled {
		if err := migrateUp(cfg.Postgres); err != nil {
			return nil, closers, err
		}
		store, err := readmodel.NewPostgresStore(ctx, readmodel.PostgresConfig{
			URL:       cfg.Postgres.URL,
			BatchSize: cfg.Postgres.BatchSize,
		})
		if err != nil {
			return nil, closers, fmt.Errorf("postgres store: %w", err)
		}
		kinds, err := parseKinds(cfg.Postgres.Kinds)
		if err != nil {
			return nil, closers, fmt.Errorf("postgres store: %w", err)
		}
		closers = append(closers, store.Close)
		targets = append(targets, projector.Target{Writer: writer.New(store, policy, log), Kinds: kinds})
	}

	if cfg.OpenSearch.Enabled {
		store, err := readmodel.NewOpenSearchStore(readmodel.OpenSearchConfig{
			URL:           cfg.OpenSearch.URL,
			Username:      cfg.OpenSearch.Username,
			Password:      cfg.OpenSearch.Password,
			TLSSkipVerify: cfg.OpenSearch.TLSSkipVerify,
			Index:         cfg.OpenSearch.Index,
			BatchSize:     cfg.OpenSearch.BatchSize,
		})
		if err != nil {
			return nil, closers, fmt.Errorf("opensearch store: %w", err)
		}
		kinds, err := parseKinds(cfg.OpenSearch.Kinds)
		if err != nil {
			return nil, closers, fmt.Errorf("opensearch store: %w", err)
		}
		closers = append(closers, store.Close)
		targets = append(targets, projector.Target{Writer: writer.New(store, policy, log), Kinds: kinds})
	}

	return targets, closers, nil
}

func parseKinds(names []string) (map[model.RecordKind]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	kinds := make(map[model.RecordKind]bool, len(names))
	for _, name := range names {
		kind, err := model.ParseRecordKind(name)
		if err != nil {
			return nil, err
		}
		kinds[kind] = true
	}
	return kinds, nil
}

func migrateUp(cfg config.PostgresConfig) error {
	m, err := migrate.New("file://"+cfg.MigrationsPath, cfg.URL)
	if err != nil {
		return fmt.Errorf("initialize migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
