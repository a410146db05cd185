package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/taixiu/internal/application/predictor"
	"github.com/sawpanic/taixiu/internal/application/session"
	"github.com/sawpanic/taixiu/internal/config"
	"github.com/sawpanic/taixiu/internal/ingest"
	httpserver "github.com/sawpanic/taixiu/internal/interfaces/http"
	"github.com/sawpanic/taixiu/internal/interfaces/http/handlers"
	"github.com/sawpanic/taixiu/internal/metrics"
	"github.com/sawpanic/taixiu/internal/persistence"
	"github.com/sawpanic/taixiu/internal/persistence/postgres"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		host string
		port int
		seed string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket stream and feed poller",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				cfg.HTTP.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}
			return runServe(cmd.Context(), cfg, seed)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "HTTP listen host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "HTTP listen port (overrides config)")
	cmd.Flags().StringVar(&seed, "seed", "", "JSON history to seed an empty session with")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config, seedPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineCfg, err := cfg.PredictorConfig()
	if err != nil {
		return err
	}
	svc := predictor.New(engineCfg)
	reg := metrics.NewMetricsRegistry(nil)
	hub := handlers.NewHub()

	store := persistence.NewAuto(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Key, cfg.Redis.TTL)
	defer store.Close()

	sessOpts := []session.Option{
		session.WithStore(store),
		session.WithMetrics(reg),
		session.WithPublisher(hub),
	}
	handlerOpts := []handlers.Option{handlers.WithVersion(version)}

	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, postgres.Config{
			DSN:          cfg.Postgres.DSN,
			MaxOpenConns: cfg.Postgres.MaxOpenConns,
			QueryTimeout: cfg.Postgres.QueryTimeout,
		})
		if err != nil {
			return err
		}
		defer db.Close()
		ledger := postgres.NewLedgerRepo(db, cfg.Postgres.QueryTimeout)
		if err := ledger.EnsureSchema(ctx); err != nil {
			return err
		}
		sessOpts = append(sessOpts, session.WithLedger(ledger))
		handlerOpts = append(handlerOpts, handlers.WithLedger(ledger))
		log.Info().Msg("Prediction ledger enabled")
	}

	sess := session.New(svc, sessOpts...)
	restored, err := sess.Restore(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Starting with an empty session")
	}
	if !restored && seedPath != "" {
		rounds, err := loadHistory(seedPath)
		if err != nil {
			return err
		}
		added := svc.Seed(rounds)
		log.Info().Int("rounds", added).Str("file", seedPath).Msg("Session seeded")
	}

	var poller *ingest.Poller
	if cfg.Source.URL != "" {
		poller, err = ingest.NewPoller(pollerConfig(cfg.Source), nil)
		if err != nil {
			return err
		}
		poller.SetMetrics(reg)
		handlerOpts = append(handlerOpts, handlers.WithFeedStatus(poller.BreakerState))
	}

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:           cfg.HTTP.Host,
		Port:           cfg.HTTP.Port,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    60 * time.Second,
		HandlerTimeout: cfg.HTTP.HandlerTTL,
	}, handlers.NewHandlers(sess, hub, handlerOpts...), reg)

	errCh := make(chan error, 2)
	go func() { errCh <- server.Start() }()
	if poller != nil {
		go func() {
			if err := poller.Run(ctx, sess.LastRoundID, sess.LearnBatch); err != nil && ctx.Err() == nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		return err
	}
	if err := store.Save(shutdownCtx, svc.Snapshot()); err != nil {
		log.Warn().Err(err).Msg("Final snapshot save failed")
	}
	log.Info().Msg("Shutdown complete")
	return nil
}

func pollerConfig(src config.SourceConfig) ingest.Config {
	return ingest.Config{
		URL:       src.URL,
		Interval:  src.PollInterval,
		Timeout:   src.Timeout,
		RPS:       src.RPS,
		Burst:     src.Burst,
		UserAgent: src.UserAgent,
		Breaker: ingest.BreakerConfig{
			Name:                "feed",
			MaxRequests:         uint32(src.Circuit.SuccessThreshold),
			Timeout:             src.Circuit.OpenTimeout,
			ConsecutiveFailures: uint32(src.Circuit.FailureThreshold),
		},
	}
}
