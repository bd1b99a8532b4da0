package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/wastenot/internal/config"
	"github.com/sheikh-saqib/wastenot/internal/events/kafka"
	"github.com/sheikh-saqib/wastenot/internal/httpapi"
	"github.com/sheikh-saqib/wastenot/internal/interfaces"
	"github.com/sheikh-saqib/wastenot/internal/ledger"
	"github.com/sheikh-saqib/wastenot/internal/session"
	"github.com/sheikh-saqib/wastenot/internal/storage/memory"
)

const sweepInterval = time.Minute

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Track food inventory and expiry dates to reduce waste",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), versionCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, Version)
		},
	}
}

type serveOptions struct {
	envFile   string
	addr      string
	threshold int
	debug     bool
}

func serveCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inventory page and JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, opts.debug)
		},
	}
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides "+config.EnvAddr+")")
	cmd.Flags().IntVar(&opts.threshold, "threshold", 0, "alert threshold in days (overrides "+config.EnvAlertThreshold+")")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "development logging")
	return cmd
}

// loadConfig applies flags on top of the dotenv/environment configuration.
func loadConfig(cmd *cobra.Command, opts *serveOptions) (config.Config, error) {
	cfg, err := config.Load(opts.envFile)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = opts.addr
	}
	if cmd.Flags().Changed("threshold") {
		cfg.AlertThresholdDays = opts.threshold
	}
	return cfg, cfg.Validate()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func serve(ctx context.Context, cfg config.Config, debug bool) error {
	logger, err := newLogger(debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var publisher interfaces.EventPublisher
	if cfg.EventsEnabled() {
		p := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger.Named("kafka"))
		defer p.Close()
		publisher = p
		logger.Info("publishing item events",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic))
	}

	newSessionLedger := func() *ledger.Ledger {
		opts := []ledger.Option{ledger.WithLogger(logger.Named("ledger"))}
		if publisher != nil {
			opts = append(opts, ledger.WithPublisher(publisher, cfg.KafkaTopic))
		}
		return ledger.NewLedger(memory.NewMemoryLedgerStore(), opts...)
	}
	sessions := session.NewRegistry(newSessionLedger, cfg.SessionTTL, logger.Named("session"))
	go sessions.Run(ctx, sweepInterval)

	api, err := httpapi.New(sessions, cfg.AlertThresholdDays, logger.Named("http"))
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", cfg.Addr),
			zap.Int("alert_threshold_days", cfg.AlertThresholdDays),
			zap.Duration("session_ttl", cfg.SessionTTL))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
