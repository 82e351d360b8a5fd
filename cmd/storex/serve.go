package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/comalice/storex"
	"github.com/comalice/storex/internal/config"
	"github.com/comalice/storex/internal/devtools"
	"github.com/comalice/storex/internal/extensibility"
	"github.com/comalice/storex/internal/production"
)

func serveCmd(configPath *string) *cobra.Command {
	var (
		addr string
		tick time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the devtools inspector for the demo store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, tick)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides STOREX_HTTP_ADDR)")
	cmd.Flags().DurationVar(&tick, "tick", 0, "Dispatch counter/inc at this interval (0 disables)")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, tick time.Duration) error {
	logger := cfg.Logger(os.Stderr)
	registry := prometheus.NewRegistry()

	store, err := storex.New(
		storex.WithID(cfg.StoreID),
		storex.WithLogger(logger),
		storex.WithHistorySize(cfg.HistorySize),
		storex.WithObserver(production.NewPrometheusObserver(production.WithRegistry(registry))),
		storex.WithMiddleware(
			production.Tracing(production.WithStoreID(cfg.StoreID)),
			storex.LoggingMiddleware(logger),
		),
	)
	if err != nil {
		return err
	}

	persister, closer, err := cfg.OpenPersister(ctx)
	if err != nil {
		return fmt.Errorf("open persister: %w", err)
	}
	defer func() { _ = closer.Close() }()

	srv, err := devtools.New(store, devtools.WithLogger(logger), devtools.WithGatherer(registry))
	if err != nil {
		return err
	}
	defer srv.Close()

	err = srv.Do(func(store *storex.Store) error {
		if persister != nil {
			if err := store.Load(ctx, persister); err != nil {
				return err
			}
			if _, err := production.AutoSave(ctx, store, persister, logger); err != nil {
				return err
			}
		}
		return setupDemo(store)
	})
	if err != nil {
		return err
	}

	if tick > 0 {
		timer := extensibility.NewTimerSource(storex.NewAction(ActionIncrement, nil), tick)
		defer timer.Stop()
		go func() {
			err := extensibility.Pump(ctx, timer, func(action storex.Action) error {
				return srv.Do(func(store *storex.Store) error {
					_, _, err := store.Dispatch(action)
					return err
				})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("storex: tick pump stopped", "error", err)
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("storex: devtools listening", "addr", cfg.HTTPAddr, "store", cfg.StoreID)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
