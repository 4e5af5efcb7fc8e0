// Command hostinfod samples host CPU, memory, disk and OS information and
// serves it over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/hostinfo/internal/config"
	"github.com/Dicklesworthstone/hostinfo/internal/metrics"
	"github.com/Dicklesworthstone/hostinfo/internal/osname"
	"github.com/Dicklesworthstone/hostinfo/internal/sampler"
	"github.com/Dicklesworthstone/hostinfo/internal/server"
	"github.com/Dicklesworthstone/hostinfo/internal/store"
	"github.com/Dicklesworthstone/hostinfo/internal/supervisor"
	"github.com/Dicklesworthstone/hostinfo/internal/ui"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.FromFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// The dashboard owns the terminal.
	var logOut io.Writer = os.Stderr
	if cfg.TUI {
		logOut = io.Discard
	}
	logger := cfg.NewLogger(logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("hostinfod exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	st := store.New()

	// A zero settle delay in config means no wait; the sampler reads zero as
	// its default.
	settle := cfg.SettleDelay
	if settle == 0 {
		settle = -1
	}
	s := sampler.New(sampler.NewHostSource(), st, sampler.Config{
		Interval:    cfg.Interval,
		SettleDelay: settle,
		OSName:      osname.New(cfg.OSNameTimeout, logger),
		Observer:    metrics.Observe,
		Logger:      logger,
	})
	if err := s.Init(ctx); err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      server.New(st, cfg.Interval, logger).Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := supervisor.Run(gctx, "sampler", s.Run, supervisor.Policy{
			Initial:    cfg.Restart.Initial,
			Max:        cfg.Restart.Max,
			Multiplier: cfg.Restart.Multiplier,
			ResetAfter: cfg.Restart.ResetAfter,
			OnRestart:  metrics.Restarted,
			Logger:     logger,
		})
		return ignoreCanceled(err)
	})

	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http server shutdown", "error", err)
		}
		return nil
	})

	if cfg.TUI {
		g.Go(func() error {
			if err := ui.RunTUI(gctx, st, time.Second); err != nil {
				return fmt.Errorf("tui: %w", err)
			}
			// Quitting the dashboard stops the service.
			return errTUIQuit
		})
	}

	err := g.Wait()
	if errors.Is(err, errTUIQuit) {
		return nil
	}
	return err
}

var errTUIQuit = errors.New("dashboard closed")

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
