// Command stubapi serves a stubbed restaurants API for local development.
// Stubs are read from the YAML file named by RESTAURANTS_STUBS_FILE.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/openrest/restaurants-go/apitest"
	"github.com/openrest/restaurants-go/internal/config"
	"github.com/openrest/restaurants-go/internal/logger"
	"github.com/openrest/restaurants-go/internal/web/server"
)

func main() {
	if err := start(); err != nil {
		fmt.Fprintf(os.Stderr, "stubapi start failed: %v\n", err)
		os.Exit(1)
	}
}

func start() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, nil, os.Stdout)
}

// run serves until ctx ends. A nil ln listens on cfg.StubAddr.
func run(ctx context.Context, cfg *config.Config, ln net.Listener, logOut io.Writer) error {
	zlog := logger.New(cfg.LogLevel, logOut)
	defer func() { _ = zlog.Sync() }()
	log := logger.Slog(zlog)

	backend := apitest.NewBackend(apitest.WithLogger(log))

	f, err := os.Open(cfg.StubsFile)
	if err != nil {
		return fmt.Errorf("open stubs file: %w", err)
	}
	n, err := backend.LoadStubs(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("load stubs: %w", err)
	}
	log.Info("stubs loaded", "file", cfg.StubsFile, "count", n)

	opts := []server.Option{
		server.WithHost(cfg.StubAddr),
		server.WithReadTimeout(cfg.StubReadTimeout),
		server.WithWriteTimeout(cfg.StubWriteTimeout),
		server.WithIdleTimeout(cfg.StubIdleTimeout),
		server.WithLogger(log),
		server.WithShutdownFunc(func(context.Context) error {
			log.Info("stub calls served", "count", len(backend.Calls()))
			return nil
		}),
	}
	if cfg.StubDrainTimeout > 0 {
		opts = append(opts, server.WithShutdownTimeout(cfg.StubDrainTimeout))
	}
	if ln != nil {
		opts = append(opts, server.WithListener(ln))
	}

	if err := server.New(backend, opts...).Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}
