package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"contactbook/internal/bootstrap"
	"contactbook/internal/contact/handler"
	"contactbook/internal/platform/config"
	"contactbook/internal/platform/httpserver"
	"contactbook/internal/platform/logger"
	platformmetrics "contactbook/internal/platform/metrics"
	httptransport "contactbook/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app, err := bootstrap.Build(ctx, cfg, reg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("failed to close resources", "error", err)
		}
	}()

	health := make(map[string]httptransport.HealthCheck, len(app.Health))
	for name, check := range app.Health {
		health[name] = httptransport.HealthCheck(check)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Gatherer: reg,
		Metrics:  platformmetrics.New(reg),
		Health:   health,
		Handlers: []httptransport.Registrar{
			handler.New(app.Gateway, app.Publisher, log),
		},
	})
	srv := httpserver.New(cfg.HTTPAddr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting contactbook", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		return httpserver.Serve(gctx, srv, cfg.ShutdownTimeout)
	})
	return g.Wait()
}
