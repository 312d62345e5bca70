package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/awmpietro/shunting-action-validator/internal/app"
	"github.com/awmpietro/shunting-action-validator/internal/config"
	"github.com/awmpietro/shunting-action-validator/internal/logging"
	"github.com/awmpietro/shunting-action-validator/internal/metrics"
	"github.com/awmpietro/shunting-action-validator/internal/transport/httptransport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(slog.LevelInfo).Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ruleMetrics, err := metrics.NewRuleMetrics(reg)
	if err != nil {
		logger.Error("metrics", "error", err)
		os.Exit(1)
	}

	rt, err := app.Build(cfg, logger, ruleMetrics)
	if err != nil {
		logger.Error("build service", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	h := httptransport.NewHandler(rt.Service, logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httptransport.Router(h, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.HTTPAddr, "policy", cfg.Policy, "rules", cfg.RuleOrder)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server", "error", err)
	}
	logger.Info("stopped", "dropped_observations", rt.Observer.Dropped())
}
