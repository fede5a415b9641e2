// Command server runs matchforge's matching engine behind the HTTP/WS API
// described in spec.md §6.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"matchforge/internal/command"
	"matchforge/internal/common"
	"matchforge/internal/config"
	"matchforge/internal/metrics"
	"matchforge/internal/registry"
	"matchforge/internal/store"
	"matchforge/internal/transport/httpapi"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	applyLogLevel(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	allowlist := common.DefaultAllowlist()

	tradeStore, err := store.OpenBoltStore(cfg.Store.Path, allowlist)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open trade store")
	}
	defer func() {
		if err := tradeStore.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close trade store")
		}
	}()

	reg := registry.New(allowlist, tradeStore, time.Now)
	defer reg.Shutdown()

	var recorder metrics.Recorder = metrics.NoOp()
	if cfg.Metrics.Enabled {
		recorder = metrics.NewPrometheus(prometheus.DefaultRegisterer)
		go serveMetrics(ctx, cfg.Metrics.Port)
	}

	svc := command.New(reg, recorder)
	srv := httpapi.NewServer(svc)

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: srv.Router()}

	go func() {
		log.Info().Str("addr", addr).Msg("matchforge listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func serveMetrics(ctx context.Context, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + strconv.Itoa(port), Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics server failed")
	}
}

func applyLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("unrecognized log level, defaulting to info")
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
