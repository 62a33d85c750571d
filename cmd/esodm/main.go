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
	"go.uber.org/zap"

	"github.com/kailas-cloud/esodm"
	"github.com/kailas-cloud/esodm/examples/library/catalog"
	"github.com/kailas-cloud/esodm/internal/config"
	logpkg "github.com/kailas-cloud/esodm/internal/logger"
	"github.com/kailas-cloud/esodm/internal/metrics"
	chiTransport "github.com/kailas-cloud/esodm/internal/transport/chi"
	"github.com/kailas-cloud/esodm/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting esodm inspect server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("es_addresses", cfg.Elasticsearch.Addresses),
	)

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	client, err := esodm.New(clientOptions(cfg, logger)...)
	if err != nil {
		logger.Fatal("Failed to create client", zap.Error(err))
	}

	// Mapping generation needs no engine, so a failed ping only warns.
	pingCtx, cancelPing := context.WithTimeout(context.Background(),
		time.Duration(cfg.Elasticsearch.RequestTimeoutSec)*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		logger.Warn("Elasticsearch not reachable", zap.Error(err))
	} else {
		logger.Info("Connected to Elasticsearch")
	}
	cancelPing()

	if err := client.Register(catalog.Entities()...); err != nil {
		logger.Fatal("Failed to register entities", zap.Error(err))
	}
	logger.Info("Entities registered", zap.Strings("entities", client.EntityNames()))

	server := chiTransport.NewServer(client, client, prometheus.DefaultGatherer, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.HTTP.APIKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// clientOptions maps the elasticsearch and mapping sections onto client options.
func clientOptions(cfg config.Config, logger *zap.Logger) []esodm.Option {
	es := cfg.Elasticsearch
	opts := []esodm.Option{
		esodm.WithAddresses(es.Addresses...),
		esodm.WithMaxRetries(es.MaxRetries),
		esodm.WithIndexPrefix(es.IndexPrefix),
		esodm.WithWriteTypeHints(cfg.Mapping.TypeHints()),
		esodm.WithTypeHintField(cfg.Mapping.TypeHintField),
		esodm.WithLogger(logger),
		esodm.WithRegisterer(prometheus.DefaultRegisterer),
		esodm.WithTransport(&http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: time.Duration(es.RequestTimeoutSec) * time.Second,
		}),
	}
	switch {
	case es.APIKey != "":
		opts = append(opts, esodm.WithAPIKey(es.APIKey))
	case es.Username != "":
		opts = append(opts, esodm.WithCredentials(es.Username, es.Password))
	}
	if cfg.Mapping.RuntimeFieldsDir != "" {
		opts = append(opts, esodm.WithRuntimeFieldsLoader(esodm.RuntimeFieldsDir(cfg.Mapping.RuntimeFieldsDir)))
	}
	return opts
}
