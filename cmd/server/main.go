package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/config"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/detector"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/handler"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/logrepo"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/metrics"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/server"
	"github.com/BoB-Sentinel-Solution/SentinelServer-AI/internal/settings"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	ctx := context.Background()

	logs, err := logrepo.Open(ctx, cfg.Storage.SQLiteDSN)
	if err != nil {
		log.WithError(err).Fatal("failed to open log repository")
	}
	defer logs.Close()

	// settings.Store shares the Log Repository's connection pool rather than
	// opening a second handle onto the same SQLite file.
	settingsStore, err := settings.NewStore(ctx, logs.DB())
	if err != nil {
		log.WithError(err).Fatal("failed to initialize settings store")
	}

	mc := metrics.NewMetricsCollector(prometheus.DefaultRegisterer)

	var runtime *detector.Runtime
	if cfg.LLM.UseAIDetector {
		runtime = detector.NewRuntime(detector.Config{
			ScriptPath: cfg.LLM.ScriptPath,
			ModelDir:   cfg.LLM.ModelDir,
			MaxTokens:  cfg.LLM.MaxNewTokens,
			Timeout:    cfg.LLM.Timeout,
		}, log, mc)
	}

	h := handler.New(cfg, log, mc, runtime, logs, settingsStore)
	router := server.NewRouter(cfg, log, h, runtime, logs)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting sentinel inspector server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("server stopped")
}
