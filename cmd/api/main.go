package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/finsight/internal/advisor"
	"github.com/Dan9191/finsight/internal/config"
	"github.com/Dan9191/finsight/internal/handler"
	"github.com/Dan9191/finsight/internal/integrations/backend"
	"github.com/Dan9191/finsight/internal/service"
	"github.com/Dan9191/finsight/internal/store"
	"github.com/Dan9191/finsight/internal/utils/email"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize state store
	st, err := newStore(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer st.Close()

	// Initialize layers
	client := backend.NewClient(cfg, logger)
	adv, err := newAdvisor(cfg, client, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize AI advisor: %v", err)
	}
	mailer := email.NewSender(cfg, logger)
	if !mailer.Enabled() {
		logger.Info("SMTP is not configured, email reports are disabled")
	}

	svc, err := service.NewService(st, client, adv, mailer, logger, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize service: %v", err)
	}
	defer svc.Close()

	sweeper, err := svc.StartSweeper(cfg.SweepSchedule)
	if err != nil {
		logger.Fatalf("Failed to start session sweeper: %v", err)
	}
	defer sweeper.Stop()

	h := handler.NewHandler(svc, logger)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      h.Router(cfg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2*cfg.BackendTimeout + 10*time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
}

func newStore(cfg *config.Config, logger *logrus.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreRedis:
		rdb, err := store.NewRedisConnection(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(rdb, logger), nil
	case config.StorePostgres:
		return store.NewPostgresStore(cfg.DBConn, logger)
	}
	return store.NewMemoryStore(), nil
}

func newAdvisor(cfg *config.Config, client *backend.Client, logger *logrus.Logger) (advisor.Advisor, error) {
	if cfg.AIProvider == config.AIGemini {
		return advisor.NewGeminiAdvisor(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, cfg.BackendTimeout, logger)
	}
	return advisor.NewBackendAdvisor(client, logger), nil
}
