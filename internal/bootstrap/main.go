package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Domenick1991/flightsaga/config"
	"github.com/Domenick1991/flightsaga/internal/logging"
)

// Main is the whole life of a service binary. It returns the process exit code.
func Main(service string, args []string) int {
	flagSet := pflag.NewFlagSet(service, pflag.ContinueOnError)
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config.yaml"
	}
	configPath := flagSet.StringP("config", "c", defaultPath, "path to the YAML config (env CONFIG_PATH)")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}

	cfg, err := config.LoadConfig(*configPath, service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Log, service)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg, service, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return 1
	}
	defer app.Close()

	logger.Info("service starting",
		zap.String("broker", cfg.Broker.Driver),
		zap.String("storage", cfg.Database.Driver),
		zap.Bool("idempotency", cfg.Idempotency.Enabled))
	if err := app.Run(ctx); err != nil {
		logger.Error("service stopped", zap.Error(err))
		return 1
	}
	logger.Info("service stopped")
	return 0
}
