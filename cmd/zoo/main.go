package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"idlezoo/pkg/config"
	"idlezoo/pkg/db"
	"idlezoo/pkg/featureflags"
	"idlezoo/pkg/gen"
	"idlezoo/pkg/health"
	"idlezoo/pkg/httpapi"
	"idlezoo/pkg/logger"
	"idlezoo/pkg/otelcol"
	"idlezoo/pkg/profiling"
	"idlezoo/pkg/redis"
	"idlezoo/pkg/server"
	"idlezoo/pkg/task"
	"idlezoo/services/game"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		task.Client,
		featureflags.Module,
		health.Module,
		fx.Provide(gen.NewNode),
		server.ProvideHTTPServer,
		httpapi.Module,
		game.Module,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	fx.New(opts...).Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	if cfg.AppEnv == "production" {
		return fxevent.NopLogger
	}
	return &fxevent.ZapLogger{Logger: logger}
})
