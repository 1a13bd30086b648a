package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"idlezoo/pkg/config"
	"idlezoo/pkg/db"
	"idlezoo/pkg/gen"
	"idlezoo/pkg/logger"
	"idlezoo/pkg/otelcol"
	"idlezoo/pkg/task"
	"idlezoo/services/game"
)

// worker drains the game task queues. Run it next to cmd/zoo against the
// same database and redis.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		otelcol.Module,
		db.Module,
		task.Server,
		fx.Provide(gen.NewNode, game.NewService),
		game.Worker,
		fxLogger,
	)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
