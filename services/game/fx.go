package game

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("game.service",
	fx.Provide(NewService, NewHandler),
	fx.Invoke(registerRoutes, runBootstrap),
)

// Worker registers the asynq handlers; include it with task.Server.
var Worker = fx.Module("game.worker",
	fx.Invoke(registerTaskHandlers),
)

func registerRoutes(r *gin.Engine, h *Handler) {
	h.Register(r)
}

func registerTaskHandlers(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(TaskRewardClaimed, s.HandleRewardClaimedTask)
}

// runBootstrap migrates the schema and seeds reward definitions before the
// HTTP server starts.
func runBootstrap(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			if err := s.Migrate(ctx); err != nil {
				zap.L().Error("failed to migrate game schema", zap.Error(err))
				return err
			}
			if err := s.SeedRewards(ctx); err != nil {
				zap.L().Error("failed to seed reward definitions", zap.Error(err))
				return err
			}
			return nil
		},
	})
}
