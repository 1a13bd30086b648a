package game

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

const (
	TaskRewardClaimed = "game:reward_claimed"
)

type RewardClaimedPayload struct {
	ClaimID    string    `json:"claim_id"`
	PlayerID   string    `json:"player_id"`
	RewardID   string    `json:"reward_id"`
	Kind       string    `json:"kind"`
	Amount     int64     `json:"amount"`
	Multiplier float64   `json:"multiplier"`
	ClaimedAt  time.Time `json:"claimed_at"`
	TraceID    string    `json:"trace_id,omitempty"`
}

// HandleRewardClaimedTask writes the claim audit row. Redelivered tasks hit
// the primary key and are skipped.
func (s *Service) HandleRewardClaimedTask(ctx context.Context, t *asynq.Task) error {
	var payload RewardClaimedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w: %w", err, asynq.SkipRetry)
	}
	if payload.ClaimID == "" || payload.PlayerID == "" {
		return fmt.Errorf("claim_id and player_id are required: %w", asynq.SkipRetry)
	}

	zapLog := zap.L().With(
		zap.String("task_type", t.Type()),
		zap.String("claim_id", payload.ClaimID),
		zap.String("player_id", payload.PlayerID),
		zap.String("trace_id", payload.TraceID),
	)

	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&RewardClaim{
		ID:         payload.ClaimID,
		PlayerID:   payload.PlayerID,
		RewardID:   payload.RewardID,
		Kind:       payload.Kind,
		Amount:     payload.Amount,
		Multiplier: payload.Multiplier,
		ClaimedAt:  payload.ClaimedAt,
	}).Error; err != nil {
		zapLog.Error("failed to record reward claim", zap.Error(err))
		return err
	}

	zapLog.Info("reward claim recorded", zap.String("kind", payload.Kind), zap.Int64("amount", payload.Amount))
	return nil
}
