package game

import (
	"time"

	"gorm.io/datatypes"
)

// Player is the live, auto-persisted row of one player.
type Player struct {
	ID                 string    `gorm:"column:id;primaryKey;type:varchar(64)"`
	Currency           int64     `gorm:"column:currency;not null;default:0"`
	CurrencyMultiplier float64   `gorm:"column:currency_multiplier;not null;default:1"`
	LastLoginAt        time.Time `gorm:"column:last_login_at;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Attraction holds the owned count and happiness of one production kind.
type Attraction struct {
	ID        string    `gorm:"column:id;primaryKey;type:varchar(32)"`
	PlayerID  string    `gorm:"column:player_id;type:varchar(64);not null;uniqueIndex:idx_attraction_player_kind"`
	Kind      string    `gorm:"column:kind;type:varchar(50);not null;uniqueIndex:idx_attraction_player_kind"`
	Count     int64     `gorm:"column:count;not null;default:0"`
	Happiness float64   `gorm:"column:happiness;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

type RewardDefinition struct {
	ID                      string    `gorm:"column:id;primaryKey;type:varchar(32)"`
	Kind                    string    `gorm:"column:kind;type:varchar(50);not null;uniqueIndex"`
	CooldownMinutes         int64     `gorm:"column:cooldown_minutes;not null"`
	RewardMin               int64     `gorm:"column:reward_min;not null"`
	RewardMax               int64     `gorm:"column:reward_max;not null"`
	CurrencyMultiplierGrant float64   `gorm:"column:currency_multiplier_grant;not null;default:1"`
	CreatedAt               time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

type RewardCooldown struct {
	ID              string     `gorm:"column:id;primaryKey;type:varchar(32)"`
	PlayerID        string     `gorm:"column:player_id;type:varchar(64);not null;uniqueIndex:idx_cooldown_player_reward"`
	RewardID        string     `gorm:"column:reward_id;type:varchar(32);not null;uniqueIndex:idx_cooldown_player_reward"`
	LastClaimedAt   *time.Time `gorm:"column:last_claimed_at"`
	NextAvailableAt time.Time  `gorm:"column:next_available_at;not null"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// SaveSlot is a manual snapshot, unique per player and slot number.
type SaveSlot struct {
	ID           string         `gorm:"column:id;primaryKey;type:varchar(32)"`
	PlayerID     string         `gorm:"column:player_id;type:varchar(64);not null;uniqueIndex:idx_save_player_slot"`
	SlotNumber   int            `gorm:"column:slot_number;not null;uniqueIndex:idx_save_player_slot"`
	SaveName     string         `gorm:"column:save_name;type:varchar(100);not null"`
	Slug         string         `gorm:"column:slug;type:varchar(120)"`
	SaveData     datatypes.JSON `gorm:"column:save_data"`
	PreviewStats datatypes.JSON `gorm:"column:preview_stats"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// RewardClaim is the audit trail written by the game:reward_claimed task.
type RewardClaim struct {
	ID         string    `gorm:"column:id;primaryKey;type:varchar(32)"`
	PlayerID   string    `gorm:"column:player_id;type:varchar(64);not null;index"`
	RewardID   string    `gorm:"column:reward_id;type:varchar(32);not null"`
	Kind       string    `gorm:"column:kind;type:varchar(50);not null"`
	Amount     int64     `gorm:"column:amount;not null"`
	Multiplier float64   `gorm:"column:multiplier;not null"`
	ClaimedAt  time.Time `gorm:"column:claimed_at;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func Models() []any {
	return []any{
		&Player{},
		&Attraction{},
		&RewardDefinition{},
		&RewardCooldown{},
		&SaveSlot{},
		&RewardClaim{},
	}
}
