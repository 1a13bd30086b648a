package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"idlezoo/services/idle"
)

const DefaultSlotNumber = 1

type SavedAttraction struct {
	Count     int64   `json:"count"`
	Happiness float64 `json:"happiness"`
}

// SaveData is the save_data column payload.
type SaveData struct {
	Currency           int64                      `json:"currency"`
	CurrencyMultiplier float64                    `json:"currency_multiplier"`
	LastLoginAt        time.Time                  `json:"last_login"`
	Attractions        map[string]SavedAttraction `json:"attractions"`
	SavedAt            time.Time                  `json:"saved_at"`
}

func defaultSaveName(slot int) string {
	return fmt.Sprintf("Save %d", slot)
}

// SaveSnapshot projects state into a slot row keyed by player and slot
// number. The ID is left to the caller.
func SaveSnapshot(c idle.Catalogue, playerID string, slot int, name string, s idle.State, now time.Time) (*SaveSlot, error) {
	if name == "" {
		name = defaultSaveName(slot)
	}

	data := SaveData{
		Currency:           s.Currency,
		CurrencyMultiplier: s.CurrencyMultiplier,
		LastLoginAt:        s.LastLoginAt,
		Attractions:        make(map[string]SavedAttraction, len(s.Holdings)),
		SavedAt:            now,
	}
	for kind, h := range s.Holdings {
		data.Attractions[kind] = SavedAttraction{Count: h.Count, Happiness: h.Happiness}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	preview, err := json.Marshal(c.Summary(s))
	if err != nil {
		return nil, err
	}

	return &SaveSlot{
		PlayerID:     playerID,
		SlotNumber:   slot,
		SaveName:     name,
		Slug:         slug.Make(name),
		SaveData:     datatypes.JSON(raw),
		PreviewStats: datatypes.JSON(preview),
	}, nil
}

// RestoreState rebuilds a State from a slot. LastLoginAt is set to now so the
// time spent away from the slot does not accrue.
func RestoreState(slot *SaveSlot, now time.Time) (idle.State, error) {
	var data SaveData
	if err := json.Unmarshal(slot.SaveData, &data); err != nil {
		return idle.State{}, fmt.Errorf("decode save slot %d: %w", slot.SlotNumber, err)
	}

	s := idle.State{
		Currency:           data.Currency,
		CurrencyMultiplier: max(data.CurrencyMultiplier, 1),
		LastLoginAt:        now,
		Holdings:           make(map[string]idle.Holding, len(data.Attractions)),
	}
	for kind, a := range data.Attractions {
		s.Holdings[kind] = idle.Holding{Count: a.Count, Happiness: a.Happiness}
	}
	return s, nil
}

// decodePreview returns zeroed stats for a corrupt preview; the slot itself
// is still listed.
func decodePreview(slot *SaveSlot) idle.Preview {
	var p idle.Preview
	if len(slot.PreviewStats) == 0 {
		return p
	}
	if err := json.Unmarshal(slot.PreviewStats, &p); err != nil {
		zap.L().Warn("failed to decode save preview",
			zap.String("player_id", slot.PlayerID),
			zap.Int("slot_number", slot.SlotNumber),
			zap.Error(err),
		)
		return idle.Preview{}
	}
	return p
}
