package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, "sqlite", cfg.Database.Type)
	require.Equal(t, int64(100), cfg.Game.StartingCurrency)
	require.True(t, cfg.Game.HappinessWeighted)
	require.False(t, cfg.Game.ApplyCurrencyMultiplier)
	require.Len(t, cfg.Game.Kinds, 3)
	require.Equal(t, "cage", cfg.Game.Kinds[0].Name)
	require.Len(t, cfg.Game.Rewards, 3)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GAME_MINIMUM_CURRENCY", "100")
	t.Setenv("GAME_APPLY_CURRENCY_MULTIPLIER", "true")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, int64(100), cfg.Game.MinimumCurrency)
	require.True(t, cfg.Game.ApplyCurrencyMultiplier)
	require.Equal(t, "production", cfg.AppEnv)
}

func TestLoadConfigFileKinds(t *testing.T) {
	dir := t.TempDir()
	raw := `
GAME:
  STARTING_CURRENCY: 50
  KINDS:
    - NAME: house
      BASE_RATE: 0.5
      COST: 10
      HAPPINESS_MIN: 0
      HAPPINESS_MAX: 100
      DEFAULT_HAPPINESS: 50
      VISITOR_WEIGHT: 1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(raw), 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, int64(50), cfg.Game.StartingCurrency)
	require.Len(t, cfg.Game.Kinds, 1)
	require.Equal(t, "house", cfg.Game.Kinds[0].Name)
	require.InDelta(t, 0.5, cfg.Game.Kinds[0].BaseRate, 1e-9)
	require.Len(t, cfg.Game.Rewards, 3)
}
