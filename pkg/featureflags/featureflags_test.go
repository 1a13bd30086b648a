package featureflags

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"idlezoo/pkg/config"
)

func TestProvideFeatureFlagWithoutKeyIsStatic(t *testing.T) {
	ff := ProvideFeatureFlag(FeatureParams{Config: &config.Config{}})
	require.IsType(t, Static{}, ff)
	require.True(t, ff.Enabled(context.Background(), "p1", ApplyCurrencyMultiplier, true))
	require.False(t, ff.Enabled(context.Background(), "p1", ApplyCurrencyMultiplier, false))
}

func TestStaticOverrides(t *testing.T) {
	ff := Static{ApplyCurrencyMultiplier: true}
	require.True(t, ff.Enabled(context.Background(), "p1", ApplyCurrencyMultiplier, false))
	require.False(t, ff.Enabled(context.Background(), "p1", "other", false))
}
