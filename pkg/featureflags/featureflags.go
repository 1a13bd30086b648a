package featureflags

import (
	"context"

	"idlezoo/pkg/config"

	"github.com/Flagsmith/flagsmith-go-client/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("featureflags", fx.Provide(ProvideFeatureFlag))

// Per-player flags read by the game service.
const (
	ApplyCurrencyMultiplier = "apply_currency_multiplier"
)

type FeatureFlag interface {
	// Enabled reports the flag for identifier, or fallback when Flagsmith is
	// not configured or cannot be reached.
	Enabled(ctx context.Context, identifier, feature string, fallback bool) bool
}

type featureflag struct {
	client *flagsmith.Client
}

type FeatureParams struct {
	fx.In
	Config *config.Config
}

func ProvideFeatureFlag(p FeatureParams) FeatureFlag {
	if p.Config.Flagsmith.ApiKey == "" {
		return Static{}
	}

	opts := []flagsmith.Option{
		flagsmith.WithAnalytics(),
	}
	if p.Config.Flagsmith.Addr != "" {
		opts = append(opts, flagsmith.WithBaseURL(p.Config.Flagsmith.Addr))
	}

	return &featureflag{
		client: flagsmith.NewClient(p.Config.Flagsmith.ApiKey, opts...),
	}
}

func (s *featureflag) Enabled(ctx context.Context, identifier, feature string, fallback bool) bool {
	flags, err := s.client.GetIdentityFlags(identifier, nil)
	if err != nil {
		zap.L().Warn("flagsmith identity flags unavailable", zap.String("identifier", identifier), zap.Error(err))
		return fallback
	}

	flag, err := flags.GetFlag(feature)
	if err != nil {
		return fallback
	}
	return flag.Enabled
}

// Static answers every flag from a fixed map, falling back otherwise.
type Static map[string]bool

func (s Static) Enabled(_ context.Context, _, feature string, fallback bool) bool {
	if v, ok := s[feature]; ok {
		return v
	}
	return fallback
}
