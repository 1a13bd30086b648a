package reward

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"idlezoo/pkg/config"
)

var ErrNotYetAvailable = errors.New("reward not yet available")

type Definition struct {
	Kind                    string
	CooldownMinutes         int64
	RewardMin               int64
	RewardMax               int64
	CurrencyMultiplierGrant float64
}

func (d Definition) Cooldown() time.Duration {
	return time.Duration(d.CooldownMinutes) * time.Minute
}

func (d Definition) Validate() error {
	switch {
	case d.Kind == "":
		return errors.New("reward kind is required")
	case d.CooldownMinutes < 0:
		return fmt.Errorf("reward %q: negative cooldown", d.Kind)
	case d.RewardMin < 0 || d.RewardMin > d.RewardMax:
		return fmt.Errorf("reward %q: invalid range [%d,%d]", d.Kind, d.RewardMin, d.RewardMax)
	case d.CurrencyMultiplierGrant <= 0:
		return fmt.Errorf("reward %q: multiplier grant must be positive", d.Kind)
	}
	return nil
}

// DefinitionsFromConfig maps the GAME.REWARDS table.
func DefinitionsFromConfig(rewards []config.Reward) ([]Definition, error) {
	out := make([]Definition, 0, len(rewards))
	seen := make(map[string]bool, len(rewards))
	for _, r := range rewards {
		d := Definition{
			Kind:                    r.Kind,
			CooldownMinutes:         r.CooldownMinutes,
			RewardMin:               r.RewardMin,
			RewardMax:               r.RewardMax,
			CurrencyMultiplierGrant: r.CurrencyMultiplierGrant,
		}
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if seen[d.Kind] {
			return nil, fmt.Errorf("reward %q declared twice", d.Kind)
		}
		seen[d.Kind] = true
		out = append(out, d)
	}
	return out, nil
}

// Cooldown tracks one player's claims of one reward kind.
// Invariant: NextAvailableAt >= LastClaimedAt when both are set.
type Cooldown struct {
	LastClaimedAt   *time.Time
	NextAvailableAt time.Time
}

// NewCooldown is claimable from createdAt on.
func NewCooldown(createdAt time.Time) Cooldown {
	return Cooldown{NextAvailableAt: createdAt}
}

func IsClaimable(c Cooldown, now time.Time) bool {
	return !now.Before(c.NextAvailableAt)
}

// DrawFunc returns a uniform integer in [min, max], both inclusive.
type DrawFunc func(min, max int64) (int64, error)

type Grant struct {
	Amount     int64
	Multiplier float64
	Cooldown   Cooldown
}

// Claim grants def at now. It fails with ErrNotYetAvailable before the
// cooldown elapses and then returns the zero Grant.
func Claim(c Cooldown, def Definition, currentMultiplier float64, now time.Time, draw DrawFunc) (Grant, error) {
	if !IsClaimable(c, now) {
		return Grant{}, ErrNotYetAvailable
	}

	amount, err := draw(def.RewardMin, def.RewardMax)
	if err != nil {
		return Grant{}, err
	}

	claimedAt := now
	return Grant{
		Amount:     amount,
		Multiplier: max(1, currentMultiplier*def.CurrencyMultiplierGrant),
		Cooldown: Cooldown{
			LastClaimedAt:   &claimedAt,
			NextAvailableAt: now.Add(def.Cooldown()),
		},
	}, nil
}

// UniformDraw draws from crypto/rand.
func UniformDraw(min, max int64) (int64, error) {
	if max < min {
		return 0, fmt.Errorf("invalid range [%d,%d]", min, max)
	}
	// the bound is computed in big.Int; max-min+1 overflows int64 for wide ranges
	bound := new(big.Int).Sub(big.NewInt(max), big.NewInt(min))
	bound.Add(bound, big.NewInt(1))

	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return 0, err
	}
	return n.Add(n, big.NewInt(min)).Int64(), nil
}
