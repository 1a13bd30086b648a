package idle

import (
	"errors"
	"math"
	"time"
)

var (
	ErrUnknownKind          = errors.New("unknown attraction kind")
	ErrInsufficientCurrency = errors.New("insufficient currency")
)

// floorEpsilon absorbs float noise such as 100*3*1.3 = 389.99999999999994.
const floorEpsilon = 1e-9

type Holding struct {
	Count     int64
	Happiness float64
}

// State is a detached snapshot of one player. Engine functions never mutate
// their input; they return a new State.
type State struct {
	Currency           int64
	LastLoginAt        time.Time
	Holdings           map[string]Holding
	CurrencyMultiplier float64

	// derived, see RecomputeDerivedStats
	Visitors            int64
	HappinessMultiplier float64
}

func (s State) Clone() State {
	out := s
	out.Holdings = make(map[string]Holding, len(s.Holdings))
	for k, v := range s.Holdings {
		out.Holdings[k] = v
	}
	return out
}

// Delta is the sparse body of an update_progress call.
type Delta struct {
	Kind     *string
	Currency *int64
}

type Preview struct {
	TotalAttractions int64   `json:"total_attractions"`
	Visitors         int64   `json:"visitors"`
	AverageHappiness float64 `json:"average_happiness"`
}

func (c Catalogue) NewState(now time.Time) State {
	s := State{
		Currency:           c.StartingCurrency,
		LastLoginAt:        now,
		Holdings:           make(map[string]Holding, len(c.Kinds)),
		CurrencyMultiplier: 1,
	}
	for _, k := range c.Kinds {
		s.Holdings[k.Name] = Holding{Happiness: k.clampHappiness(k.DefaultHappiness)}
	}
	return c.RecomputeDerivedStats(s)
}

func (c Catalogue) holding(s State, k KindSpec) Holding {
	h, ok := s.Holdings[k.Name]
	if !ok {
		return Holding{Happiness: k.clampHappiness(k.DefaultHappiness)}
	}
	return h
}

// RatePerSecond is the total currency produced per second by s.
func (c Catalogue) RatePerSecond(s State) float64 {
	var total float64
	for _, k := range c.Kinds {
		h := c.holding(s, k)
		if h.Count <= 0 {
			continue
		}
		multiplier := 1.0
		if c.HappinessWeighted {
			multiplier = 0.5 + k.clampHappiness(h.Happiness)/100
		}
		total += float64(h.Count) * k.BaseRate * multiplier
	}

	if c.ApplyCurrencyMultiplier {
		total *= max(s.CurrencyMultiplier, 1)
	}
	return total
}

// PreviewOfflineEarnings reports what ComputeOfflineEarnings would credit at now.
func (c Catalogue) PreviewOfflineEarnings(s State, now time.Time) int64 {
	elapsed := max(now.Sub(s.LastLoginAt).Seconds(), 0)

	earned := math.Floor(elapsed*c.RatePerSecond(s) + floorEpsilon)
	switch {
	case earned <= 0 || math.IsNaN(earned):
		return 0
	case earned >= math.MaxInt64:
		return math.MaxInt64
	default:
		return int64(earned)
	}
}

// ComputeOfflineEarnings credits the currency accrued since LastLoginAt and
// moves LastLoginAt to now. A clock going backwards earns nothing.
func (c Catalogue) ComputeOfflineEarnings(s State, now time.Time) (int64, State) {
	earned := c.PreviewOfflineEarnings(s, now)

	out := s.Clone()
	out.Currency = max(addSaturating(s.Currency, earned), c.MinimumCurrency)
	out.LastLoginAt = now
	return earned, out
}

// RecomputeDerivedStats clamps happiness into each kind's bounds and derives
// visitors and the happiness multiplier.
func (c Catalogue) RecomputeDerivedStats(s State) State {
	out := s.Clone()
	if len(c.Kinds) == 0 {
		out.Visitors = 0
		out.HappinessMultiplier = 0.5
		return out
	}

	var baseVisitors int64
	var happinessSum float64
	for _, k := range c.Kinds {
		h := c.holding(s, k)
		h.Happiness = k.clampHappiness(h.Happiness)
		out.Holdings[k.Name] = h

		baseVisitors += max(h.Count, 0) * k.VisitorWeight
		happinessSum += h.Happiness
	}

	factor := happinessSum / float64(len(c.Kinds)) / 100
	out.Visitors = int64(math.Floor(float64(baseVisitors)*factor + floorEpsilon))
	out.HappinessMultiplier = 0.5 + factor
	return out
}

// ApplyProgressUpdate merges a sparse client update. Unknown kinds are
// ignored; a negative currency override is stored as zero. A currency
// override already includes what the client accrued, so it moves
// LastLoginAt to now.
func (c Catalogue) ApplyProgressUpdate(s State, d Delta, now time.Time) State {
	out := s.Clone()
	if d.Kind != nil {
		if k, ok := c.Kind(*d.Kind); ok {
			h := c.holding(out, k)
			h.Count++
			out.Holdings[k.Name] = h
		}
	}
	if d.Currency != nil {
		out.Currency = max(*d.Currency, 0)
		out.LastLoginAt = now
	}
	return out
}

// CreditReward adds a reward payout, saturating at MaxInt64.
func (c Catalogue) CreditReward(s State, amount int64) State {
	out := s.Clone()
	out.Currency = max(addSaturating(s.Currency, max(amount, 0)), c.MinimumCurrency)
	return out
}

// Purchase buys one unit of kind, paying its cost.
func (c Catalogue) Purchase(s State, kind string) (State, error) {
	k, ok := c.Kind(kind)
	if !ok {
		return s, ErrUnknownKind
	}
	if s.Currency < k.Cost {
		return s, ErrInsufficientCurrency
	}

	out := s.Clone()
	out.Currency -= k.Cost
	h := c.holding(out, k)
	h.Count++
	out.Holdings[k.Name] = h
	return out, nil
}

// Summary is the preview stored alongside a save slot.
func (c Catalogue) Summary(s State) Preview {
	derived := c.RecomputeDerivedStats(s)

	var p Preview
	var happinessSum float64
	for _, k := range c.Kinds {
		h := derived.Holdings[k.Name]
		p.TotalAttractions += max(h.Count, 0)
		happinessSum += h.Happiness
	}
	if len(c.Kinds) > 0 {
		p.AverageHappiness = happinessSum / float64(len(c.Kinds))
	}
	p.Visitors = derived.Visitors
	return p
}

func addSaturating(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
