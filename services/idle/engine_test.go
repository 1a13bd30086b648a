package idle

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"idlezoo/pkg/config"
)

func zooCatalogue(t *testing.T, mutate ...func(*config.Game)) Catalogue {
	t.Helper()

	g := config.Game{
		StartingCurrency:  100,
		HappinessWeighted: true,
		Kinds:             config.DefaultKinds(),
	}
	for _, m := range mutate {
		m(&g)
	}

	c, err := CatalogueFromConfig(g)
	require.NoError(t, err)
	return c
}

func ptr[T any](v T) *T { return &v }

func TestNewCatalogueRejectsBadKinds(t *testing.T) {
	cases := map[string][]KindSpec{
		"empty name":      {{Name: ""}},
		"duplicate":       {{Name: "cage"}, {Name: "cage"}},
		"negative rate":   {{Name: "cage", BaseRate: -1}},
		"inverted bounds": {{Name: "cage", HappinessMin: 90, HappinessMax: 10}},
	}
	for name, kinds := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewCatalogue(Catalogue{Kinds: kinds})
			require.Error(t, err)
		})
	}
}

func TestNewState(t *testing.T) {
	c := zooCatalogue(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s := c.NewState(now)
	require.Equal(t, int64(100), s.Currency)
	require.Equal(t, now, s.LastLoginAt)
	require.Equal(t, 1.0, s.CurrencyMultiplier)
	require.Len(t, s.Holdings, 3)
	require.Equal(t, 75.0, s.Holdings["habitat"].Happiness)
	require.Zero(t, s.Visitors)
}

func TestComputeOfflineEarningsHappinessWeighted(t *testing.T) {
	c := zooCatalogue(t)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	s := c.NewState(now.Add(-100 * time.Second))
	s.Currency = 0
	s.Holdings["cage"] = Holding{Count: 3, Happiness: 80}

	earned, next := c.ComputeOfflineEarnings(s, now)
	require.Equal(t, int64(390), earned)
	require.Equal(t, int64(390), next.Currency)
	require.Equal(t, now, next.LastLoginAt)

	// input untouched
	require.Equal(t, int64(0), s.Currency)
	require.Equal(t, now.Add(-100*time.Second), s.LastLoginAt)
}

func TestComputeOfflineEarningsSimpleRates(t *testing.T) {
	c := zooCatalogue(t, func(g *config.Game) { g.HappinessWeighted = false })
	now := time.Now()

	s := c.NewState(now.Add(-10 * time.Second))
	s.Currency = 0
	s.Holdings["cage"] = Holding{Count: 2, Happiness: 50}
	s.Holdings["safari"] = Holding{Count: 1, Happiness: 100}

	earned, _ := c.ComputeOfflineEarnings(s, now)
	require.Equal(t, int64(10*(2*1+1*5)), earned)
}

func TestComputeOfflineEarningsIsIdempotentAtSameInstant(t *testing.T) {
	c := zooCatalogue(t)
	now := time.Now()

	s := c.NewState(now.Add(-time.Hour))
	s.Holdings["habitat"] = Holding{Count: 4, Happiness: 90}

	first, next := c.ComputeOfflineEarnings(s, now)
	require.Positive(t, first)

	second, again := c.ComputeOfflineEarnings(next, now)
	require.Zero(t, second)
	require.Equal(t, next.Currency, again.Currency)
}

func TestComputeOfflineEarningsClockSkew(t *testing.T) {
	c := zooCatalogue(t)
	now := time.Now()

	s := c.NewState(now.Add(time.Hour))
	s.Holdings["cage"] = Holding{Count: 10, Happiness: 100}

	earned, next := c.ComputeOfflineEarnings(s, now)
	require.Zero(t, earned)
	require.Equal(t, s.Currency, next.Currency)
	require.Equal(t, now, next.LastLoginAt)
}

func TestComputeOfflineEarningsMonotonic(t *testing.T) {
	c := zooCatalogue(t)
	start := time.Now()

	s := c.NewState(start)
	s.Holdings["cage"] = Holding{Count: 3, Happiness: 63}
	s.Holdings["habitat"] = Holding{Count: 1, Happiness: 71}
	s.Holdings["safari"] = Holding{Count: 2, Happiness: 99}

	var prev int64
	for secs := 0; secs <= 5000; secs += 37 {
		earned := c.PreviewOfflineEarnings(s, start.Add(time.Duration(secs)*time.Second))
		require.GreaterOrEqual(t, earned, int64(0))
		require.GreaterOrEqual(t, earned, prev, "elapsed=%d", secs)
		prev = earned
	}
}

func TestComputeOfflineEarningsMinimumCurrency(t *testing.T) {
	c := zooCatalogue(t, func(g *config.Game) { g.MinimumCurrency = 100 })
	now := time.Now()

	s := c.NewState(now)
	s.Currency = 20

	earned, next := c.ComputeOfflineEarnings(s, now)
	require.Zero(t, earned)
	require.Equal(t, int64(100), next.Currency)
}

func TestComputeOfflineEarningsCurrencyMultiplierFlag(t *testing.T) {
	now := time.Now()
	build := func(c Catalogue) State {
		s := c.NewState(now.Add(-100 * time.Second))
		s.Currency = 0
		s.CurrencyMultiplier = 2
		s.Holdings["cage"] = Holding{Count: 1, Happiness: 50}
		return s
	}

	off := zooCatalogue(t, func(g *config.Game) { g.HappinessWeighted = false })
	earned, _ := off.ComputeOfflineEarnings(build(off), now)
	require.Equal(t, int64(100), earned)

	on := zooCatalogue(t, func(g *config.Game) {
		g.HappinessWeighted = false
		g.ApplyCurrencyMultiplier = true
	})
	earned, _ = on.ComputeOfflineEarnings(build(on), now)
	require.Equal(t, int64(200), earned)

	// multipliers below the 1.0 floor do not shrink earnings
	s := build(on)
	s.CurrencyMultiplier = 0.25
	earned, _ = on.ComputeOfflineEarnings(s, now)
	require.Equal(t, int64(100), earned)
}

func TestRecomputeDerivedStatsClampsHappiness(t *testing.T) {
	c := zooCatalogue(t)

	cases := []struct {
		name  string
		input float64
		want  map[string]float64
	}{
		{name: "below floor", input: 0, want: map[string]float64{"cage": 50, "habitat": 60, "safari": 70}},
		{name: "above ceiling", input: 200, want: map[string]float64{"cage": 100, "habitat": 100, "safari": 100}},
		{name: "in range", input: 85, want: map[string]float64{"cage": 85, "habitat": 85, "safari": 85}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := c.NewState(time.Now())
			for kind := range s.Holdings {
				s.Holdings[kind] = Holding{Count: 1, Happiness: tc.input}
			}

			out := c.RecomputeDerivedStats(s)
			for kind, want := range tc.want {
				require.Equal(t, want, out.Holdings[kind].Happiness, kind)
			}
		})
	}
}

func TestRecomputeDerivedStatsVisitors(t *testing.T) {
	c := zooCatalogue(t)

	s := c.NewState(time.Now())
	s.Holdings["cage"] = Holding{Count: 3, Happiness: 80}
	s.Holdings["habitat"] = Holding{Count: 2, Happiness: 80}
	s.Holdings["safari"] = Holding{Count: 1, Happiness: 80}

	out := c.RecomputeDerivedStats(s)
	// base = 3*2 + 2*4 + 1*8 = 22; factor = 0.8
	require.Equal(t, int64(17), out.Visitors)
	require.InDelta(t, 1.3, out.HappinessMultiplier, 1e-9)
}

func TestApplyProgressUpdate(t *testing.T) {
	c := zooCatalogue(t)
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	later := t0.Add(100 * time.Second)
	s := c.NewState(t0)
	s.Holdings["habitat"] = Holding{Count: 2, Happiness: 75}

	out := c.ApplyProgressUpdate(s, Delta{Kind: ptr("cage")}, later)
	require.Equal(t, int64(1), out.Holdings["cage"].Count)
	require.Equal(t, int64(2), out.Holdings["habitat"].Count)
	require.Equal(t, int64(0), out.Holdings["safari"].Count)
	require.Equal(t, s.Currency, out.Currency)
	require.Equal(t, t0, out.LastLoginAt)

	unknown := c.ApplyProgressUpdate(s, Delta{Kind: ptr("unknown")}, later)
	require.Equal(t, s.Holdings, unknown.Holdings)
	require.Equal(t, s.Currency, unknown.Currency)

	withCurrency := c.ApplyProgressUpdate(s, Delta{Kind: ptr("unknown"), Currency: ptr(int64(42))}, later)
	require.Equal(t, int64(42), withCurrency.Currency)
	require.Equal(t, s.Holdings, withCurrency.Holdings)
	require.Equal(t, later, withCurrency.LastLoginAt)

	negative := c.ApplyProgressUpdate(s, Delta{Currency: ptr(int64(-5))}, later)
	require.Zero(t, negative.Currency)
}

func TestApplyProgressUpdateCurrencySyncStopsAccrual(t *testing.T) {
	c := zooCatalogue(t)
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := c.NewState(t0)
	s.Holdings["cage"] = Holding{Count: 1, Happiness: 100}

	now := t0.Add(100 * time.Second)
	synced := c.ApplyProgressUpdate(s, Delta{Currency: ptr(int64(250))}, now)

	earned, out := c.ComputeOfflineEarnings(synced, now)
	require.Zero(t, earned)
	require.Equal(t, int64(250), out.Currency)
}

func TestCreditReward(t *testing.T) {
	c := zooCatalogue(t)
	s := c.NewState(time.Now())
	s.Currency = 100

	out := c.CreditReward(s, 50)
	require.Equal(t, int64(150), out.Currency)
	require.Equal(t, int64(100), s.Currency)

	s.Currency = math.MaxInt64 - 10
	require.Equal(t, int64(math.MaxInt64), c.CreditReward(s, 200).Currency)

	floored := zooCatalogue(t, func(g *config.Game) { g.MinimumCurrency = 500 })
	s.Currency = 0
	require.Equal(t, int64(500), floored.CreditReward(s, 50).Currency)
}

func TestPurchase(t *testing.T) {
	c := zooCatalogue(t)
	s := c.NewState(time.Now())
	s.Currency = 300

	out, err := c.Purchase(s, "habitat")
	require.NoError(t, err)
	require.Equal(t, int64(50), out.Currency)
	require.Equal(t, int64(1), out.Holdings["habitat"].Count)

	_, err = c.Purchase(out, "habitat")
	require.ErrorIs(t, err, ErrInsufficientCurrency)

	_, err = c.Purchase(out, "dragon")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestSummary(t *testing.T) {
	c := zooCatalogue(t)
	s := c.NewState(time.Now())
	s.Holdings["cage"] = Holding{Count: 2, Happiness: 40}
	s.Holdings["safari"] = Holding{Count: 1, Happiness: 100}

	p := c.Summary(s)
	require.Equal(t, int64(3), p.TotalAttractions)
	// happiness after clamp: cage 50, habitat 75, safari 100
	require.InDelta(t, 75.0, p.AverageHappiness, 1e-9)
	// base = 2*2 + 1*8 = 12; floor(12 * 0.75) = 9
	require.Equal(t, int64(9), p.Visitors)
}
