package idle

import (
	"fmt"

	"idlezoo/pkg/config"
)

// KindSpec is one row of the balance table: how a production kind earns,
// what it costs and how its happiness is bounded.
type KindSpec struct {
	Name             string
	BaseRate         float64 // currency per second per unit
	Cost             int64
	HappinessMin     float64
	HappinessMax     float64
	DefaultHappiness float64
	VisitorWeight    int64
}

func (k KindSpec) clampHappiness(h float64) float64 {
	return min(max(h, k.HappinessMin), k.HappinessMax)
}

type Catalogue struct {
	Kinds            []KindSpec
	StartingCurrency int64
	MinimumCurrency  int64
	// HappinessWeighted scales each kind's rate by 0.5 + happiness/100.
	HappinessWeighted bool
	// ApplyCurrencyMultiplier scales total earnings by State.CurrencyMultiplier.
	ApplyCurrencyMultiplier bool

	index map[string]int
}

// NewCatalogue validates kinds and builds the lookup index.
func NewCatalogue(c Catalogue) (Catalogue, error) {
	c.index = make(map[string]int, len(c.Kinds))
	for i, k := range c.Kinds {
		if k.Name == "" {
			return Catalogue{}, fmt.Errorf("kind %d: empty name", i)
		}
		if _, dup := c.index[k.Name]; dup {
			return Catalogue{}, fmt.Errorf("kind %q declared twice", k.Name)
		}
		if k.BaseRate < 0 || k.Cost < 0 || k.VisitorWeight < 0 {
			return Catalogue{}, fmt.Errorf("kind %q: negative rate, cost or visitor weight", k.Name)
		}
		if k.HappinessMin > k.HappinessMax {
			return Catalogue{}, fmt.Errorf("kind %q: happiness bounds [%v,%v] inverted", k.Name, k.HappinessMin, k.HappinessMax)
		}
		c.index[k.Name] = i
	}
	return c, nil
}

// CatalogueFromConfig maps the GAME section onto a Catalogue.
func CatalogueFromConfig(g config.Game) (Catalogue, error) {
	kinds := make([]KindSpec, 0, len(g.Kinds))
	for _, k := range g.Kinds {
		kinds = append(kinds, KindSpec{
			Name:             k.Name,
			BaseRate:         k.BaseRate,
			Cost:             k.Cost,
			HappinessMin:     k.HappinessMin,
			HappinessMax:     k.HappinessMax,
			DefaultHappiness: k.DefaultHappiness,
			VisitorWeight:    k.VisitorWeight,
		})
	}

	return NewCatalogue(Catalogue{
		Kinds:                   kinds,
		StartingCurrency:        g.StartingCurrency,
		MinimumCurrency:         g.MinimumCurrency,
		HappinessWeighted:       g.HappinessWeighted,
		ApplyCurrencyMultiplier: g.ApplyCurrencyMultiplier,
	})
}

func (c Catalogue) Kind(name string) (KindSpec, bool) {
	i, ok := c.index[name]
	if !ok {
		return KindSpec{}, false
	}
	return c.Kinds[i], true
}
