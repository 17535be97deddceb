package evaluator

import (
	"github.com/karst-sim/karst/internal/keys"
)

// MultiplicativeConfig describes a product of fields:
// coefficient * product over deps of dep (or 1/dep for reciprocal
// deps). A zero Coefficient means unset and defaults to 1.
type MultiplicativeConfig struct {
	Key          keys.Key
	Tag          keys.Tag
	Dependencies []keys.KeyTag
	Reciprocal   []keys.KeyTag
	Coefficient  float64
}

// NewMultiplicative builds a secondary node computing a product of
// its dependencies. The partial with respect to a dependency is the
// product of all other factors; reciprocal dependencies contribute
// through -1/x^2.
func NewMultiplicative(cfg MultiplicativeConfig) (*Secondary[float64], error) {
	coef := cfg.Coefficient
	if coef == 0 {
		coef = 1
	}
	recip := make([]bool, len(cfg.Dependencies))
	for i, dep := range cfg.Dependencies {
		for _, r := range cfg.Reciprocal {
			if dep == r {
				recip[i] = true
				break
			}
		}
	}
	factor := func(v float64, i int) float64 {
		if recip[i] {
			return 1 / v
		}
		return v
	}
	return NewSecondary(SecondaryConfig[float64]{
		Key:          cfg.Key,
		Tag:          cfg.Tag,
		Dependencies: cfg.Dependencies,
		Compute: func(vals []float64) (float64, error) {
			out := coef
			for i, v := range vals {
				out *= factor(v, i)
			}
			return out, nil
		},
		Partial: func(vals []float64, j int) (float64, error) {
			p := coef
			for i, v := range vals {
				if i == j {
					continue
				}
				p *= factor(v, i)
			}
			if recip[j] {
				p *= -1 / (vals[j] * vals[j])
			}
			return p, nil
		},
	})
}
