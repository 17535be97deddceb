package evaluator

import (
	"github.com/karst-sim/karst/internal/keys"
)

// Term is one contribution to an additive combination.
type Term struct {
	Dep  keys.KeyTag
	Coef float64
}

// AdditiveConfig describes a linear combination of fields:
// shift + sum over terms of coef*dep.
type AdditiveConfig struct {
	Key   keys.Key
	Tag   keys.Tag
	Terms []Term
	Shift float64
}

// NewAdditive builds a secondary node computing a linear combination
// of its dependencies. Partials are the coefficients.
func NewAdditive(cfg AdditiveConfig) (*Secondary[float64], error) {
	deps := make([]keys.KeyTag, len(cfg.Terms))
	coefs := make([]float64, len(cfg.Terms))
	for i, t := range cfg.Terms {
		deps[i] = t.Dep
		coefs[i] = t.Coef
	}
	return NewSecondary(SecondaryConfig[float64]{
		Key:          cfg.Key,
		Tag:          cfg.Tag,
		Dependencies: deps,
		Compute: func(vals []float64) (float64, error) {
			out := cfg.Shift
			for i, v := range vals {
				out += coefs[i] * v
			}
			return out, nil
		},
		Partial: func(vals []float64, i int) (float64, error) {
			return coefs[i], nil
		},
	})
}
