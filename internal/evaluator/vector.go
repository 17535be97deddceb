package evaluator

import (
	"errors"

	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/state"
	"github.com/karst-sim/karst/internal/vector"
)

// VectorAdditiveConfig describes an entrywise linear combination of
// structured fields. Space declares the structure this node computes
// on; dependencies are required to cover the same structure.
type VectorAdditiveConfig struct {
	Key   keys.Key
	Tag   keys.Tag
	Space *vector.Space
	Terms []Term
	Shift float64
}

// NewVectorAdditive builds a secondary node over structured fields
// computing shift + sum(coef*dep) entry by entry. The node's algebra
// binds to the structure negotiated at Setup, which may extend the
// configured one if other collaborators require more components.
func NewVectorAdditive(cfg VectorAdditiveConfig) (*Secondary[vector.Vector], error) {
	if cfg.Space == nil {
		return nil, errors.New("evaluator: vector additive needs a space")
	}
	deps := make([]keys.KeyTag, len(cfg.Terms))
	coefs := make([]float64, len(cfg.Terms))
	for i, t := range cfg.Terms {
		deps[i] = t.Dep
		coefs[i] = t.Coef
	}

	var sec *Secondary[vector.Vector]
	sec, err := NewSecondary(SecondaryConfig[vector.Vector]{
		Key:          cfg.Key,
		Tag:          cfg.Tag,
		Dependencies: deps,
		Compute: func(vals []vector.Vector) (vector.Vector, error) {
			out := sec.algebra.Const(cfg.Shift)
			for i := range vals {
				sec.algebra.AddScaled(&out, coefs[i], vals[i])
			}
			return out, nil
		},
		Partial: func(vals []vector.Vector, i int) (vector.Vector, error) {
			return sec.algebra.Const(coefs[i]), nil
		},
		Ensure: func(s *state.State) error {
			sp, err := s.RequireSpace(cfg.Key, cfg.Space)
			if err != nil {
				return err
			}
			for _, dep := range deps {
				if _, err := s.RequireSpace(dep.Key, sp); err != nil {
					return err
				}
			}
			sec.setAlgebra(Elementwise(sp))
			return nil
		},
	})
	return sec, err
}
