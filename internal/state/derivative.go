package state

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/karst-sim/karst/internal/keys"
	"github.com/karst-sim/karst/internal/record"
	"github.com/karst-sim/karst/internal/vector"
)

// Derivatives live in their own store, one set per differentiated
// pair. The set is named d<key>_d<wrt> and its records are tagged by
// the differentiated node's own tag, so d(A@next)/d(B@next) and
// d(A@)/d(B@next) share a set. Derivative records are owned by the
// differentiated field's key; only its evaluator writes them.

// RequireDerivative declares that d(key@tag)/d(wrt) must exist
// holding a T. Structured fields get derivative storage shaped by the
// field's own space. After Setup, storage materializes immediately,
// which is how intermediate nodes of a chain-rule walk register their
// caches on first use.
func RequireDerivative[T any](s *State, key keys.Key, tag keys.Tag, wrt keys.KeyTag) error {
	name := keys.DerivName(key, wrt)
	set, ok := s.derivs[name]
	if !ok {
		set = record.NewSet(name)
		s.derivs[name] = set
	}
	if err := record.Bind[T](set); err != nil {
		return err
	}
	if sp, ok := s.spaces[key]; ok && set.Type() == reflect.TypeFor[vector.Vector]() {
		installVectorAlloc(sp, set)
	} else if !set.HasAlloc() {
		set.SetAlloc(func() any { return new(T) })
	}
	if _, err := set.RequireRecord(tag, key); err != nil {
		return err
	}
	if s.setupDone {
		return set.CreateData()
	}
	return nil
}

func (s *State) sortedDerivKeys() []keys.Key {
	ks := make([]keys.Key, 0, len(s.derivs))
	for k := range s.derivs {
		ks = append(ks, k)
	}
	sort.Slice(ks, func(i, j int) bool { return ks[i] < ks[j] })
	return ks
}

// HasDerivativeSet reports whether d(key)/d(wrt) storage exists at
// any tag.
func (s *State) HasDerivativeSet(key keys.Key, wrt keys.KeyTag) bool {
	_, ok := s.derivs[keys.DerivName(key, wrt)]
	return ok
}

// DerivativeSet returns the record set holding d(key)/d(wrt).
func (s *State) DerivativeSet(key keys.Key, wrt keys.KeyTag) (*record.Set, error) {
	set, ok := s.derivs[keys.DerivName(key, wrt)]
	if !ok {
		return nil, fmt.Errorf("%w: derivative of %q with respect to %s",
			record.ErrMissingField, key, wrt)
	}
	return set, nil
}

// GetDerivative returns a read-only view of d(key@tag)/d(wrt).
func GetDerivative[T any](s *State, key keys.Key, tag keys.Tag, wrt keys.KeyTag) (*T, error) {
	set, err := s.DerivativeSet(key, wrt)
	if err != nil {
		return nil, err
	}
	return record.ValueOf[T](set, tag)
}

// SetDerivative stores v as d(key@tag)/d(wrt), registering and
// materializing the entry if this is its first use.
func SetDerivative[T any](s *State, key keys.Key, tag keys.Tag, wrt keys.KeyTag, v T) error {
	if err := RequireDerivative[T](s, key, tag, wrt); err != nil {
		return err
	}
	set := s.derivs[keys.DerivName(key, wrt)]
	if err := set.CreateData(); err != nil {
		return err
	}
	return record.SetValue(set, tag, key, v)
}
