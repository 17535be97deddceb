// Package vector provides the structured field container used for
// non-scalar registry entries. A Space declares named components and
// their lengths; a Vector holds one float64 slice per component of
// its Space. Spaces are negotiated incrementally while collaborators
// declare requirements, then frozen into storage when the registry
// materializes.
package vector

import (
	"errors"
	"fmt"
	"sort"
)

// ErrStructureMismatch reports two structures that disagree on a
// shared component's size.
var ErrStructureMismatch = errors.New("vector: structure mismatch")

// Space is the structure of a Vector: component names and sizes.
type Space struct {
	sizes map[string]int
}

// NewSpace returns an empty space.
func NewSpace() *Space {
	return &Space{sizes: map[string]int{}}
}

// With adds a component and returns the space for chaining. Adding a
// component that already exists at a different size is a caller bug
// and panics; re-adding at the same size is a no-op.
func (sp *Space) With(name string, n int) *Space {
	if have, ok := sp.sizes[name]; ok && have != n {
		panic(fmt.Sprintf("vector: component %q sized %d, re-declared as %d", name, have, n))
	}
	sp.sizes[name] = n
	return sp
}

// Extend unions other's components into sp. Collaborators declare
// their structural requirements through this during setup.
func (sp *Space) Extend(other *Space) error {
	for name, n := range other.sizes {
		if have, ok := sp.sizes[name]; ok && have != n {
			return fmt.Errorf("%w: component %q sized %d, required %d",
				ErrStructureMismatch, name, have, n)
		}
		sp.sizes[name] = n
	}
	return nil
}

// Covers reports whether sp contains every component of other at the
// same size.
func (sp *Space) Covers(other *Space) bool {
	for name, n := range other.sizes {
		if sp.sizes[name] != n {
			return false
		}
	}
	return true
}

// Components returns the component names in sorted order.
func (sp *Space) Components() []string {
	names := make([]string, 0, len(sp.sizes))
	for name := range sp.sizes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size returns the length of a component, or zero if absent.
func (sp *Space) Size(name string) int { return sp.sizes[name] }

// Clone returns an independent copy of the space.
func (sp *Space) Clone() *Space {
	c := NewSpace()
	for name, n := range sp.sizes {
		c.sizes[name] = n
	}
	return c
}

// NewVector allocates a zero-filled vector structured by sp.
func (sp *Space) NewVector() Vector {
	v := Vector{space: sp, data: map[string][]float64{}}
	for name, n := range sp.sizes {
		v.data[name] = make([]float64, n)
	}
	return v
}
