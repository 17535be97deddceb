package vector

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Vector holds one float64 slice per component of its Space. The
// struct is small enough to pass by value, but its data is shared;
// use Clone or AssignFrom for an independent copy.
type Vector struct {
	space *Space
	data  map[string][]float64
}

// Space returns the structure of v.
func (v *Vector) Space() *Space { return v.space }

// Component returns the live slice backing a component, or nil if v
// has no such component. Writes through the slice are writes to v.
func (v *Vector) Component(name string) []float64 { return v.data[name] }

// Fill sets every entry of every component to x.
func (v *Vector) Fill(x float64) {
	for _, c := range v.data {
		for i := range c {
			c[i] = x
		}
	}
}

// SetComponent copies vals into the named component.
func (v *Vector) SetComponent(name string, vals []float64) error {
	c, ok := v.data[name]
	if !ok {
		return fmt.Errorf("%w: no component %q", ErrStructureMismatch, name)
	}
	if len(c) != len(vals) {
		return fmt.Errorf("%w: component %q sized %d, got %d values",
			ErrStructureMismatch, name, len(c), len(vals))
	}
	copy(c, vals)
	return nil
}

// AddScaled accumulates alpha*w into v, component by component. The
// two vectors must share a structure; arithmetic on mismatched
// structures is a caller bug and panics.
func (v *Vector) AddScaled(alpha float64, w *Vector) {
	for name, c := range v.data {
		floats.AddScaled(c, alpha, w.mustComponent(name))
	}
}

// MulElem multiplies v by w entrywise.
func (v *Vector) MulElem(w *Vector) {
	for name, c := range v.data {
		floats.Mul(c, w.mustComponent(name))
	}
}

func (v *Vector) mustComponent(name string) []float64 {
	c, ok := v.data[name]
	if !ok {
		panic(fmt.Sprintf("vector: operand missing component %q", name))
	}
	return c
}

// Clone returns an independent copy of v sharing the same Space.
func (v *Vector) Clone() Vector {
	c := v.space.NewVector()
	for name, src := range v.data {
		copy(c.data[name], src)
	}
	return c
}

// AssignFrom deep-copies another *Vector's data into v. Registry deep
// copies between tags land here.
func (v *Vector) AssignFrom(src any) error {
	w, ok := src.(*Vector)
	if !ok {
		return fmt.Errorf("%w: assign from %T", ErrStructureMismatch, src)
	}
	for name, c := range v.data {
		wc, ok := w.data[name]
		if !ok || len(wc) != len(c) {
			return fmt.Errorf("%w: component %q", ErrStructureMismatch, name)
		}
		copy(c, wc)
	}
	return nil
}

// Stats summarizes a vector for observation logs.
type Stats struct {
	Min, Max, Mean float64
}

// Stats scans every component once. A vector with no entries reports
// zeros.
func (v *Vector) Stats() Stats {
	var (
		st    Stats
		n     int
		first = true
	)
	for _, name := range v.space.Components() {
		c := v.data[name]
		if len(c) == 0 {
			continue
		}
		if first {
			st.Min, st.Max = floats.Min(c), floats.Max(c)
			first = false
		} else {
			st.Min = min(st.Min, floats.Min(c))
			st.Max = max(st.Max, floats.Max(c))
		}
		st.Mean += floats.Sum(c)
		n += len(c)
	}
	if n > 0 {
		st.Mean /= float64(n)
	}
	return st
}
