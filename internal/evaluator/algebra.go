package evaluator

import "github.com/karst-sim/karst/internal/vector"

// Algebra supplies the arithmetic a value type needs for chain-rule
// accumulation: building constants, accumulating contributions, and
// taking products.
type Algebra[T any] struct {
	// Const returns a value uniformly equal to x.
	Const func(x float64) T
	// Add accumulates x into dst.
	Add func(dst *T, x T)
	// AddScaled accumulates alpha*x into dst.
	AddScaled func(dst *T, alpha float64, x T)
	// Mul returns the product of x and y.
	Mul func(x, y T) T
	// Inv returns the reciprocal of x.
	Inv func(x T) T
}

// Scalar is the algebra of plain float64 fields.
func Scalar() Algebra[float64] {
	return Algebra[float64]{
		Const:     func(x float64) float64 { return x },
		Add:       func(dst *float64, x float64) { *dst += x },
		AddScaled: func(dst *float64, alpha, x float64) { *dst += alpha * x },
		Mul:       func(x, y float64) float64 { return x * y },
		Inv:       func(x float64) float64 { return 1 / x },
	}
}

// Elementwise is the entrywise algebra over vectors structured by sp.
func Elementwise(sp *vector.Space) Algebra[vector.Vector] {
	return Algebra[vector.Vector]{
		Const: func(x float64) vector.Vector {
			v := sp.NewVector()
			v.Fill(x)
			return v
		},
		Add: func(dst *vector.Vector, x vector.Vector) {
			dst.AddScaled(1, &x)
		},
		AddScaled: func(dst *vector.Vector, alpha float64, x vector.Vector) {
			dst.AddScaled(alpha, &x)
		},
		Mul: func(x, y vector.Vector) vector.Vector {
			z := x.Clone()
			z.MulElem(&y)
			return z
		},
		Inv: func(x vector.Vector) vector.Vector {
			z := x.Clone()
			for _, name := range z.Space().Components() {
				c := z.Component(name)
				for i := range c {
					c[i] = 1 / c[i]
				}
			}
			return z
		},
	}
}

// defaultAlgebra returns the canonical algebra for T when one exists.
func defaultAlgebra[T any]() (Algebra[T], bool) {
	if a, ok := any(Scalar()).(Algebra[T]); ok {
		return a, true
	}
	return Algebra[T]{}, false
}
