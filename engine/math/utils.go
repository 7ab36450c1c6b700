package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Wrap returns v folded into [0, n). n must be positive.
func Wrap[T constraints.Signed](v, n T) T {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// DivCeil returns a/b rounded up.
func DivCeil[T constraints.Unsigned](a, b T) T {
	return (a + b - 1) / b
}
