// Package wavelet implements the discrete wavelet transforms used by JPEG 2000.
package wavelet

// ExtendMode selects how out-of-range sample indices are resolved when a
// filter tap reaches past a signal boundary.
// Reference: ISO/IEC 15444-1:2019 Annex F (periodic symmetric extension)
type ExtendMode int

const (
	// ExtendSymmetric mirrors the signal about its edges.
	ExtendSymmetric ExtendMode = iota

	// ExtendPeriodic wraps indices modulo the signal length.
	ExtendPeriodic

	// ExtendZero returns zero outside the signal.
	ExtendZero
)

// String returns the mode name.
func (m ExtendMode) String() string {
	switch m {
	case ExtendSymmetric:
		return "symmetric"
	case ExtendPeriodic:
		return "periodic"
	case ExtendZero:
		return "zero"
	}
	return "unknown"
}

// Valid reports whether m is one of the three supported modes.
func (m ExtendMode) Valid() bool {
	return m >= ExtendSymmetric && m <= ExtendZero
}

// Extend returns data[i] for in-range i, and the boundary-extended sample
// otherwise. Pure and total: it never modifies data and is defined for
// every i once len(data) > 0.
func Extend(data []int32, i int, mode ExtendMode) int32 {
	n := len(data)
	if i >= 0 && i < n {
		return data[i]
	}
	switch mode {
	case ExtendPeriodic:
		i %= n
		if i < 0 {
			i += n
		}
		return data[i]
	case ExtendZero:
		return 0
	default: // symmetric
		if i < 0 {
			i = -i - 1
			if i > n-1 {
				i = n - 1
			}
		} else {
			i = 2*n - i - 1
			if i < 0 {
				i = 0
			}
		}
		return data[i]
	}
}

// ExtendFloat is Extend for float64 signals.
func ExtendFloat(data []float64, i int, mode ExtendMode) float64 {
	n := len(data)
	if i >= 0 && i < n {
		return data[i]
	}
	switch mode {
	case ExtendPeriodic:
		i %= n
		if i < 0 {
			i += n
		}
		return data[i]
	case ExtendZero:
		return 0
	default: // symmetric
		if i < 0 {
			i = -i - 1
			if i > n-1 {
				i = n - 1
			}
		} else {
			i = 2*n - i - 1
			if i < 0 {
				i = 0
			}
		}
		return data[i]
	}
}
