package wavelet

import "fmt"

// Generic lifting-scheme machinery. A wavelet filter is factored into an
// ordered sequence of predict and update steps with real coefficients,
// followed by an optional scaling of each subband. The forward transform
// applies the steps in order; the inverse applies them in reverse with
// negated contributions, which makes any lifting filter exactly invertible
// up to floating-point rounding.

// StepKind marks a lifting step as predict (modifies the detail lane from
// the approximation lane) or update (the other way around).
type StepKind int

const (
	StepPredict StepKind = iota
	StepUpdate
)

// LiftingStep is one step of a lifting factorisation. Taps holds the
// symmetric weights applied about the current index, innermost pair first:
// for a predict step, tap j weights (even[i-j] + even[i+j+1]); for an
// update step, tap j weights (odd[i-j-1] + odd[i+j]).
type LiftingStep struct {
	Kind StepKind
	Taps []float64
}

// LiftingFilter is a complete lifting factorisation with post-scaling of
// the low-pass and high-pass subbands.
type LiftingFilter struct {
	Steps     []LiftingStep
	LowScale  float64
	HighScale float64
}

// Validate checks the filter is usable.
func (f *LiftingFilter) Validate() error {
	if len(f.Steps) == 0 {
		return fmt.Errorf("lifting filter has no steps")
	}
	for i, s := range f.Steps {
		if len(s.Taps) == 0 {
			return fmt.Errorf("lifting step %d has no taps", i)
		}
		if s.Kind != StepPredict && s.Kind != StepUpdate {
			return fmt.Errorf("lifting step %d has unknown kind %d", i, int(s.Kind))
		}
	}
	if f.LowScale == 0 || f.HighScale == 0 {
		return fmt.Errorf("lifting filter scale factors must be non-zero")
	}
	return nil
}

// Forward applies the filter to a 1D signal, returning low-pass
// (ceil(n/2) samples) and high-pass (floor(n/2) samples) subbands.
func (f *LiftingFilter) Forward(signal []float64, mode ExtendMode) (low, high []float64, err error) {
	n := len(signal)
	if n < 2 {
		return nil, nil, fmt.Errorf("signal too short: %d samples (minimum 2)", n)
	}
	if !mode.Valid() {
		return nil, nil, fmt.Errorf("unknown boundary extension mode %d", int(mode))
	}
	if err := f.Validate(); err != nil {
		return nil, nil, err
	}

	sn := (n + 1) / 2
	even := make([]float64, sn)
	odd := make([]float64, n/2)
	for i := range even {
		even[i] = signal[2*i]
	}
	for i := range odd {
		odd[i] = signal[2*i+1]
	}

	for _, step := range f.Steps {
		applyLiftingStep(even, odd, step, mode, false)
	}

	for i := range even {
		even[i] *= f.LowScale
	}
	for i := range odd {
		odd[i] *= f.HighScale
	}
	return even, odd, nil
}

// Inverse reconstructs a signal from its subbands. The subband lengths may
// differ by at most one, with the low-pass side the longer one; the result
// has len(low)+len(high) samples.
func (f *LiftingFilter) Inverse(low, high []float64, mode ExtendMode) ([]float64, error) {
	sn := len(low)
	dn := len(high)
	if sn-dn < 0 || sn-dn > 1 {
		return nil, fmt.Errorf("incompatible subband sizes: low=%d high=%d", sn, dn)
	}
	n := sn + dn
	if n < 2 {
		return nil, fmt.Errorf("signal too short: %d samples (minimum 2)", n)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown boundary extension mode %d", int(mode))
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	even := make([]float64, sn)
	odd := make([]float64, dn)
	for i := range even {
		even[i] = low[i] / f.LowScale
	}
	for i := range odd {
		odd[i] = high[i] / f.HighScale
	}

	for i := len(f.Steps) - 1; i >= 0; i-- {
		applyLiftingStep(even, odd, f.Steps[i], mode, true)
	}

	signal := make([]float64, n)
	for i := range even {
		signal[2*i] = even[i]
	}
	for i := range odd {
		signal[2*i+1] = odd[i]
	}
	return signal, nil
}

// applyLiftingStep adds (or, inverting, subtracts) the weighted symmetric
// neighbour sum into the step's target lane.
func applyLiftingStep(even, odd []float64, step LiftingStep, mode ExtendMode, invert bool) {
	sign := 1.0
	if invert {
		sign = -1.0
	}
	if step.Kind == StepPredict {
		for i := range odd {
			var sum float64
			for j, c := range step.Taps {
				sum += c * (ExtendFloat(even, i-j, mode) + ExtendFloat(even, i+j+1, mode))
			}
			odd[i] += sign * sum
		}
		return
	}
	for i := range even {
		var sum float64
		for j, c := range step.Taps {
			sum += c * (ExtendFloat(odd, i-j-1, mode) + ExtendFloat(odd, i+j, mode))
		}
		even[i] += sign * sum
	}
}
