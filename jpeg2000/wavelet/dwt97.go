package wavelet

import "math"

// DWT97 implements the 9/7 irreversible wavelet transform used for lossy
// coding, expressed as a lifting filter with the fixed Daubechies 9/7
// coefficients.
// Reference: ISO/IEC 15444-1:2019 Annex F, Table F.4

const (
	alpha97 = -1.586134342
	beta97  = -0.05298011854
	gamma97 = 0.8829110762
	delta97 = 0.4435068522
	k97     = 1.149604398
)

// Filter97 returns the 9/7 lifting factorisation: two predict/update pairs
// followed by subband scaling.
func Filter97() *LiftingFilter {
	return &LiftingFilter{
		Steps: []LiftingStep{
			{Kind: StepPredict, Taps: []float64{alpha97}},
			{Kind: StepUpdate, Taps: []float64{beta97}},
			{Kind: StepPredict, Taps: []float64{gamma97}},
			{Kind: StepUpdate, Taps: []float64{delta97}},
		},
		LowScale:  k97,
		HighScale: 1 / k97,
	}
}

// Forward97 performs the forward 9/7 wavelet transform on a 1D signal.
// Uses IEEE-754 double arithmetic throughout (irreversible/lossy).
func Forward97(signal []float64, mode ExtendMode) (low, high []float64, err error) {
	return Filter97().Forward(signal, mode)
}

// Inverse97 reconstructs the original signal from the 9/7 subbands. The
// scaling is undone first, then the four lifting steps are unwound in
// reverse order.
func Inverse97(low, high []float64, mode ExtendMode) ([]float64, error) {
	return Filter97().Inverse(low, high, mode)
}

// ToFloat converts integer samples losslessly into the 9/7 float path.
func ToFloat(data []int32) []float64 {
	result := make([]float64, len(data))
	for i, v := range data {
		result[i] = float64(v)
	}
	return result
}

// ToInt rounds 9/7 results to integers, ties to even.
func ToInt(data []float64) []int32 {
	result := make([]int32, len(data))
	for i, v := range data {
		result[i] = int32(math.RoundToEven(v))
	}
	return result
}
