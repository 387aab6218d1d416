package wavelet

import "fmt"

// DWT53 implements the 5/3 reversible wavelet transform used for lossless
// coding. All arithmetic is integer with floored division, so the inverse
// reconstructs the input bit-exactly.
// Reference: ISO/IEC 15444-1:2019 Annex F

// Forward53 performs the forward 5/3 wavelet transform on a 1D signal.
// The signal is split into even and odd samples; the predict step turns the
// odd samples into high-pass detail and the update step turns the even
// samples into low-pass approximation:
//
//	d[i] = odd[i] - floor((even[i] + even[i+1]) / 2)
//	s[i] = even[i] + floor((d[i-1] + d[i] + 2) / 4)
//
// Out-of-range taps are resolved with the given boundary mode. The low-pass
// output has ceil(n/2) samples and the high-pass floor(n/2).
func Forward53(signal []int32, mode ExtendMode) (low, high []int32, err error) {
	n := len(signal)
	if n < 2 {
		return nil, nil, fmt.Errorf("signal too short: %d samples (minimum 2)", n)
	}
	if !mode.Valid() {
		return nil, nil, fmt.Errorf("unknown boundary extension mode %d", int(mode))
	}

	sn := (n + 1) / 2 // low-pass count
	dn := n / 2       // high-pass count

	even := make([]int32, sn)
	odd := make([]int32, dn)
	for i := 0; i < sn; i++ {
		even[i] = signal[2*i]
	}
	for i := 0; i < dn; i++ {
		odd[i] = signal[2*i+1]
	}

	// Predict step. Intermediate sums are widened to avoid overflow at
	// high bit depths.
	high = make([]int32, dn)
	for i := 0; i < dn; i++ {
		e0 := int64(even[i])
		e1 := int64(Extend(even, i+1, mode))
		high[i] = odd[i] - int32((e0+e1)>>1)
	}

	// Update step.
	low = make([]int32, sn)
	for i := 0; i < sn; i++ {
		d0 := int64(Extend(high, i-1, mode))
		d1 := int64(Extend(high, i, mode))
		low[i] = even[i] + int32((d0+d1+2)>>2)
	}

	return low, high, nil
}

// Inverse53 reconstructs the original signal from the 5/3 subbands. The two
// steps of the forward transform are undone in reverse order with flipped
// signs, then even and odd samples are interleaved back.
//
// The subband lengths may differ by at most one, with the low-pass side the
// longer one (as produced by Forward53). The result has len(low)+len(high)
// samples.
func Inverse53(low, high []int32, mode ExtendMode) ([]int32, error) {
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

	// Undo the update step to recover the even samples.
	even := make([]int32, sn)
	for i := 0; i < sn; i++ {
		d0 := int64(Extend(high, i-1, mode))
		d1 := int64(Extend(high, i, mode))
		even[i] = low[i] - int32((d0+d1+2)>>2)
	}

	// Undo the predict step to recover the odd samples.
	odd := make([]int32, dn)
	for i := 0; i < dn; i++ {
		e0 := int64(even[i])
		e1 := int64(Extend(even, i+1, mode))
		odd[i] = high[i] + int32((e0+e1)>>1)
	}

	// Interleave.
	signal := make([]int32, n)
	for i := 0; i < sn; i++ {
		signal[2*i] = even[i]
	}
	for i := 0; i < dn; i++ {
		signal[2*i+1] = odd[i]
	}
	return signal, nil
}
