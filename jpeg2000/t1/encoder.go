package t1

import (
	"fmt"
	"math"

	"github.com/raster-lab/go-j2k-codec/codec"
	"github.com/raster-lab/go-j2k-codec/jpeg2000/mqc"
)

// encoder carries the transient per-block state of one Tier-1 encode.
// Magnitude and flag buffers have a one-sample border so neighbour updates
// need no bounds checks.
type encoder struct {
	width  int
	height int
	stride int // width + 2
	orient int

	mag   []uint32 // padded coefficient magnitudes
	flags []uint32 // padded per-sample state

	opts  Options
	plane int

	enc *mqc.Encoder
	raw bool // current pass is a raw (bypass) pass

	out       []byte
	segLens   []int
	passCount int
}

// initContextStates applies the standard initial probability states.
func initContextStates(set func(contextID int, state uint8)) {
	set(ctxUniform, 46)
	set(ctxRunLength, 3)
	set(ctxZCStart, 4)
}

// EncodeCodeBlock codes width*height quantised coefficients (row-major)
// from one subband into an opaque byte stream plus its out-of-band
// metadata. maxPasses caps the number of coding passes emitted; values
// <= 0 mean no cap.
func EncodeCodeBlock(coeffs []int32, width, height int, subband Subband, bitDepth int, opts Options, maxPasses int) (*CodeBlock, error) {
	if err := validateBlockShape(width, height, bitDepth, subband); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(coeffs) != width*height {
		return nil, fmt.Errorf("%w: coefficient count %d does not match %dx%d block",
			codec.ErrInvalidParameter, len(coeffs), width, height)
	}

	// Magnitude/sign split, tracking the most significant bit in use.
	maxMag := uint32(0)
	mags := make([]uint32, len(coeffs))
	for i, v := range coeffs {
		var m uint32
		if v < 0 {
			m = uint32(-int64(v))
		} else {
			m = uint32(v)
		}
		mags[i] = m
		if m > maxMag {
			maxMag = m
		}
	}
	if bitDepth < 32 && maxMag >= uint32(1)<<uint(bitDepth) {
		return nil, fmt.Errorf("%w: magnitude %d exceeds bit depth %d",
			codec.ErrInvalidParameter, maxMag, bitDepth)
	}

	planes := 0
	for m := maxMag; m > 0; m >>= 1 {
		planes++
	}

	cb := &CodeBlock{
		Width:         width,
		Height:        height,
		Subband:       subband,
		BitDepth:      bitDepth,
		ZeroBitPlanes: bitDepth - planes,
		Data:          []byte{},
	}
	if planes == 0 {
		// All coefficients are zero: nothing is coded.
		return cb, nil
	}

	e := &encoder{
		width:  width,
		height: height,
		stride: width + 2,
		orient: subband.orientation(),
		mag:    make([]uint32, (width+2)*(height+2)),
		flags:  make([]uint32, (width+2)*(height+2)),
		opts:   opts,
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := (y+1)*e.stride + (x + 1)
			e.mag[idx] = mags[y*width+x]
			if coeffs[y*width+x] < 0 {
				e.flags[idx] = flagSign
			}
		}
	}

	if maxPasses <= 0 {
		maxPasses = math.MaxInt
	}
	e.run(planes-1, maxPasses)

	cb.Data = e.out
	cb.PassCount = e.passCount
	if opts.segmented() {
		cb.PassSegLengths = e.segLens
	}
	return cb, nil
}

// run drives the pass sequence: a cleanup pass on the top plane, then
// significance-propagation, magnitude-refinement and cleanup on every
// lower plane, most significant first.
func (e *encoder) run(topPlane, maxPasses int) {
	segmented := e.opts.segmented()
	if !segmented {
		e.enc = mqc.NewEncoder(numContexts)
		initContextStates(e.enc.SetContextState)
	}

	passIdx := 0
	passType := 2
	for e.plane = topPlane; e.plane >= 0 && passIdx < maxPasses; {
		if passType == 0 || (passType == 2 && passIdx == 0) {
			e.clearVisit()
		}

		e.raw = e.opts.BypassEnabled && passType == 1 && e.plane < e.opts.BypassThreshold
		if segmented {
			e.enc = mqc.NewEncoder(numContexts)
			if e.raw {
				e.enc.BypassInit()
			} else {
				initContextStates(e.enc.SetContextState)
			}
		}

		switch passType {
		case 0:
			e.sigPropPass()
		case 1:
			e.magRefPass()
		case 2:
			e.cleanupPass()
			if e.opts.SegmentSymbols {
				for i := 1; i < 5; i++ {
					e.enc.Encode(i%2, ctxUniform)
				}
			}
		}

		if segmented {
			var seg []byte
			if e.raw {
				seg = e.enc.BypassFlush()
			} else {
				seg = e.enc.ErtermFlush()
			}
			e.out = append(e.out, seg...)
			e.segLens = append(e.segLens, len(seg))
		}

		passIdx++
		if passType == 2 {
			passType = 0
			e.plane--
		} else {
			passType++
		}
	}

	e.passCount = passIdx
	if !segmented {
		e.out = e.enc.Flush()
	}
}

func (e *encoder) idx(x, y int) int {
	return (y+1)*e.stride + (x + 1)
}

// magBit returns bit `plane` of the sample's magnitude.
func (e *encoder) magBit(idx int) int {
	return int((e.mag[idx] >> uint(e.plane)) & 1)
}

func (e *encoder) clearVisit() {
	for i := range e.flags {
		e.flags[i] &^= flagVisit
	}
}

// sigPropPass codes, in stripe-column order, every coefficient that is not
// yet significant but has at least one significant neighbour.
func (e *encoder) sigPropPass() {
	for k := 0; k < e.height; k += 4 {
		for x := 0; x < e.width; x++ {
			for dy := 0; dy < 4 && k+dy < e.height; dy++ {
				y := k + dy
				idx := e.idx(x, y)
				flags := e.flags[idx]

				if flags&flagSig != 0 || flags&flagSigNeighbors == 0 {
					continue
				}

				sig := e.magBit(idx)
				e.enc.Encode(sig, zeroContext(flags, e.orient))
				e.flags[idx] |= flagVisit

				if sig != 0 {
					e.codeSign(idx, flags)
					e.flags[idx] |= flagSig
					e.updateNeighbors(x, y, idx)
				}
			}
		}
	}
}

// magRefPass codes one refinement bit for every already-significant
// coefficient that was not coded earlier in this bit-plane. In a raw pass
// the bit is emitted uncompressed.
func (e *encoder) magRefPass() {
	for k := 0; k < e.height; k += 4 {
		for x := 0; x < e.width; x++ {
			for dy := 0; dy < 4 && k+dy < e.height; dy++ {
				idx := e.idx(x, k+dy)
				flags := e.flags[idx]

				if flags&flagSig == 0 || flags&flagVisit != 0 {
					continue
				}

				bit := e.magBit(idx)
				if e.raw {
					e.enc.BypassEncode(bit)
				} else {
					e.enc.Encode(bit, magRefContext(flags))
				}
				e.flags[idx] |= flagRefine
			}
		}
	}
}

// cleanupPass codes every remaining coefficient. A full stripe-column with
// no significance anywhere near it is summarised by a single run-length
// symbol; a column that does carry a new significant sample falls through
// to explicit per-coefficient coding.
func (e *encoder) cleanupPass() {
	for k := 0; k < e.height; k += 4 {
		for x := 0; x < e.width; x++ {
			if k+3 < e.height && e.runLengthEligible(x, k) {
				anySig := 0
				for dy := 0; dy < 4; dy++ {
					if e.magBit(e.idx(x, k+dy)) != 0 {
						anySig = 1
						break
					}
				}
				e.enc.Encode(anySig, ctxRunLength)
				if anySig == 0 {
					for dy := 0; dy < 4; dy++ {
						e.flags[e.idx(x, k+dy)] |= flagVisit
					}
					continue
				}
			}

			for dy := 0; dy < 4 && k+dy < e.height; dy++ {
				y := k + dy
				idx := e.idx(x, y)
				flags := e.flags[idx]

				if flags&flagVisit != 0 || flags&flagSig != 0 {
					e.flags[idx] &^= flagVisit
					continue
				}

				sig := e.magBit(idx)
				e.enc.Encode(sig, zeroContext(flags, e.orient))

				if sig != 0 {
					e.codeSign(idx, flags)
					e.flags[idx] |= flagSig
					e.updateNeighbors(x, y, idx)
				}
				e.flags[idx] &^= flagVisit
			}
		}
	}
}

// runLengthEligible reports whether the four samples of the stripe-column
// at (x, k..k+3) are all unvisited, insignificant and without significant
// neighbours.
func (e *encoder) runLengthEligible(x, k int) bool {
	for dy := 0; dy < 4; dy++ {
		if e.flags[e.idx(x, k+dy)]&(flagVisit|flagSig|flagSigNeighbors) != 0 {
			return false
		}
	}
	return true
}

// codeSign codes the sample's sign, XORed with the neighbourhood
// prediction, against the sign context. flags is the sample's state as
// captured before the significance decision.
func (e *encoder) codeSign(idx int, flags uint32) {
	signBit := 0
	if e.flags[idx]&flagSign != 0 {
		signBit = 1
	}
	e.enc.Encode(signBit^signPrediction(flags), signContext(flags))
}

// updateNeighbors propagates significance (and horizontal/vertical sign)
// to the eight neighbours of a newly significant sample. The border
// padding makes every neighbour index valid.
func (e *encoder) updateNeighbors(x, y, idx int) {
	stride := e.stride
	neg := e.flags[idx]&flagSign != 0

	n := y*stride + (x + 1)
	e.flags[n] |= flagSigS
	if neg {
		e.flags[n] |= flagSignS
	}

	s := (y+2)*stride + (x + 1)
	e.flags[s] |= flagSigN
	if neg {
		e.flags[s] |= flagSignN
	}

	w := (y+1)*stride + x
	e.flags[w] |= flagSigE
	if neg {
		e.flags[w] |= flagSignE
	}

	east := (y+1)*stride + (x + 2)
	e.flags[east] |= flagSigW
	if neg {
		e.flags[east] |= flagSignW
	}

	e.flags[y*stride+x] |= flagSigSE
	e.flags[y*stride+(x+2)] |= flagSigSW
	e.flags[(y+2)*stride+x] |= flagSigNE
	e.flags[(y+2)*stride+(x+2)] |= flagSigNW
}
