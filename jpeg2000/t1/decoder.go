package t1

import (
	"fmt"

	"github.com/raster-lab/go-j2k-codec/codec"
	"github.com/raster-lab/go-j2k-codec/jpeg2000/mqc"
)

// decoder mirrors the encoder: same scan order, same context selection,
// same state updates. It rebuilds magnitudes by OR-ing bits into the
// running value and recovers signs through the shared prediction XOR.
type decoder struct {
	width  int
	height int
	stride int
	orient int

	mag   []uint32 // padded reconstructed magnitudes
	flags []uint32 // padded per-sample state

	opts  Options
	plane int

	dec *mqc.Decoder
	raw bool
}

// DecodeCodeBlock reconstructs the quantised coefficients of a code-block
// from its byte stream and out-of-band metadata. opts must match the
// options the block was encoded with.
func DecodeCodeBlock(cb *CodeBlock, opts Options) ([]int32, error) {
	if err := cb.validate(opts); err != nil {
		return nil, err
	}

	out := make([]int32, cb.Width*cb.Height)
	if cb.PassCount == 0 {
		// Nothing was coded: all coefficients are zero.
		return out, nil
	}

	topPlane := cb.BitDepth - cb.ZeroBitPlanes - 1

	d := &decoder{
		width:  cb.Width,
		height: cb.Height,
		stride: cb.Width + 2,
		orient: cb.Subband.orientation(),
		mag:    make([]uint32, (cb.Width+2)*(cb.Height+2)),
		flags:  make([]uint32, (cb.Width+2)*(cb.Height+2)),
		opts:   opts,
	}
	if err := d.run(cb, topPlane); err != nil {
		return nil, err
	}

	for y := 0; y < cb.Height; y++ {
		for x := 0; x < cb.Width; x++ {
			idx := (y+1)*d.stride + (x + 1)
			v := int32(int64(d.mag[idx]))
			if d.flags[idx]&flagSign != 0 {
				v = int32(-int64(d.mag[idx]))
			}
			out[y*cb.Width+x] = v
		}
	}
	return out, nil
}

// run drives the decoder through the same pass sequence as the encoder.
func (d *decoder) run(cb *CodeBlock, topPlane int) error {
	segmented := d.opts.segmented()
	segOffset := 0
	if !segmented {
		d.dec = mqc.NewDecoder(cb.Data, numContexts)
		initContextStates(d.dec.SetContextState)
	}

	passIdx := 0
	passType := 2
	for d.plane = topPlane; d.plane >= 0 && passIdx < cb.PassCount; {
		if passType == 0 || (passType == 2 && passIdx == 0) {
			d.clearVisit()
		}

		d.raw = d.opts.BypassEnabled && passType == 1 && d.plane < d.opts.BypassThreshold
		if segmented {
			segLen := cb.PassSegLengths[passIdx]
			if segOffset+segLen > len(cb.Data) {
				return fmt.Errorf("%w: pass %d segment reads past the stream",
					codec.ErrInvalidData, passIdx)
			}
			seg := cb.Data[segOffset : segOffset+segLen]
			segOffset += segLen
			if d.raw {
				d.dec = mqc.NewRawDecoder(seg)
			} else {
				d.dec = mqc.NewDecoder(seg, numContexts)
				initContextStates(d.dec.SetContextState)
			}
		}

		switch passType {
		case 0:
			d.sigPropPass()
		case 1:
			d.magRefPass()
		case 2:
			d.cleanupPass()
			if d.opts.SegmentSymbols {
				for i := 0; i < 4; i++ {
					d.dec.Decode(ctxUniform)
				}
			}
		}

		passIdx++
		if passType == 2 {
			passType = 0
			d.plane--
		} else {
			passType++
		}
	}
	return nil
}

func (d *decoder) idx(x, y int) int {
	return (y+1)*d.stride + (x + 1)
}

func (d *decoder) clearVisit() {
	for i := range d.flags {
		d.flags[i] &^= flagVisit
	}
}

func (d *decoder) sigPropPass() {
	for k := 0; k < d.height; k += 4 {
		for x := 0; x < d.width; x++ {
			for dy := 0; dy < 4 && k+dy < d.height; dy++ {
				y := k + dy
				idx := d.idx(x, y)
				flags := d.flags[idx]

				if flags&flagSig != 0 || flags&flagSigNeighbors == 0 {
					continue
				}

				sig := d.dec.Decode(zeroContext(flags, d.orient))
				d.flags[idx] |= flagVisit

				if sig != 0 {
					d.decodeSign(idx, flags)
					d.mag[idx] |= 1 << uint(d.plane)
					d.flags[idx] |= flagSig
					d.updateNeighbors(x, y, idx)
				}
			}
		}
	}
}

func (d *decoder) magRefPass() {
	for k := 0; k < d.height; k += 4 {
		for x := 0; x < d.width; x++ {
			for dy := 0; dy < 4 && k+dy < d.height; dy++ {
				idx := d.idx(x, k+dy)
				flags := d.flags[idx]

				if flags&flagSig == 0 || flags&flagVisit != 0 {
					continue
				}

				var bit int
				if d.raw {
					bit = d.dec.RawDecode()
				} else {
					bit = d.dec.Decode(magRefContext(flags))
				}
				if bit != 0 {
					d.mag[idx] |= 1 << uint(d.plane)
				}
				d.flags[idx] |= flagRefine
			}
		}
	}
}

func (d *decoder) cleanupPass() {
	for k := 0; k < d.height; k += 4 {
		for x := 0; x < d.width; x++ {
			if k+3 < d.height && d.runLengthEligible(x, k) {
				anySig := d.dec.Decode(ctxRunLength)
				if anySig == 0 {
					for dy := 0; dy < 4; dy++ {
						d.flags[d.idx(x, k+dy)] |= flagVisit
					}
					continue
				}
			}

			for dy := 0; dy < 4 && k+dy < d.height; dy++ {
				y := k + dy
				idx := d.idx(x, y)
				flags := d.flags[idx]

				if flags&flagVisit != 0 || flags&flagSig != 0 {
					d.flags[idx] &^= flagVisit
					continue
				}

				sig := d.dec.Decode(zeroContext(flags, d.orient))

				if sig != 0 {
					d.decodeSign(idx, flags)
					d.mag[idx] |= 1 << uint(d.plane)
					d.flags[idx] |= flagSig
					d.updateNeighbors(x, y, idx)
				}
				d.flags[idx] &^= flagVisit
			}
		}
	}
}

func (d *decoder) runLengthEligible(x, k int) bool {
	for dy := 0; dy < 4; dy++ {
		if d.flags[d.idx(x, k+dy)]&(flagVisit|flagSig|flagSigNeighbors) != 0 {
			return false
		}
	}
	return true
}

// decodeSign recovers the sample's sign by XOR-ing the coded bit with the
// neighbourhood prediction. flags is the sample's state as captured before
// the significance decision.
func (d *decoder) decodeSign(idx int, flags uint32) {
	bit := d.dec.Decode(signContext(flags))
	if bit^signPrediction(flags) != 0 {
		d.flags[idx] |= flagSign
	}
}

func (d *decoder) updateNeighbors(x, y, idx int) {
	stride := d.stride
	neg := d.flags[idx]&flagSign != 0

	n := y*stride + (x + 1)
	d.flags[n] |= flagSigS
	if neg {
		d.flags[n] |= flagSignS
	}

	s := (y+2)*stride + (x + 1)
	d.flags[s] |= flagSigN
	if neg {
		d.flags[s] |= flagSignN
	}

	w := (y+1)*stride + x
	d.flags[w] |= flagSigE
	if neg {
		d.flags[w] |= flagSignE
	}

	east := (y+1)*stride + (x + 2)
	d.flags[east] |= flagSigW
	if neg {
		d.flags[east] |= flagSignW
	}

	d.flags[y*stride+x] |= flagSigSE
	d.flags[y*stride+(x+2)] |= flagSigSW
	d.flags[(y+2)*stride+x] |= flagSigNE
	d.flags[(y+2)*stride+(x+2)] |= flagSigNW
}
