package t1

import (
	"fmt"

	"github.com/raster-lab/go-j2k-codec/codec"
)

// MaxCodeBlockSize is the largest code-block edge permitted by Part 1.
const MaxCodeBlockSize = 64

// Subband identifies the orientation of the subband a code-block belongs
// to. It selects the significance-context table; the sign-coding and
// sign-prediction tables are the same for every subband, and the coder does
// not otherwise branch on it.
type Subband int

const (
	SubbandLL Subband = iota
	SubbandHL
	SubbandLH
	SubbandHH
)

// String returns the subband name.
func (s Subband) String() string {
	switch s {
	case SubbandLL:
		return "LL"
	case SubbandHL:
		return "HL"
	case SubbandLH:
		return "LH"
	case SubbandHH:
		return "HH"
	}
	return "unknown"
}

func (s Subband) valid() bool {
	return s >= SubbandLL && s <= SubbandHH
}

// orientation returns the context-table orientation index for s.
func (s Subband) orientation() int {
	return int(s)
}

// Termination selects the MQ flush behavior at the end of coding.
type Termination int

const (
	// TerminationDefault flushes once at the end of the last pass with the
	// minimal flush.
	TerminationDefault Termination = iota

	// TerminationPredictable terminates every pass with a padded flush,
	// producing byte-aligned, independently decodable segments whose
	// lengths are reported on the code-block. The coder and its context
	// states are reinitialised between passes.
	TerminationPredictable

	// TerminationNearOptimal requests the tightest flush the coder
	// supports. This implementation's default flush is already the
	// minimal-length MQ flush, so the two modes produce identical
	// streams.
	TerminationNearOptimal
)

// Options enumerates the Tier-1 coding options; every option is explicit.
// Encoder and decoder must be given the same options for a given block.
type Options struct {
	// BypassEnabled emits magnitude-refinement bits raw (uncompressed)
	// for bit-planes with index below BypassThreshold.
	BypassEnabled bool

	// BypassThreshold is the bit-plane index below which bypass applies.
	// Zero effectively disables bypass.
	BypassThreshold int

	// Termination selects the MQ flush mode.
	Termination Termination

	// SegmentSymbols codes a four-symbol segmentation marker on the
	// uniform context after each cleanup pass.
	SegmentSymbols bool
}

// DefaultOptions returns the default coding options: no bypass, default
// termination, no segmentation symbols.
func DefaultOptions() Options {
	return Options{}
}

// Validate checks the options are usable.
func (o Options) Validate() error {
	if o.BypassThreshold < 0 {
		return fmt.Errorf("%w: bypass threshold must be >= 0, got %d",
			codec.ErrInvalidParameter, o.BypassThreshold)
	}
	if o.Termination < TerminationDefault || o.Termination > TerminationNearOptimal {
		return fmt.Errorf("%w: unknown termination mode %d",
			codec.ErrInvalidParameter, int(o.Termination))
	}
	return nil
}

// segmented reports whether every pass is coded as an independent
// byte-aligned segment. Predictable termination requires it; bypass also
// forces it so that raw and MQ bits never share a byte.
func (o Options) segmented() bool {
	return o.Termination == TerminationPredictable || o.BypassEnabled
}

// CodeBlock is the opaque result of Tier-1 coding. Data is meaningful only
// together with the out-of-band metadata and the options used to produce
// it.
type CodeBlock struct {
	Width    int
	Height   int
	Subband  Subband
	BitDepth int

	// Data is the opaque byte stream.
	Data []byte

	// PassCount is the number of coding passes actually emitted.
	PassCount int

	// ZeroBitPlanes counts the all-zero most-significant bit-planes above
	// the first significant one.
	ZeroBitPlanes int

	// PassSegLengths holds per-pass segment byte lengths when the block
	// was coded in segmented mode (predictable termination or bypass).
	PassSegLengths []int
}

func validateBlockShape(width, height, bitDepth int, subband Subband) error {
	if width < 1 || height < 1 || width > MaxCodeBlockSize || height > MaxCodeBlockSize {
		return fmt.Errorf("%w: code-block size %dx%d out of range [1,%d]",
			codec.ErrInvalidParameter, width, height, MaxCodeBlockSize)
	}
	if bitDepth < 1 || bitDepth > 32 {
		return fmt.Errorf("%w: bit depth %d out of range [1,32]",
			codec.ErrInvalidParameter, bitDepth)
	}
	if !subband.valid() {
		return fmt.Errorf("%w: unknown subband %d", codec.ErrInvalidParameter, int(subband))
	}
	return nil
}

// validate checks a decoded-side code-block and its side information.
func (cb *CodeBlock) validate(opts Options) error {
	if err := validateBlockShape(cb.Width, cb.Height, cb.BitDepth, cb.Subband); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if cb.PassCount < 0 {
		return fmt.Errorf("%w: negative pass count %d", codec.ErrInvalidParameter, cb.PassCount)
	}
	if cb.ZeroBitPlanes < 0 || cb.ZeroBitPlanes > cb.BitDepth {
		return fmt.Errorf("%w: zero bit-planes %d out of range [0,%d]",
			codec.ErrInvalidParameter, cb.ZeroBitPlanes, cb.BitDepth)
	}
	if cb.PassCount > 0 && cb.ZeroBitPlanes == cb.BitDepth {
		return fmt.Errorf("%w: %d passes declared but all %d bit-planes are zero",
			codec.ErrInvalidParameter, cb.PassCount, cb.BitDepth)
	}
	if opts.segmented() && cb.PassCount > 0 {
		if len(cb.PassSegLengths) != cb.PassCount {
			return fmt.Errorf("%w: %d pass segment lengths for %d passes",
				codec.ErrInvalidParameter, len(cb.PassSegLengths), cb.PassCount)
		}
		total := 0
		for i, n := range cb.PassSegLengths {
			if n < 0 {
				return fmt.Errorf("%w: negative segment length at pass %d",
					codec.ErrInvalidData, i)
			}
			total += n
		}
		if total > len(cb.Data) {
			return fmt.Errorf("%w: segment lengths total %d exceeds stream size %d",
				codec.ErrInvalidData, total, len(cb.Data))
		}
	}
	return nil
}
