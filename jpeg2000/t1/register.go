package t1

import "github.com/raster-lab/go-j2k-codec/codec"

// CodecName is the registry key of the EBCOT MQ block coder.
const CodecName = "ebcot-mq"

// blockCodec adapts this package to the codec.BlockCodec interface.
type blockCodec struct{}

var _ codec.BlockCodec = blockCodec{}

func (blockCodec) Name() string {
	return CodecName
}

func optionsFromParams(p codec.BlockParams) Options {
	return Options{
		BypassEnabled:   p.Bypass,
		BypassThreshold: p.BypassThreshold,
		Termination:     Termination(p.Termination),
		SegmentSymbols:  p.SegmentSymbols,
	}
}

func (blockCodec) EncodeBlock(p codec.BlockParams, coeffs []int32) (*codec.EncodedBlock, error) {
	cb, err := EncodeCodeBlock(coeffs, p.Width, p.Height, Subband(p.Orientation), p.BitDepth,
		optionsFromParams(p), p.MaxPasses)
	if err != nil {
		return nil, err
	}
	return &codec.EncodedBlock{
		Data:           cb.Data,
		PassCount:      cb.PassCount,
		ZeroBitPlanes:  cb.ZeroBitPlanes,
		PassSegLengths: cb.PassSegLengths,
	}, nil
}

func (blockCodec) DecodeBlock(p codec.BlockParams, block *codec.EncodedBlock) ([]int32, error) {
	cb := &CodeBlock{
		Width:          p.Width,
		Height:         p.Height,
		Subband:        Subband(p.Orientation),
		BitDepth:       p.BitDepth,
		Data:           block.Data,
		PassCount:      block.PassCount,
		ZeroBitPlanes:  block.ZeroBitPlanes,
		PassSegLengths: block.PassSegLengths,
	}
	return DecodeCodeBlock(cb, optionsFromParams(p))
}

func init() {
	codec.Register(blockCodec{})
}
