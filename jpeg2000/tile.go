// Package jpeg2000 ties the core codec mathematics together at tile level:
// a signed-sample tile is wavelet-decomposed, each subband is partitioned
// into code-blocks of at most 64x64 samples, and every code-block is
// bit-plane coded independently. The encoded form is an in-memory
// structure; packet assembly, markers and persistence belong to the layers
// above this package.
package jpeg2000

import (
	"fmt"

	"github.com/raster-lab/go-j2k-codec/codec"
	"github.com/raster-lab/go-j2k-codec/jpeg2000/t1"
	"github.com/raster-lab/go-j2k-codec/jpeg2000/wavelet"
)

// TileParams contains the coding parameters for one tile.
type TileParams struct {
	Width    int
	Height   int
	BitDepth int // sample bit depth, sign included

	// Levels is the number of dyadic decomposition levels (>= 1).
	Levels int

	// Reversible selects the 5/3 integer transform; otherwise the 9/7
	// float transform is used and coefficients are rounded to integers
	// before bit-plane coding.
	Reversible bool

	// Boundary is the extension mode for filter taps near tile edges.
	Boundary wavelet.ExtendMode

	// Code-block dimensions, at most 64x64.
	CodeBlockWidth  int
	CodeBlockHeight int

	// Coder names the registered block codec to use.
	Coder string

	// MaxPasses caps the coding passes per code-block; <= 0 means no cap.
	MaxPasses int

	// Tier-1 options, forwarded to the block codec.
	Bypass          bool
	BypassThreshold int
	Termination     int
	SegmentSymbols  bool
}

// DefaultTileParams returns lossless single-tile defaults: three
// decomposition levels, symmetric boundary extension, 64x64 code-blocks,
// the EBCOT MQ coder, default termination.
func DefaultTileParams(width, height, bitDepth int) *TileParams {
	return &TileParams{
		Width:           width,
		Height:          height,
		BitDepth:        bitDepth,
		Levels:          3,
		Reversible:      true,
		Boundary:        wavelet.ExtendSymmetric,
		CodeBlockWidth:  t1.MaxCodeBlockSize,
		CodeBlockHeight: t1.MaxCodeBlockSize,
		Coder:           t1.CodecName,
	}
}

// Validate checks the parameters are usable.
func (p *TileParams) Validate() error {
	if p.Width < 2 || p.Height < 2 {
		return fmt.Errorf("%w: tile size %dx%d below minimum 2x2",
			codec.ErrInvalidParameter, p.Width, p.Height)
	}
	if p.BitDepth < 1 || p.BitDepth > 16 {
		return fmt.Errorf("%w: sample bit depth %d out of range [1,16]",
			codec.ErrInvalidParameter, p.BitDepth)
	}
	if p.Levels < 1 {
		return fmt.Errorf("%w: decomposition levels must be >= 1, got %d",
			codec.ErrInvalidParameter, p.Levels)
	}
	if w, h := wavelet.LLDimensions(p.Width, p.Height, p.Levels-1); w < 2 || h < 2 {
		return fmt.Errorf("%w: %d levels too deep for a %dx%d tile",
			codec.ErrInvalidParameter, p.Levels, p.Width, p.Height)
	}
	if p.CodeBlockWidth < 1 || p.CodeBlockWidth > t1.MaxCodeBlockSize ||
		p.CodeBlockHeight < 1 || p.CodeBlockHeight > t1.MaxCodeBlockSize {
		return fmt.Errorf("%w: code-block size %dx%d out of range [1,%d]",
			codec.ErrInvalidParameter, p.CodeBlockWidth, p.CodeBlockHeight, t1.MaxCodeBlockSize)
	}
	if p.Coder == "" {
		return fmt.Errorf("%w: no block coder named", codec.ErrInvalidParameter)
	}
	return nil
}

func (p *TileParams) blockParams(orientation, bitDepth, width, height int) codec.BlockParams {
	return codec.BlockParams{
		Width:           width,
		Height:          height,
		Orientation:     orientation,
		BitDepth:        bitDepth,
		MaxPasses:       p.MaxPasses,
		Bypass:          p.Bypass,
		BypassThreshold: p.BypassThreshold,
		Termination:     p.Termination,
		SegmentSymbols:  p.SegmentSymbols,
	}
}

// BlockGrid holds the coded blocks of one subband, row-major over the
// code-block grid.
type BlockGrid struct {
	Orientation int // 0=LL, 1=HL, 2=LH, 3=HH
	Width       int // subband width in samples
	Height      int // subband height in samples
	BitDepth    int // coefficient magnitude bit depth used for coding
	Blocks      []*codec.EncodedBlock
}

// EncodedLevel holds the three detail subbands of one decomposition level.
type EncodedLevel struct {
	HL, LH, HH *BlockGrid
}

// EncodedTile is the in-memory result of encoding one tile: per-level
// detail subbands finest first, plus the final approximation.
type EncodedTile struct {
	Params TileParams
	Levels []*EncodedLevel
	LL     *BlockGrid
}

// EncodeTile codes a tile of width*height signed samples in row-major
// order.
func EncodeTile(samples []int32, p *TileParams) (*EncodedTile, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(samples) != p.Width*p.Height {
		return nil, fmt.Errorf("%w: sample count %d does not match %dx%d tile",
			codec.ErrInvalidParameter, len(samples), p.Width, p.Height)
	}
	coder, err := codec.Get(p.Coder)
	if err != nil {
		return nil, fmt.Errorf("block coder %q: %w", p.Coder, err)
	}

	bands, err := p.decompose(samples)
	if err != nil {
		return nil, err
	}

	tile := &EncodedTile{Params: *p}
	for i, b := range bands {
		level := &EncodedLevel{}
		if level.HL, err = p.encodeBand(coder, 1, b.HL); err != nil {
			return nil, fmt.Errorf("level %d HL: %w", i, err)
		}
		if level.LH, err = p.encodeBand(coder, 2, b.LH); err != nil {
			return nil, fmt.Errorf("level %d LH: %w", i, err)
		}
		if level.HH, err = p.encodeBand(coder, 3, b.HH); err != nil {
			return nil, fmt.Errorf("level %d HH: %w", i, err)
		}
		tile.Levels = append(tile.Levels, level)
	}
	last := bands[len(bands)-1]
	if tile.LL, err = p.encodeBand(coder, 0, last.LL); err != nil {
		return nil, fmt.Errorf("final LL: %w", err)
	}
	return tile, nil
}

// DecodeTile reconstructs the tile samples from an encoded tile.
func DecodeTile(tile *EncodedTile) ([]int32, error) {
	p := tile.Params
	if err := p.Validate(); err != nil {
		return nil, err
	}
	coder, err := codec.Get(p.Coder)
	if err != nil {
		return nil, fmt.Errorf("block coder %q: %w", p.Coder, err)
	}
	if len(tile.Levels) != p.Levels || tile.LL == nil {
		return nil, fmt.Errorf("%w: encoded tile has %d levels, parameters say %d",
			codec.ErrInvalidData, len(tile.Levels), p.Levels)
	}

	bands := make([]*wavelet.Bands, p.Levels)
	for i, level := range tile.Levels {
		b := &wavelet.Bands{}
		if b.HL, err = p.decodeBand(coder, level.HL); err != nil {
			return nil, fmt.Errorf("level %d HL: %w", i, err)
		}
		if b.LH, err = p.decodeBand(coder, level.LH); err != nil {
			return nil, fmt.Errorf("level %d LH: %w", i, err)
		}
		if b.HH, err = p.decodeBand(coder, level.HH); err != nil {
			return nil, fmt.Errorf("level %d HH: %w", i, err)
		}
		bands[i] = b
	}
	ll, err := p.decodeBand(coder, tile.LL)
	if err != nil {
		return nil, fmt.Errorf("final LL: %w", err)
	}
	bands[len(bands)-1].LL = ll

	return p.reconstruct(bands)
}

func (p *TileParams) decompose(samples []int32) ([]*wavelet.Bands, error) {
	if p.Reversible {
		return wavelet.Decompose53(samples, p.Width, p.Height, p.Levels, p.Boundary)
	}
	fbands, err := wavelet.Decompose97(wavelet.ToFloat(samples), p.Width, p.Height, p.Levels, p.Boundary)
	if err != nil {
		return nil, err
	}
	bands := make([]*wavelet.Bands, len(fbands))
	for i, fb := range fbands {
		bands[i] = &wavelet.Bands{
			LL: roundBand(fb.LL),
			HL: roundBand(fb.HL),
			LH: roundBand(fb.LH),
			HH: roundBand(fb.HH),
		}
	}
	return bands, nil
}

func (p *TileParams) reconstruct(bands []*wavelet.Bands) ([]int32, error) {
	if p.Reversible {
		data, w, h, err := wavelet.Reconstruct53(bands, p.Boundary)
		if err != nil {
			return nil, err
		}
		if w != p.Width || h != p.Height {
			return nil, fmt.Errorf("%w: reconstructed %dx%d, expected %dx%d",
				codec.ErrInvalidData, w, h, p.Width, p.Height)
		}
		return data, nil
	}
	fbands := make([]*wavelet.BandsFloat, len(bands))
	for i, b := range bands {
		fbands[i] = &wavelet.BandsFloat{
			LL: floatBand(b.LL),
			HL: floatBand(b.HL),
			LH: floatBand(b.LH),
			HH: floatBand(b.HH),
		}
	}
	data, w, h, err := wavelet.Reconstruct97(fbands, p.Boundary)
	if err != nil {
		return nil, err
	}
	if w != p.Width || h != p.Height {
		return nil, fmt.Errorf("%w: reconstructed %dx%d, expected %dx%d",
			codec.ErrInvalidData, w, h, p.Width, p.Height)
	}
	return wavelet.ToInt(data), nil
}

func roundBand(b wavelet.BandFloat) wavelet.Band {
	return wavelet.Band{Data: wavelet.ToInt(b.Data), Width: b.Width, Height: b.Height}
}

func floatBand(b wavelet.Band) wavelet.BandFloat {
	return wavelet.BandFloat{Data: wavelet.ToFloat(b.Data), Width: b.Width, Height: b.Height}
}

// bandBitDepth returns the magnitude bit depth actually needed by a
// subband. Wavelet gain grows coefficients past the sample depth, so the
// depth is derived from the data and travels with the grid.
func bandBitDepth(data []int32) int {
	maxMag := uint32(0)
	for _, v := range data {
		var m uint32
		if v < 0 {
			m = uint32(-int64(v))
		} else {
			m = uint32(v)
		}
		if m > maxMag {
			maxMag = m
		}
	}
	depth := 0
	for m := maxMag; m > 0; m >>= 1 {
		depth++
	}
	if depth == 0 {
		depth = 1
	}
	return depth
}

// encodeBand partitions one subband into code-blocks and codes each block.
func (p *TileParams) encodeBand(coder codec.BlockCodec, orientation int, band wavelet.Band) (*BlockGrid, error) {
	grid := &BlockGrid{
		Orientation: orientation,
		Width:       band.Width,
		Height:      band.Height,
		BitDepth:    bandBitDepth(band.Data),
	}
	if band.Width == 0 || band.Height == 0 {
		return grid, nil
	}
	for by := 0; by < band.Height; by += p.CodeBlockHeight {
		bh := min(p.CodeBlockHeight, band.Height-by)
		for bx := 0; bx < band.Width; bx += p.CodeBlockWidth {
			bw := min(p.CodeBlockWidth, band.Width-bx)
			coeffs := make([]int32, bw*bh)
			for y := 0; y < bh; y++ {
				copy(coeffs[y*bw:(y+1)*bw], band.Data[(by+y)*band.Width+bx:(by+y)*band.Width+bx+bw])
			}
			block, err := coder.EncodeBlock(p.blockParams(orientation, grid.BitDepth, bw, bh), coeffs)
			if err != nil {
				return nil, fmt.Errorf("block (%d,%d): %w", bx, by, err)
			}
			grid.Blocks = append(grid.Blocks, block)
		}
	}
	return grid, nil
}

// decodeBand rebuilds one subband from its coded blocks.
func (p *TileParams) decodeBand(coder codec.BlockCodec, grid *BlockGrid) (wavelet.Band, error) {
	if grid == nil {
		return wavelet.Band{}, fmt.Errorf("%w: missing subband", codec.ErrInvalidData)
	}
	band := wavelet.Band{
		Data:   make([]int32, grid.Width*grid.Height),
		Width:  grid.Width,
		Height: grid.Height,
	}
	if grid.Width == 0 || grid.Height == 0 {
		return band, nil
	}
	i := 0
	for by := 0; by < grid.Height; by += p.CodeBlockHeight {
		bh := min(p.CodeBlockHeight, grid.Height-by)
		for bx := 0; bx < grid.Width; bx += p.CodeBlockWidth {
			bw := min(p.CodeBlockWidth, grid.Width-bx)
			if i >= len(grid.Blocks) {
				return wavelet.Band{}, fmt.Errorf("%w: subband is missing code-blocks",
					codec.ErrInvalidData)
			}
			coeffs, err := coder.DecodeBlock(p.blockParams(grid.Orientation, grid.BitDepth, bw, bh), grid.Blocks[i])
			if err != nil {
				return wavelet.Band{}, fmt.Errorf("block (%d,%d): %w", bx, by, err)
			}
			for y := 0; y < bh; y++ {
				copy(band.Data[(by+y)*grid.Width+bx:(by+y)*grid.Width+bx+bw], coeffs[y*bw:(y+1)*bw])
			}
			i++
		}
	}
	if i != len(grid.Blocks) {
		return wavelet.Band{}, fmt.Errorf("%w: subband has %d extra code-blocks",
			codec.ErrInvalidData, len(grid.Blocks)-i)
	}
	return band, nil
}
