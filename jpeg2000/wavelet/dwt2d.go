package wavelet

import "fmt"

// Separable 2-D transforms. A single level applies the 1-D filter to every
// row, then to every column of the low half (yielding LL and HL) and of the
// high half (yielding LH and HH). Multi-level decomposition recurses on LL.

// Band is a rectangular coefficient plane in row-major order.
type Band struct {
	Data   []int32
	Width  int
	Height int
}

// Bands holds the four subbands of one decomposition level.
type Bands struct {
	LL, HL, LH, HH Band
}

// BandFloat is Band for the irreversible float path.
type BandFloat struct {
	Data   []float64
	Width  int
	Height int
}

// BandsFloat holds the four float subbands of one decomposition level.
type BandsFloat struct {
	LL, HL, LH, HH BandFloat
}

func check2DArgs(dataLen, width, height int, mode ExtendMode) error {
	if width < 2 || height < 2 {
		return fmt.Errorf("image too small: %dx%d (minimum 2x2)", width, height)
	}
	if dataLen != width*height {
		return fmt.Errorf("data size mismatch: expected %d, got %d", width*height, dataLen)
	}
	if !mode.Valid() {
		return fmt.Errorf("unknown boundary extension mode %d", int(mode))
	}
	return nil
}

// Forward53_2D performs one level of the reversible 5/3 transform on a 2D
// image in row-major order.
func Forward53_2D(data []int32, width, height int, mode ExtendMode) (*Bands, error) {
	if err := check2DArgs(len(data), width, height, mode); err != nil {
		return nil, err
	}

	lw := (width + 1) / 2
	hw := width / 2
	lh := (height + 1) / 2
	hh := height / 2

	// Row pass: each row splits into (L, H).
	lbuf := make([]int32, lw*height)
	hbuf := make([]int32, hw*height)
	row := make([]int32, width)
	for y := 0; y < height; y++ {
		copy(row, data[y*width:(y+1)*width])
		low, high, err := Forward53(row, mode)
		if err != nil {
			return nil, err
		}
		copy(lbuf[y*lw:(y+1)*lw], low)
		copy(hbuf[y*hw:(y+1)*hw], high)
	}

	b := &Bands{
		LL: Band{Data: make([]int32, lw*lh), Width: lw, Height: lh},
		HL: Band{Data: make([]int32, lw*hh), Width: lw, Height: hh},
		LH: Band{Data: make([]int32, hw*lh), Width: hw, Height: lh},
		HH: Band{Data: make([]int32, hw*hh), Width: hw, Height: hh},
	}

	// Column pass over the L half.
	col := make([]int32, height)
	for x := 0; x < lw; x++ {
		for y := 0; y < height; y++ {
			col[y] = lbuf[y*lw+x]
		}
		low, high, err := Forward53(col, mode)
		if err != nil {
			return nil, err
		}
		for y := 0; y < lh; y++ {
			b.LL.Data[y*lw+x] = low[y]
		}
		for y := 0; y < hh; y++ {
			b.HL.Data[y*lw+x] = high[y]
		}
	}

	// Column pass over the H half.
	for x := 0; x < hw; x++ {
		for y := 0; y < height; y++ {
			col[y] = hbuf[y*hw+x]
		}
		low, high, err := Forward53(col, mode)
		if err != nil {
			return nil, err
		}
		for y := 0; y < lh; y++ {
			b.LH.Data[y*hw+x] = low[y]
		}
		for y := 0; y < hh; y++ {
			b.HH.Data[y*hw+x] = high[y]
		}
	}

	return b, nil
}

func (b *Bands) dims() (width, height int, err error) {
	if b.LL.Width != b.HL.Width || b.LH.Width != b.HH.Width ||
		b.LL.Height != b.LH.Height || b.HL.Height != b.HH.Height {
		return 0, 0, fmt.Errorf("inconsistent subband geometry")
	}
	width = b.LL.Width + b.LH.Width
	height = b.LL.Height + b.HL.Height
	if d := b.LL.Width - b.LH.Width; d < 0 || d > 1 {
		return 0, 0, fmt.Errorf("incompatible subband sizes: low=%d high=%d", b.LL.Width, b.LH.Width)
	}
	if d := b.LL.Height - b.HL.Height; d < 0 || d > 1 {
		return 0, 0, fmt.Errorf("incompatible subband sizes: low=%d high=%d", b.LL.Height, b.HL.Height)
	}
	return width, height, nil
}

// Inverse53_2D reconstructs a 2D image from one level of 5/3 subbands.
// Columns are inverted first, then rows, mirroring the forward order.
func Inverse53_2D(b *Bands, mode ExtendMode) ([]int32, int, int, error) {
	width, height, err := b.dims()
	if err != nil {
		return nil, 0, 0, err
	}
	if !mode.Valid() {
		return nil, 0, 0, fmt.Errorf("unknown boundary extension mode %d", int(mode))
	}

	lw := b.LL.Width
	hw := b.LH.Width
	lh := b.LL.Height
	hh := b.HL.Height

	// Column pass: rebuild the L and H halves.
	lbuf := make([]int32, lw*height)
	hbuf := make([]int32, hw*height)
	lcol := make([]int32, lh)
	hcol := make([]int32, hh)
	for x := 0; x < lw; x++ {
		for y := 0; y < lh; y++ {
			lcol[y] = b.LL.Data[y*lw+x]
		}
		for y := 0; y < hh; y++ {
			hcol[y] = b.HL.Data[y*lw+x]
		}
		col, err := Inverse53(lcol, hcol, mode)
		if err != nil {
			return nil, 0, 0, err
		}
		for y := 0; y < height; y++ {
			lbuf[y*lw+x] = col[y]
		}
	}
	for x := 0; x < hw; x++ {
		for y := 0; y < lh; y++ {
			lcol[y] = b.LH.Data[y*hw+x]
		}
		for y := 0; y < hh; y++ {
			hcol[y] = b.HH.Data[y*hw+x]
		}
		col, err := Inverse53(lcol, hcol, mode)
		if err != nil {
			return nil, 0, 0, err
		}
		for y := 0; y < height; y++ {
			hbuf[y*hw+x] = col[y]
		}
	}

	// Row pass: merge the halves.
	data := make([]int32, width*height)
	for y := 0; y < height; y++ {
		row, err := Inverse53(lbuf[y*lw:(y+1)*lw], hbuf[y*hw:(y+1)*hw], mode)
		if err != nil {
			return nil, 0, 0, err
		}
		copy(data[y*width:(y+1)*width], row)
	}
	return data, width, height, nil
}

// Decompose53 performs a multi-level dyadic 5/3 decomposition. The result
// lists the subband tuples finest level first; only the last level's LL is
// the final approximation. Every level must keep both dimensions >= 2.
func Decompose53(data []int32, width, height, levels int, mode ExtendMode) ([]*Bands, error) {
	if levels < 1 {
		return nil, fmt.Errorf("levels must be >= 1, got %d", levels)
	}
	out := make([]*Bands, 0, levels)
	cur := data
	cw, ch := width, height
	for level := 0; level < levels; level++ {
		b, err := Forward53_2D(cur, cw, ch, mode)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", level, err)
		}
		out = append(out, b)
		cur = b.LL.Data
		cw = b.LL.Width
		ch = b.LL.Height
	}
	return out, nil
}

// Reconstruct53 inverts a multi-level 5/3 decomposition, proceeding from
// the coarsest level to the finest.
func Reconstruct53(levels []*Bands, mode ExtendMode) ([]int32, int, int, error) {
	if len(levels) == 0 {
		return nil, 0, 0, fmt.Errorf("no decomposition levels")
	}
	ll := levels[len(levels)-1].LL
	for i := len(levels) - 1; i >= 0; i-- {
		b := Bands{LL: ll, HL: levels[i].HL, LH: levels[i].LH, HH: levels[i].HH}
		data, w, h, err := Inverse53_2D(&b, mode)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("level %d: %w", i, err)
		}
		ll = Band{Data: data, Width: w, Height: h}
	}
	return ll.Data, ll.Width, ll.Height, nil
}

// Forward97_2D performs one level of the irreversible 9/7 transform on a
// 2D image in row-major order.
func Forward97_2D(data []float64, width, height int, mode ExtendMode) (*BandsFloat, error) {
	if err := check2DArgs(len(data), width, height, mode); err != nil {
		return nil, err
	}
	filter := Filter97()

	lw := (width + 1) / 2
	hw := width / 2
	lh := (height + 1) / 2
	hh := height / 2

	lbuf := make([]float64, lw*height)
	hbuf := make([]float64, hw*height)
	row := make([]float64, width)
	for y := 0; y < height; y++ {
		copy(row, data[y*width:(y+1)*width])
		low, high, err := filter.Forward(row, mode)
		if err != nil {
			return nil, err
		}
		copy(lbuf[y*lw:(y+1)*lw], low)
		copy(hbuf[y*hw:(y+1)*hw], high)
	}

	b := &BandsFloat{
		LL: BandFloat{Data: make([]float64, lw*lh), Width: lw, Height: lh},
		HL: BandFloat{Data: make([]float64, lw*hh), Width: lw, Height: hh},
		LH: BandFloat{Data: make([]float64, hw*lh), Width: hw, Height: lh},
		HH: BandFloat{Data: make([]float64, hw*hh), Width: hw, Height: hh},
	}

	col := make([]float64, height)
	for x := 0; x < lw; x++ {
		for y := 0; y < height; y++ {
			col[y] = lbuf[y*lw+x]
		}
		low, high, err := filter.Forward(col, mode)
		if err != nil {
			return nil, err
		}
		for y := 0; y < lh; y++ {
			b.LL.Data[y*lw+x] = low[y]
		}
		for y := 0; y < hh; y++ {
			b.HL.Data[y*lw+x] = high[y]
		}
	}
	for x := 0; x < hw; x++ {
		for y := 0; y < height; y++ {
			col[y] = hbuf[y*hw+x]
		}
		low, high, err := filter.Forward(col, mode)
		if err != nil {
			return nil, err
		}
		for y := 0; y < lh; y++ {
			b.LH.Data[y*hw+x] = low[y]
		}
		for y := 0; y < hh; y++ {
			b.HH.Data[y*hw+x] = high[y]
		}
	}

	return b, nil
}

func (b *BandsFloat) dims() (width, height int, err error) {
	if b.LL.Width != b.HL.Width || b.LH.Width != b.HH.Width ||
		b.LL.Height != b.LH.Height || b.HL.Height != b.HH.Height {
		return 0, 0, fmt.Errorf("inconsistent subband geometry")
	}
	width = b.LL.Width + b.LH.Width
	height = b.LL.Height + b.HL.Height
	if d := b.LL.Width - b.LH.Width; d < 0 || d > 1 {
		return 0, 0, fmt.Errorf("incompatible subband sizes: low=%d high=%d", b.LL.Width, b.LH.Width)
	}
	if d := b.LL.Height - b.HL.Height; d < 0 || d > 1 {
		return 0, 0, fmt.Errorf("incompatible subband sizes: low=%d high=%d", b.LL.Height, b.HL.Height)
	}
	return width, height, nil
}

// Inverse97_2D reconstructs a 2D image from one level of 9/7 subbands.
func Inverse97_2D(b *BandsFloat, mode ExtendMode) ([]float64, int, int, error) {
	width, height, err := b.dims()
	if err != nil {
		return nil, 0, 0, err
	}
	if !mode.Valid() {
		return nil, 0, 0, fmt.Errorf("unknown boundary extension mode %d", int(mode))
	}
	filter := Filter97()

	lw := b.LL.Width
	hw := b.LH.Width
	lh := b.LL.Height
	hh := b.HL.Height

	lbuf := make([]float64, lw*height)
	hbuf := make([]float64, hw*height)
	lcol := make([]float64, lh)
	hcol := make([]float64, hh)
	for x := 0; x < lw; x++ {
		for y := 0; y < lh; y++ {
			lcol[y] = b.LL.Data[y*lw+x]
		}
		for y := 0; y < hh; y++ {
			hcol[y] = b.HL.Data[y*lw+x]
		}
		col, err := filter.Inverse(lcol, hcol, mode)
		if err != nil {
			return nil, 0, 0, err
		}
		for y := 0; y < height; y++ {
			lbuf[y*lw+x] = col[y]
		}
	}
	for x := 0; x < hw; x++ {
		for y := 0; y < lh; y++ {
			lcol[y] = b.LH.Data[y*hw+x]
		}
		for y := 0; y < hh; y++ {
			hcol[y] = b.HH.Data[y*hw+x]
		}
		col, err := filter.Inverse(lcol, hcol, mode)
		if err != nil {
			return nil, 0, 0, err
		}
		for y := 0; y < height; y++ {
			hbuf[y*hw+x] = col[y]
		}
	}

	data := make([]float64, width*height)
	for y := 0; y < height; y++ {
		row, err := filter.Inverse(lbuf[y*lw:(y+1)*lw], hbuf[y*hw:(y+1)*hw], mode)
		if err != nil {
			return nil, 0, 0, err
		}
		copy(data[y*width:(y+1)*width], row)
	}
	return data, width, height, nil
}

// Decompose97 performs a multi-level dyadic 9/7 decomposition, finest
// level first.
func Decompose97(data []float64, width, height, levels int, mode ExtendMode) ([]*BandsFloat, error) {
	if levels < 1 {
		return nil, fmt.Errorf("levels must be >= 1, got %d", levels)
	}
	out := make([]*BandsFloat, 0, levels)
	cur := data
	cw, ch := width, height
	for level := 0; level < levels; level++ {
		b, err := Forward97_2D(cur, cw, ch, mode)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", level, err)
		}
		out = append(out, b)
		cur = b.LL.Data
		cw = b.LL.Width
		ch = b.LL.Height
	}
	return out, nil
}

// Reconstruct97 inverts a multi-level 9/7 decomposition, coarsest level
// first.
func Reconstruct97(levels []*BandsFloat, mode ExtendMode) ([]float64, int, int, error) {
	if len(levels) == 0 {
		return nil, 0, 0, fmt.Errorf("no decomposition levels")
	}
	ll := levels[len(levels)-1].LL
	for i := len(levels) - 1; i >= 0; i-- {
		b := BandsFloat{LL: ll, HL: levels[i].HL, LH: levels[i].LH, HH: levels[i].HH}
		data, w, h, err := Inverse97_2D(&b, mode)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("level %d: %w", i, err)
		}
		ll = BandFloat{Data: data, Width: w, Height: h}
	}
	return ll.Data, ll.Width, ll.Height, nil
}

// LLDimensions returns the final approximation dimensions after a
// multi-level decomposition.
func LLDimensions(width, height, levels int) (llWidth, llHeight int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	for level := 0; level < levels; level++ {
		width = (width + 1) / 2
		height = (height + 1) / 2
	}
	return width, height
}
