package wavelet

import "testing"

func TestExtendInRangeIdentity(t *testing.T) {
	data := []int32{10, -20, 30, -40, 50}
	for _, mode := range []ExtendMode{ExtendSymmetric, ExtendPeriodic, ExtendZero} {
		for i, want := range data {
			if got := Extend(data, i, mode); got != want {
				t.Errorf("mode %v index %d: got %d, want %d", mode, i, got, want)
			}
		}
	}
}

func TestExtendSymmetric(t *testing.T) {
	data := []int32{1, 2, 3, 4}
	tests := []struct {
		index int
		want  int32
	}{
		{-1, 1}, // min(-i-1, n-1) = 0
		{-2, 2},
		{-3, 3},
		{-4, 4},
		{-5, 4}, // clipped to n-1
		{4, 4},  // max(2n-i-1, 0) = 3
		{5, 3},
		{6, 2},
		{7, 1},
		{8, 1}, // clipped to 0
	}
	for _, tt := range tests {
		if got := Extend(data, tt.index, ExtendSymmetric); got != tt.want {
			t.Errorf("index %d: got %d, want %d", tt.index, got, tt.want)
		}
	}
}

func TestExtendPeriodic(t *testing.T) {
	data := []int32{1, 2, 3}
	tests := []struct {
		index int
		want  int32
	}{
		{3, 1},
		{4, 2},
		{5, 3},
		{6, 1},
		{-1, 3},
		{-2, 2},
		{-3, 1},
		{-4, 3},
	}
	for _, tt := range tests {
		if got := Extend(data, tt.index, ExtendPeriodic); got != tt.want {
			t.Errorf("index %d: got %d, want %d", tt.index, got, tt.want)
		}
	}
}

func TestExtendZero(t *testing.T) {
	data := []int32{7, 8, 9}
	for _, i := range []int{-3, -1, 3, 5, 100} {
		if got := Extend(data, i, ExtendZero); got != 0 {
			t.Errorf("index %d: got %d, want 0", i, got)
		}
	}
}

func TestExtendFloatMatchesInt(t *testing.T) {
	idata := []int32{3, -1, 4, -1, 5, -9}
	fdata := make([]float64, len(idata))
	for i, v := range idata {
		fdata[i] = float64(v)
	}
	for _, mode := range []ExtendMode{ExtendSymmetric, ExtendPeriodic, ExtendZero} {
		for i := -8; i < 14; i++ {
			want := float64(Extend(idata, i, mode))
			if got := ExtendFloat(fdata, i, mode); got != want {
				t.Errorf("mode %v index %d: got %v, want %v", mode, i, got, want)
			}
		}
	}
}
