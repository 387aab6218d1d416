package wavelet

import (
	"math"
	"testing"
)

func maxAbsFloat(data []float64) float64 {
	m := 0.0
	for _, v := range data {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func TestRoundTrip97(t *testing.T) {
	tests := []struct {
		name   string
		signal []float64
	}{
		{"simple", []float64{1, 2, 3, 4}},
		{"ramp", []float64{1, 2, 3, 4, 5, 6, 7, 8}},
		{"odd length", []float64{1.5, -2.25, 3.75, 4.5, -5.125}},
		{"two samples", []float64{100, -200}},
		{"alternating", []float64{0, 255, 0, 255, 0, 255}},
		{"large magnitudes", []float64{32767, -32768, 12345.5, -9876.25}},
	}
	for _, tt := range tests {
		for _, mode := range extendModes {
			low, high, err := Forward97(tt.signal, mode)
			if err != nil {
				t.Fatalf("%s/%v: forward: %v", tt.name, mode, err)
			}
			got, err := Inverse97(low, high, mode)
			if err != nil {
				t.Fatalf("%s/%v: inverse: %v", tt.name, mode, err)
			}
			tol := 1e-9 * math.Max(maxAbsFloat(tt.signal), 1)
			for i := range got {
				if math.Abs(got[i]-tt.signal[i]) > tol {
					t.Errorf("%s/%v: sample %d: got %v, want %v", tt.name, mode, i, got[i], tt.signal[i])
				}
			}
		}
	}
}

func TestRoundTrip97AllLengths(t *testing.T) {
	for n := 2; n <= 48; n++ {
		signal := make([]float64, n)
		for i := range signal {
			signal[i] = math.Sin(float64(i)*0.7)*1000 + float64(i%5)*31
		}
		low, high, err := Forward97(signal, ExtendSymmetric)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(low) != (n+1)/2 || len(high) != n/2 {
			t.Fatalf("n=%d: subband sizes %d/%d", n, len(low), len(high))
		}
		got, err := Inverse97(low, high, ExtendSymmetric)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		tol := 1e-9 * maxAbsFloat(signal)
		for i := range got {
			if math.Abs(got[i]-signal[i]) > tol {
				t.Fatalf("n=%d sample %d: got %v, want %v", n, i, got[i], signal[i])
			}
		}
	}
}

func TestForward97ConstantSignal(t *testing.T) {
	// A constant signal has (near) zero detail after the 9/7 analysis.
	signal := []float64{64, 64, 64, 64, 64, 64, 64, 64}
	_, high, err := Forward97(signal, ExtendSymmetric)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range high {
		if math.Abs(v) > 1e-9 {
			t.Errorf("high[%d] = %v, want ~0", i, v)
		}
	}
}

func TestRoundTrip97_2D(t *testing.T) {
	sizes := []struct{ w, h int }{{4, 4}, {5, 7}, {16, 16}, {13, 9}}
	for _, sz := range sizes {
		data := make([]float64, sz.w*sz.h)
		for i := range data {
			data[i] = math.Cos(float64(i)*0.3) * 500
		}
		b, err := Forward97_2D(data, sz.w, sz.h, ExtendSymmetric)
		if err != nil {
			t.Fatalf("%dx%d: %v", sz.w, sz.h, err)
		}
		got, w, h, err := Inverse97_2D(b, ExtendSymmetric)
		if err != nil {
			t.Fatalf("%dx%d: %v", sz.w, sz.h, err)
		}
		if w != sz.w || h != sz.h {
			t.Fatalf("%dx%d: reconstructed %dx%d", sz.w, sz.h, w, h)
		}
		tol := 1e-9 * maxAbsFloat(data)
		for i := range got {
			if math.Abs(got[i]-data[i]) > tol {
				t.Fatalf("%dx%d: sample %d off by %v", sz.w, sz.h, i, got[i]-data[i])
			}
		}
	}
}

func TestMultilevel97NearIdentity(t *testing.T) {
	const w, h = 20, 14
	data := make([]float64, w*h)
	for i := range data {
		data[i] = math.Sin(float64(i)*0.13)*700 + 100
	}
	for levels := 1; levels <= 3; levels++ {
		dec, err := Decompose97(data, w, h, levels, ExtendSymmetric)
		if err != nil {
			t.Fatalf("levels=%d: %v", levels, err)
		}
		got, gw, gh, err := Reconstruct97(dec, ExtendSymmetric)
		if err != nil {
			t.Fatalf("levels=%d: %v", levels, err)
		}
		if gw != w || gh != h {
			t.Fatalf("levels=%d: reconstructed %dx%d", levels, gw, gh)
		}
		tol := 1e-9 * maxAbsFloat(data)
		for i := range got {
			if math.Abs(got[i]-data[i]) > tol {
				t.Fatalf("levels=%d: sample %d off by %v", levels, i, got[i]-data[i])
			}
		}
	}
}

func TestToIntRoundsTiesToEven(t *testing.T) {
	got := ToInt([]float64{0.5, 1.5, 2.5, -0.5, -1.5, 2.4, -2.6})
	want := []int32{0, 2, 2, 0, -2, 2, -3}
	if !equalInt32(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
