package utils

import (
	"testing"
)

func assert(t *testing.T, out *ByteRaster, expected []uint8, err error) {
	if err != nil {
		t.Errorf("byte raster test failed, %v", err)
		return
	}
	for i := range out.Data {
		if out.Data[i] != expected[i] {
			t.Errorf("byte raster test failed, expecting %v, actual %v", expected, out.Data)
			return
		}
	}
}

func TestScale(t *testing.T) {
	mask := []bool{true, true}

	data := []float64{1, 2}
	sp := ScaleParams{Offset: 1, Scale: 1, Clip: 1000}
	out, err := scaleBand(data, mask, 2, 1, sp)
	assert(t, out, []uint8{2, 3}, err)

	data = []float64{1, 2}
	sp = ScaleParams{Offset: 0, Scale: 0, Clip: 2}
	out, err = scaleBand(data, mask, 2, 1, sp)
	assert(t, out, []uint8{127, 254}, err)

	data = []float64{1, 2}
	sp = ScaleParams{Offset: 3, Scale: 2, Clip: 1000}
	out, err = scaleBand(data, mask, 2, 1, sp)
	assert(t, out, []uint8{8, 10}, err)

	data = []float64{1, 2}
	sp = ScaleParams{Offset: 3, Scale: 2, Clip: 2}
	out, err = scaleBand(data, mask, 2, 1, sp)
	assert(t, out, []uint8{4, 4}, err)

	data = []float64{-100, -200}
	sp = ScaleParams{Offset: 3, Scale: 2, Clip: 2}
	out, err = scaleBand(data, mask, 2, 1, sp)
	assert(t, out, []uint8{0, 0}, err)
}

func TestScaleMaskedPixels(t *testing.T) {
	data := []float64{10, 20}
	mask := []bool{true, false}
	out, err := scaleBand(data, mask, 2, 1, ScaleParams{Scale: 1, Clip: 1000})
	assert(t, out, []uint8{10, 0xFF}, err)
}

func TestScaleShapeMismatch(t *testing.T) {
	if _, err := scaleBand([]float64{1}, []bool{true, true}, 2, 1, ScaleParams{}); err == nil {
		t.Errorf("expecting error for band length mismatch")
	}
}

func TestScaleAllBands(t *testing.T) {
	bands := [][]float64{{1, 2}, {3, 4}}
	mask := []bool{true, true}
	out, err := Scale(bands, mask, 2, 1, ScaleParams{Scale: 1, Clip: 1000})
	if err != nil {
		t.Fatalf("scale failed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expecting 2 byte rasters, actual %d", len(out))
	}
	assert(t, out[0], []uint8{1, 2}, nil)
	assert(t, out[1], []uint8{3, 4}, nil)
}
