package utils

import (
	"math"
	"testing"
)

func assertBBox(t *testing.T, got, expected []float64) {
	for i := range expected {
		if math.Abs(got[i]-expected[i]) > 1e-6 {
			t.Errorf("bbox mismatch: expecting %v, actual %v", expected, got)
			return
		}
	}
}

func TestTileBBox(t *testing.T) {
	tm := WebMercatorTileMatrix()

	bbox, err := tm.TileBBox(0, 0, 0)
	if err != nil {
		t.Fatalf("zoom 0 bbox failed: %v", err)
	}
	assertBBox(t, bbox, []float64{-webMercExtent, -webMercExtent, webMercExtent, webMercExtent})

	// top left quadrant at zoom 1
	bbox, err = tm.TileBBox(1, 0, 0)
	if err != nil {
		t.Fatalf("zoom 1 bbox failed: %v", err)
	}
	assertBBox(t, bbox, []float64{-webMercExtent, 0, 0, webMercExtent})

	// bottom right quadrant at zoom 1
	bbox, err = tm.TileBBox(1, 1, 1)
	if err != nil {
		t.Fatalf("zoom 1 bbox failed: %v", err)
	}
	assertBBox(t, bbox, []float64{0, -webMercExtent, webMercExtent, 0})
}

func TestTileBBoxCustomTileSize(t *testing.T) {
	tm := WebMercatorTileMatrix()
	tm.TileSize = 512

	// the tile pixel size must never leak into the georeference
	bbox, err := tm.TileBBox(0, 0, 0)
	if err != nil {
		t.Fatalf("zoom 0 bbox failed: %v", err)
	}
	assertBBox(t, bbox, []float64{-webMercExtent, -webMercExtent, webMercExtent, webMercExtent})

	bbox, err = tm.TileBBox(1, 1, 1)
	if err != nil {
		t.Fatalf("zoom 1 bbox failed: %v", err)
	}
	assertBBox(t, bbox, []float64{0, -webMercExtent, webMercExtent, 0})

	// doubling the pixels per tile halves the ground size of a pixel
	expected := 2 * webMercExtent / 512
	if math.Abs(tm.Resolution(0)-expected) > 1e-9 {
		t.Errorf("resolution mismatch: expecting %v, actual %v", expected, tm.Resolution(0))
	}
}

func TestTileBBoxOutOfRange(t *testing.T) {
	tm := WebMercatorTileMatrix()
	if _, err := tm.TileBBox(1, 2, 0); err == nil {
		t.Errorf("expecting error for column out of range")
	}
	if _, err := tm.TileBBox(-1, 0, 0); err == nil {
		t.Errorf("expecting error for negative zoom")
	}
	if _, err := tm.TileBBox(30, 0, 0); err == nil {
		t.Errorf("expecting error for zoom beyond maximum")
	}
}

func TestBBox2Geot(t *testing.T) {
	geot := BBox2Geot(256, 256, []float64{0, 0, 256, 256})
	expected := []float64{0, 1, 0, 256, 0, -1}
	for i := range expected {
		if math.Abs(geot[i]-expected[i]) > 1e-9 {
			t.Errorf("geotransform mismatch: expecting %v, actual %v", expected, geot)
			return
		}
	}
}
