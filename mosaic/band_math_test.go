package mosaic

import (
	"math"
	"testing"
)

func TestBandExpressionNormalisedDifference(t *testing.T) {
	expr, err := ParseBandExpression("(b2 - b1) / (b2 + b1)", 2)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	tile := NewImageTile(3, 1, 2, -9999)
	tile.Bands[0] = []float64{1, 0, 2}
	tile.Bands[1] = []float64{3, 0, 2}
	tile.Mask = []bool{true, true, false}

	out, err := expr.Apply(tile)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if len(out.Bands) != 1 {
		t.Fatalf("expecting a single derived band, actual %d", len(out.Bands))
	}
	if math.Abs(out.Bands[0][0]-0.5) > 1e-9 {
		t.Errorf("pixel 0: expecting 0.5, actual %v", out.Bands[0][0])
	}
	// 0/0 evaluates to NaN and must invalidate the pixel, not crash
	if out.Mask[1] {
		t.Errorf("pixel 1: division by zero must yield an invalid pixel")
	}
	// pixels invalid in the input stay invalid
	if out.Mask[2] {
		t.Errorf("pixel 2: expecting invalid")
	}
	if !out.Mask[0] {
		t.Errorf("pixel 0: expecting valid")
	}
}

func TestBandExpressionValidation(t *testing.T) {
	if _, err := ParseBandExpression("(b3 - b1) / 2", 2); err == nil {
		t.Errorf("expecting error for out of range band variable")
	}
	if _, err := ParseBandExpression("b1 +* b2", 2); err == nil {
		t.Errorf("expecting error for malformed expression")
	}
	if _, err := ParseBandExpression("elevation * 2", 2); err == nil {
		t.Errorf("expecting error for unknown variable")
	}
}

func TestBandExpressionScalar(t *testing.T) {
	expr, err := ParseBandExpression("b1 * 0.1 + 5", 1)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	tile := uniformTile(2, 2, 1, 100, true)
	out, err := expr.Apply(tile)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	for i, val := range out.Bands[0] {
		if math.Abs(val-15.0) > 1e-9 {
			t.Errorf("pixel %d: expecting 15.0, actual %v", i, val)
		}
	}
}
