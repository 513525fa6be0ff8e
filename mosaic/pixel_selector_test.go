package mosaic

import (
	"math"
	"testing"
)

func uniformTile(width, height, bands int, value float64, valid bool) *ImageTile {
	t := NewImageTile(width, height, bands, -9999)
	for b := range t.Bands {
		for i := range t.Bands[b] {
			t.Bands[b][i] = value
		}
	}
	if valid {
		for i := range t.Mask {
			t.Mask[i] = true
		}
	}
	return t
}

func assertBand(t *testing.T, got []float64, expected []float64) {
	for i := range got {
		if math.Abs(got[i]-expected[i]) > 1e-9 {
			t.Errorf("band mismatch at %d: expecting %v, actual %v", i, expected, got)
			return
		}
	}
}

func assertMask(t *testing.T, got []bool, expected []bool) {
	for i := range got {
		if got[i] != expected[i] {
			t.Errorf("mask mismatch at %d: expecting %v, actual %v", i, expected, got)
			return
		}
	}
}

func TestFirstSelector(t *testing.T) {
	sel := NewFirstSelector(2, 1, 1, -9999)

	a := NewImageTile(2, 1, 1, -9999)
	a.Bands[0] = []float64{10, 0}
	a.Mask = []bool{true, false}

	b := NewImageTile(2, 1, 1, -9999)
	b.Bands[0] = []float64{20, 20}
	b.Mask = []bool{true, true}

	sel.Feed(a)
	if sel.IsDone() {
		t.Errorf("selector reported done with one uncovered pixel")
	}
	sel.Feed(b)
	if !sel.IsDone() {
		t.Errorf("selector not done after full coverage")
	}

	out := sel.Result()
	assertBand(t, out.Bands[0], []float64{10, 20})
	assertMask(t, out.Mask, []bool{true, true})
}

func TestFirstSelectorIdempotence(t *testing.T) {
	tile := uniformTile(4, 4, 1, 42, true)

	once := NewFirstSelector(4, 4, 1, -9999)
	once.Feed(tile)

	twice := NewFirstSelector(4, 4, 1, -9999)
	twice.Feed(tile)
	twice.Feed(tile)

	assertBand(t, twice.Result().Bands[0], once.Result().Bands[0])
	assertMask(t, twice.Result().Mask, once.Result().Mask)
}

func TestExtremaSelector(t *testing.T) {
	// two bands, decision on band 1; all bands must follow the winner
	a := NewImageTile(3, 1, 2, -9999)
	a.Bands[0] = []float64{100, 100, 100}
	a.Bands[1] = []float64{5, 9, 7}
	a.Mask = []bool{true, true, true}

	b := NewImageTile(3, 1, 2, -9999)
	b.Bands[0] = []float64{200, 200, 200}
	b.Bands[1] = []float64{8, 3, 7}
	b.Mask = []bool{true, true, true}

	highest := NewExtremaSelector(3, 1, 2, -9999, 1, true)
	highest.Feed(a)
	highest.Feed(b)
	if highest.IsDone() {
		t.Errorf("extrema selector must never report done")
	}
	out := highest.Result()
	assertBand(t, out.Bands[1], []float64{8, 9, 7})
	// pixel 0 won by b, pixel 1 by a, pixel 2 tie kept by a
	assertBand(t, out.Bands[0], []float64{200, 100, 100})

	lowest := NewExtremaSelector(3, 1, 2, -9999, 1, false)
	lowest.Feed(a)
	lowest.Feed(b)
	out = lowest.Result()
	assertBand(t, out.Bands[1], []float64{5, 3, 7})
	assertBand(t, out.Bands[0], []float64{100, 200, 100})
}

func TestMeanSelector(t *testing.T) {
	a := uniformTile(4, 4, 1, 10, true)
	b := uniformTile(4, 4, 1, 20, true)
	c := uniformTile(4, 4, 1, 30, false)

	sel := NewMeanSelector(4, 4, 1, -9999)
	sel.Feed(a)
	sel.Feed(b)
	sel.Feed(c)
	if sel.IsDone() {
		t.Errorf("mean selector must never report done")
	}

	out := sel.Result()
	for i, val := range out.Bands[0] {
		if val != 15.0 {
			t.Errorf("mean at %d: expecting 15.0, actual %v", i, val)
		}
		if !out.Mask[i] {
			t.Errorf("mean mask at %d: expecting valid", i)
		}
	}
}

func TestMeanSelectorUncoveredPixel(t *testing.T) {
	a := NewImageTile(2, 1, 1, -9999)
	a.Bands[0] = []float64{4, 0}
	a.Mask = []bool{true, false}

	sel := NewMeanSelector(2, 1, 1, -9999)
	sel.Feed(a)
	out := sel.Result()

	if out.Bands[0][1] != -9999 {
		t.Errorf("uncovered pixel expecting nodata sentinel, actual %v", out.Bands[0][1])
	}
	assertMask(t, out.Mask, []bool{true, false})
}

func TestStdevSelector(t *testing.T) {
	// population stdev of 2, 4, 4, 4, 5, 5, 7, 9 is exactly 2
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	sel := NewStdevSelector(1, 1, 1, -9999)
	for _, v := range values {
		sel.Feed(uniformTile(1, 1, 1, v, true))
	}

	out := sel.Result()
	if math.Abs(out.Bands[0][0]-2.0) > 1e-9 {
		t.Errorf("stdev: expecting 2.0, actual %v", out.Bands[0][0])
	}
	if !out.Mask[0] {
		t.Errorf("stdev mask: expecting valid")
	}
}

func TestMedianSelector(t *testing.T) {
	sel := NewMedianSelector(1, 1, 1, -9999)
	for _, v := range []float64{9, 1, 5} {
		sel.Feed(uniformTile(1, 1, 1, v, true))
	}
	out := sel.Result()
	if out.Bands[0][0] != 5 {
		t.Errorf("odd median: expecting 5, actual %v", out.Bands[0][0])
	}

	sel = NewMedianSelector(1, 1, 1, -9999)
	for _, v := range []float64{9, 1, 5, 7} {
		sel.Feed(uniformTile(1, 1, 1, v, true))
	}
	out = sel.Result()
	if out.Bands[0][0] != 6 {
		t.Errorf("even median: expecting 6, actual %v", out.Bands[0][0])
	}
}

func TestCountSelector(t *testing.T) {
	a := NewImageTile(2, 1, 1, -9999)
	a.Mask = []bool{true, false}
	b := NewImageTile(2, 1, 1, -9999)
	b.Mask = []bool{true, true}

	sel := NewCountSelector(2, 1, -9999)
	sel.Feed(a)
	sel.Feed(b)
	out := sel.Result()

	assertBand(t, out.Bands[0], []float64{2, 1})
	assertMask(t, out.Mask, []bool{true, true})
}

func TestSelectorZeroFeeds(t *testing.T) {
	for _, policy := range []string{SelectorFirst, SelectorHighest, SelectorLowest, SelectorMean, SelectorMedian, SelectorStdev, SelectorCount} {
		sel, err := NewPixelSelector(policy, 4, 4, 2, -9999, -1)
		if err != nil {
			t.Errorf("%s: factory error: %v", policy, err)
			continue
		}
		out := sel.Result()
		if !out.IsEmpty() {
			t.Errorf("%s: result of zero feeds must have an all-invalid mask", policy)
		}
	}
}

func TestSelectorFactoryUnknownPolicy(t *testing.T) {
	if _, err := NewPixelSelector("brightest", 4, 4, 1, 0, -1); err == nil {
		t.Errorf("expecting error for unknown policy")
	}
	if _, err := NewPixelSelector(SelectorHighest, 4, 4, 1, 0, 3); err == nil {
		t.Errorf("expecting error for out of range decision band")
	}
}

func TestCoverageMonotonicity(t *testing.T) {
	tiles := []*ImageTile{}
	masks := [][]bool{
		{true, false, false, false},
		{false, true, true, false},
		{true, false, true, false},
		{false, false, false, false},
	}
	for k, m := range masks {
		tile := uniformTile(2, 2, 1, float64(k+1), false)
		copy(tile.Mask, m)
		tiles = append(tiles, tile)
	}

	for _, policy := range []string{SelectorFirst, SelectorHighest, SelectorLowest, SelectorMean, SelectorStdev, SelectorCount} {
		sel, err := NewPixelSelector(policy, 2, 2, 1, -9999, -1)
		if err != nil {
			t.Errorf("%s: factory error: %v", policy, err)
			continue
		}
		prev := 0
		for _, tile := range tiles {
			sel.Feed(tile)
			n := sel.Result().CountValid()
			if n < prev {
				t.Errorf("%s: valid pixel count decreased from %d to %d", policy, prev, n)
			}
			prev = n
		}
	}
}
