package mosaic

import (
	"math"
)

// MeanSelector accumulates a per-pixel running sum over every valid
// contribution. A pixel is invalid in the output only if it was invalid in
// every tile. Statistical policies are never done early: each new
// observation changes the statistic wherever it is valid.
type MeanSelector struct {
	sum    [][]float64
	count  []int
	proto  *ImageTile
	noData float64
}

func NewMeanSelector(width, height, bands int, noData float64) *MeanSelector {
	s := &MeanSelector{
		sum:    make([][]float64, bands),
		count:  make([]int, width*height),
		proto:  NewImageTile(width, height, bands, noData),
		noData: noData,
	}
	for b := range s.sum {
		s.sum[b] = make([]float64, width*height)
	}
	return s
}

func (s *MeanSelector) Feed(tile *ImageTile) {
	s.proto.adoptGeoRef(tile)
	for i, ok := range tile.Mask {
		if !ok {
			continue
		}
		s.count[i]++
		for b := range s.sum {
			s.sum[b][i] += tile.Bands[b][i]
		}
	}
}

func (s *MeanSelector) IsDone() bool {
	return false
}

func (s *MeanSelector) Result() *ImageTile {
	out := s.proto
	for i, n := range s.count {
		if n == 0 {
			continue
		}
		for b, data := range out.Bands {
			data[i] = s.sum[b][i] / float64(n)
		}
		out.Mask[i] = true
	}
	return out
}

// StdevSelector computes the per-pixel population standard deviation over
// every valid contribution using Welford's incremental update, which keeps
// the floating point error bounded compared with a naive
// sum-of-squares-minus-square-of-sum.
type StdevSelector struct {
	mean  [][]float64
	m2    [][]float64
	count []int
	proto *ImageTile
}

func NewStdevSelector(width, height, bands int, noData float64) *StdevSelector {
	s := &StdevSelector{
		mean:  make([][]float64, bands),
		m2:    make([][]float64, bands),
		count: make([]int, width*height),
		proto: NewImageTile(width, height, bands, noData),
	}
	for b := range s.mean {
		s.mean[b] = make([]float64, width*height)
		s.m2[b] = make([]float64, width*height)
	}
	return s
}

func (s *StdevSelector) Feed(tile *ImageTile) {
	s.proto.adoptGeoRef(tile)
	for i, ok := range tile.Mask {
		if !ok {
			continue
		}
		s.count[i]++
		n := float64(s.count[i])
		for b := range s.mean {
			val := tile.Bands[b][i]
			delta := val - s.mean[b][i]
			s.mean[b][i] += delta / n
			s.m2[b][i] += delta * (val - s.mean[b][i])
		}
	}
}

func (s *StdevSelector) IsDone() bool {
	return false
}

func (s *StdevSelector) Result() *ImageTile {
	out := s.proto
	for i, n := range s.count {
		if n == 0 {
			continue
		}
		for b, data := range out.Bands {
			data[i] = math.Sqrt(s.m2[b][i] / float64(n))
		}
		out.Mask[i] = true
	}
	return out
}

// CountSelector counts, per pixel, the number of tiles in which the pixel
// was valid. The result is a single band diagnostic raster rather than a
// colour composite.
type CountSelector struct {
	count []int
	proto *ImageTile
}

func NewCountSelector(width, height int, noData float64) *CountSelector {
	return &CountSelector{
		count: make([]int, width*height),
		proto: NewImageTile(width, height, 1, noData),
	}
}

func (s *CountSelector) Feed(tile *ImageTile) {
	s.proto.adoptGeoRef(tile)
	for i, ok := range tile.Mask {
		if ok {
			s.count[i]++
		}
	}
}

func (s *CountSelector) IsDone() bool {
	return false
}

func (s *CountSelector) Result() *ImageTile {
	out := s.proto
	for i, n := range s.count {
		if n > 0 {
			out.Bands[0][i] = float64(n)
			out.Mask[i] = true
		}
	}
	return out
}
