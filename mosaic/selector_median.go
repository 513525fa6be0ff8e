package mosaic

import (
	"sort"
)

// MedianSelector takes the per-pixel median over the valid-only stack of
// contributions. Unlike the streaming policies it has to buffer every tile
// and recompute on Result; the even-length case averages the two middle
// values.
type MedianSelector struct {
	tiles  []*ImageTile
	width  int
	height int
	bands  int
	noData float64
}

func NewMedianSelector(width, height, bands int, noData float64) *MedianSelector {
	return &MedianSelector{
		width:  width,
		height: height,
		bands:  bands,
		noData: noData,
	}
}

func (s *MedianSelector) Feed(tile *ImageTile) {
	if tile.IsEmpty() {
		return
	}
	s.tiles = append(s.tiles, tile)
}

func (s *MedianSelector) IsDone() bool {
	return false
}

func (s *MedianSelector) Result() *ImageTile {
	out := NewImageTile(s.width, s.height, s.bands, s.noData)
	if len(s.tiles) == 0 {
		return out
	}
	out.adoptGeoRef(s.tiles[0])

	stack := make([]float64, 0, len(s.tiles))
	size := s.width * s.height
	for i := 0; i < size; i++ {
		covered := false
		for b := 0; b < s.bands; b++ {
			stack = stack[:0]
			for _, tile := range s.tiles {
				if tile.Mask[i] {
					stack = append(stack, tile.Bands[b][i])
				}
			}
			if len(stack) == 0 {
				break
			}
			covered = true
			sort.Float64s(stack)
			mid := len(stack) / 2
			if len(stack)%2 == 1 {
				out.Bands[b][i] = stack[mid]
			} else {
				out.Bands[b][i] = 0.5 * (stack[mid-1] + stack[mid])
			}
		}
		out.Mask[i] = covered
	}
	return out
}
