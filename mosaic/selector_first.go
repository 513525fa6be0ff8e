package mosaic

// FirstSelector keeps the first valid contribution per pixel. Once a pixel
// is valid on the canvas it is never overwritten, so the composite is
// complete as soon as every pixel is covered.
type FirstSelector struct {
	canvas *ImageTile
	nValid int
}

func NewFirstSelector(width, height, bands int, noData float64) *FirstSelector {
	return &FirstSelector{canvas: NewImageTile(width, height, bands, noData)}
}

func (s *FirstSelector) Feed(tile *ImageTile) {
	s.canvas.adoptGeoRef(tile)
	mask := s.canvas.Mask
	for i, ok := range tile.Mask {
		if !ok || mask[i] {
			continue
		}
		for b, data := range s.canvas.Bands {
			data[i] = tile.Bands[b][i]
		}
		mask[i] = true
		s.nValid++
	}
}

func (s *FirstSelector) IsDone() bool {
	return s.nValid == s.canvas.Size()
}

func (s *FirstSelector) Result() *ImageTile {
	return s.canvas
}
