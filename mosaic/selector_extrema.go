package mosaic

// ExtremaSelector keeps, per pixel, the contribution with the highest (or
// lowest) value on a single decision band. All bands follow the winning
// contribution so the composite stays band-consistent. Ties keep the
// earlier contribution.
//
// IsDone never reports true: a later tile can always beat an already
// valid pixel, so stopping early would change the output.
type ExtremaSelector struct {
	canvas  *ImageTile
	band    int
	highest bool
}

func NewExtremaSelector(width, height, bands int, noData float64, decisionBand int, highest bool) *ExtremaSelector {
	return &ExtremaSelector{
		canvas:  NewImageTile(width, height, bands, noData),
		band:    decisionBand,
		highest: highest,
	}
}

func (s *ExtremaSelector) Feed(tile *ImageTile) {
	s.canvas.adoptGeoRef(tile)
	mask := s.canvas.Mask
	decision := s.canvas.Bands[s.band]
	candidate := tile.Bands[s.band]
	for i, ok := range tile.Mask {
		if !ok {
			continue
		}
		if mask[i] {
			if s.highest && candidate[i] <= decision[i] {
				continue
			}
			if !s.highest && candidate[i] >= decision[i] {
				continue
			}
		}
		for b, data := range s.canvas.Bands {
			data[i] = tile.Bands[b][i]
		}
		mask[i] = true
	}
}

func (s *ExtremaSelector) IsDone() bool {
	return false
}

func (s *ExtremaSelector) Result() *ImageTile {
	return s.canvas
}
