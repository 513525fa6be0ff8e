package mosaic

import (
	"errors"
	"fmt"
)

// ErrOutsideBounds is returned by an AssetFetcher when the requested tile
// cell does not intersect the asset's data extent. It is not a failure and
// the asset is silently skipped.
var ErrOutsideBounds = errors.New("tile outside asset bounds")

// ImageTile holds one asset's contribution to an output tile: a flat
// float64 slice per band plus a flat validity mask, all of length
// Width*Height. Every ImageTile in one mosaic operation is produced
// against the same tile matrix cell and therefore shares CRS and BBox.
type ImageTile struct {
	Bands         [][]float64
	Mask          []bool
	Height, Width int
	CRS           string
	BBox          []float64
	NoData        float64
}

// NewImageTile returns a tile with the requested shape, an all-invalid
// mask and every band filled with the nodata sentinel.
func NewImageTile(width, height, bands int, noData float64) *ImageTile {
	size := width * height
	t := &ImageTile{
		Bands:  make([][]float64, bands),
		Mask:   make([]bool, size),
		Height: height,
		Width:  width,
		NoData: noData,
	}
	for b := range t.Bands {
		data := make([]float64, size)
		if noData != 0 {
			for i := range data {
				data[i] = noData
			}
		}
		t.Bands[b] = data
	}
	return t
}

func (t *ImageTile) Size() int {
	return t.Width * t.Height
}

// CountValid returns the number of pixels marked valid in the mask.
func (t *ImageTile) CountValid() int {
	n := 0
	for _, ok := range t.Mask {
		if ok {
			n++
		}
	}
	return n
}

// IsEmpty reports whether the tile has no valid pixel at all. An empty
// tile is semantically "no contribution" and is never fed to a selector.
func (t *ImageTile) IsEmpty() bool {
	for _, ok := range t.Mask {
		if ok {
			return false
		}
	}
	return true
}

// CheckShape verifies the band and mask slices agree with Width*Height.
func (t *ImageTile) CheckShape() error {
	size := t.Size()
	if len(t.Mask) != size {
		return fmt.Errorf("mask length %d does not match %dx%d tile", len(t.Mask), t.Width, t.Height)
	}
	for b, data := range t.Bands {
		if len(data) != size {
			return fmt.Errorf("band %d length %d does not match %dx%d tile", b, len(data), t.Width, t.Height)
		}
	}
	return nil
}

// adoptGeoRef copies the georeference of the first contribution onto the
// canvas. All tiles of one operation share it.
func (t *ImageTile) adoptGeoRef(src *ImageTile) {
	if len(t.CRS) == 0 {
		t.CRS = src.CRS
		t.BBox = src.BBox
	}
}

// AssetError records a per-asset fetch failure. Fetch failures never abort
// a mosaic operation; they are kept for diagnostics.
type AssetError struct {
	Asset string
	Err   error
}

// MosaicResult is the outcome of one mosaic operation. AssetsUsed lists
// the assets whose pixels were actually incorporated, in contribution
// order. An all-invalid Mosaic with empty AssetsUsed is a valid outcome.
type MosaicResult struct {
	Mosaic      *ImageTile
	AssetsUsed  []string
	FetchErrors []AssetError
}
