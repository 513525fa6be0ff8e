package utils

import (
	"fmt"
)

// TileMatrix describes a quantized multi-resolution grid over a CRS: grid
// origin, the ground width of the single zoom zero tile (halving at each
// further zoom) and the tile pixel size. Tile extents depend only on the
// zoom zero span, so changing TileSize changes the pixel resolution of a
// cell, never its georeference. The mosaic core treats it as an opaque
// bbox and grid-size supplier.
type TileMatrix struct {
	CRS      string
	TileSize int
	OriginX  float64
	OriginY  float64
	SpanZero float64
	MaxZoom  int
}

const webMercExtent = 20037508.342789244

// WebMercatorTileMatrix returns the standard EPSG:3857 slippy tile grid
// with 256 pixel tiles.
func WebMercatorTileMatrix() *TileMatrix {
	return &TileMatrix{
		CRS:      "EPSG:3857",
		TileSize: 256,
		OriginX:  -webMercExtent,
		OriginY:  webMercExtent,
		SpanZero: 2 * webMercExtent,
		MaxZoom:  24,
	}
}

// Resolution returns the ground size of one pixel at the given zoom.
func (tm *TileMatrix) Resolution(z int) float64 {
	return tm.SpanZero / float64(int(1)<<uint(z)) / float64(tm.TileSize)
}

// TileBBox returns the bbox (xMin, yMin, xMax, yMax) of the XYZ tile cell
// z/x/y. The y axis counts from the top row, as in the slippy scheme.
func (tm *TileMatrix) TileBBox(z, x, y int) ([]float64, error) {
	if z < 0 || z > tm.MaxZoom {
		return nil, fmt.Errorf("zoom %d out of range [0, %d]", z, tm.MaxZoom)
	}
	n := int(1) << uint(z)
	if x < 0 || x >= n || y < 0 || y >= n {
		return nil, fmt.Errorf("tile %d/%d/%d out of range", z, x, y)
	}

	span := tm.SpanZero / float64(n)
	xMin := tm.OriginX + float64(x)*span
	yMax := tm.OriginY - float64(y)*span
	return []float64{xMin, yMax - span, xMin + span, yMax}, nil
}

// BBox2Geot returns the GDAL-style geotransform of a pixel grid covering
// the bbox.
func BBox2Geot(width, height int, bbox []float64) []float64 {
	return []float64{bbox[0], (bbox[2] - bbox[0]) / float64(width), 0, bbox[3], 0, (bbox[1] - bbox[3]) / float64(height)}
}
