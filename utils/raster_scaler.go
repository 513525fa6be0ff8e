package utils

import (
	"fmt"
)

type ScaleParams struct {
	Offset float64
	Scale  float64
	Clip   float64
}

const byteNoData = 0xFF

// scaleBand quantizes one float64 mosaic band into a byte raster. Masked
// out pixels map to 0xFF, the byte nodata the encoders key transparency
// on; valid values are offset, clipped and scaled into [0, 254].
func scaleBand(data []float64, mask []bool, width, height int, params ScaleParams) (*ByteRaster, error) {
	if len(data) != width*height || len(mask) != width*height {
		return nil, fmt.Errorf("band length %d does not match %dx%d grid", len(data), width, height)
	}

	out := &ByteRaster{NoData: byteNoData, Data: make([]uint8, width*height), Width: width, Height: height}

	scale := params.Scale
	if scale <= 0 {
		if params.Clip > 0 {
			scale = 254.0 / params.Clip
		} else {
			scale = 1.0
		}
	}

	for i, value := range data {
		if !mask[i] {
			out.Data[i] = byteNoData
			continue
		}
		value += params.Offset
		if params.Clip > 0 && value > params.Clip {
			value = params.Clip
		}
		if value < 0 {
			value = 0
		}
		scaled := value * scale
		if scaled > 254 {
			scaled = 254
		}
		out.Data[i] = uint8(scaled)
	}
	return out, nil
}

// Scale converts every band of a composited mosaic into byte rasters ready
// for encoding.
func Scale(bands [][]float64, mask []bool, width, height int, params ScaleParams) ([]*ByteRaster, error) {
	out := make([]*ByteRaster, len(bands))
	for i, data := range bands {
		br, err := scaleBand(data, mask, width, height, params)
		if err != nil {
			return out, err
		}
		out[i] = br
	}
	return out, nil
}
