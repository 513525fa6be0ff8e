package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

type ByteRaster struct {
	Data          []uint8
	Height, Width int
	NoData        float64
}

// InterpolateUint8 interpolates the value of a byte between two numbers
// 'a' and 'b' by especifying a length and a position 'i' along that
// length.
func InterpolateUint8(a, b uint8, i, sectionLength int) uint8 {
	return a + uint8((i * (int(b) - int(a)) / sectionLength))
}

// InterpolateColor returns an RGBA color where the R, G, B, and A
// components have been interpolated from the 'a' and 'b' colors.
func InterpolateColor(a, b color.RGBA, i, sectionLength int) color.RGBA {
	return color.RGBA{InterpolateUint8(a.R, b.R, i, sectionLength),
		InterpolateUint8(a.G, b.G, i, sectionLength),
		InterpolateUint8(a.B, b.B, i, sectionLength),
		255}
}

// GradientRGBAPalette returns a palette of 256 colors creating an
// interpolation that goes though the list of provided colours.
func GradientRGBAPalette(palette *Palette) ([]color.RGBA, error) {
	if palette == nil {
		return nil, nil
	}

	if len(palette.Colours) < 2 {
		return nil, fmt.Errorf("the colour palette must contain at least 2 colours")
	}

	ramp := make([]color.RGBA, 256)

	if palette.Interpolate {
		bins := len(palette.Colours) - 1
		sectionLength := 256 / bins
		bonus := 256 - (sectionLength * bins)
		bonusArr := make([]int, bins)
		for i := 0; i < bonus; i++ {
			bonusArr[i] = 1
		}

		index := 0
		for section, upperColour := range palette.Colours[1:] {
			for i := 0; i < sectionLength+bonusArr[section]; i++ {
				ramp[index] = InterpolateColor(palette.Colours[section], upperColour, i, sectionLength)
				index++
			}
		}
	} else {
		bins := len(palette.Colours)
		sectionLength := 256 / bins
		bonus := 256 - (sectionLength * bins)
		bonusArr := make([]int, bins)
		for i := 0; i < bonus; i++ {
			bonusArr[i] = 1
		}

		index := 0
		for section, colour := range palette.Colours {
			for i := 0; i < sectionLength+bonusArr[section]; i++ {
				ramp[index] = colour
				index++
			}
		}
	}

	return ramp, nil
}

// EncodePNG encodes 1 band (grey or palette ramped) or 3 bands (RGB) of
// byte rasters into a PNG. Pixels carrying the byte nodata 0xFF stay fully
// transparent so an all-invalid mosaic encodes to an empty tile.
func EncodePNG(br []*ByteRaster, palette *Palette) ([]byte, error) {
	buf := new(bytes.Buffer)
	canvas := image.NewRGBA(image.Rect(0, 0, br[0].Width, br[0].Height))

	switch len(br) {
	case 1:
		if palette != nil {
			plt, err := GradientRGBAPalette(palette)
			if err != nil {
				return buf.Bytes(), err
			}

			for i, val := range br[0].Data {
				if val != 0xFF {
					canvas.Set(i%br[0].Width, i/br[0].Width, plt[val])
				}
			}
		} else {
			for i, val := range br[0].Data {
				if val != 0xFF {
					start := i * 4
					canvas.Pix[start] = val
					canvas.Pix[start+1] = val
					canvas.Pix[start+2] = val
					canvas.Pix[start+3] = 0xff
				}
			}
		}

	case 3:
		rasterR := br[0]
		rasterG := br[1]
		rasterB := br[2]

		if rasterR == nil || rasterG == nil || rasterB == nil {
			return []byte{}, fmt.Errorf("at least one of the bands is nil")
		}

		for i := 0; i < rasterR.Width*rasterR.Height; i++ {
			if rasterR.Data[i] != 0xFF || rasterG.Data[i] != 0xFF || rasterB.Data[i] != 0xFF {
				start := i * 4
				canvas.Pix[start] = rasterR.Data[i]
				canvas.Pix[start+1] = rasterG.Data[i]
				canvas.Pix[start+2] = rasterB.Data[i]
				canvas.Pix[start+3] = 0xff
			}
		}

	default:
		return []byte{}, fmt.Errorf("cannot encode other than 1 or 3 bands into a PNG: received %d", len(br))
	}

	err := png.Encode(buf, canvas)

	return buf.Bytes(), err
}
