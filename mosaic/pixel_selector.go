package mosaic

import (
	"fmt"
)

// Supported pixel selection policies.
const (
	SelectorFirst   = "first"
	SelectorHighest = "highest"
	SelectorLowest  = "lowest"
	SelectorMean    = "mean"
	SelectorMedian  = "median"
	SelectorStdev   = "stdev"
	SelectorCount   = "count"
)

// PixelSelector accumulates successive tile contributions into one
// composite under a per-pixel selection policy. A selector instance is
// request scoped: it is created fresh for every mosaic operation and fed
// from a single goroutine.
//
// Feed must tolerate a tile with an all-invalid mask. Result must be
// callable even if Feed was never called, in which case the returned tile
// has an all-invalid mask. IsDone reports that no further contribution can
// change the output; only policies with that property may ever return true.
type PixelSelector interface {
	Feed(tile *ImageTile)
	IsDone() bool
	Result() *ImageTile
}

// NewPixelSelector builds one of the named built-in policies for a tile of
// the given shape. decisionBand selects the comparison band for the
// highest and lowest policies; pass a negative value for the default
// (the last band). The other policies ignore it.
func NewPixelSelector(policy string, width, height, bands int, noData float64, decisionBand int) (PixelSelector, error) {
	if width <= 0 || height <= 0 || bands <= 0 {
		return nil, fmt.Errorf("invalid selector shape: %dx%d, %d bands", width, height, bands)
	}
	if decisionBand < 0 {
		decisionBand = bands - 1
	}
	if decisionBand >= bands {
		return nil, fmt.Errorf("decision band %d out of range for %d bands", decisionBand, bands)
	}

	switch policy {
	case SelectorFirst:
		return NewFirstSelector(width, height, bands, noData), nil
	case SelectorHighest:
		return NewExtremaSelector(width, height, bands, noData, decisionBand, true), nil
	case SelectorLowest:
		return NewExtremaSelector(width, height, bands, noData, decisionBand, false), nil
	case SelectorMean:
		return NewMeanSelector(width, height, bands, noData), nil
	case SelectorMedian:
		return NewMedianSelector(width, height, bands, noData), nil
	case SelectorStdev:
		return NewStdevSelector(width, height, bands, noData), nil
	case SelectorCount:
		return NewCountSelector(width, height, noData), nil
	default:
		return nil, fmt.Errorf("unknown pixel selection policy '%s'", policy)
	}
}

// ValidSelector reports whether name is one of the built-in policies.
// Used for config validation at load time.
func ValidSelector(name string) bool {
	switch name {
	case SelectorFirst, SelectorHighest, SelectorLowest, SelectorMean,
		SelectorMedian, SelectorStdev, SelectorCount:
		return true
	}
	return false
}
