package mosaic

import (
	"fmt"
	"log"
	"time"

	"golang.org/x/net/context"
)

// AssetFetcher produces one asset's contribution to the tile cell the
// fetcher was built for. It returns ErrOutsideBounds when the asset does
// not intersect the cell, and any other error for a failed fetch. Returned
// tiles are immutable once handed over.
type AssetFetcher interface {
	FetchTile(ctx context.Context, asset string) (*ImageTile, error)
}

// AssetFetcherFunc adapts a plain function to the AssetFetcher interface.
type AssetFetcherFunc func(ctx context.Context, asset string) (*ImageTile, error)

func (f AssetFetcherFunc) FetchTile(ctx context.Context, asset string) (*ImageTile, error) {
	return f(ctx, asset)
}

const DefaultMaxConcurrency = 4

// MosaicReader drives a PixelSelector with successive asset tiles. Fetches
// run concurrently in batches of MaxConcurrency; the selector itself is
// only ever touched from the calling goroutine, so selector
// implementations need no internal locking.
type MosaicReader struct {
	Context        context.Context
	Fetcher        AssetFetcher
	MaxConcurrency int
	FetchTimeout   time.Duration
	Verbose        bool
}

func NewMosaicReader(ctx context.Context, fetcher AssetFetcher, maxConcurrency int) *MosaicReader {
	if maxConcurrency < 1 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &MosaicReader{
		Context:        ctx,
		Fetcher:        fetcher,
		MaxConcurrency: maxConcurrency,
	}
}

// Composite fetches the assets in order, feeds every usable tile into a
// fresh selector from newSelector and returns the composited tile together
// with the assets that actually contributed.
//
// The asset sequence is processed in batches of MaxConcurrency. All
// fetches of a batch are dispatched concurrently and joined before any
// result is inspected, so the selector always observes contributions in
// the original sequence order no matter how the fetches complete. After
// each batch the selector may report completion, in which case the
// remaining batches are never dispatched.
//
// Per-asset failures are recorded and skipped; they never abort the
// operation. A defective selector implementation panicking in Feed, IsDone
// or Result is the only fatal condition, surfaced as an error for this
// single operation.
func (mr *MosaicReader) Composite(assets []string, newSelector func() PixelSelector) (*MosaicResult, error) {
	sel, err := makeSelector(newSelector)
	if err != nil {
		return nil, err
	}

	res := &MosaicResult{}
	var refTile *ImageTile

	for start := 0; start < len(assets); start += mr.MaxConcurrency {
		end := start + mr.MaxConcurrency
		if end > len(assets) {
			end = len(assets)
		}
		batch := assets[start:end]

		tiles := make([]*ImageTile, len(batch))
		errs := make([]error, len(batch))

		cLimiter := NewConcLimiter(mr.MaxConcurrency)
		for i, asset := range batch {
			cLimiter.Increase()
			go func(idx int, asset string) {
				defer cLimiter.Decrease()
				ctx := mr.Context
				if mr.FetchTimeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, mr.FetchTimeout)
					defer cancel()
				}
				tiles[idx], errs[idx] = mr.Fetcher.FetchTile(ctx, asset)
			}(i, asset)
		}
		cLimiter.Wait()

		for i, asset := range batch {
			if errs[i] == ErrOutsideBounds {
				if mr.Verbose {
					log.Printf("mosaic: asset %s outside tile bounds", asset)
				}
				continue
			}
			if errs[i] != nil {
				res.FetchErrors = append(res.FetchErrors, AssetError{Asset: asset, Err: errs[i]})
				if mr.Verbose {
					log.Printf("mosaic: asset %s fetch error: %v", asset, errs[i])
				}
				continue
			}

			tile := tiles[i]
			if tile == nil || tile.IsEmpty() {
				continue
			}
			if err := tile.CheckShape(); err != nil {
				res.FetchErrors = append(res.FetchErrors, AssetError{Asset: asset, Err: err})
				continue
			}
			if refTile != nil && (tile.Width != refTile.Width || tile.Height != refTile.Height || len(tile.Bands) != len(refTile.Bands)) {
				res.FetchErrors = append(res.FetchErrors,
					AssetError{Asset: asset, Err: fmt.Errorf("tile shape %dx%dx%d differs from %dx%dx%d",
						tile.Width, tile.Height, len(tile.Bands), refTile.Width, refTile.Height, len(refTile.Bands))})
				continue
			}

			if err := feedSelector(sel, tile); err != nil {
				return nil, err
			}
			if refTile == nil {
				refTile = tile
			}
			res.AssetsUsed = append(res.AssetsUsed, asset)
		}

		done, err := selectorDone(sel)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}

		select {
		case <-mr.Context.Done():
			return nil, mr.Context.Err()
		default:
		}
	}

	mosaic, err := selectorResult(sel)
	if err != nil {
		return nil, err
	}
	res.Mosaic = mosaic
	return res, nil
}

// The selector calls below convert a panic inside a selector
// implementation into an error. A panicking policy is a programming
// defect, fatal for the single mosaic operation but not for the process
// hosting it.

func makeSelector(newSelector func() PixelSelector) (sel PixelSelector, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pixel selector factory error: %v", r)
		}
	}()
	sel = newSelector()
	if sel == nil {
		err = fmt.Errorf("pixel selector factory returned nil")
	}
	return
}

func feedSelector(sel PixelSelector, tile *ImageTile) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pixel selector error on feed: %v", r)
		}
	}()
	sel.Feed(tile)
	return
}

func selectorDone(sel PixelSelector) (done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pixel selector error on completion check: %v", r)
		}
	}()
	done = sel.IsDone()
	return
}

func selectorResult(sel PixelSelector) (tile *ImageTile, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pixel selector error on result: %v", r)
		}
	}()
	tile = sel.Result()
	return
}
