package mosaic

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/context"
)

// tileResponse is the wire format of the tile source service. The service
// decodes and reprojects one asset for one tile cell; this process only
// consumes the result.
type tileResponse struct {
	Status string      `json:"status"`
	Error  string      `json:"error"`
	Bands  [][]float64 `json:"bands"`
	Mask   []bool      `json:"mask"`
	CRS    string      `json:"crs"`
	BBox   []float64   `json:"bbox"`
	NoData float64     `json:"no_data"`
}

const (
	tileStatusOK            = "ok"
	tileStatusOutsideBounds = "outside_bounds"
)

// HTTPTileFetcher fetches asset tiles from a remote tile source over
// HTTP+JSON. A fetcher is built per mosaic request with the tile cell and
// grid shape baked in, so FetchTile only varies in the asset identifier.
type HTTPTileFetcher struct {
	Endpoint string
	Z, X, Y  int
	TileSize int
	Client   *http.Client
	Verbose  bool
}

func NewHTTPTileFetcher(endpoint string, z, x, y, tileSize int) *HTTPTileFetcher {
	return &HTTPTileFetcher{
		Endpoint: endpoint,
		Z:        z,
		X:        x,
		Y:        y,
		TileSize: tileSize,
		Client:   http.DefaultClient,
	}
}

func (f *HTTPTileFetcher) FetchTile(ctx context.Context, asset string) (*ImageTile, error) {
	reqURL := fmt.Sprintf("%s?asset=%s&z=%d&x=%d&y=%d&size=%d",
		strings.TrimRight(f.Endpoint, "/"), url.QueryEscape(asset), f.Z, f.X, f.Y, f.TileSize)

	req, err := http.NewRequest("GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("tile request to %s failed: %v", reqURL, err)
	}
	req = req.WithContext(ctx)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tile request to %s failed: %v", reqURL, err)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading tile response from %s: %v", reqURL, err)
	}

	if resp.StatusCode == 404 {
		return nil, ErrOutsideBounds
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("tile source returned status %d for asset %s", resp.StatusCode, asset)
	}

	var tr tileResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("error parsing tile response for asset %s: %v", asset, err)
	}

	switch tr.Status {
	case tileStatusOutsideBounds:
		return nil, ErrOutsideBounds
	case tileStatusOK:
	default:
		if len(tr.Error) > 0 {
			return nil, fmt.Errorf("tile source error for asset %s: %s", asset, tr.Error)
		}
		return nil, fmt.Errorf("tile source returned unknown status '%s' for asset %s", tr.Status, asset)
	}

	tile := &ImageTile{
		Bands:  tr.Bands,
		Mask:   tr.Mask,
		Width:  f.TileSize,
		Height: f.TileSize,
		CRS:    tr.CRS,
		BBox:   tr.BBox,
		NoData: tr.NoData,
	}
	if err := tile.CheckShape(); err != nil {
		return nil, fmt.Errorf("malformed tile for asset %s: %v", asset, err)
	}
	return tile, nil
}
