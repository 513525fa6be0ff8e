package mosaic

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	geo "github.com/nci/geometry"
	"golang.org/x/net/context"
)

// IndexedAsset is one entry of the asset index response: an asset known to
// intersect the requested tile cell, in the ranking order produced by the
// index API.
type IndexedAsset struct {
	ID        string          `json:"id"`
	TimeStamp time.Time       `json:"timestamp"`
	Footprint json.RawMessage `json:"footprint"`
}

type indexResponse struct {
	Error  string         `json:"error"`
	Assets []IndexedAsset `json:"assets"`
}

// BBox2WKT formats a bbox (xMin, yMin, xMax, yMax) as a WKT polygon for
// the index API intersection query.
func BBox2WKT(bbox []float64) string {
	return fmt.Sprintf("POLYGON ((%f %f, %f %f, %f %f, %f %f, %f %f))",
		bbox[0], bbox[1], bbox[2], bbox[1], bbox[2], bbox[3], bbox[0], bbox[3], bbox[0], bbox[1])
}

// QueryAssetIndex asks the index API for the assets of a collection whose
// footprints intersect the given tile bbox. The returned sequence keeps
// the index ranking, which is the feed order of the mosaic operation.
// Assets with unparseable footprints are dropped with a log entry rather
// than failing the request.
func QueryAssetIndex(ctx context.Context, apiAddress, collection string, bbox []float64, crs string, verbose bool) ([]IndexedAsset, error) {
	reqURL := fmt.Sprintf("http://%s%s?intersects&srs=%s", apiAddress, collection, url.QueryEscape(crs))
	postBody := url.Values{"wkt": {BBox2WKT(bbox)}}
	if verbose {
		log.Printf("index_url:%s\tpost_body:%v", reqURL, postBody)
	}

	req, err := http.NewRequest("POST", reqURL, strings.NewReader(postBody.Encode()))
	if err != nil {
		return nil, fmt.Errorf("POST request to %s failed. Error: %v", reqURL, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(ctx)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST request to %s failed. Error: %v", reqURL, err)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body from %s. Error: %v", reqURL, err)
	}

	var res indexResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("error parsing response body from %s. Error: %v", reqURL, err)
	}
	if len(res.Error) > 0 {
		return nil, fmt.Errorf("index API error: %s", res.Error)
	}

	assets := make([]IndexedAsset, 0, len(res.Assets))
	for _, asset := range res.Assets {
		if len(asset.Footprint) > 0 {
			var feat geo.Feature
			if err := json.Unmarshal(asset.Footprint, &feat); err != nil {
				log.Printf("indexer: dropping asset %s, bad GeoJSON footprint: %v", asset.ID, err)
				continue
			}
			if verbose {
				log.Printf("indexer: asset %s footprint %s", asset.ID, feat.Geometry.MarshalWKT())
			}
		}
		assets = append(assets, asset)
	}
	return assets, nil
}
