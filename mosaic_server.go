package main

/* mosaic_server is a web server assembling map tiles from collections of
   partially overlapping source rasters. For a requested XYZ tile cell it
   asks the asset index API which assets intersect the cell, fetches the
   per-asset tiles from the tile source service with bounded concurrency,
   composites them under the layer's pixel selection policy and serves the
   result as PNG. Layers, palettes and selection policies are specified in
   config.json (or config.yaml) documents under the config directory. */

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/edisonguo/jet"
	reuseport "github.com/kavu/go_reuseport"

	"github.com/nci/gmosaic/metrics"
	"github.com/nci/gmosaic/mosaic"
	"github.com/nci/gmosaic/utils"
)

// Global variable to hold the values specified
// on the config.json documents.
var configMap map[string]*utils.Config

var (
	port            = flag.Int("p", 8080, "Server listening port.")
	serverConfigDir = flag.String("conf_dir", utils.EtcDir, "Server config directory.")
	serverLogDir    = flag.String("log_dir", "", "Server log directory.")
	serverTmplDir   = flag.String("template_dir", "templates", "Server template directory.")
	validateConfig  = flag.Bool("check_conf", false, "Validate server config files.")
	verbose         = flag.Bool("v", false, "Verbose mode for more server outputs.")
)

var (
	Error *log.Logger
	Info  *log.Logger
)

var metricsLogger metrics.Logger

var reTilePath = regexp.MustCompile(`^/tiles/([^/]+)/(\d+)/(\d+)/(\d+)\.png$`)

func init() {
	Error = log.New(os.Stderr, "MOSAIC: ", log.Ldate|log.Ltime|log.Lshortfile)
	Info = log.New(os.Stdout, "MOSAIC: ", log.Ldate|log.Ltime|log.Lshortfile)
}

var (
	bandExprMu    sync.Mutex
	bandExprCache = make(map[string]*mosaic.BandExpression)
)

// compiledBandExpression compiles a layer band expression once and reuses
// it across requests. Config validation warms the cache, so a request for
// a validated layer never pays the parse again.
func compiledBandExpression(expression string, bands int) (*mosaic.BandExpression, error) {
	key := fmt.Sprintf("%d|%s", bands, expression)
	bandExprMu.Lock()
	defer bandExprMu.Unlock()
	if expr, ok := bandExprCache[key]; ok {
		return expr, nil
	}
	expr, err := mosaic.ParseBandExpression(expression, bands)
	if err != nil {
		return nil, err
	}
	bandExprCache[key] = expr
	return expr, nil
}

// renderedBands returns the number of bands a layer's composite carries
// after the post-selection steps: a band expression collapses the tile to
// one derived band, and the count policy emits a single diagnostic band.
func renderedBands(layer *utils.Layer) int {
	if len(layer.BandExpression) > 0 || layer.PixelSelection == mosaic.SelectorCount {
		return 1
	}
	return len(layer.Bands)
}

// validateLayers fails fast on selector policies, band expressions and
// band shapes that would otherwise only surface as per-request errors.
func validateLayers(confMap map[string]*utils.Config) error {
	for ns, config := range confMap {
		for i := range config.Layers {
			layer := &config.Layers[i]
			if !mosaic.ValidSelector(layer.PixelSelection) {
				return fmt.Errorf("namespace %s layer %s: unknown pixel_selection '%s'", ns, layer.Name, layer.PixelSelection)
			}
			if len(layer.BandExpression) > 0 {
				if _, err := compiledBandExpression(layer.BandExpression, len(layer.Bands)); err != nil {
					return fmt.Errorf("namespace %s layer %s: %v", ns, layer.Name, err)
				}
			}
			if n := renderedBands(layer); n != 1 && n != 3 {
				return fmt.Errorf("namespace %s layer %s: %d bands cannot be encoded, declare 1 or 3 bands or a band_expression", ns, layer.Name, n)
			}
		}
	}
	return nil
}

func findLayer(name string) (*utils.Layer, *utils.Config) {
	for _, config := range configMap {
		for i := range config.Layers {
			layer := &config.Layers[i]
			layerName := layer.Name
			if len(layer.NameSpace) > 0 {
				layerName = layer.NameSpace + ":" + layer.Name
			}
			if layerName == name {
				return layer, config
			}
		}
	}
	return nil, nil
}

func serveTile(w http.ResponseWriter, r *http.Request) {
	t0 := time.Now()
	collector := metrics.NewMetricsCollector(metricsLogger)
	defer func() {
		collector.Info.ReqTime = t0.Format(utils.ISOFormat)
		collector.Info.ReqDuration = time.Since(t0)
		collector.Info.URL.RawURL = r.URL.String()
		collector.Info.RemoteAddr = r.RemoteAddr
		collector.Log()
	}()

	parts := reTilePath.FindStringSubmatch(r.URL.Path)
	if parts == nil {
		collector.Info.HTTPStatus = 404
		http.NotFound(w, r)
		return
	}

	layer, config := findLayer(parts[1])
	if layer == nil {
		collector.Info.HTTPStatus = 404
		http.Error(w, fmt.Sprintf("layer %s not found", parts[1]), 404)
		return
	}

	z, _ := strconv.Atoi(parts[2])
	x, _ := strconv.Atoi(parts[3])
	y, _ := strconv.Atoi(parts[4])

	if z > layer.MaxZoom {
		collector.Info.HTTPStatus = 400
		http.Error(w, fmt.Sprintf("zoom %d exceeds layer maximum %d", z, layer.MaxZoom), 400)
		return
	}

	tm := utils.WebMercatorTileMatrix()
	tm.TileSize = layer.TileSize
	bbox, err := tm.TileBBox(z, x, y)
	if err != nil {
		collector.Info.HTTPStatus = 400
		http.Error(w, err.Error(), 400)
		return
	}

	ctx := r.Context()

	tIdx := time.Now()
	assets, err := mosaic.QueryAssetIndex(ctx, config.ServiceConfig.IndexAddress, layer.Collection, bbox, tm.CRS, *verbose)
	collector.Info.Indexer.Duration = time.Since(tIdx)
	if err != nil {
		Error.Printf("indexer error for %s: %v", r.URL.Path, err)
		collector.Info.HTTPStatus = 500
		http.Error(w, "asset index unavailable", 500)
		return
	}
	collector.Info.Indexer.NumAssets = len(assets)

	assetIDs := make([]string, len(assets))
	for i, asset := range assets {
		assetIDs[i] = asset.ID
	}

	fetcher := mosaic.NewHTTPTileFetcher(config.ServiceConfig.TileSource, z, x, y, layer.TileSize)
	reader := mosaic.NewMosaicReader(ctx, fetcher, layer.MaxConcurrency)
	reader.FetchTimeout = time.Duration(layer.FetchTimeout) * time.Second
	reader.Verbose = *verbose

	nBands := len(layer.Bands)
	decisionBand := layer.DecisionBand - 1
	newSelector := func() mosaic.PixelSelector {
		sel, _ := mosaic.NewPixelSelector(layer.PixelSelection, layer.TileSize, layer.TileSize, nBands, layer.NoData, decisionBand)
		return sel
	}

	tFetch := time.Now()
	res, err := reader.Composite(assetIDs, newSelector)
	if err != nil {
		Error.Printf("compositing error for %s: %v", r.URL.Path, err)
		collector.Info.HTTPStatus = 500
		http.Error(w, "compositing failed", 500)
		return
	}
	collector.Info.Fetch.Duration = time.Since(tFetch)
	collector.Info.Fetch.NumTiles = len(res.AssetsUsed)
	collector.Info.Fetch.NumErrors = len(res.FetchErrors)
	for _, fe := range res.FetchErrors {
		Error.Printf("asset %s skipped: %v", fe.Asset, fe.Err)
	}

	out := res.Mosaic
	if len(layer.BandExpression) > 0 {
		expr, err := compiledBandExpression(layer.BandExpression, nBands)
		if err == nil {
			out, err = expr.Apply(out)
		}
		if err != nil {
			Error.Printf("band expression error for %s: %v", r.URL.Path, err)
			collector.Info.HTTPStatus = 500
			http.Error(w, "band expression failed", 500)
			return
		}
	}

	collector.Info.Mosaic.Policy = layer.PixelSelection
	collector.Info.Mosaic.NumAssetsUsed = len(res.AssetsUsed)
	collector.Info.Mosaic.PixelCoverage = float64(out.CountValid()) / float64(out.Size())

	scaleParams := utils.ScaleParams{Offset: layer.OffsetValue, Scale: layer.ScaleValue, Clip: layer.ClipValue}
	byteRasters, err := utils.Scale(out.Bands, out.Mask, out.Width, out.Height, scaleParams)
	if err != nil {
		Error.Printf("scaling error for %s: %v", r.URL.Path, err)
		collector.Info.HTTPStatus = 500
		http.Error(w, "scaling failed", 500)
		return
	}

	tileBytes, err := utils.EncodePNG(byteRasters, layer.Palette)
	if err != nil {
		Error.Printf("encoding error for %s: %v", r.URL.Path, err)
		collector.Info.HTTPStatus = 500
		http.Error(w, "encoding failed", 500)
		return
	}

	collector.Info.HTTPStatus = 200
	w.Header().Set("Content-Type", "image/png")
	w.Write(tileBytes)
}

type catalogLayer struct {
	Name     string
	Title    string
	Abstract string
	Policy   string
}

type catalogData struct {
	Layers []catalogLayer
}

func serveCatalog(w http.ResponseWriter, r *http.Request) {
	view := jet.NewSet(jet.SafeWriter(func(wr io.Writer, b []byte) {
		wr.Write(b)
	}), *serverTmplDir, "/")

	template, err := view.GetTemplate("catalog.jet")
	if err != nil {
		Error.Printf("catalog template error: %v", err)
		http.Error(w, "catalog unavailable", 500)
		return
	}

	data := catalogData{}
	for _, config := range configMap {
		for _, layer := range config.Layers {
			name := layer.Name
			if len(layer.NameSpace) > 0 {
				name = layer.NameSpace + ":" + layer.Name
			}
			data.Layers = append(data.Layers, catalogLayer{
				Name:     name,
				Title:    layer.Title,
				Abstract: layer.Abstract,
				Policy:   layer.PixelSelection,
			})
		}
	}

	w.Header().Set("Content-Type", "text/html")
	vars := make(jet.VarMap)
	if err = template.Execute(w, vars, data); err != nil {
		Error.Printf("catalog template execution error: %v", err)
	}
}

func main() {
	flag.Parse()

	utils.EtcDir = *serverConfigDir

	confMap, err := utils.LoadAllConfigFiles(utils.EtcDir)
	if err != nil {
		Error.Printf("Error in loading config files: %v\n", err)
		os.Exit(1)
	}
	configMap = confMap

	if err := validateLayers(configMap); err != nil {
		Error.Printf("Config validation error: %v\n", err)
		os.Exit(1)
	}

	if *validateConfig {
		Info.Printf("Config files validated OK\n")
		os.Exit(0)
	}

	utils.WatchConfig(Info, Error, &configMap)

	if len(*serverLogDir) > 0 {
		metricsLogger = metrics.NewFileLogger(*serverLogDir, 0, 0, *verbose)
	} else {
		metricsLogger = metrics.NewStdoutLogger()
	}

	http.HandleFunc("/tiles/", serveTile)
	http.HandleFunc("/catalog", serveCatalog)

	listener, err := reuseport.Listen("tcp4", fmt.Sprintf(":%d", *port))
	if err != nil {
		Error.Fatalf("listen error: %v", err)
	}
	defer listener.Close()

	Info.Printf("Mosaic server listening on %d\n", *port)
	Error.Fatal(http.Serve(listener, nil))
}
