package utils

import (
	"encoding/json"
	"fmt"
	"image/color"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gopkg.in/yaml.v2"
)

var EtcDir = "."
var DataDir = "."

// string used to format Go ISO times
const ISOFormat = "2006-01-02T15:04:05.000Z"

const DefaultTileSize = 256
const DefaultMaxConcurrency = 4
const DefaultFetchTimeoutSecs = 30

// ServiceConfig carries the addresses this server depends on: the asset
// index API and the tile source rendering individual asset tiles.
type ServiceConfig struct {
	ServiceHostname string `json:"service_hostname" yaml:"service_hostname"`
	IndexAddress    string `json:"index_address" yaml:"index_address"`
	TileSource      string `json:"tile_source" yaml:"tile_source"`
	TempDir         string `json:"temp_dir" yaml:"temp_dir"`
}

type Palette struct {
	Interpolate bool         `json:"interpolate" yaml:"interpolate"`
	Colours     []color.RGBA `json:"colours" yaml:"colours"`
}

// Layer contains all the details a mosaic layer needs to be published and
// rendered: where its assets are indexed, how many bands a tile carries,
// the pixel selection policy combining overlapping assets, and how the
// composite is scaled and coloured.
type Layer struct {
	NameSpace      string   `json:"-" yaml:"-"`
	Name           string   `json:"name" yaml:"name"`
	Title          string   `json:"title" yaml:"title"`
	Abstract       string   `json:"abstract" yaml:"abstract"`
	Collection     string   `json:"collection" yaml:"collection"`
	Bands          []string `json:"bands" yaml:"bands"`
	PixelSelection string   `json:"pixel_selection" yaml:"pixel_selection"`
	DecisionBand   int      `json:"decision_band" yaml:"decision_band"`
	BandExpression string   `json:"band_expression" yaml:"band_expression"`
	NoData         float64  `json:"nodata" yaml:"nodata"`
	OffsetValue    float64  `json:"offset_value" yaml:"offset_value"`
	ScaleValue     float64  `json:"scale_value" yaml:"scale_value"`
	ClipValue      float64  `json:"clip_value" yaml:"clip_value"`
	Palette        *Palette `json:"palette" yaml:"palette"`
	TileSize       int      `json:"tile_size" yaml:"tile_size"`
	MaxConcurrency int      `json:"max_concurrency" yaml:"max_concurrency"`
	FetchTimeout   int      `json:"fetch_timeout" yaml:"fetch_timeout"`
	MaxZoom        int      `json:"max_zoom" yaml:"max_zoom"`
}

// Config is the struct representing the configuration of a mosaic server.
// It contains information about the asset index API as well as the list
// of mosaic layers that can be served.
type Config struct {
	ServiceConfig ServiceConfig `json:"service_config" yaml:"service_config"`
	Layers        []Layer       `json:"layers" yaml:"layers"`
}

// LoadConfigFile unmarshalls a config document, JSON or YAML by file
// extension, returning an instance of a Config variable containing all
// the values.
func (config *Config) LoadConfigFile(configFile string) error {
	*config = Config{}
	cfg, err := ioutil.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("Error while reading config file: %s. Error: %v", configFile, err)
	}

	ext := strings.ToLower(filepath.Ext(configFile))
	if ext == ".yaml" || ext == ".yml" {
		err = yaml.Unmarshal(cfg, config)
	} else {
		err = json.Unmarshal(cfg, config)
	}
	if err != nil {
		return fmt.Errorf("Error at parsing config document: %s. Error: %v", configFile, err)
	}

	for i, layer := range config.Layers {
		if len(layer.Bands) == 0 {
			return fmt.Errorf("layer %s does not declare any band", layer.Name)
		}
		if len(config.Layers[i].PixelSelection) == 0 {
			config.Layers[i].PixelSelection = "first"
		}
		if config.Layers[i].DecisionBand < 0 || config.Layers[i].DecisionBand > len(layer.Bands) {
			return fmt.Errorf("layer %s decision_band out of range, bands are numbered 1..%d", layer.Name, len(layer.Bands))
		}
		if config.Layers[i].TileSize <= 0 {
			config.Layers[i].TileSize = DefaultTileSize
		}
		if config.Layers[i].MaxConcurrency <= 0 {
			config.Layers[i].MaxConcurrency = DefaultMaxConcurrency
		}
		if config.Layers[i].FetchTimeout <= 0 {
			config.Layers[i].FetchTimeout = DefaultFetchTimeoutSecs
		}
		if config.Layers[i].MaxZoom <= 0 {
			config.Layers[i].MaxZoom = 24
		}

		if layer.Palette != nil && layer.Palette.Colours != nil && len(layer.Palette.Colours) < 2 {
			return fmt.Errorf("The colour palette must contain at least 2 colours.")
		}
	}
	return nil
}

// LoadAllConfigFiles walks rootDir picking up every config.json or
// config.yaml, namespacing layers by the relative directory of their
// config document.
func LoadAllConfigFiles(rootDir string) (map[string]*Config, error) {
	configMap := make(map[string]*Config)
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		name := info.Name()
		if !info.IsDir() && (name == "config.json" || name == "config.yaml" || name == "config.yml") {
			relPath, _ := filepath.Rel(rootDir, filepath.Dir(path))
			log.Printf("Loading config file: %s under namespace: %s\n", path, relPath)

			config := &Config{}
			e := config.LoadConfigFile(path)
			if e != nil {
				return e
			}

			configMap[relPath] = config

			for i := range config.Layers {
				ns := relPath
				if relPath == "." {
					ns = ""
				}
				config.Layers[i].NameSpace = ns
			}
		}
		return nil
	})

	if err == nil && len(configMap) == 0 {
		err = fmt.Errorf("No config file found")
	}

	return configMap, err
}

// WatchConfig catches SIGHUP to automatically reload the config files.
func WatchConfig(infoLog, errLog *log.Logger, configMap *map[string]*Config) {
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for {
			<-sighup
			infoLog.Println("Caught SIGHUP, reloading config...")
			confMap, err := LoadAllConfigFiles(EtcDir)
			if err != nil {
				errLog.Printf("Error in loading config files: %v\n", err)
				return
			}

			for k := range *configMap {
				delete(*configMap, k)
			}

			for k := range confMap {
				(*configMap)[k] = confMap[k]
			}
		}
	}()
}
