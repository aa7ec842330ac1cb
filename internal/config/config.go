// Package config holds the tunable parameters of the connectivity pipeline.
//
// Values come from three layers, later ones winning: built-in defaults, an
// optional YAML file, and PNID_* environment variables. A .env file in the
// working directory is read into the environment first when present.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/pnid-topology/internal/annotate"
	"github.com/ironsheep/pnid-topology/internal/imaging"
	"github.com/ironsheep/pnid-topology/internal/route"
	"github.com/ironsheep/pnid-topology/internal/skeleton"
)

// Config is the full set of pipeline parameters.
type Config struct {
	EdgeLowThreshold  int     `yaml:"edge_low_threshold"`
	EdgeHighThreshold int     `yaml:"edge_high_threshold"`
	BlurRadius        float64 `yaml:"blur_radius"`
	CloseRadius       float64 `yaml:"close_radius"`

	SnapTolerance float64 `yaml:"snap_tolerance"`

	MaxPathLength float64 `yaml:"max_path_length"`
	MinPathLength float64 `yaml:"min_path_length"`
	Workers       int     `yaml:"workers"`

	LabelProximity float64 `yaml:"label_proximity"`
	LabelSeparator string  `yaml:"label_separator"`
	MaxLabelTexts  int     `yaml:"max_label_texts"`

	// MaxImageDimension downsizes larger drawings before edge detection.
	// Zero keeps the original size.
	MaxImageDimension int `yaml:"max_image_dimension"`
	ImageCacheSize    int `yaml:"image_cache_size"`

	OCRLanguage      string  `yaml:"ocr_language"`
	OCRMinConfidence float64 `yaml:"ocr_min_confidence"`

	HTTPAddr string `yaml:"http_addr"`

	// LogLevel "debug" enables per-stage timing logs.
	LogLevel string `yaml:"log_level"`
}

// Default returns the reference parameter values.
func Default() Config {
	edge := imaging.DefaultEdgeOptions()
	rt := route.DefaultOptions()
	ann := annotate.DefaultOptions()
	return Config{
		EdgeLowThreshold:  edge.LowThreshold,
		EdgeHighThreshold: edge.HighThreshold,
		BlurRadius:        edge.BlurRadius,
		CloseRadius:       0,
		SnapTolerance:     80,
		MaxPathLength:     rt.MaxPathLength,
		MinPathLength:     rt.MinPathLength,
		Workers:           0,
		LabelProximity:    ann.Proximity,
		LabelSeparator:    ann.Separator,
		MaxLabelTexts:     ann.MaxTexts,
		MaxImageDimension: 0,
		ImageCacheSize:    16,
		OCRLanguage:       "eng",
		OCRMinConfidence:  0.3,
		HTTPAddr:          ":8081",
		LogLevel:          "info",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to open config: %w", err)
		}
		defer f.Close()
		if err := cfg.decode(f); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse overlays YAML data on the defaults without consulting the
// environment.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := cfg.decode(bytes.NewReader(data)); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type envVar struct {
	name string
	set  func(string) error
}

func (c *Config) envVars() []envVar {
	return []envVar{
		{"PNID_EDGE_LOW_THRESHOLD", intSetter(&c.EdgeLowThreshold)},
		{"PNID_EDGE_HIGH_THRESHOLD", intSetter(&c.EdgeHighThreshold)},
		{"PNID_BLUR_RADIUS", floatSetter(&c.BlurRadius)},
		{"PNID_CLOSE_RADIUS", floatSetter(&c.CloseRadius)},
		{"PNID_SNAP_TOLERANCE", floatSetter(&c.SnapTolerance)},
		{"PNID_MAX_PATH_LENGTH", floatSetter(&c.MaxPathLength)},
		{"PNID_MIN_PATH_LENGTH", floatSetter(&c.MinPathLength)},
		{"PNID_WORKERS", intSetter(&c.Workers)},
		{"PNID_LABEL_PROXIMITY", floatSetter(&c.LabelProximity)},
		{"PNID_LABEL_SEPARATOR", stringSetter(&c.LabelSeparator)},
		{"PNID_MAX_LABEL_TEXTS", intSetter(&c.MaxLabelTexts)},
		{"PNID_MAX_IMAGE_DIMENSION", intSetter(&c.MaxImageDimension)},
		{"PNID_IMAGE_CACHE_SIZE", intSetter(&c.ImageCacheSize)},
		{"PNID_OCR_LANGUAGE", stringSetter(&c.OCRLanguage)},
		{"PNID_OCR_MIN_CONFIDENCE", floatSetter(&c.OCRMinConfidence)},
		{"PNID_HTTP_ADDR", stringSetter(&c.HTTPAddr)},
		{"PNID_LOG_LEVEL", stringSetter(&c.LogLevel)},
	}
}

// applyEnv overrides fields from non-empty variables returned by getenv.
func (c *Config) applyEnv(getenv func(string) string) error {
	for _, v := range c.envVars() {
		raw := getenv(v.name)
		if raw == "" {
			continue
		}
		if err := v.set(raw); err != nil {
			return fmt.Errorf("invalid %s=%q: %w", v.name, raw, err)
		}
	}
	return nil
}

func floatSetter(dst *float64) func(string) error {
	return func(s string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func intSetter(dst *int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

// stringSetter keeps surrounding spaces so separators like " / " survive.
func stringSetter(dst *string) func(string) error {
	return func(s string) error {
		*dst = s
		return nil
	}
}

// Validate checks every parameter and reports the first invalid one.
func (c Config) Validate() error {
	if err := c.EdgeOptions().Validate(); err != nil {
		return err
	}
	if c.CloseRadius < 0 {
		return fmt.Errorf("close_radius must be >= 0, got %g", c.CloseRadius)
	}
	if !(c.SnapTolerance >= 0) || math.IsInf(c.SnapTolerance, 0) {
		return fmt.Errorf("snap_tolerance must be a finite value >= 0, got %g", c.SnapTolerance)
	}
	if err := c.RouteOptions().Validate(); err != nil {
		return err
	}
	if c.LabelProximity < 0 {
		return fmt.Errorf("label_proximity must be >= 0, got %g", c.LabelProximity)
	}
	if c.MaxLabelTexts < 1 {
		return fmt.Errorf("max_label_texts must be >= 1, got %d", c.MaxLabelTexts)
	}
	if c.MaxImageDimension < 0 {
		return fmt.Errorf("max_image_dimension must be >= 0, got %d", c.MaxImageDimension)
	}
	if c.ImageCacheSize < 1 {
		return fmt.Errorf("image_cache_size must be >= 1, got %d", c.ImageCacheSize)
	}
	if c.OCRMinConfidence < 0 || c.OCRMinConfidence > 1 {
		return fmt.Errorf("ocr_min_confidence must be in [0,1], got %g", c.OCRMinConfidence)
	}
	switch c.LogLevel {
	case "debug", "info", "":
	default:
		return fmt.Errorf("log_level must be debug or info, got %q", c.LogLevel)
	}
	return nil
}

// Debug reports whether debug logging is enabled.
func (c Config) Debug() bool {
	return c.LogLevel == "debug"
}

// EdgeOptions returns the edge map builder parameters.
func (c Config) EdgeOptions() imaging.EdgeOptions {
	return imaging.EdgeOptions{
		LowThreshold:  c.EdgeLowThreshold,
		HighThreshold: c.EdgeHighThreshold,
		BlurRadius:    c.BlurRadius,
	}
}

// SkeletonOptions returns the skeletonizer parameters.
func (c Config) SkeletonOptions() skeleton.Options {
	return skeleton.Options{CloseRadius: c.CloseRadius}
}

// RouteOptions returns the path resolver parameters.
func (c Config) RouteOptions() route.Options {
	return route.Options{
		MaxPathLength: c.MaxPathLength,
		MinPathLength: c.MinPathLength,
		Workers:       c.Workers,
	}
}

// AnnotateOptions returns the label annotator parameters.
func (c Config) AnnotateOptions() annotate.Options {
	return annotate.Options{
		Proximity: c.LabelProximity,
		Separator: c.LabelSeparator,
		MaxTexts:  c.MaxLabelTexts,
	}
}
