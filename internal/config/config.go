// Package config loads application settings from defaults, an optional YAML
// file and IMAGES_TO_PDF_* environment variables, in that order.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"images_to_pdf/internal/converter"
	"images_to_pdf/internal/ingest"
)

const envPrefix = "IMAGES_TO_PDF_"

// Config holds everything the CLI and the workspace server need.
type Config struct {
	Options         converter.Options      `yaml:"options"`
	FormatPolicy    converter.FormatPolicy `yaml:"-"` // see policyOverride
	Workers         int                    `yaml:"workers"`
	MaxCanvasPixels int64                  `yaml:"max_canvas_pixels"`
	OutputFilename  string                 `yaml:"output_filename"`
	VerifyOutput    bool                   `yaml:"verify_output"`
	LogLevel        string                 `yaml:"log_level"`
	Server          ServerConfig           `yaml:"server"`
}

// ServerConfig configures the workspace HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// NewDefaultConfig creates a new Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Options:         converter.NewDefaultOptions(),
		FormatPolicy:    converter.DefaultFormatPolicy(),
		Workers:         runtime.NumCPU(),
		MaxCanvasPixels: converter.DefaultMaxCanvasPixels,
		OutputFilename:  converter.DefaultOutputFilename,
		VerifyOutput:    true,
		LogLevel:        "info",
		Server:          ServerConfig{Addr: "127.0.0.1:8787"},
	}
}

// Load reads defaults, then path (if not empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not parse config file %s: %w", path, err)
		}
		var file struct {
			FormatPolicy *policyOverride `yaml:"format_policy"`
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("could not parse format_policy in %s: %w", path, err)
		}
		file.FormatPolicy.apply(&cfg.FormatPolicy)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// policyOverride is the format_policy section of a config file. Every key
// that is present replaces the default rule set as a whole, so an empty map
// removes all default substitutions of that kind.
type policyOverride struct {
	Lossless            map[string]string `yaml:"lossless"`
	QualityFallback     map[string]string `yaml:"quality_fallback"`
	LossyTarget         *string           `yaml:"lossy_target"`
	ForceLossyOnQuality *bool             `yaml:"force_lossy_on_quality"`
	Encodable           []string          `yaml:"encodable"`
}

func (o *policyOverride) apply(p *converter.FormatPolicy) {
	if o == nil {
		return
	}
	if o.Lossless != nil {
		p.Lossless = o.Lossless
	}
	if o.QualityFallback != nil {
		p.QualityFallback = o.QualityFallback
	}
	if o.LossyTarget != nil {
		p.LossyTarget = *o.LossyTarget
	}
	if o.ForceLossyOnQuality != nil {
		p.ForceLossyOnQuality = *o.ForceLossyOnQuality
	}
	if o.Encodable != nil {
		p.Encodable = o.Encodable
	}
}

// Validate normalises the conversion options and rejects unusable values.
func (c *Config) Validate() error {
	opts, err := c.Options.Normalize()
	if err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	c.Options = opts
	if c.Workers <= 0 {
		slog.Warn("Invalid workers in config, using default", "provided", c.Workers)
		c.Workers = runtime.NumCPU()
	}
	if c.MaxCanvasPixels <= 0 {
		c.MaxCanvasPixels = converter.DefaultMaxCanvasPixels
	}
	if c.OutputFilename == "" {
		c.OutputFilename = converter.DefaultOutputFilename
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// applyEnv overrides fields from IMAGES_TO_PDF_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := get("PAGE_SIZE"); ok {
		c.Options.PageSize = converter.PageSize(v)
	}
	if v, ok := get("ORIENTATION"); ok {
		c.Options.Orientation = converter.Orientation(v)
	}
	if v, ok := get("QUALITY"); ok {
		q, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sQUALITY %q: %w", envPrefix, v, err)
		}
		c.Options.QualityPercent = q
	}
	if v, ok := get("AUTO_OPTIMIZE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sAUTO_OPTIMIZE %q: %w", envPrefix, v, err)
		}
		c.Options.AutoOptimize = b
	}
	if v, ok := get("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sWORKERS %q: %w", envPrefix, v, err)
		}
		c.Workers = n
	}
	if v, ok := get("ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	return nil
}

// ParseLevel maps debug|info|warn|error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewTransformer builds the transform pipeline described by the config.
func (c *Config) NewTransformer() *converter.Transformer {
	return converter.NewTransformer(converter.NewRasterCanvas(c.MaxCanvasPixels), c.FormatPolicy)
}

// NewAssembler builds the document assembler over t.
func (c *Config) NewAssembler(t *converter.Transformer) *converter.Assembler {
	a := converter.NewAssembler(t)
	a.Verify = c.VerifyOutput
	return a
}

// NewIngester builds the file reader pool.
func (c *Config) NewIngester() *ingest.Ingester {
	return ingest.New(c.Workers)
}
