// Package config handles platform configuration.
//
// Values are layered: built-in defaults, then an optional YAML file named by
// CODEFINDER_CONFIG, then an optional .env file, then the process
// environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "github.com/GriffinCanCode/codefinder/backend/platform/internal/errors"
	"github.com/GriffinCanCode/codefinder/backend/platform/internal/transform"
)

// Environment variables naming the config sources.
const (
	ConfigFileEnv   = "CODEFINDER_CONFIG"
	EnvFileEnv      = "CODEFINDER_ENV_FILE"
	DefaultEnvFile  = ".env"
	maxMatchesLimit = 5
)

type Config struct {
	LogLevel    string            `yaml:"log_level"`
	Server      ServerConfig      `yaml:"server"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Transform   TransformConfig   `yaml:"transform"`
	Source      SourceConfig      `yaml:"source"`
}

type ServerConfig struct {
	HTTPAddr       string   `yaml:"http_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type RecognitionConfig struct {
	Addr       string   `yaml:"addr"`        // where the platform reaches the recognizer
	ListenAddr string   `yaml:"listen_addr"` // where the recognizer binary listens
	Languages  []string `yaml:"languages"`
	WaitReady  bool     `yaml:"wait_ready"`
}

type PipelineConfig struct {
	FrameCooldown        time.Duration `yaml:"frame_cooldown"`
	MaxFrameSkip         int           `yaml:"max_frame_skip"`
	MaxMatches           int           `yaml:"max_matches"`
	PaddingRatio         float64       `yaml:"padding_ratio"`
	SimilarFrameDistance int           `yaml:"similar_frame_distance"` // negative disables
}

type TransformConfig struct {
	Orientation          string  `yaml:"orientation"` // rotate90, rotate270 or none
	ReferenceAspectRatio float64 `yaml:"reference_aspect_ratio"`
}

type SourceConfig struct {
	Screen      bool    `yaml:"screen"`
	Display     int     `yaml:"display"`
	CaptureRate float64 `yaml:"capture_rate"` // Hz
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			HTTPAddr:       ":8000",
			AllowedOrigins: []string{"*"},
		},
		Recognition: RecognitionConfig{
			Addr:       "localhost:50051",
			ListenAddr: ":50051",
			Languages:  []string{"eng"},
			WaitReady:  true,
		},
		Pipeline: PipelineConfig{
			FrameCooldown:        150 * time.Millisecond,
			MaxFrameSkip:         10,
			MaxMatches:           maxMatchesLimit,
			PaddingRatio:         0.01,
			SimilarFrameDistance: -1,
		},
		Transform: TransformConfig{
			Orientation:          "rotate90",
			ReferenceAspectRatio: 0.5625,
		},
		Source: SourceConfig{
			Screen:      false,
			Display:     0,
			CaptureRate: 15,
		},
	}
}

// Load builds the configuration from all sources and validates it.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "read config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "parse config file %s", path)
		}
	}

	e, err := newEnv(getEnv(EnvFileEnv, DefaultEnvFile))
	if err != nil {
		return nil, err
	}
	e.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return apperrors.Newf(apperrors.CodeConfigInvalid, format, args...).WithMetadata("field", field)
	}

	p := c.Pipeline
	switch {
	case c.Server.HTTPAddr == "":
		return invalid("server.http_addr", "http address is required")
	case p.FrameCooldown < 0:
		return invalid("pipeline.frame_cooldown", "frame cooldown must not be negative, got %s", p.FrameCooldown)
	case p.MaxFrameSkip < 0:
		return invalid("pipeline.max_frame_skip", "max frame skip must not be negative, got %d", p.MaxFrameSkip)
	case p.MaxMatches < 1 || p.MaxMatches > maxMatchesLimit:
		return invalid("pipeline.max_matches", "max matches must be within 1..%d, got %d", maxMatchesLimit, p.MaxMatches)
	case p.PaddingRatio < 0 || p.PaddingRatio >= 1:
		return invalid("pipeline.padding_ratio", "padding ratio must be within [0,1), got %g", p.PaddingRatio)
	case c.Transform.ReferenceAspectRatio <= 0:
		return invalid("transform.reference_aspect_ratio", "reference aspect ratio must be positive, got %g", c.Transform.ReferenceAspectRatio)
	case c.Source.CaptureRate <= 0:
		return invalid("source.capture_rate", "capture rate must be positive, got %g", c.Source.CaptureRate)
	case len(c.Recognition.Languages) == 0:
		return invalid("recognition.languages", "at least one recognition language is required")
	}

	if _, err := transform.ParseOrientation(c.Transform.Orientation); err != nil {
		return invalid("transform.orientation", "unknown sensor orientation %q", c.Transform.Orientation)
	}
	return nil
}

// env resolves variables from the process environment, falling back to
// values read from a .env file.
type env struct {
	dotenv map[string]string
}

func newEnv(path string) (env, error) {
	if _, err := os.Stat(path); err != nil {
		return env{}, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return env{}, apperrors.Wrapf(err, apperrors.CodeConfigInvalid, "read env file %s", path)
	}
	return env{dotenv: values}, nil
}

func (e env) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return e.dotenv[key]
}

func (e env) apply(c *Config) {
	c.LogLevel = e.getEnv("LOG_LEVEL", c.LogLevel)

	c.Server.HTTPAddr = e.getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.AllowedOrigins = e.getEnvList("ALLOWED_ORIGINS", c.Server.AllowedOrigins)

	c.Recognition.Addr = e.getEnv("RECOGNIZER_ADDR", c.Recognition.Addr)
	c.Recognition.ListenAddr = e.getEnv("RECOGNIZER_LISTEN_ADDR", c.Recognition.ListenAddr)
	c.Recognition.Languages = e.getEnvList("OCR_LANGUAGES", c.Recognition.Languages)
	c.Recognition.WaitReady = e.getEnvBool("RECOGNIZER_WAIT_READY", c.Recognition.WaitReady)

	c.Pipeline.FrameCooldown = e.getEnvDuration("FRAME_COOLDOWN", c.Pipeline.FrameCooldown)
	c.Pipeline.MaxFrameSkip = e.getEnvInt("MAX_FRAME_SKIP", c.Pipeline.MaxFrameSkip)
	c.Pipeline.MaxMatches = e.getEnvInt("MAX_MATCHES", c.Pipeline.MaxMatches)
	c.Pipeline.PaddingRatio = e.getEnvFloat("PADDING_RATIO", c.Pipeline.PaddingRatio)
	c.Pipeline.SimilarFrameDistance = e.getEnvInt("SIMILAR_FRAME_DISTANCE", c.Pipeline.SimilarFrameDistance)

	c.Transform.Orientation = e.getEnv("SENSOR_ORIENTATION", c.Transform.Orientation)
	c.Transform.ReferenceAspectRatio = e.getEnvFloat("REFERENCE_ASPECT_RATIO", c.Transform.ReferenceAspectRatio)

	c.Source.Screen = e.getEnvBool("SCREEN_CAPTURE", c.Source.Screen)
	c.Source.Display = e.getEnvInt("SCREEN_DISPLAY", c.Source.Display)
	c.Source.CaptureRate = e.getEnvFloat("SCREEN_CAPTURE_RATE", c.Source.CaptureRate)
}

func getEnv(key, def string) string {
	return env{}.getEnv(key, def)
}

func (e env) getEnv(key, def string) string {
	if v := e.lookup(key); v != "" {
		return v
	}
	return def
}

func (e env) getEnvInt(key string, def int) int {
	if v := e.lookup(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (e env) getEnvFloat(key string, def float64) float64 {
	if v := e.lookup(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func (e env) getEnvBool(key string, def bool) bool {
	if v := e.lookup(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

// getEnvDuration accepts Go duration strings or a bare number of milliseconds.
func (e env) getEnvDuration(key string, def time.Duration) time.Duration {
	v := e.lookup(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func (e env) getEnvList(key string, def []string) []string {
	if v := e.lookup(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
