package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-harmony/algorithms/stats"
	"github.com/RyanBlaney/sonido-harmony/analysis"
	"github.com/RyanBlaney/sonido-harmony/fingerprint"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by LoadEnv
const EnvPrefix = "SONIDO_"

// DefaultMaxBatchSongs caps a single HTTP batch request
const DefaultMaxBatchSongs = 1000

// ErrInvalidConfig is returned when a configuration value is out of range
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration
type Config struct {
	// Processing
	Workers           int     `json:"workers"` // 0 selects NumCPU-1, minimum 2
	ParserCacheSize   int     `json:"parser_cache_size"`
	KeyCacheSize      int     `json:"key_cache_size"`
	CorrelationMethod string  `json:"correlation_method"` // "time" or "frequency"
	FunctionalBlend   float64 `json:"functional_blend"`

	// CSV columns
	ChordsColumn string `json:"chords_column"`
	KeyColumn    string `json:"key_column"` // Optional known-key column
	IDColumn     string `json:"id_column"`

	// Fingerprint comparison
	ComparisonMethod    string  `json:"comparison_method"` // "fast", "precise" or "auto"
	SimilarityThreshold float64 `json:"similarity_threshold"`

	// Surfaces
	LogLevel      string `json:"log_level"`
	HTTPAddr      string `json:"http_addr"`
	MaxBatchSongs int    `json:"max_batch_songs"`
	Progress      bool   `json:"progress"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ParserCacheSize:     100000,
		KeyCacheSize:        10000,
		CorrelationMethod:   "time",
		FunctionalBlend:     0.3,
		ChordsColumn:        "chords",
		IDColumn:            "id",
		ComparisonMethod:    "auto",
		SimilarityThreshold: 0.5,
		LogLevel:            "info",
		HTTPAddr:            ":8080",
		MaxBatchSongs:       DefaultMaxBatchSongs,
		Progress:            true,
	}
}

// Load reads a JSON config file over the defaults. An empty path or a missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logging.Debug("Config file not found, using defaults", logging.Fields{
				"path": path,
			})
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Merge returns base with every non-zero scalar of overlay applied on top.
// Progress is only ever switched off by an overlay.
func Merge(base, overlay *Config) *Config {
	if base == nil {
		base = DefaultConfig()
	}
	merged := *base
	if overlay == nil {
		return &merged
	}

	if overlay.Workers != 0 {
		merged.Workers = overlay.Workers
	}
	if overlay.ParserCacheSize != 0 {
		merged.ParserCacheSize = overlay.ParserCacheSize
	}
	if overlay.KeyCacheSize != 0 {
		merged.KeyCacheSize = overlay.KeyCacheSize
	}
	if overlay.CorrelationMethod != "" {
		merged.CorrelationMethod = overlay.CorrelationMethod
	}
	if overlay.FunctionalBlend != 0 {
		merged.FunctionalBlend = overlay.FunctionalBlend
	}
	if overlay.ChordsColumn != "" {
		merged.ChordsColumn = overlay.ChordsColumn
	}
	if overlay.KeyColumn != "" {
		merged.KeyColumn = overlay.KeyColumn
	}
	if overlay.IDColumn != "" {
		merged.IDColumn = overlay.IDColumn
	}
	if overlay.ComparisonMethod != "" {
		merged.ComparisonMethod = overlay.ComparisonMethod
	}
	if overlay.SimilarityThreshold != 0 {
		merged.SimilarityThreshold = overlay.SimilarityThreshold
	}
	if overlay.LogLevel != "" {
		merged.LogLevel = overlay.LogLevel
	}
	if overlay.HTTPAddr != "" {
		merged.HTTPAddr = overlay.HTTPAddr
	}
	if overlay.MaxBatchSongs != 0 {
		merged.MaxBatchSongs = overlay.MaxBatchSongs
	}

	return &merged
}

// LoadEnv loads the given .env files (".env" when none are named, skipped if
// absent) and applies SONIDO_* variables to cfg. Variables already set in the
// process environment take precedence over .env values.
func LoadEnv(cfg *Config, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	ints := map[string]*int{
		"WORKERS":           &cfg.Workers,
		"PARSER_CACHE_SIZE": &cfg.ParserCacheSize,
		"KEY_CACHE_SIZE":    &cfg.KeyCacheSize,
		"MAX_BATCH_SONGS":   &cfg.MaxBatchSongs,
	}
	for name, target := range ints {
		if value, ok := lookupEnv(name); ok {
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("%w: %s%s=%q", ErrInvalidConfig, EnvPrefix, name, value)
			}
			*target = n
		}
	}

	floats := map[string]*float64{
		"FUNCTIONAL_BLEND":     &cfg.FunctionalBlend,
		"SIMILARITY_THRESHOLD": &cfg.SimilarityThreshold,
	}
	for name, target := range floats {
		if value, ok := lookupEnv(name); ok {
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("%w: %s%s=%q", ErrInvalidConfig, EnvPrefix, name, value)
			}
			*target = f
		}
	}

	strs := map[string]*string{
		"CORRELATION_METHOD": &cfg.CorrelationMethod,
		"CHORDS_COLUMN":      &cfg.ChordsColumn,
		"KEY_COLUMN":         &cfg.KeyColumn,
		"ID_COLUMN":          &cfg.IDColumn,
		"COMPARISON_METHOD":  &cfg.ComparisonMethod,
		"LOG_LEVEL":          &cfg.LogLevel,
		"HTTP_ADDR":          &cfg.HTTPAddr,
	}
	for name, target := range strs {
		if value, ok := lookupEnv(name); ok {
			*target = value
		}
	}

	if value, ok := lookupEnv("PROGRESS"); ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %sPROGRESS=%q", ErrInvalidConfig, EnvPrefix, value)
		}
		cfg.Progress = b
	}

	return nil
}

// Validate checks every value is in range
func (c *Config) Validate() error {
	var problems []string

	if c.Workers < 0 {
		problems = append(problems, "workers must not be negative")
	}
	if c.ParserCacheSize < 0 {
		problems = append(problems, "parser_cache_size must not be negative")
	}
	if c.KeyCacheSize < 0 {
		problems = append(problems, "key_cache_size must not be negative")
	}
	if c.MaxBatchSongs < 0 {
		problems = append(problems, "max_batch_songs must not be negative")
	}
	if _, err := stats.ParseCorrelationMethod(c.CorrelationMethod); err != nil {
		problems = append(problems, err.Error())
	}
	if c.FunctionalBlend < 0 || c.FunctionalBlend > 1 {
		problems = append(problems, "functional_blend must be within [0, 1]")
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		problems = append(problems, "similarity_threshold must be within [0, 1]")
	}
	switch c.ComparisonMethod {
	case "fast", "precise", "auto":
	default:
		problems = append(problems, fmt.Sprintf("unknown comparison_method %q", c.ComparisonMethod))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(c.ChordsColumn) == "" {
		problems = append(problems, "chords_column must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Level returns the configured log level, defaulting to info
func (c *Config) Level() logging.Level {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return logging.InfoLevel
	}
	return level
}

// AnalyzerConfig converts the processing settings for the analysis pipeline
func (c *Config) AnalyzerConfig() (*analysis.AnalyzerConfig, error) {
	method, err := stats.ParseCorrelationMethod(c.CorrelationMethod)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := analysis.DefaultAnalyzerConfig()
	cfg.ParserCacheSize = c.ParserCacheSize
	cfg.KeyCacheSize = c.KeyCacheSize
	cfg.CorrelationMethod = method
	cfg.FunctionalBlend = c.FunctionalBlend
	return cfg, nil
}

// ComparisonConfig converts the comparison settings for the fingerprint comparator
func (c *Config) ComparisonConfig() *fingerprint.ComparisonConfig {
	cfg := fingerprint.DefaultComparisonConfig()
	cfg.Method = c.ComparisonMethod
	cfg.SimilarityThreshold = c.SimilarityThreshold
	return cfg
}

func lookupEnv(name string) (string, bool) {
	value, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}
