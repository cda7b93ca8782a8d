package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the carlens API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Relational RelationalConfig `yaml:"relational"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Detector   DetectorConfig   `yaml:"detector"`
	Search     SearchConfig     `yaml:"search"`
	Import     ImportConfig     `yaml:"import"`
	Index      IndexConfig      `yaml:"index"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the vector database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// RelationalConfig holds the relational image store settings.
type RelationalConfig struct {
	Path string `yaml:"path"` // sqlite file path
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	UploadDir     string `yaml:"upload_dir"`
	MaxFileSizeMB int    `yaml:"max_file_size_mb"`
	KeyPrefix     string `yaml:"key_prefix"`
}

// EmbeddingConfig holds encoder and fusion settings.
type EmbeddingConfig struct {
	ClipBaseURL       string    `yaml:"clip_base_url"`
	APIKey            string    `yaml:"api_key"`
	Model             string    `yaml:"model"`
	Dimensions        int       `yaml:"dimensions"`
	UseColorHistogram bool      `yaml:"use_color_histogram"`
	UseCarDetection   bool      `yaml:"use_car_detection"`
	ImageWeight       float64   `yaml:"image_weight"`
	TagWeight         float64   `yaml:"tag_weight"`
	VariationWeights  []float64 `yaml:"variation_weights"`
	TimeoutSec        int       `yaml:"timeout_sec"`
}

// DetectorConfig holds vehicle detector settings.
type DetectorConfig struct {
	BaseURL       string  `yaml:"base_url"`
	MinConfidence float64 `yaml:"min_confidence"`
	Padding       float64 `yaml:"padding"`
	TimeoutSec    int     `yaml:"timeout_sec"`
}

// SearchConfig holds retrieval and scoring settings.
type SearchConfig struct {
	MaxDistance     float64 `yaml:"max_distance"`
	OverfetchFactor int     `yaml:"overfetch_factor"`
	DefaultLimit    int     `yaml:"default_limit"`
	MinSimilarity   float64 `yaml:"min_similarity"`
	SemanticWeight  float64 `yaml:"semantic_weight"`
	KeywordWeight   float64 `yaml:"keyword_weight"`
}

// ImportConfig holds bulk import settings.
type ImportConfig struct {
	Workers int `yaml:"workers"`
	MaxRows int `yaml:"max_rows"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Relational.Path == "" {
		c.Relational.Path = "data/carlens.db"
	}
	if c.Storage.UploadDir == "" {
		c.Storage.UploadDir = "uploads"
	}
	if c.Storage.MaxFileSizeMB <= 0 {
		c.Storage.MaxFileSizeMB = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "carlens:"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "clip-vit-base-patch32"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 512
	}
	if c.Embedding.ImageWeight <= 0 {
		c.Embedding.ImageWeight = 0.7
	}
	if c.Embedding.TagWeight <= 0 {
		c.Embedding.TagWeight = 0.3
	}
	if len(c.Embedding.VariationWeights) == 0 {
		c.Embedding.VariationWeights = []float64{0.4, 0.2, 0.2, 0.2}
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	if c.Detector.MinConfidence <= 0 {
		c.Detector.MinConfidence = 0.3
	}
	if c.Detector.Padding <= 0 {
		c.Detector.Padding = 0.1
	}
	if c.Detector.TimeoutSec <= 0 {
		c.Detector.TimeoutSec = 20
	}
	if c.Search.MaxDistance <= 0 {
		c.Search.MaxDistance = 1.5
	}
	if c.Search.OverfetchFactor <= 0 {
		c.Search.OverfetchFactor = 3
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.MinSimilarity <= 0 {
		c.Search.MinSimilarity = 0.35
	}
	if c.Search.SemanticWeight <= 0 {
		c.Search.SemanticWeight = 0.7
	}
	if c.Search.KeywordWeight <= 0 {
		c.Search.KeywordWeight = 0.3
	}
	if c.Import.Workers <= 0 {
		c.Import.Workers = 4
	}
	if c.Import.MaxRows <= 0 {
		c.Import.MaxRows = 1000
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
}

// VectorWidth is the index-wide vector length: the base embedding
// width plus the histogram block when color fusion is enabled. Fixed at
// startup; fused and plain vectors never share an index.
func (c *Config) VectorWidth() int {
	if c.Embedding.UseColorHistogram {
		return c.Embedding.Dimensions + 192
	}
	return c.Embedding.Dimensions
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.ClipBaseURL == "" {
		return fmt.Errorf("embedding.clip_base_url is required")
	}
	if c.Embedding.UseCarDetection && c.Detector.BaseURL == "" {
		return fmt.Errorf("detector.base_url is required when embedding.use_car_detection is on")
	}
	if c.Embedding.ImageWeight+c.Embedding.TagWeight > 1.0001 {
		return fmt.Errorf("embedding.image_weight + embedding.tag_weight must not exceed 1.0")
	}
	if c.Search.MinSimilarity < 0 || c.Search.MinSimilarity > 1 {
		return fmt.Errorf("search.min_similarity must be within [0,1], got %v", c.Search.MinSimilarity)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
