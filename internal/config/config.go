package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverRedis = "redis"
	DriverAtlas = "atlas"
)

// Config holds the mailrag configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Index      IndexConfig      `yaml:"index"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	ShutdownSec     int    `yaml:"shutdown_timeout_sec"`
	AllowedOrigin   string `yaml:"allowed_origin"` // empty disables CORS headers
}

// DatabaseConfig holds document store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis (default), atlas
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	URI              string   `yaml:"uri"`
	Database         string   `yaml:"database"`
	Collection       string   `yaml:"collection"`
	VectorIndex      string   `yaml:"vector_index"`
	TextIndex        string   `yaml:"text_index"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW index and ingest settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
	MaxBatchSize    int `yaml:"max_batch_size"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// Enabled reports whether any limit is set.
func (b BudgetConfig) Enabled() bool {
	return b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider         string       `yaml:"provider"`
	APIKey           string       `yaml:"api_key"`
	BaseURL          string       `yaml:"base_url"`
	Model            string       `yaml:"model"`
	Dimensions       int          `yaml:"dimensions"`
	QueryInstruction string       `yaml:"query_instruction"`
	CacheTTLSec      int          `yaml:"cache_ttl_sec"` // 0 disables the query cache
	Budget           BudgetConfig `yaml:"budget"`
}

// GenerationConfig holds chat completion settings.
type GenerationConfig struct {
	APIKey      string       `yaml:"api_key"`
	BaseURL     string       `yaml:"base_url"`
	Model       string       `yaml:"model"`
	MaxTokens   int          `yaml:"max_tokens"`
	Temperature *float32     `yaml:"temperature"`
	Budget      BudgetConfig `yaml:"budget"`
}

// RetrievalConfig holds hybrid ranking parameters. Weights are pointers so an explicit 0
// can switch a path off.
type RetrievalConfig struct {
	VectorCandidateLimit int      `yaml:"vector_candidate_limit"`
	VectorResultLimit    int      `yaml:"vector_result_limit"`
	KeywordResultLimit   int      `yaml:"keyword_result_limit"`
	OutputLimit          int      `yaml:"output_limit"`
	VectorWeight         *float64 `yaml:"vector_weight"`
	KeywordWeight        *float64 `yaml:"keyword_weight"`
	RankSmoothing        float64  `yaml:"rank_smoothing"`
	Keywords             []string `yaml:"keywords"`
	KeywordFromQuery     bool     `yaml:"keyword_from_query"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands environment variables, decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
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
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5551
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.VectorIndex == "" {
		c.Database.VectorIndex = "cosine_search"
	}
	if c.Database.TextIndex == "" {
		c.Database.TextIndex = "name_search"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}

	// One provider account usually serves both calls.
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = c.Embedding.APIKey
	}
	if c.Generation.BaseURL == "" {
		c.Generation.BaseURL = c.Embedding.BaseURL
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gpt-4o"
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 2000
	}
	if c.Generation.Temperature == nil {
		t := float32(0.7)
		c.Generation.Temperature = &t
	}

	r := &c.Retrieval
	if r.VectorCandidateLimit <= 0 {
		r.VectorCandidateLimit = 600
	}
	if r.VectorResultLimit <= 0 {
		r.VectorResultLimit = 50
	}
	if r.KeywordResultLimit <= 0 {
		r.KeywordResultLimit = 20
	}
	if r.OutputLimit <= 0 {
		r.OutputLimit = 10
	}
	if r.VectorWeight == nil {
		w := 0.1
		r.VectorWeight = &w
	}
	if r.KeywordWeight == nil {
		w := 0.9
		r.KeywordWeight = &w
	}
	if r.RankSmoothing <= 0 {
		r.RankSmoothing = 60
	}
	if r.Keywords == nil {
		r.Keywords = []string{"ESG"}
	}

	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Index.MaxBatchSize <= 0 {
		c.Index.MaxBatchSize = 64
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "mailrag:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			errs = append(errs, errors.New("database.addrs is required for the redis driver"))
		}
	case DriverAtlas:
		if c.Database.URI == "" || c.Database.Database == "" || c.Database.Collection == "" {
			errs = append(errs, errors.New("database.uri, database.database and database.collection are required for the atlas driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q, got %q", DriverRedis, DriverAtlas, c.Database.Driver))
	}

	if c.Embedding.CacheTTLSec < 0 {
		errs = append(errs, errors.New("embedding.cache_ttl_sec must be non-negative"))
	}
	if err := validateBudget("embedding", c.Embedding.Budget); err != nil {
		errs = append(errs, err)
	}
	if err := validateBudget("generation", c.Generation.Budget); err != nil {
		errs = append(errs, err)
	}

	if t := c.Generation.Temperature; t != nil && (*t < 0 || *t > 2) {
		errs = append(errs, fmt.Errorf("generation.temperature must be within [0, 2], got %v", *t))
	}

	r := c.Retrieval
	if r.VectorCandidateLimit < r.VectorResultLimit {
		errs = append(errs, fmt.Errorf("retrieval.vector_candidate_limit (%d) must be >= vector_result_limit (%d)",
			r.VectorCandidateLimit, r.VectorResultLimit))
	}
	if len(r.Keywords) == 0 && !r.KeywordFromQuery {
		errs = append(errs, errors.New("retrieval.keywords must not be empty unless retrieval.keyword_from_query is set"))
	}
	if (r.VectorWeight != nil && *r.VectorWeight < 0) || (r.KeywordWeight != nil && *r.KeywordWeight < 0) {
		errs = append(errs, errors.New("retrieval weights must be non-negative"))
	}

	return errors.Join(errs...)
}

func validateBudget(section string, b BudgetConfig) error {
	switch b.Action {
	case "", "warn", "reject":
	default:
		return fmt.Errorf("%s.budget.action must be \"warn\" or \"reject\", got %q", section, b.Action)
	}
	if b.DailyTokenLimit < 0 || b.MonthlyTokenLimit < 0 {
		return fmt.Errorf("%s.budget limits must be non-negative", section)
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
