package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/vaultsearch/internal/chunk"
	"github.com/Aman-CERP/vaultsearch/internal/embed"
	verrors "github.com/Aman-CERP/vaultsearch/internal/errors"
	"github.com/Aman-CERP/vaultsearch/internal/logging"
	"github.com/Aman-CERP/vaultsearch/internal/search"
	"github.com/Aman-CERP/vaultsearch/internal/store"
	"github.com/Aman-CERP/vaultsearch/internal/tokenizer"
)

const (
	// ProjectFile is the per-data-directory config file name.
	ProjectFile = ".vaultsearch.yaml"

	// IndexFile is the database file created inside the data directory.
	IndexFile = "index.db"

	// VocabFile is the WordPiece vocabulary looked up in the data directory.
	VocabFile = "vocab.txt"

	// LogFile is the log path inside the data directory.
	LogFile = "logs/vaultsearch.log"
)

// Config represents the complete vaultsearch configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Index      IndexConfig      `yaml:"index" json:"index"`
	Tokenizer  TokenizerConfig  `yaml:"tokenizer" json:"tokenizer"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// IndexConfig locates and sizes the SQLite index.
type IndexConfig struct {
	// Path of the database file. Empty resolves to <data-dir>/index.db.
	Path            string `yaml:"path" json:"path"`
	Dimensions      int    `yaml:"dimensions" json:"dimensions"`
	ReadConnections int    `yaml:"read_connections" json:"read_connections"`
	BusyTimeoutMS   int    `yaml:"busy_timeout_ms" json:"busy_timeout_ms"`
}

// TokenizerConfig configures the WordPiece tokenizer.
type TokenizerConfig struct {
	// VocabPath is the vocabulary file. Empty resolves to <data-dir>/vocab.txt.
	VocabPath    string `yaml:"vocab_path" json:"vocab_path"`
	MaxLength    int    `yaml:"max_length" json:"max_length"`
	StripAccents bool   `yaml:"strip_accents" json:"strip_accents"`
}

// ChunkingConfig configures the sliding-window chunker, in words.
type ChunkingConfig struct {
	TargetWords  int `yaml:"target_words" json:"target_words"`
	MaxWords     int `yaml:"max_words" json:"max_words"`
	OverlapWords int `yaml:"overlap_words" json:"overlap_words"`
	MinWords     int `yaml:"min_words" json:"min_words"`
}

// SearchConfig configures hybrid search parameters.
// Weights are configurable via:
//  1. User config (~/.config/vaultsearch/config.yaml)
//  2. Project config (.vaultsearch.yaml in the data directory)
//  3. Env vars (VAULTSEARCH_LEXICAL_WEIGHT, VAULTSEARCH_VECTOR_WEIGHT), highest priority
type SearchConfig struct {
	LexicalWeight    float64 `yaml:"lexical_weight" json:"lexical_weight"`
	VectorWeight     float64 `yaml:"vector_weight" json:"vector_weight"`
	MinCombinedScore float64 `yaml:"min_combined_score" json:"min_combined_score"`
	MinSimilarity    float64 `yaml:"min_similarity" json:"min_similarity"`
	LexicalLimit     int     `yaml:"lexical_limit" json:"lexical_limit"`
	VectorLimit      int     `yaml:"vector_limit" json:"vector_limit"`
	MaxResults       int     `yaml:"max_results" json:"max_results"`
	ExcerptLength    int     `yaml:"excerpt_length" json:"excerpt_length"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"`

	// Query embedding is skipped for BreakerReset after BreakerFailures
	// consecutive failures.
	BreakerFailures int    `yaml:"breaker_failures" json:"breaker_failures"`
	BreakerReset    string `yaml:"breaker_reset" json:"breaker_reset"`
}

// LoggingConfig configures the rotating log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
	Stderr    bool   `yaml:"stderr" json:"stderr"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	sc := search.DefaultConfig()
	cc := chunk.DefaultConfig()
	st := store.DefaultConfig()
	lc := logging.DefaultConfig()

	return &Config{
		Version: 1,
		Index: IndexConfig{
			Dimensions:      st.Dimensions,
			ReadConnections: st.ReadConnections,
			BusyTimeoutMS:   st.BusyTimeoutMS,
		},
		Tokenizer: TokenizerConfig{
			MaxLength:    tokenizer.DefaultMaxLength,
			StripAccents: true,
		},
		Chunking: ChunkingConfig{
			TargetWords:  cc.TargetWords,
			MaxWords:     cc.MaxWords,
			OverlapWords: cc.OverlapWords,
			MinWords:     cc.MinWords,
		},
		Search: SearchConfig{
			LexicalWeight:    sc.LexicalWeight,
			VectorWeight:     sc.VectorWeight,
			MinCombinedScore: sc.MinCombinedScore,
			MinSimilarity:    sc.MinSimilarity,
			LexicalLimit:     sc.LexicalLimit,
			VectorLimit:      sc.VectorLimit,
			MaxResults:       sc.MaxResults,
			ExcerptLength:    sc.ExcerptLength,
		},
		Embeddings: EmbeddingsConfig{
			Provider:        string(embed.ProviderStatic),
			Model:           embed.DefaultOllamaModel,
			OllamaHost:      embed.DefaultOllamaHost,
			CacheSize:       256,
			BreakerFailures: 3,
			BreakerReset:    "30s",
		},
		Logging: LoggingConfig{
			Level:     lc.Level,
			MaxSizeMB: lc.MaxSizeMB,
			MaxFiles:  lc.MaxFiles,
			Stderr:    false,
		},
	}
}

// DefaultDataDir returns ~/.vaultsearch, falling back to the temp directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".vaultsearch")
	}
	return filepath.Join(home, ".vaultsearch")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/vaultsearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/vaultsearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vaultsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "vaultsearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "vaultsearch", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the given data directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/vaultsearch/config.yaml)
//  3. Project config (.vaultsearch.yaml in the data directory)
//  4. Environment variables (VAULTSEARCH_*)
//
// Relative paths are then resolved against dataDir.
func Load(dataDir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadFromDir(dataDir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()
	cfg.resolvePaths(dataDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromDir loads .vaultsearch.yaml or .vaultsearch.yml when present.
func (c *Config) loadFromDir(dir string) error {
	if dir == "" {
		return nil
	}
	for _, name := range []string{ProjectFile, ".vaultsearch.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML decodes path over the current values. Keys absent from the file
// keep their value, so an explicit zero in the file is honored.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return verrors.ConfigError("failed to read config file", err).WithDetail("path", path)
	}

	next := *c
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&next); err != nil && !errors.Is(err, io.EOF) {
		return verrors.ConfigError("failed to parse config file", err).
			WithDetail("path", path).
			WithSuggestion("check the YAML syntax and key names")
	}
	*c = next
	return nil
}

// resolvePaths fills empty paths from dataDir and anchors relative ones to it.
func (c *Config) resolvePaths(dataDir string) {
	if dataDir == "" {
		return
	}
	c.Index.Path = resolve(dataDir, c.Index.Path, IndexFile)
	c.Tokenizer.VocabPath = resolve(dataDir, c.Tokenizer.VocabPath, VocabFile)
	c.Logging.File = resolve(dataDir, c.Logging.File, LogFile)
}

func resolve(dataDir, path, fallback string) string {
	switch {
	case path == "":
		return filepath.Join(dataDir, fallback)
	case filepath.IsAbs(path):
		return path
	default:
		return filepath.Join(dataDir, path)
	}
}

// applyEnvOverrides applies VAULTSEARCH_* environment variable overrides.
// Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VAULTSEARCH_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
	if v := os.Getenv("VAULTSEARCH_VOCAB_PATH"); v != "" {
		c.Tokenizer.VocabPath = v
	}
	if v := os.Getenv("VAULTSEARCH_STRIP_ACCENTS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Tokenizer.StripAccents = b
		}
	}

	// Explicit zero weights are allowed.
	if v := os.Getenv("VAULTSEARCH_LEXICAL_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.LexicalWeight = w
		}
	}
	if v := os.Getenv("VAULTSEARCH_VECTOR_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.VectorWeight = w
		}
	}
	if v := os.Getenv("VAULTSEARCH_MIN_SIMILARITY"); v != "" {
		if s, err := parseFloat64(v); err == nil {
			c.Search.MinSimilarity = s
		}
	}
	if v := os.Getenv("VAULTSEARCH_MIN_COMBINED_SCORE"); v != "" {
		if s, err := parseFloat64(v); err == nil {
			c.Search.MinCombinedScore = s
		}
	}
	if v := os.Getenv("VAULTSEARCH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}

	if v := os.Getenv("VAULTSEARCH_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("VAULTSEARCH_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("VAULTSEARCH_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("VAULTSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Validate validates the configuration and returns an ErrCodeConfigInvalid
// error naming the first offending key.
func (c *Config) Validate() error {
	if c.Index.Dimensions <= 0 {
		return invalid("index.dimensions", fmt.Errorf("must be positive, got %d", c.Index.Dimensions))
	}
	if c.Tokenizer.MaxLength < 2 {
		return invalid("tokenizer.max_length", fmt.Errorf("must be at least 2, got %d", c.Tokenizer.MaxLength))
	}
	if err := c.Chunking.ChunkerConfig().Validate(); err != nil {
		return invalid("chunking", err)
	}
	if err := c.Search.EngineConfig().Validate(); err != nil {
		return invalid("search", err)
	}
	if _, err := embed.ParseProvider(c.Embeddings.Provider); err != nil {
		return invalid("embeddings.provider", err)
	}
	if c.Embeddings.CacheSize < 0 {
		return invalid("embeddings.cache_size", fmt.Errorf("must be non-negative, got %d", c.Embeddings.CacheSize))
	}
	if c.Embeddings.BreakerFailures <= 0 {
		return invalid("embeddings.breaker_failures", fmt.Errorf("must be positive, got %d", c.Embeddings.BreakerFailures))
	}
	if _, err := time.ParseDuration(c.Embeddings.BreakerReset); err != nil {
		return invalid("embeddings.breaker_reset", err)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalid("logging.level",
			fmt.Errorf("must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level))
	}
	return nil
}

func invalid(key string, err error) error {
	return verrors.ConfigError("invalid configuration: "+key, err).WithDetail("key", key)
}

// WriteYAML writes the configuration to a YAML file, creating its directory.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// EngineConfig converts the search section into search.Config.
func (s SearchConfig) EngineConfig() search.Config {
	return search.Config{
		LexicalWeight:    s.LexicalWeight,
		VectorWeight:     s.VectorWeight,
		MinCombinedScore: s.MinCombinedScore,
		MinSimilarity:    s.MinSimilarity,
		LexicalLimit:     s.LexicalLimit,
		VectorLimit:      s.VectorLimit,
		MaxResults:       s.MaxResults,
		ExcerptLength:    s.ExcerptLength,
	}
}

// ChunkerConfig converts the chunking section into chunk.Config.
func (c ChunkingConfig) ChunkerConfig() chunk.Config {
	return chunk.Config{
		TargetWords:  c.TargetWords,
		MaxWords:     c.MaxWords,
		OverlapWords: c.OverlapWords,
		MinWords:     c.MinWords,
	}
}

// StoreConfig converts the index section into store.Config.
func (i IndexConfig) StoreConfig() store.Config {
	return store.Config{
		Dimensions:      i.Dimensions,
		ReadConnections: i.ReadConnections,
		BusyTimeoutMS:   i.BusyTimeoutMS,
	}
}

// EmbedConfig builds the embedder factory config. The provider was checked
// by Validate.
func (c *Config) EmbedConfig() embed.Config {
	p, _ := embed.ParseProvider(c.Embeddings.Provider)
	return embed.Config{
		Provider:   p,
		Model:      c.Embeddings.Model,
		OllamaHost: c.Embeddings.OllamaHost,
		Dimensions: c.Index.Dimensions,
		MaxTokens:  c.Tokenizer.MaxLength,
		CacheSize:  c.Embeddings.CacheSize,
	}
}

// BreakerResetTimeout parses breaker_reset, falling back to 30s.
func (e EmbeddingsConfig) BreakerResetTimeout() time.Duration {
	d, err := time.ParseDuration(e.BreakerReset)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// SetupConfig converts the logging section into logging.Config. An empty
// file keeps the default log path.
func (l LoggingConfig) SetupConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	if l.File != "" {
		cfg.FilePath = l.File
	}
	cfg.MaxSizeMB = l.MaxSizeMB
	cfg.MaxFiles = l.MaxFiles
	cfg.WriteToStderr = l.Stderr
	return cfg
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
