// Package config is the three-tier (project → user → environment)
// YAML configuration layer: store location, hybrid search weights,
// HNSW build parameters and model discovery/embedder overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete codegraph-core configuration. Zero value
// fields are filled in by NewConfig's defaults before a file or
// environment override is applied.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	HNSW       HNSWConfig       `yaml:"hnsw" json:"hnsw"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// StoreConfig configures where the memory store and graph data live.
type StoreConfig struct {
	Dir string `yaml:"dir" json:"dir"`
}

// SearchConfig configures hybrid search fusion weights. BM25Weight,
// SemanticWeight and GraphWeight feed internal/hybridsearch.Config
// directly and should sum to roughly 1.0.
type SearchConfig struct {
	BM25Weight     float64 `yaml:"bm25_weight" json:"bm25_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	GraphWeight    float64 `yaml:"graph_weight" json:"graph_weight"`
	Limit          int     `yaml:"limit" json:"limit"`
	CurrentOnly    bool    `yaml:"current_only" json:"current_only"`
}

// HNSWConfig configures the semantic index's approximate nearest
// neighbor search, per internal/semindex.
type HNSWConfig struct {
	// EfSearch trades recall for speed; zero falls back to
	// semindex.EfConstruction.
	EfSearch int `yaml:"ef_search" json:"ef_search"`
}

// EmbeddingsConfig selects and configures the concrete Embedder built
// by internal/embedproviders.
type EmbeddingsConfig struct {
	// Provider is "ollama" or "static"; empty defers to
	// CODEGRAPH_EMBEDDER, then to "static".
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
	Host     string `yaml:"host" json:"host"`

	// ModelsPath overrides internal/modeldiscovery's search path for a
	// locally cached model, ahead of MODEL2VEC_PATH/$HOME defaults.
	ModelsPath string `yaml:"models_path" json:"models_path"`
}

// ServerConfig configures the MCP server transport.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Port      int    `yaml:"port" json:"port"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// NewConfig returns a Config populated with documented defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Store: StoreConfig{
			Dir: defaultStoreDir(),
		},
		Search: SearchConfig{
			BM25Weight:     0.3,
			SemanticWeight: 0.5,
			GraphWeight:    0.2,
			Limit:          20,
			CurrentOnly:    true,
		},
		HNSW: HNSWConfig{
			EfSearch: 100,
		},
		Embeddings: EmbeddingsConfig{
			Provider: "static",
			Host:     "http://localhost:11434",
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

func defaultStoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".codegraph"
	}
	return filepath.Join(home, ".codegraph", "store")
}

// GetUserConfigDir returns the directory holding the user-level
// config, honoring XDG_CONFIG_HOME if set.
func GetUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "codegraph")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/codegraph"
	}
	return filepath.Join(home, ".config", "codegraph")
}

// GetUserConfigPath returns the user-level config.yaml path.
func GetUserConfigPath() string {
	return filepath.Join(GetUserConfigDir(), "config.yaml")
}

// UserConfigExists reports whether a user-level config file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func loadUserConfig() (*Config, error) {
	cfg := NewConfig()
	path := GetUserConfigPath()
	if !fileExists(path) {
		return cfg, nil
	}
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	return cfg, nil
}

// LoadUserConfig loads just the user-level config, defaults applied
// where the file is silent or absent.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// Load resolves the final Config for a project directory using the
// three-tier precedence: defaults → user config → project
// .codegraph.yaml/.yml → CODEGRAPH_* environment variables.
func Load(dir string) (*Config, error) {
	cfg, err := loadUserConfig()
	if err != nil {
		return nil, err
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".codegraph.yaml", ".codegraph.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var other Config
	if err := yaml.Unmarshal(data, &other); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	c.mergeWith(&other)
	return nil
}

// mergeWith overlays non-zero fields of other onto c. Only fields a
// config file can meaningfully set are considered; zero values in the
// overlay mean "not specified", not "set to zero".
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Store.Dir != "" {
		c.Store.Dir = other.Store.Dir
	}
	if other.Search.BM25Weight != 0 {
		c.Search.BM25Weight = other.Search.BM25Weight
	}
	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.GraphWeight != 0 {
		c.Search.GraphWeight = other.Search.GraphWeight
	}
	if other.Search.Limit != 0 {
		c.Search.Limit = other.Search.Limit
	}
	c.Search.CurrentOnly = other.Search.CurrentOnly || c.Search.CurrentOnly
	if other.HNSW.EfSearch != 0 {
		c.HNSW.EfSearch = other.HNSW.EfSearch
	}
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Host != "" {
		c.Embeddings.Host = other.Embeddings.Host
	}
	if other.Embeddings.ModelsPath != "" {
		c.Embeddings.ModelsPath = other.Embeddings.ModelsPath
	}
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies CODEGRAPH_* environment variables, the
// highest-priority tier.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CODEGRAPH_STORE_DIR"); v != "" {
		c.Store.Dir = v
	}
	if v := os.Getenv("CODEGRAPH_BM25_WEIGHT"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Search.BM25Weight = f
		}
	}
	if v := os.Getenv("CODEGRAPH_SEMANTIC_WEIGHT"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Search.SemanticWeight = f
		}
	}
	if v := os.Getenv("CODEGRAPH_GRAPH_WEIGHT"); v != "" {
		if f, err := parseFloat64(v); err == nil {
			c.Search.GraphWeight = f
		}
	}
	if v := os.Getenv("CODEGRAPH_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("CODEGRAPH_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("CODEGRAPH_EMBED_HOST"); v != "" {
		c.Embeddings.Host = v
	}
	if v := os.Getenv("CODEGRAPH_MODELS_PATH"); v != "" {
		c.Embeddings.ModelsPath = v
	}
	if v := os.Getenv("CODEGRAPH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
}

func parseFloat64(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FindProjectRoot walks up from startDir looking for a .git directory
// or a .codegraph.yaml/.yml file. If neither is found by the
// filesystem root, it returns the absolute form of startDir unchanged.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}
		if fileExists(filepath.Join(currentDir, ".codegraph.yaml")) ||
			fileExists(filepath.Join(currentDir, ".codegraph.yml")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// Validate checks invariants a config file or env override could have
// broken: weights must be non-negative and the BM25/semantic/graph
// split must be usable as fusion weights.
func (c *Config) Validate() error {
	if c.Search.BM25Weight < 0 || c.Search.SemanticWeight < 0 || c.Search.GraphWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	if c.Search.BM25Weight+c.Search.SemanticWeight+c.Search.GraphWeight == 0 {
		return fmt.Errorf("search weights must not all be zero")
	}
	if c.Search.Limit < 0 {
		return fmt.Errorf("search limit must be non-negative")
	}
	switch c.Embeddings.Provider {
	case "", "static", "ollama":
	default:
		return fmt.Errorf("unknown embeddings provider %q", c.Embeddings.Provider)
	}
	return nil
}

// WriteYAML marshals c and writes it to path, creating parent
// directories as needed.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
