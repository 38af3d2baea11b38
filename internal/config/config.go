// Package config loads the index engine's global and per-repository
// configuration from YAML.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds global, deployment-wide configuration.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Indexing  IndexingConfig  `yaml:"indexing"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "voyage"
	Model    string `yaml:"model"`    // "voyage-4-large"
}

type StorageConfig struct {
	QdrantURL string `yaml:"qdrant_url"`
	Neo4jURL  string `yaml:"neo4j_url"` // optional, graphmirror only
	RedisURL  string `yaml:"redis_url"`
}

type LoggingConfig struct {
	Level     string `yaml:"level"` // error|warn|info|debug
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// IndexingConfig carries the knobs the Orchestrator (C9) and Content
// Processor (C6) need: batch size, file-size cutoff, and the external-file
// extension set consumed by orphan cleanup (C8).
type IndexingConfig struct {
	BatchSize         int      `yaml:"batch_size"`
	MaxFileSizeBytes  int64    `yaml:"max_file_size_bytes"`
	ScrollIterCap     int      `yaml:"scroll_iteration_cap"`
	ExternalFileExts  []string `yaml:"external_file_extensions,omitempty"`
	StoreCallTimeoutS int      `yaml:"store_timeout_seconds"`
}

// RepoConfig holds per-repository configuration, loaded from
// `.claude-indexer.yaml` at the repo root.
type RepoConfig struct {
	Name          string            `yaml:"name"`
	Collection    string            `yaml:"collection"`
	DefaultBranch string            `yaml:"default_branch"`
	Modules       map[string]Module `yaml:"modules"`
	Include       []string          `yaml:"include"`
	Exclude       []string          `yaml:"exclude"`
}

type Module struct {
	Description string            `yaml:"description"`
	Submodules  map[string]string `yaml:"submodules"`
}

// DefaultConfig returns sensible defaults matching spec §5's documented
// batch_size (50) and §4.6's mandatory scroll loop-protection cap.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider: "voyage",
			Model:    "voyage-4-large",
		},
		Storage: StorageConfig{
			QdrantURL: "http://localhost:6333",
			RedisURL:  "redis://localhost:6379",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 50,
			MaxFiles:  3,
		},
		Indexing: IndexingConfig{
			BatchSize:         50,
			MaxFileSizeBytes:  1 << 20, // 1 MiB
			ScrollIterCap:     1000,
			StoreCallTimeoutS: 60,
		},
	}
}

// LoadConfig loads config from file, falling back to defaults when the file
// is absent — never an error in that case, per the teacher's "use defaults"
// convention.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadRepoConfig loads `.claude-indexer.yaml` from the repo root.
func LoadRepoConfig(repoPath string) (*RepoConfig, error) {
	path := filepath.Join(repoPath, ".claude-indexer.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		CodeIndex RepoConfig `yaml:"code-index"`
	}

	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}

	return &wrapper.CodeIndex, nil
}
