// Package config loads engine configuration with env > file > defaults
// precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all engine settings.
type Config struct {
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Log       LogConfig       `yaml:"log"`
}

// ChunkingConfig mirrors the chunking engine's tunables.
type ChunkingConfig struct {
	MaxChunkSize         int  `yaml:"max_chunk_size"`
	OverlapSize          int  `yaml:"overlap_size"`
	MinChunkSize         int  `yaml:"min_chunk_size"`
	SemanticBoundaries   bool `yaml:"semantic_boundaries"`
	PreserveParagraphs   bool `yaml:"preserve_paragraphs"`
	PreserveChapters     bool `yaml:"preserve_chapters"`
	MaxChunksPerDocument int  `yaml:"max_chunks_per_document"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	// Provider is frequency, ollama or openai.
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`

	OllamaHost   string `yaml:"ollama_host"`
	OpenAIAPIKey string `yaml:"openai_api_key"`

	// CacheSize is the query-embedding LRU capacity. Zero disables it.
	CacheSize int `yaml:"cache_size"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	// Backend is memory, chromem or surreal.
	Backend string `yaml:"backend"`
	// Metric is cosine, euclidean or dot (memory backend only).
	Metric string `yaml:"metric"`

	SurrealURL       string `yaml:"surreal_url"`
	SurrealNamespace string `yaml:"surreal_namespace"`
	SurrealDatabase  string `yaml:"surreal_database"`
	SurrealUser      string `yaml:"surreal_user"`
	SurrealPass      string `yaml:"surreal_pass"`
}

// LedgerConfig bounds the memory ledger.
type LedgerConfig struct {
	MaxMemoriesPerUser int           `yaml:"max_memories_per_user"`
	DecayInterval      time.Duration `yaml:"decay_interval"`
	// TokenCounter is heuristic or tiktoken.
	TokenCounter string `yaml:"token_counter"`
}

// IngestConfig bounds the file pipeline.
type IngestConfig struct {
	MaxConcurrentFiles int  `yaml:"max_concurrent_files"`
	MaxFileSize        int  `yaml:"max_file_size"`
	MaxFilesPerBatch   int  `yaml:"max_files_per_batch"`
	ExtractInsights    bool `yaml:"extract_insights"`
}

// LogConfig controls the dual text/JSON logger.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Chunking: ChunkingConfig{
			MaxChunkSize:         4000,
			OverlapSize:          200,
			MinChunkSize:         500,
			SemanticBoundaries:   true,
			PreserveParagraphs:   true,
			MaxChunksPerDocument: 1000,
		},
		Embedding: EmbeddingConfig{
			Provider:   "frequency",
			OllamaHost: "http://localhost:11434",
			CacheSize:  256,
		},
		Store: StoreConfig{
			Backend:          "memory",
			Metric:           "cosine",
			SurrealURL:       "ws://localhost:8000/rpc",
			SurrealNamespace: "mnemo",
			SurrealDatabase:  "engine",
			SurrealUser:      "root",
			SurrealPass:      "root",
		},
		Ledger: LedgerConfig{
			MaxMemoriesPerUser: 1000,
			DecayInterval:      time.Hour,
			TokenCounter:       "heuristic",
		},
		Ingest: IngestConfig{
			MaxConcurrentFiles: 4,
			MaxFileSize:        10 << 20,
			MaxFilesPerBatch:   100,
		},
		Log: LogConfig{
			File:  "",
			Level: "INFO",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// at path (or $MNEMO_CONFIG; missing files are fine), then environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("MNEMO_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Embedding.Provider, "MNEMO_EMBEDDING_PROVIDER")
	setString(&cfg.Embedding.Model, "MNEMO_EMBEDDING_MODEL")
	setInt(&cfg.Embedding.Dimension, "MNEMO_EMBEDDING_DIMENSION")
	setString(&cfg.Embedding.OllamaHost, "OLLAMA_HOST")
	setString(&cfg.Embedding.OpenAIAPIKey, "OPENAI_API_KEY")

	setString(&cfg.Store.Backend, "MNEMO_STORE_BACKEND")
	setString(&cfg.Store.Metric, "MNEMO_STORE_METRIC")
	setString(&cfg.Store.SurrealURL, "SURREALDB_URL")
	setString(&cfg.Store.SurrealNamespace, "SURREALDB_NAMESPACE")
	setString(&cfg.Store.SurrealDatabase, "SURREALDB_DATABASE")
	setString(&cfg.Store.SurrealUser, "SURREALDB_USER")
	setString(&cfg.Store.SurrealPass, "SURREALDB_PASS")

	setInt(&cfg.Chunking.MaxChunkSize, "MNEMO_MAX_CHUNK_SIZE")
	setInt(&cfg.Chunking.OverlapSize, "MNEMO_OVERLAP_SIZE")
	setInt(&cfg.Chunking.MinChunkSize, "MNEMO_MIN_CHUNK_SIZE")

	setInt(&cfg.Ledger.MaxMemoriesPerUser, "MNEMO_MAX_MEMORIES_PER_USER")
	setString(&cfg.Ledger.TokenCounter, "MNEMO_TOKEN_COUNTER")

	setInt(&cfg.Ingest.MaxConcurrentFiles, "MNEMO_MAX_CONCURRENT_FILES")
	setInt(&cfg.Ingest.MaxFileSize, "MNEMO_MAX_FILE_SIZE")

	setString(&cfg.Log.File, "MNEMO_LOG_FILE")
	setString(&cfg.Log.Level, "MNEMO_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch c.Embedding.Provider {
	case "frequency", "ollama", "openai":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Store.Backend {
	case "memory", "chromem", "surreal":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Store.Metric {
	case "cosine", "euclidean", "dot":
	default:
		return fmt.Errorf("unknown similarity metric %q", c.Store.Metric)
	}
	switch c.Ledger.TokenCounter {
	case "heuristic", "tiktoken":
	default:
		return fmt.Errorf("unknown token counter %q", c.Ledger.TokenCounter)
	}
	if c.Chunking.MaxChunkSize <= 0 {
		return fmt.Errorf("max chunk size must be positive, got %d", c.Chunking.MaxChunkSize)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.OpenAIAPIKey == "" {
		return fmt.Errorf("openai provider requires OPENAI_API_KEY")
	}
	return nil
}

// LogLevel parses the configured level, defaulting to info.
func (c Config) LogLevel() slog.Level {
	switch strings.ToUpper(c.Log.Level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
