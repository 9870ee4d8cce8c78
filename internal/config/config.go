package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr               string `yaml:"addr"`
	BodyLimitMB        int    `yaml:"body_limit_mb"`
	CorsAllowedOrigins string `yaml:"cors_allowed_origins"`
}

// LoggingConfig configures the zap logger. File enables a rotating file core.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// UploadsConfig locates per-session uploaded documents on disk.
type UploadsConfig struct {
	Root string `yaml:"root"`
}

// VectorStoreConfig locates per-session indexes and tunes the loaded-index cache.
type VectorStoreConfig struct {
	Root         string `yaml:"root"`
	CacheTTLSecs int    `yaml:"cache_ttl_secs"`
}

// ChunkerConfig configures how documents are split, both sizes in characters.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// GeminiEmbedderConfig configures the remote embedContent embedder.
type GeminiEmbedderConfig struct {
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// HashingEmbedderConfig configures the local feature-hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the embedder implementation.
type EmbedderConfig struct {
	Type    string                 `yaml:"type"`
	Gemini  *GeminiEmbedderConfig  `yaml:"gemini,omitempty"`
	Hashing *HashingEmbedderConfig `yaml:"hashing,omitempty"`
}

// LLMConfig configures the generateContent client used to answer queries.
type LLMConfig struct {
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RetrievalConfig tunes k-nearest-neighbor lookups.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// JudgeConfig configures the stateless evaluation endpoint.
type JudgeConfig struct {
	TokenEnv            string `yaml:"token_env"`
	Model               string `yaml:"model"`
	DownloadTimeoutSecs int    `yaml:"download_timeout_secs"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Uploads     UploadsConfig     `yaml:"uploads"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	LLM         LLMConfig         `yaml:"llm"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Judge       JudgeConfig       `yaml:"judge"`
}

// Load reads the config from path. The file is required: the process has no
// meaningful fallback for storage roots or model names, so a missing file
// fails startup instead of silently using defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// CacheTTL returns the loaded-index cache TTL as a duration.
func (c *VectorStoreConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.BodyLimitMB == 0 {
		cfg.Server.BodyLimitMB = 10
	}
	if cfg.Server.CorsAllowedOrigins == "" {
		cfg.Server.CorsAllowedOrigins = "*"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Uploads.Root == "" {
		cfg.Uploads.Root = "temp_uploads"
	}
	if cfg.VectorStore.Root == "" {
		cfg.VectorStore.Root = "vector_store"
	}
	if cfg.VectorStore.CacheTTLSecs == 0 {
		cfg.VectorStore.CacheTTLSecs = 3600
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker.ChunkSize = 1000
	}
	if cfg.Chunker.ChunkOverlap == 0 {
		cfg.Chunker.ChunkOverlap = 200
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "gemini"
	}
	if cfg.Embedder.Type == "gemini" {
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiEmbedderConfig{}
		}
		if cfg.Embedder.Gemini.Model == "" {
			cfg.Embedder.Gemini.Model = "text-embedding-004"
		}
		if cfg.Embedder.Gemini.APIKeyEnv == "" {
			cfg.Embedder.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
		if cfg.Embedder.Gemini.TimeoutSecs == 0 {
			cfg.Embedder.Gemini.TimeoutSecs = 30
		}
	}
	if cfg.Embedder.Type == "hashing" {
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingEmbedderConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = 256
		}
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gemini-1.5-flash"
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = "GEMINI_API_KEY"
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 60
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Judge.TokenEnv == "" {
		cfg.Judge.TokenEnv = "JUDGE_API_TOKEN"
	}
	if cfg.Judge.Model == "" {
		cfg.Judge.Model = cfg.LLM.Model
	}
	if cfg.Judge.DownloadTimeoutSecs == 0 {
		cfg.Judge.DownloadTimeoutSecs = 60
	}
}

func validate(cfg *AppConfig) error {
	switch cfg.Embedder.Type {
	case "gemini", "hashing":
	default:
		return fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type)
	}
	if cfg.Chunker.ChunkOverlap >= cfg.Chunker.ChunkSize {
		return fmt.Errorf("chunk_overlap %d must be smaller than chunk_size %d",
			cfg.Chunker.ChunkOverlap, cfg.Chunker.ChunkSize)
	}
	return nil
}
