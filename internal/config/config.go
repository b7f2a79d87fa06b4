package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docwarden/docwarden/internal/logger"
	"github.com/spf13/viper"
)

const (
	llmProviderGemini = "gemini"
)

// Config represents the top-level configuration structure.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	SourceHost SourceHostConfig `mapstructure:"source_host"`
	AI         AIConfig         `mapstructure:"ai"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Database   DBConfig         `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    logger.Config    `mapstructure:"logging"`
	Features   FeaturesConfig   `mapstructure:"features"`
}

type ServerConfig struct {
	Port         string `mapstructure:"port"`
	MaxWorkers   int    `mapstructure:"max_workers"`
	SharedSecret string `mapstructure:"shared_secret"`
}

// SourceHostConfig carries credentials for resolving a repository URL to a
// file tree, independent of which concrete source host backs the resolution.
type SourceHostConfig struct {
	GitHubAppID          int64  `mapstructure:"github_app_id"`
	GitHubPrivateKeyPath string `mapstructure:"github_private_key_path"`
	GitHubToken          string `mapstructure:"github_token"` // for CLI / local development
	ClonePath            string `mapstructure:"clone_path"`
}

type AIConfig struct {
	LLMProvider      string `mapstructure:"llm_provider"`
	EmbedderProvider string `mapstructure:"embedder_provider"`
	OllamaHost       string `mapstructure:"ollama_host"`
	GeminiAPIKey     string `mapstructure:"gemini_api_key"`
	GeneratorModel   string `mapstructure:"generator_model"`
	EmbedderModel    string `mapstructure:"embedder_model"`
	EmbedderTask     string `mapstructure:"embedder_task_description"`
	SparseVectorName string `mapstructure:"sparse_vector_name"`
}

func (c *AIConfig) Validate() error {
	if strings.TrimSpace(c.LLMProvider) == "" {
		return errors.New("llm_provider is required")
	}
	if strings.TrimSpace(c.EmbedderProvider) == "" {
		return errors.New("embedder_provider is required")
	}
	return nil
}

// PipelineConfig holds the tunables named explicitly in the component
// design: scheduler concurrency, chunker parameters, the generator's
// trimming budget, and the agent's step and recall bounds.
type PipelineConfig struct {
	BatchSize        int     `mapstructure:"batch_size"`          // §4.3 concurrent doc generations per round
	ChunkSize        int     `mapstructure:"chunk_size"`          // §4.5 target tokens per chunk
	ChunkMinimum     int     `mapstructure:"chunk_minimum"`       // §4.5 merge threshold for undersized chunks
	TrimBudgetTokens int     `mapstructure:"trim_budget_tokens"`  // §4.2 content trim budget before generation
	EmbedBatchMax    int     `mapstructure:"embed_batch_max"`     // §4.1 max embedding inputs per request
	UpsertBatchMax   int     `mapstructure:"upsert_batch_max"`    // §4.6 max vectors per upsert batch
	SearchTopK       int     `mapstructure:"search_top_k"`        // §4.7 results returned per search
	MaxChatSteps     int     `mapstructure:"max_chat_steps"`      // §4.7 bound on the agent's reasoning loop
	SearchScoreFloor float64 `mapstructure:"search_score_floor"`  // §4.7 relevance cutoff for chat context
	MaxFileSizeBytes int64   `mapstructure:"max_file_size_bytes"` // §4.4 cap on a single identified file
}

type StorageConfig struct {
	QdrantHost string `mapstructure:"qdrant_host"`
	RepoPath   string `mapstructure:"repo_path"`
}

type FeaturesConfig struct {
	EnableHybridSearch bool `mapstructure:"enable_hybrid_search"`
}

type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// LoadConfig loads the configuration using Viper with the hierarchy:
// Flags (handled by caller) > Env Vars > Config File > Defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Set Defaults
	setDefaults(v)

	// 2. Read Config File
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name
	v.AddConfigPath(".")      // optionally look for config in the working directory
	v.AddConfigPath("$HOME/.docwarden")

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &notFound) {
			// Config file was found but another error occurred (e.g., syntax error)
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		slog.Info("No config file found, using defaults and environment variables")
	} else {
		slog.Info("Loaded configuration", "file", v.ConfigFileUsed())
	}

	// 3. Environment Variables (Automatic mapping)
	// Map env vars like SERVER_PORT to server.port
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Unmarshal
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_workers", 5)

	// Source host
	v.SetDefault("source_host.github_private_key_path", "keys/docwarden-app.private-key.pem")
	v.SetDefault("source_host.clone_path", "./data/repos")

	// AI
	v.SetDefault("ai.llm_provider", "ollama")
	v.SetDefault("ai.embedder_provider", "ollama")
	v.SetDefault("ai.ollama_host", "http://localhost:11434")
	v.SetDefault("ai.generator_model", "llama3.1")
	v.SetDefault("ai.embedder_model", "nomic-embed-text")
	v.SetDefault("ai.embedder_task_description", "search_document")
	v.SetDefault("ai.sparse_vector_name", "bow_sparse")

	// Pipeline
	v.SetDefault("pipeline.batch_size", 30)
	v.SetDefault("pipeline.chunk_size", 250)
	v.SetDefault("pipeline.chunk_minimum", 50)
	v.SetDefault("pipeline.trim_budget_tokens", 28000)
	v.SetDefault("pipeline.embed_batch_max", 2048)
	v.SetDefault("pipeline.upsert_batch_max", 100)
	v.SetDefault("pipeline.search_top_k", 4)
	v.SetDefault("pipeline.max_chat_steps", 4)
	v.SetDefault("pipeline.search_score_floor", 0.6)
	v.SetDefault("pipeline.max_file_size_bytes", 247500)

	// Storage
	v.SetDefault("storage.qdrant_host", "localhost:6334")
	v.SetDefault("storage.repo_path", "./data/repos")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	// Database
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "docwarden")
	v.SetDefault("database.username", "postgres")
	// Password has no default
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.conn_max_idle_time", "5m")

	// Features
	v.SetDefault("features.enable_hybrid_search", true)
}

func (c *Config) ValidateForServer() error {
	if c.SourceHost.GitHubAppID == 0 && c.SourceHost.GitHubToken == "" {
		return errors.New("source_host.github_app_id or source_host.github_token is required")
	}
	if (c.AI.LLMProvider == llmProviderGemini || c.AI.EmbedderProvider == llmProviderGemini) && c.AI.GeminiAPIKey == "" {
		return errors.New("ai.gemini_api_key is required for gemini provider")
	}
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("ai config invalid: %w", err)
	}
	return nil
}

func (c *Config) ValidateForCLI() error {
	if (c.AI.LLMProvider == llmProviderGemini || c.AI.EmbedderProvider == llmProviderGemini) && c.AI.GeminiAPIKey == "" {
		return errors.New("ai.gemini_api_key is required for gemini provider")
	}
	if err := c.AI.Validate(); err != nil {
		return fmt.Errorf("ai config invalid: %w", err)
	}
	return nil
}

func (db *DBConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host,
		db.Port,
		db.Username,
		db.Password,
		db.Database,
		db.SSLMode,
	)
}
