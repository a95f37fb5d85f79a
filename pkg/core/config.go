package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/joseairosa/recall-sub001/pkg/memory"
)

// Config contains the complete configuration for a Recall client.
//
// It includes settings for:
//   - The Redis substrate (address, credentials, database)
//   - The embedding provider (for vector generation)
//   - Workspace identity and scope mode
//   - Consolidation defaults (optional)
//
// Example:
//
//	config := &core.Config{
//	    Redis: core.RedisConfig{
//	        Addr: "localhost:6379",
//	    },
//	    Embedder: core.EmbedderConfig{
//	        Provider: "openai",
//	        APIKey:   "sk-...",
//	    },
//	    WorkspacePath: "/home/me/project",
//	    Mode:          memory.ModeHybrid,
//	}
type Config struct {
	// Redis contains substrate connection settings.
	Redis RedisConfig `json:"redis"`

	// Embedder contains embedding provider configuration.
	Embedder EmbedderConfig `json:"embedder"`

	// WorkspacePath is the filesystem path identifying the workspace.
	// Its hash becomes the workspace namespace. Defaults to the current
	// working directory.
	WorkspacePath string `json:"workspace_path,omitempty"`

	// Mode selects which scopes read paths consult (isolated, global,
	// hybrid). Defaults to isolated.
	Mode memory.ScopeMode `json:"mode,omitempty"`

	// Consolidation overrides the default consolidation parameters
	// (optional; zero fields keep their defaults).
	Consolidation memory.ConsolidationConfig `json:"consolidation,omitempty"`
}

// RedisConfig contains connection settings for the Redis substrate.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string `json:"addr"`

	// Password is the Redis password (empty for none).
	Password string `json:"password,omitempty"`

	// DB is the Redis database number.
	DB int `json:"db,omitempty"`
}

// EmbedderConfig contains configuration for the embedding provider.
//
// Supported providers: openai
type EmbedderConfig struct {
	// Provider is the embedding provider name.
	Provider string `json:"provider"`

	// APIKey is the API key for the embedding provider.
	APIKey string `json:"api_key"`

	// Model is the embedding model name (e.g., "text-embedding-ada-002").
	Model string `json:"model,omitempty"`

	// BaseURL is the base URL for the API (optional, uses the provider
	// default if empty).
	BaseURL string `json:"base_url,omitempty"`

	// Dimensions is the dimension of the embedding vectors.
	Dimensions int `json:"dimensions,omitempty"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB
//   - WORKSPACE_PATH (defaults to the working directory)
//   - SCOPE_MODE (isolated, global, hybrid)
//   - EMBEDDING_PROVIDER, EMBEDDING_API_KEY, EMBEDDING_MODEL,
//     EMBEDDING_BASE_URL, EMBEDDING_DIMS
//   - CONSOLIDATION_SIMILARITY_THRESHOLD, CONSOLIDATION_MIN_CLUSTER_SIZE,
//     CONSOLIDATION_COUNT_THRESHOLD, CONSOLIDATION_MAX_MEMORIES
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	db, _ := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	dims, _ := strconv.Atoi(getEnvOrDefault("EMBEDDING_DIMS", "1536"))

	workspace := os.Getenv("WORKSPACE_PATH")
	if workspace == "" {
		workspace, _ = os.Getwd()
	}

	config := &Config{
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       db,
		},
		Embedder: EmbedderConfig{
			Provider:   getEnvOrDefault("EMBEDDING_PROVIDER", "openai"),
			APIKey:     os.Getenv("EMBEDDING_API_KEY"),
			Model:      getEnvOrDefault("EMBEDDING_MODEL", "text-embedding-ada-002"),
			BaseURL:    os.Getenv("EMBEDDING_BASE_URL"),
			Dimensions: dims,
		},
		WorkspacePath: workspace,
		Mode:          memory.ScopeMode(getEnvOrDefault("SCOPE_MODE", string(memory.ModeIsolated))),
	}

	if v := os.Getenv("CONSOLIDATION_SIMILARITY_THRESHOLD"); v != "" {
		config.Consolidation.SimilarityThreshold, _ = strconv.ParseFloat(v, 64)
	}
	if v := os.Getenv("CONSOLIDATION_MIN_CLUSTER_SIZE"); v != "" {
		config.Consolidation.MinClusterSize, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("CONSOLIDATION_COUNT_THRESHOLD"); v != "" {
		config.Consolidation.MemoryCountThreshold, _ = strconv.Atoi(v)
	}
	if v := os.Getenv("CONSOLIDATION_MAX_MEMORIES"); v != "" {
		config.Consolidation.MaxMemories, _ = strconv.Atoi(v)
	}

	return config, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewStoreError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewStoreError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Checks that the substrate address is set and the scope mode, when
// given, is one of the known modes.
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return NewStoreError("Validate", memory.ErrInvalidConfig)
	}
	if c.Mode != "" && !c.Mode.Valid() {
		return NewStoreError("Validate", memory.ErrInvalidConfig)
	}
	return nil
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
