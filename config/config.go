// Package config loads the application configuration from a YAML file with
// environment variable overrides for deployment-specific values.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP listener and upload limits.
type ServerConfig struct {
	Port        string `yaml:"port"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

// StorageConfig locates everything the service persists on disk.
type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	UploadsDir string `yaml:"uploads_dir"`
	VectorDir  string `yaml:"vector_dir"`
}

// AuthConfig configures the JWT wrapper.
type AuthConfig struct {
	JWTSecretEnv  string `yaml:"jwt_secret_env"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

// OllamaConfig configures the local Ollama embedding endpoint.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// OpenAIConfig configures an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
}

// EmbedderConfig selects the embedding provider.
type EmbedderConfig struct {
	Provider string        `yaml:"provider"` // "ollama" or "openai"
	Ollama   *OllamaConfig `yaml:"ollama,omitempty"`
	OpenAI   *OpenAIConfig `yaml:"openai,omitempty"`
}

// GeminiConfig configures the Google Gemini completion backend.
type GeminiConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
}

// LLMConfig selects the completion provider and default model.
type LLMConfig struct {
	Provider     string        `yaml:"provider"` // "openai" or "gemini"
	DefaultModel string        `yaml:"default_model"`
	OpenAI       *OpenAIConfig `yaml:"openai,omitempty"`
	Gemini       *GeminiConfig `yaml:"gemini,omitempty"`
}

// WatchConfig configures the optional drop-folder ingester.
type WatchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	UserID  string `yaml:"user_id"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Embedder EmbedderConfig `yaml:"embedder"`
	LLM      LLMConfig      `yaml:"llm"`
	Watch    WatchConfig    `yaml:"watch"`
}

// Load reads a config from path. A missing file yields the defaults rather
// than an error, so a bare checkout can start with env vars alone.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnvOverrides(cfg)
			applyDerivedDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	applyDerivedDefaults(cfg)
	return cfg, nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{Port: "8080", MaxUploadMB: 20},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Auth: AuthConfig{JWTSecretEnv: "JWT_SECRET", TokenTTLHours: 24},
		Embedder: EmbedderConfig{
			Provider: "ollama",
			Ollama:   &OllamaConfig{BaseURL: "http://localhost:11434", Model: "nomic-embed-text:v1.5"},
		},
		LLM: LLMConfig{
			Provider:     "openai",
			DefaultModel: "gpt-4o-mini",
			OpenAI:       &OpenAIConfig{APIKeyEnv: "OPENAI_API_KEY"},
			Gemini:       &GeminiConfig{APIKeyEnv: "GEMINI_API_KEY"},
		},
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
}

// applyDerivedDefaults fills in paths that hang off the data directory when
// they were not set explicitly.
func applyDerivedDefaults(cfg *AppConfig) {
	if cfg.Storage.UploadsDir == "" {
		cfg.Storage.UploadsDir = filepath.Join(cfg.Storage.DataDir, "uploads")
	}
	if cfg.Storage.VectorDir == "" {
		cfg.Storage.VectorDir = filepath.Join(cfg.Storage.DataDir, "vector_stores")
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 20
	}
	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 24
	}
	if cfg.Auth.JWTSecretEnv == "" {
		cfg.Auth.JWTSecretEnv = "JWT_SECRET"
	}
	if cfg.LLM.DefaultModel == "" {
		cfg.LLM.DefaultModel = "gpt-4o-mini"
	}
}
