package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr       string `yaml:"listen_addr"`
	DBPath           string `yaml:"db_path"`
	BlobBackend      string `yaml:"blob_backend"`
	BlobPath         string `yaml:"blob_local_path"`
	S3Bucket         string `yaml:"s3_bucket"`
	S3Region         string `yaml:"s3_region"`
	S3Endpoint       string `yaml:"s3_endpoint"`
	S3PathStyle      bool   `yaml:"s3_path_style"`
	VisionBackend    string `yaml:"vision_backend"`
	OllamaHost       string `yaml:"ollama_host"`
	OllamaModel      string `yaml:"ollama_model"`
	ClaudeAPIKey     string `yaml:"claude_api_key"`
	ClaudeModel      string `yaml:"claude_model"`
	LogLevel         string `yaml:"log_level"`
	LogFile          string `yaml:"log_file"`
	SchedulerEnabled bool   `yaml:"scheduler_enabled"`
	TestMode         bool   `yaml:"-"`
}

func defaults() *Config {
	return &Config{
		ListenAddr:       ":8080",
		DBPath:           "/data/toolkeepr.db",
		BlobBackend:      "local",
		BlobPath:         "/data/blobs",
		S3Region:         "us-east-1",
		VisionBackend:    "ollama",
		OllamaHost:       "http://localhost:11434",
		OllamaModel:      "llava",
		ClaudeModel:      "claude-sonnet-4-5",
		LogLevel:         "info",
		SchedulerEnabled: true,
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by TOOLKEEPR_CONFIG, and finally the environment.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("TOOLKEEPR_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.BlobBackend = getEnv("BLOB_BACKEND", cfg.BlobBackend)
	cfg.BlobPath = getEnv("BLOB_LOCAL_PATH", cfg.BlobPath)
	cfg.S3Bucket = getEnv("S3_BUCKET", cfg.S3Bucket)
	cfg.S3Region = getEnv("S3_REGION", cfg.S3Region)
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3PathStyle = getEnvBool("S3_PATH_STYLE", cfg.S3PathStyle)
	cfg.VisionBackend = getEnv("VISION_BACKEND", cfg.VisionBackend)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.OllamaModel = getEnv("OLLAMA_MODEL", cfg.OllamaModel)
	cfg.ClaudeAPIKey = getEnv("CLAUDE_API_KEY", cfg.ClaudeAPIKey)
	cfg.ClaudeModel = getEnv("CLAUDE_MODEL", cfg.ClaudeModel)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)
	cfg.SchedulerEnabled = getEnvBool("SCHEDULER_ENABLED", cfg.SchedulerEnabled)
	cfg.TestMode = os.Getenv("TOOLKEEPR_TEST_MODE") == "1"

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
