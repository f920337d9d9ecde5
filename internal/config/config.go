package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTopic         = "base"
	DefaultProjectFolder = "csc111"
	DefaultListenAddr    = "127.0.0.1:7070"
	DefaultFlushInterval = 100 * time.Second
)

// DefaultActions is every activity stream the agent knows how to record.
var DefaultActions = []string{
	"openDocument",
	"startDebugSession",
	"endDebugSession",
	"endTaskProcess",
	"saveDocument",
	"terminalOpened",
	"terminalClosed",
	"terminalActiveChanged",
	"diagnosticsChanged",
	"textDocumentChanged",
}

// AgentConfig holds all configuration for the activity agent.
type AgentConfig struct {
	Topic         string        `yaml:"topic"`
	EndpointURL   string        `yaml:"endpoint_url"`
	Actions       []string      `yaml:"actions"`
	UserID        string        `yaml:"user_id"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	StorageDir    string        `yaml:"storage_dir"`
	WorkspaceRoot string        `yaml:"workspace_root"`
	ProjectFolder string        `yaml:"project_folder"`
	ListenAddr    string        `yaml:"listen_addr"`
	MaxFailures   int           `yaml:"max_failures"`
	ValidateURL   string        `yaml:"validate_url"`
}

// CollectorConfig holds all configuration for the collector service.
type CollectorConfig struct {
	Port               string
	DatabaseURL        string
	RedisURL           string
	NumWorkers         int
	RateLimitPerSecond int
	DedupTTL           time.Duration
}

// LoadAgent reads the optional YAML file named by ACTIVITY_CONFIG and then
// applies environment variables on top.
func LoadAgent() (*AgentConfig, error) {
	cfg := &AgentConfig{
		Topic:         DefaultTopic,
		Actions:       append([]string(nil), DefaultActions...),
		FlushInterval: DefaultFlushInterval,
		ProjectFolder: DefaultProjectFolder,
		ListenAddr:    DefaultListenAddr,
	}

	if path := os.Getenv("ACTIVITY_CONFIG"); path != "" {
		if err := loadFile(expandPath(path), cfg); err != nil {
			return nil, err
		}
	}

	cfg.Topic = getEnv("TOPIC", cfg.Topic)
	cfg.EndpointURL = getEnv("ENDPOINT_URL", cfg.EndpointURL)
	cfg.Actions = getEnvList("ACTIONS", cfg.Actions)
	cfg.UserID = getEnv("USER_ID", cfg.UserID)
	cfg.FlushInterval = getEnvDuration("FLUSH_INTERVAL", cfg.FlushInterval)
	cfg.StorageDir = expandPath(getEnv("STORAGE_DIR", cfg.StorageDir))
	cfg.WorkspaceRoot = expandPath(getEnv("WORKSPACE_ROOT", cfg.WorkspaceRoot))
	cfg.ProjectFolder = getEnv("PROJECT_FOLDER", cfg.ProjectFolder)
	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.MaxFailures = getEnvInt("MAX_FAILURES", cfg.MaxFailures)
	cfg.ValidateURL = getEnv("VALIDATE_URL", cfg.ValidateURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the agent cannot start without.
func (c *AgentConfig) Validate() error {
	if c.EndpointURL == "" {
		return fmt.Errorf("ENDPOINT_URL is required")
	}
	if c.StorageDir == "" {
		return fmt.Errorf("STORAGE_DIR is required")
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("FLUSH_INTERVAL must be positive")
	}
	if c.MaxFailures < 0 {
		return fmt.Errorf("MAX_FAILURES must not be negative")
	}
	return nil
}

// LoadCollector reads collector configuration from environment variables.
func LoadCollector() (*CollectorConfig, error) {
	port := getEnv("PORT", "5000")
	dbURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")
	numWorkers := getEnvInt("NUM_WORKERS", 8)
	rateLimit := getEnvInt("RATE_LIMIT_PER_SECOND", 20)
	dedupTTL := getEnvDuration("DEDUP_TTL", 24*time.Hour)

	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	return &CollectorConfig{
		Port:               port,
		DatabaseURL:        dbURL,
		RedisURL:           redisURL,
		NumWorkers:         numWorkers,
		RateLimitPerSecond: rateLimit,
		DedupTTL:           dedupTTL,
	}, nil
}

func loadFile(path string, cfg *AgentConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
