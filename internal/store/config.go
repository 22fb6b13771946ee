package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultAPIURL       = "http://localhost:8000"
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = time.Second

	SessionBackendFile  = "file"
	SessionBackendRedis = "redis"
)

type Config struct {
	// APIURL is the backend base URL (scheme + host, no /api suffix).
	APIURL string `json:"api_url,omitempty"`

	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	// StrictTokens signs out when the stored token cannot be decoded.
	StrictTokens bool `json:"strict_tokens,omitempty"`

	// SessionBackend is file (default) or redis.
	SessionBackend string `json:"session_backend,omitempty"`
	RedisURL       string `json:"redis_url,omitempty"`

	// PollIntervalMS is how often other processes' session changes are checked.
	PollIntervalMS int `json:"poll_interval_ms,omitempty"`

	LogLevel string `json:"log_level,omitempty"`
}

func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c Config) Backend() string {
	if strings.TrimSpace(c.SessionBackend) == "" {
		return SessionBackendFile
	}
	return strings.ToLower(strings.TrimSpace(c.SessionBackend))
}

// ConfigKeys lists the keys accepted by Set, sorted.
func ConfigKeys() []string {
	keys := []string{"api_url", "timeout_seconds", "strict_tokens", "session_backend", "redis_url", "poll_interval_ms", "log_level"}
	sort.Strings(keys)
	return keys
}

// Set assigns one field by its json key. An empty value resets it to the default.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch strings.TrimSpace(key) {
	case "api_url":
		c.APIURL = strings.TrimRight(value, "/")
	case "timeout_seconds":
		n, err := atoiOrZero(value)
		if err != nil {
			return fmt.Errorf("timeout_seconds: %w", err)
		}
		c.TimeoutSeconds = n
	case "strict_tokens":
		if value == "" {
			c.StrictTokens = false
			return nil
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("strict_tokens: expected true|false")
		}
		c.StrictTokens = b
	case "session_backend":
		v := strings.ToLower(value)
		if v != "" && v != SessionBackendFile && v != SessionBackendRedis {
			return fmt.Errorf("session_backend: expected file|redis")
		}
		c.SessionBackend = v
	case "redis_url":
		c.RedisURL = value
	case "poll_interval_ms":
		n, err := atoiOrZero(value)
		if err != nil {
			return fmt.Errorf("poll_interval_ms: %w", err)
		}
		c.PollIntervalMS = n
	case "log_level":
		c.LogLevel = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(ConfigKeys(), ", "))
	}
	return nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("expected a non-negative integer")
	}
	return n, nil
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.tasksync).
	if v := strings.TrimSpace(os.Getenv("TASKSYNC_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tasksync"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	// Keep the previous config around; failures here must not block the save.
	if prev, err := os.ReadFile(path); err == nil && len(prev) > 0 {
		_ = atomicWriteFile(dir, "config.json.bak.*.tmp", path+".bak", prev, 0o644)
	}

	// Unique temp name + rename: CLI and TUI processes may save concurrently.
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}
