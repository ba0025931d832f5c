package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the top-level woodsreport configuration file.
type YAMLConfig struct {
	Server  ServerConfig      `yaml:"server"`
	Store   StoreConfig       `yaml:"store"`
	Pool    PoolYAMLConfig    `yaml:"pool"`
	Session SessionConfig     `yaml:"session"`
	Reports map[string]string `yaml:"reports"`
	Client  ClientConfig      `yaml:"client"`
	Logging LoggingConfig     `yaml:"logging"`
}

// ServerConfig controls the HTTP server behavior.
type ServerConfig struct {
	Host            string     `yaml:"host"`
	Port            int        `yaml:"port"`
	MaxBodySize     string     `yaml:"max_body_size"`
	ShutdownTimeout string     `yaml:"shutdown_timeout"`
	RateLimit       int        `yaml:"rate_limit"`
	StaticDir       string     `yaml:"static_dir"`
	CORS            CORSConfig `yaml:"cors"`
}

// CORSConfig controls cross-origin resource sharing settings.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// StoreConfig names the single database pool the proxy serves.
type StoreConfig struct {
	Name     string `yaml:"name"`
	Prefix   string `yaml:"prefix"`
	Database string `yaml:"database"`
}

// PoolYAMLConfig controls the connection pool of the store.
type PoolYAMLConfig struct {
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MinConns               int    `yaml:"min_conns"`
	IdleTimeout            string `yaml:"idle_timeout"`
	ConnectTimeout         string `yaml:"connect_timeout"`
	Encrypt                bool   `yaml:"encrypt"`
	TrustServerCertificate bool   `yaml:"trust_server_certificate"`
}

// SessionConfig controls the terminal client's session lifecycle.
type SessionConfig struct {
	InactivityTimeout string `yaml:"inactivity_timeout"`
	Backend           string `yaml:"backend"`
	LoginProcedure    string `yaml:"login_procedure"`
}

// ClientConfig controls how the terminal client reaches the API.
type ClientConfig struct {
	APIBase string `yaml:"api_base"`
	Timeout string `yaml:"timeout"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadYAMLConfig reads and parses a YAML configuration file on top of the
// defaults. Environment variables referenced as ${VAR_NAME} in the file are
// expanded before parsing.
func LoadYAMLConfig(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	cfg := DefaultYAMLConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultYAMLConfig returns a YAMLConfig pre-filled with the production
// defaults of the Woods International deployment.
func DefaultYAMLConfig() *YAMLConfig {
	return &YAMLConfig{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			MaxBodySize:     "1MB",
			ShutdownTimeout: "30s",
			RateLimit:       0,
			CORS: CORSConfig{
				Origins: []string{"*"},
			},
		},
		Store: StoreConfig{
			Name:     "Woods International",
			Prefix:   DefaultPoolPrefix,
			Database: "ud_woodsoft",
		},
		Pool: PoolYAMLConfig{
			MaxOpenConns:           10,
			MinConns:               0,
			IdleTimeout:            "30s",
			ConnectTimeout:         "15s",
			Encrypt:                true,
			TrustServerCertificate: true,
		},
		Session: SessionConfig{
			InactivityTimeout: "15m",
			Backend:           "file",
			LoginProcedure:    "proc_logindone",
		},
		Reports: map[string]string{},
		Client: ClientConfig{
			APIBase: "http://localhost:8080",
			Timeout: "60s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// WriteDefaultConfig writes the default configuration to a YAML file,
// creating its directory. An existing file is replaced only when overwrite
// is set; otherwise the error wraps fs.ErrExist.
func WriteDefaultConfig(path string, overwrite bool) (err error) {
	data, err := yaml.Marshal(DefaultYAMLConfig())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("write config: %w", cerr)
		}
	}()
	_, err = f.Write(data)
	return err
}

// ParseDuration parses a Go duration string, returning fallback when s is
// empty or malformed.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ParseSize parses sizes such as "10MB", "512KB" or "1048576" into bytes,
// returning fallback when s is empty or malformed.
func ParseSize(s string, fallback int64) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return fallback
	}
	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier, s = 1<<30, strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier, s = 1<<20, strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier, s = 1<<10, strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		s = strings.TrimSuffix(s, "B")
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n * multiplier
}
