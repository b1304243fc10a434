package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidLogLevel indicates an unknown log level name
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidSize indicates a non-positive size or count
	ErrInvalidSize = errors.New("invalid size")

	// ErrEmptyAddr indicates a missing server address
	ErrEmptyAddr = errors.New("empty server address")
)

type Config struct {
	Debug    bool   `yaml:"debug"`
	LogLevel string `yaml:"log_level"`
	Server   struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Analysis struct {
		MaxFileSize int64 `yaml:"max_file_size"` // bytes
	} `yaml:"analysis"`
	Scan struct {
		Workers int      `yaml:"workers"`
		Ignore  []string `yaml:"ignore"`
	} `yaml:"scan"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	var cfg Config
	cfg.LogLevel = "INFO"
	cfg.Server.Addr = "127.0.0.1:8000"
	cfg.Storage.Path = "hohparser.db"
	cfg.Analysis.MaxFileSize = 10 * 1024 * 1024
	cfg.Scan.Workers = 4
	cfg.Scan.Ignore = []string{".git", "__pycache__", ".venv", "venv", "node_modules", ".tox"}
	return &cfg
}

// LoadConfig layers defaults, the YAML file at path and HOH_* environment
// variables, in that order. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	// 3. Override with Environment Variables if present
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("HOH_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HOH_DEBUG: %w", err)
		}
		cfg.Debug = b
	}
	if v := os.Getenv("HOH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("HOH_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("HOH_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("HOH_MAX_FILE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("HOH_MAX_FILE_SIZE: %w", err)
		}
		cfg.Analysis.MaxFileSize = n
	}
	if v := os.Getenv("HOH_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HOH_WORKERS: %w", err)
		}
		cfg.Scan.Workers = n
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel))
	}
	if c.Server.Addr == "" {
		errs = append(errs, ErrEmptyAddr)
	}
	if c.Analysis.MaxFileSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: analysis.max_file_size must be positive, got %d", ErrInvalidSize, c.Analysis.MaxFileSize))
	}
	if c.Scan.Workers <= 0 {
		errs = append(errs, fmt.Errorf("%w: scan.workers must be positive, got %d", ErrInvalidSize, c.Scan.Workers))
	}

	return errors.Join(errs...)
}
