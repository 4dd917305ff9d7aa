package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// AppDirName is the folder created under the user config directory.
const AppDirName = "VideoSorter"

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Drives  DrivesConfig  `yaml:"drives"`
	QR      QRConfig      `yaml:"qr"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host              string        `yaml:"host" envconfig:"SERVER_HOST"`
	Port              int           `yaml:"port" envconfig:"SERVER_PORT"`
	PublicHost        string        `yaml:"public_host" envconfig:"SERVER_PUBLIC_HOST"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" envconfig:"SERVER_READ_HEADER_TIMEOUT"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" envconfig:"SERVER_IDLE_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" envconfig:"SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig holds the application data layout and upload limits.
type StorageConfig struct {
	DataDir     string        `yaml:"data_dir" envconfig:"DATA_DIR"`
	MaxFileSize int64         `yaml:"max_file_size" envconfig:"MAX_FILE_SIZE"`
	MaxFiles    int           `yaml:"max_files" envconfig:"MAX_FILES"`
	SaveDelay   time.Duration `yaml:"save_delay" envconfig:"METADATA_SAVE_DELAY"`
}

// DrivesConfig holds removable drive detection configuration.
type DrivesConfig struct {
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"DRIVES_POLL_INTERVAL"`
	MediaRoots   []string      `yaml:"media_roots" envconfig:"DRIVES_MEDIA_ROOTS"`
	Watch        bool          `yaml:"watch" envconfig:"DRIVES_WATCH"`
}

// QRConfig holds the QR image service settings.
type QRConfig struct {
	ImageURL string `yaml:"image_url" envconfig:"QR_IMAGE_URL"`
	Size     int    `yaml:"size" envconfig:"QR_SIZE"`
}

// LogConfig holds logging configuration. File defaults to
// <data_dir>/logs/videosorter.log when ToFile is set.
type LogConfig struct {
	Level      string `yaml:"level" envconfig:"LOG_LEVEL"`
	ToFile     bool   `yaml:"to_file" envconfig:"LOG_TO_FILE"`
	File       string `yaml:"file" envconfig:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" envconfig:"LOG_MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"LOG_MAX_AGE_DAYS"`
	Compress   bool   `yaml:"compress" envconfig:"LOG_COMPRESS"`
}

// Default returns the built-in configuration. DataDir is left empty and
// resolved by Load.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              3000,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   10 * time.Second,
		},
		Storage: StorageConfig{
			MaxFileSize: 10 << 30, // 10 GiB
			MaxFiles:    50,
			SaveDelay:   time.Second,
		},
		Drives: DrivesConfig{
			PollInterval: 3 * time.Second,
			Watch:        true,
		},
		QR: QRConfig{
			ImageURL: "https://api.qrserver.com/v1/create-qr-code/",
			Size:     200,
		},
		Log: LogConfig{
			Level:      "info",
			ToFile:     true,
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// an optional .env file in the working directory, and the environment.
// Later sources override earlier ones.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// godotenv never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if cfg.Storage.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.Storage.DataDir = dir
	}
	if cfg.Log.ToFile && cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(cfg.Storage.DataDir, "logs", "videosorter.log")
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultDataDir returns <user config dir>/VideoSorter, falling back to
// the home directory.
func DefaultDataDir() (string, error) {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve data directory: %w", err)
	}
	return filepath.Join(home, "."+strings.ToLower(AppDirName)), nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.Storage.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if c.Storage.MaxFiles <= 0 {
		return fmt.Errorf("MAX_FILES must be positive")
	}
	if c.Storage.SaveDelay < 0 {
		return fmt.Errorf("METADATA_SAVE_DELAY must not be negative")
	}
	if c.Drives.PollInterval <= 0 {
		return fmt.Errorf("DRIVES_POLL_INTERVAL must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UploadDir is where incoming files are stored.
func (c *StorageConfig) UploadDir() string {
	return filepath.Join(c.DataDir, "imports", "raw")
}

// ProcessedDir holds one folder per category.
func (c *StorageConfig) ProcessedDir() string {
	return filepath.Join(c.DataDir, "processed")
}

// MetadataPath is the JSON document backing the metadata store.
func (c *StorageConfig) MetadataPath() string {
	return filepath.Join(c.DataDir, "metadata.json")
}

// QRImageURL returns the image service URL encoding data.
func (c *QRConfig) QRImageURL(data string) string {
	return fmt.Sprintf("%s?size=%dx%d&data=%s", c.ImageURL, c.Size, c.Size, url.QueryEscape(data))
}
