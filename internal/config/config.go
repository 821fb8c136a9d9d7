package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

var ErrConfigNotFound = errors.New("config not found")

// EnvPath overrides the config file location.
const EnvPath = "PARLEY_CONFIG"

const (
	BackendBadger = "badger"
	BackendS3     = "s3"
)

type Config struct {
	Profile Profile `yaml:"profile"`
	Storage Storage `yaml:"storage"`
	Log     Log     `yaml:"log"`
	History History `yaml:"history"`
	Metrics Metrics `yaml:"metrics"`
}

// Profile is the local store for encryption settings. It is always on this machine, whatever
// the storage backend, so the key hash never reaches the backend.
type Profile struct {
	Path string `yaml:"path"`
}

type Storage struct {
	Backend string `yaml:"backend"`
	Badger  Badger `yaml:"badger"`
	S3      S3     `yaml:"s3"`
}

type Badger struct {
	Path string `yaml:"path"`
}

type S3 struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix,omitempty"`
	PathStyle       bool   `yaml:"path_style,omitempty"`
	PartSizeMB      int64  `yaml:"part_size_mb,omitempty"`
	Concurrency     int    `yaml:"concurrency,omitempty"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type History struct {
	// Workers bounds concurrent decryption when loading a conversation.
	Workers int `yaml:"workers"`
}

type Metrics struct {
	// Textfile, when set, receives a node exporter textfile after every command.
	Textfile string `yaml:"textfile,omitempty"`
}

// Dir returns the parley directory under the user config dir.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "parley"), nil
}

// DefaultPath is $PARLEY_CONFIG, or config.yaml under Dir.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns a config that keeps everything in a local badger database.
func Default() Config {
	dbPath, profilePath := "parley.db", "parley.profile"
	if dir, err := Dir(); err == nil {
		dbPath = filepath.Join(dir, "data")
		profilePath = filepath.Join(dir, "profile")
	}
	return Config{
		Profile: Profile{Path: profilePath},
		Storage: Storage{
			Backend: BackendBadger,
			Badger:  Badger{Path: dbPath},
			S3: S3{
				Region:      "us-east-1",
				PartSizeMB:  16,
				Concurrency: 4,
			},
		},
		Log:     Log{Level: "warn", Format: "text"},
		History: History{Workers: 4},
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var result *multierror.Error

	if c.Profile.Path == "" {
		result = multierror.Append(result, errors.New("profile.path is required"))
	}

	switch c.Storage.Backend {
	case BackendBadger:
		if c.Storage.Badger.Path == "" {
			result = multierror.Append(result, errors.New("storage.badger.path is required"))
		} else if filepath.Clean(c.Storage.Badger.Path) == filepath.Clean(c.Profile.Path) {
			result = multierror.Append(result, errors.New("storage.badger.path must differ from profile.path"))
		}
	case BackendS3:
		s3 := c.Storage.S3
		if s3.Bucket == "" {
			result = multierror.Append(result, errors.New("storage.s3.bucket is required"))
		}
		if (s3.AccessKeyID == "") != (s3.SecretAccessKey == "") {
			result = multierror.Append(result, errors.New("storage.s3.access_key_id and secret_access_key must be set together"))
		}
		if s3.PartSizeMB < 0 {
			result = multierror.Append(result, errors.New("storage.s3.part_size_mb must not be negative"))
		}
		if s3.Concurrency < 0 {
			result = multierror.Append(result, errors.New("storage.s3.concurrency must not be negative"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("storage.backend %q is not one of %q, %q", c.Storage.Backend, BackendBadger, BackendS3))
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	if c.History.Workers < 0 {
		result = multierror.Append(result, errors.New("history.workers must not be negative"))
	}

	return result.ErrorOrNil()
}

// Save writes the config to path, creating its directory.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// the file may hold storage credentials
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads path over Default, so missing fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
