package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
)

type Config struct {
	Logger LoggerConfig `yaml:"logger"`
	Store  StoreConfig  `yaml:"store"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type StoreConfig struct {
	// Dir holds the segment files.
	Dir string `yaml:"dir"`
	// SegmentSizeLimit is the size in bytes at which the active segment is
	// sealed and a new one started.
	SegmentSizeLimit uint64 `yaml:"segment_size_limit"`
	// KeyStrategy is "sequence" or "uuid".
	KeyStrategy string `yaml:"key_strategy"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Dir:              "./data",
			SegmentSizeLimit: 4000,
			KeyStrategy:      "sequence",
		},
	}
}

// Load reads the YAML file at path over Default(). A missing file is not an
// error: the defaults are returned as they are.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Store.Dir == "" {
		errs = append(errs, errors.New("store.dir is required"))
	}
	if c.Store.SegmentSizeLimit == 0 {
		errs = append(errs, errors.New("store.segment_size_limit must be positive"))
	}
	switch c.Store.KeyStrategy {
	case "", "sequence", "uuid":
	default:
		errs = append(errs, fmt.Errorf("store.key_strategy %q is not one of sequence, uuid", c.Store.KeyStrategy))
	}
	if _, err := zerolog.ParseLevel(c.Logger.Level); err != nil {
		errs = append(errs, fmt.Errorf("logger.level: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
