// Package config handles application configuration and setup
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
	"github.com/retroenv/snespatch/internal/address"
	"github.com/retroenv/snespatch/internal/errs"
	"github.com/retroenv/snespatch/internal/leveltable"
	"gopkg.in/yaml.v3"
)

// AutoMapper selects the mapping mode from the internal cartridge header.
const AutoMapper = "auto"

// Log levels accepted by the log_level key.
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelError = "error"
)

// ErrInvalidConfig is returned for configuration values out of range.
var ErrInvalidConfig = fmt.Errorf("%w: invalid configuration", errs.ErrValidation)

var (
	compressions = newSet("none", "zstd", "lz4", "snappy")
	logLevels    = newSet(LogLevelDebug, LogLevelInfo, LogLevelError)
)

func newSet(names ...string) set.Set[string] {
	s := set.New[string]()
	for _, name := range names {
		s.Add(name)
	}
	return s
}

// FreeSpaceConfig controls free space allocation.
type FreeSpaceConfig struct {
	// Alignment is the power of two the start of a new record is aligned to.
	Alignment uint `yaml:"alignment"`
}

// BackupConfig controls backups of the image taken before it is written.
type BackupConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
}

// VersionsConfig controls the per level version table.
type VersionsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Stamp   string `yaml:"stamp"`
}

// Config is the patcher configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Mapper    string          `yaml:"mapper"`
	FreeSpace FreeSpaceConfig `yaml:"free_space"`
	Backup    BackupConfig    `yaml:"backup"`
	Versions  VersionsConfig  `yaml:"versions"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: LogLevelInfo,
		Mapper:   AutoMapper,
		Backup: BackupConfig{
			Enabled:     true,
			Compression: "zstd",
		},
		Versions: VersionsConfig{
			Stamp: "1.0.0",
		},
	}
}

// Load reads configuration from an io.Reader. Values missing in the input
// keep their defaults, unknown keys are rejected.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()
	if r == nil {
		return cfg, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config data: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unmarshalling config yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from a YAML file. An empty path returns the
// defaults.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	return Load(file)
}

// Validate checks all values of the configuration.
func (c *Config) Validate() error {
	if c.LogLevel != "" && !logLevels.Contains(strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("%w: log_level '%s'", ErrInvalidConfig, c.LogLevel)
	}
	if _, _, err := c.ForcedMapper(); err != nil {
		return err
	}
	if c.FreeSpace.Alignment > 16 {
		return fmt.Errorf("%w: free_space.alignment %d exceeds 16", ErrInvalidConfig, c.FreeSpace.Alignment)
	}
	if !compressions.Contains(strings.ToLower(c.Backup.Compression)) {
		return fmt.Errorf("%w: backup.compression '%s'", ErrInvalidConfig, c.Backup.Compression)
	}
	if c.Versions.Enabled {
		if _, err := leveltable.ParseVersion(c.Versions.Stamp); err != nil {
			return fmt.Errorf("%w: versions.stamp: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// ForcedMapper returns the configured mapper, the second return value is
// false if the mapper should be detected.
func (c *Config) ForcedMapper() (address.Mapper, bool, error) {
	if c.Mapper == "" || strings.EqualFold(c.Mapper, AutoMapper) {
		return nil, false, nil
	}
	m, err := address.ParseMapper(c.Mapper)
	if err != nil {
		return nil, false, fmt.Errorf("%w: mapper: %w", ErrInvalidConfig, err)
	}
	return m, true, nil
}

// VersionStamp returns the stamp written to the version table, the second
// return value is false if version tracking is disabled.
func (c *Config) VersionStamp() (leveltable.Version, bool, error) {
	if !c.Versions.Enabled {
		return leveltable.Version{}, false, nil
	}
	v, err := leveltable.ParseVersion(c.Versions.Stamp)
	if err != nil {
		return leveltable.Version{}, false, fmt.Errorf("%w: versions.stamp: %w", ErrInvalidConfig, err)
	}
	return v, true, nil
}

// NewLogger creates the program logger at the configured level. The debug
// and quiet flags override the configured level.
func (c *Config) NewLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	switch c.logLevel(debug, quiet) {
	case LogLevelDebug:
		cfg.Level = log.DebugLevel
	case LogLevelError:
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

func (c *Config) logLevel(debug, quiet bool) string {
	switch {
	case debug:
		return LogLevelDebug
	case quiet:
		return LogLevelError
	case c.LogLevel == "":
		return LogLevelInfo
	default:
		return strings.ToLower(c.LogLevel)
	}
}
