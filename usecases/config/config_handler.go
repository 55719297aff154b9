//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/weaviate/storage-exporter/adapters/repos/storage/codec"
	"github.com/weaviate/storage-exporter/entities/etag"
)

const (
	DefaultBatchSize         = 1024
	DefaultGzipLevel         = -1
	DefaultLockRetries       = 3
	DefaultLockRetryInterval = 200 * time.Millisecond
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// Flags are input options
type Flags struct {
	ConfigFile string `long:"config-file" description:"path to a .json or .yaml config file"`

	DataDir     string `long:"data-dir" description:"directory of the storage to export"`
	Output      string `long:"output" short:"o" description:"path of the gzip compressed archive to write"`
	BatchSize   int    `long:"batch-size" description:"records read per storage batch (default: 1024)"`
	Etag        string `long:"etag" description:"export documents starting at this etag (inclusive)"`
	Compression bool   `long:"compression" description:"stored documents are compressed"`

	EncryptionKey       string `long:"encryption-key" description:"base64 encoded key the storage is encrypted with"`
	EncryptionAlgorithm string `long:"encryption-algorithm" description:"aes-gcm or chacha20-poly1305 (default: aes-gcm)"`
	EncryptIndexes      bool   `long:"encrypt-indexes" description:"index and transformer definitions are encrypted too"`
	EncryptionKeyBits   int    `long:"encryption-key-bits" description:"preferred key size: 128, 192 or 256 (default: 256)"`

	GzipLevel         *int          `long:"gzip-level" description:"archive compression level, -2 to 9 (default: -1)"`
	LockRetries       *int          `long:"lock-retries" description:"how often to retry while the storage is locked (default: 3)"`
	LockRetryInterval time.Duration `long:"lock-retry-interval" description:"pause between lock retries (default: 200ms)"`
	MetricsTextfile   string        `long:"metrics-textfile" description:"write prometheus metrics to this file when done"`

	LogLevel  string `long:"log-level" description:"panic, fatal, error, warn, info, debug or trace (default: info)"`
	LogFormat string `long:"log-format" description:"text or json (default: text)"`
}

// Config outline of the config file
type Config struct {
	DataDir           string        `json:"data_dir" yaml:"data_dir"`
	Output            string        `json:"output" yaml:"output"`
	BatchSize         int           `json:"batch_size" yaml:"batch_size"`
	StartEtag         string        `json:"start_etag" yaml:"start_etag"`
	Compression       bool          `json:"compression" yaml:"compression"`
	Encryption        Encryption    `json:"encryption" yaml:"encryption"`
	GzipLevel         int           `json:"gzip_level" yaml:"gzip_level"`
	LockRetries       int           `json:"lock_retries" yaml:"lock_retries"`
	LockRetryInterval time.Duration `json:"lock_retry_interval" yaml:"lock_retry_interval"`
	MetricsTextfile   string        `json:"metrics_textfile" yaml:"metrics_textfile"`
	Logging           Logging       `json:"logging" yaml:"logging"`
}

// UnmarshalJSON accepts lock_retry_interval as a duration string like
// "200ms", as YAML does, or as integer nanoseconds.
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	aux := struct {
		*plain
		LockRetryInterval json.RawMessage `json:"lock_retry_interval"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.LockRetryInterval) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.LockRetryInterval, &s); err == nil {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("lock_retry_interval: %w", err)
		}
		c.LockRetryInterval = d
		return nil
	}
	var ns int64
	if err := json.Unmarshal(aux.LockRetryInterval, &ns); err != nil {
		return fmt.Errorf("lock_retry_interval: want a duration string or nanoseconds, got %s", aux.LockRetryInterval)
	}
	c.LockRetryInterval = time.Duration(ns)
	return nil
}

// Encryption describes how the storage was encrypted. No key means the
// storage is not encrypted.
type Encryption struct {
	Key            string `json:"key" yaml:"key"`
	Algorithm      string `json:"algorithm" yaml:"algorithm"`
	EncryptIndexes bool   `json:"encrypt_indexes" yaml:"encrypt_indexes"`
	KeyBits        int    `json:"key_bits" yaml:"key_bits"`
}

type Logging struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Defaults returns the config used when nothing else is set.
func Defaults() Config {
	return Config{
		BatchSize:         DefaultBatchSize,
		GzipLevel:         DefaultGzipLevel,
		LockRetries:       DefaultLockRetries,
		LockRetryInterval: DefaultLockRetryInterval,
		Encryption: Encryption{
			Algorithm: codec.AlgorithmAESGCM,
			KeyBits:   codec.DefaultKeyBits,
		},
		Logging: Logging{Level: DefaultLogLevel, Format: DefaultLogFormat},
	}
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return configErr(fmt.Errorf("data directory is required"))
	}
	if c.Output == "" {
		return configErr(fmt.Errorf("output path is required"))
	}
	if c.BatchSize <= 0 {
		return configErr(fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if _, err := c.DocumentsStartEtag(); err != nil {
		return configErr(err)
	}
	if c.GzipLevel < -2 || c.GzipLevel > 9 {
		return configErr(fmt.Errorf("gzip level must be between -2 and 9, got %d", c.GzipLevel))
	}
	if c.LockRetries < 0 {
		return configErr(fmt.Errorf("lock retries must not be negative, got %d", c.LockRetries))
	}
	if _, err := c.EncryptionSettings(); err != nil {
		return configErr(err)
	}
	if err := c.Logging.Validate(); err != nil {
		return configErr(err)
	}
	return nil
}

// DocumentsStartEtag parses the configured start etag. An empty value is
// the empty etag.
func (c *Config) DocumentsStartEtag() (etag.Etag, error) {
	if c.StartEtag == "" {
		return etag.Empty, nil
	}
	e, err := etag.Parse(c.StartEtag)
	if err != nil {
		return etag.Empty, fmt.Errorf("start etag: %w", err)
	}
	return e, nil
}

// EncryptionSettings decodes the encryption key. It returns nil when the
// storage is not encrypted.
func (c *Config) EncryptionSettings() (*codec.EncryptionSettings, error) {
	if c.Encryption.Key == "" {
		if c.Encryption.EncryptIndexes {
			return nil, fmt.Errorf("encrypted indexes need an encryption key")
		}
		return nil, nil
	}
	key, err := codec.DecodeKey(c.Encryption.Key)
	if err != nil {
		return nil, err
	}
	settings := &codec.EncryptionSettings{
		Key:              key,
		Algorithm:        c.Encryption.Algorithm,
		EncryptIndexes:   c.Encryption.EncryptIndexes,
		PreferredKeyBits: c.Encryption.KeyBits,
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("encryption: %w", err)
	}
	return settings, nil
}

func (l Logging) Validate() error {
	if _, err := logrus.ParseLevel(l.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	switch l.Format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("log format must be text or json, got %q", l.Format)
	}
}

// Apply configures logger accordingly.
func (l Logging) Apply(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)
	if l.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// ExporterConfig holds the loaded configuration.
type ExporterConfig struct {
	Config Config
}

// LoadConfig from config locations. The load order for configuration values if the following
// 1. Defaults
// 2. Config file
// 3. Environment variables
// 4. Command line flags
// If a config option is specified multiple times in different locations, the latest one will be used in this order.
func (f *ExporterConfig) LoadConfig(flags *Flags, logger logrus.FieldLogger) error {
	f.Config = Defaults()

	if flags.ConfigFile != "" {
		file, err := os.ReadFile(flags.ConfigFile)
		if err != nil {
			return configErr(fmt.Errorf("read config file: %w", err))
		}
		logger.WithField("action", "config_load").WithField("config_file_path", flags.ConfigFile).
			Debug("loading config file")
		if err := f.parseConfigFile(file, flags.ConfigFile); err != nil {
			return configErr(err)
		}
	}

	// Load config from env
	if err := FromEnv(&f.Config); err != nil {
		return configErr(err)
	}

	// Load config from flags
	f.fromFlags(flags)

	return f.Config.Validate()
}

// parseConfigFile decodes file over the current config, so values missing
// from the file keep their defaults.
func (f *ExporterConfig) parseConfigFile(file []byte, name string) error {
	m := regexp.MustCompile(`.*\.(\w+)$`).FindStringSubmatch(name)
	if len(m) < 2 {
		return fmt.Errorf("config file does not have a file ending, got '%s'", name)
	}

	switch strings.ToLower(m[1]) {
	case "json":
		if err := json.Unmarshal(file, &f.Config); err != nil {
			return fmt.Errorf("error unmarshalling the json config file: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(file, &f.Config); err != nil {
			return fmt.Errorf("error unmarshalling the yaml config file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file extension '%s', use .yaml or .json", m[1])
	}
	return nil
}

// fromFlags parses values from flags given as parameter and overrides values in the config
func (f *ExporterConfig) fromFlags(flags *Flags) {
	if flags.DataDir != "" {
		f.Config.DataDir = flags.DataDir
	}
	if flags.Output != "" {
		f.Config.Output = flags.Output
	}
	if flags.BatchSize > 0 {
		f.Config.BatchSize = flags.BatchSize
	}
	if flags.Etag != "" {
		f.Config.StartEtag = flags.Etag
	}
	if flags.Compression {
		f.Config.Compression = true
	}

	if flags.EncryptionKey != "" {
		f.Config.Encryption.Key = flags.EncryptionKey
	}
	if flags.EncryptionAlgorithm != "" {
		f.Config.Encryption.Algorithm = flags.EncryptionAlgorithm
	}
	if flags.EncryptIndexes {
		f.Config.Encryption.EncryptIndexes = true
	}
	if flags.EncryptionKeyBits > 0 {
		f.Config.Encryption.KeyBits = flags.EncryptionKeyBits
	}

	if flags.GzipLevel != nil {
		f.Config.GzipLevel = *flags.GzipLevel
	}
	if flags.LockRetries != nil {
		f.Config.LockRetries = *flags.LockRetries
	}
	if flags.LockRetryInterval > 0 {
		f.Config.LockRetryInterval = flags.LockRetryInterval
	}
	if flags.MetricsTextfile != "" {
		f.Config.MetricsTextfile = flags.MetricsTextfile
	}

	if flags.LogLevel != "" {
		f.Config.Logging.Level = flags.LogLevel
	}
	if flags.LogFormat != "" {
		f.Config.Logging.Format = flags.LogFormat
	}
}

func configErr(err error) error {
	return fmt.Errorf("invalid config: %w", err)
}
