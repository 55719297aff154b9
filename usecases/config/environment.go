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
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// FromEnv takes a *Config as it will respect initial config that has been
// provided by other means (e.g. a config file) and will only extend those that
// are set
func FromEnv(config *Config) error {
	if v := os.Getenv("EXPORT_DATA_DIR"); v != "" {
		config.DataDir = v
	}

	if v := os.Getenv("EXPORT_OUTPUT"); v != "" {
		config.Output = v
	}

	if v := os.Getenv("EXPORT_BATCH_SIZE"); v != "" {
		asInt, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parse EXPORT_BATCH_SIZE as int")
		}
		if asInt <= 0 {
			return errors.Errorf("EXPORT_BATCH_SIZE must be positive, got %d", asInt)
		}
		config.BatchSize = asInt
	}

	if v := os.Getenv("EXPORT_START_ETAG"); v != "" {
		config.StartEtag = v
	}

	if enabled(os.Getenv("EXPORT_COMPRESSION")) {
		config.Compression = true
	}

	if v := os.Getenv("EXPORT_ENCRYPTION_KEY"); v != "" {
		config.Encryption.Key = v

		if v := os.Getenv("EXPORT_ENCRYPTION_ALGORITHM"); v != "" {
			config.Encryption.Algorithm = v
		}

		if enabled(os.Getenv("EXPORT_ENCRYPT_INDEXES")) {
			config.Encryption.EncryptIndexes = true
		}

		if v := os.Getenv("EXPORT_ENCRYPTION_KEY_BITS"); v != "" {
			asInt, err := strconv.Atoi(v)
			if err != nil {
				return errors.Wrapf(err, "parse EXPORT_ENCRYPTION_KEY_BITS as int")
			}
			config.Encryption.KeyBits = asInt
		}
	}

	if v := os.Getenv("EXPORT_GZIP_LEVEL"); v != "" {
		asInt, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parse EXPORT_GZIP_LEVEL as int")
		}
		config.GzipLevel = asInt
	}

	if v := os.Getenv("EXPORT_LOCK_RETRIES"); v != "" {
		asInt, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "parse EXPORT_LOCK_RETRIES as int")
		}
		if asInt < 0 {
			return errors.Errorf("EXPORT_LOCK_RETRIES must not be negative, got %d", asInt)
		}
		config.LockRetries = asInt
	}

	if v := os.Getenv("EXPORT_LOCK_RETRY_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "parse EXPORT_LOCK_RETRY_INTERVAL as duration")
		}
		config.LockRetryInterval = d
	}

	if v := os.Getenv("EXPORT_METRICS_TEXTFILE"); v != "" {
		config.MetricsTextfile = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}

	return nil
}

func enabled(value string) bool {
	if value == "" {
		return false
	}

	if value == "on" ||
		value == "enabled" ||
		value == "1" ||
		value == "true" {
		return true
	}

	return false
}
