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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentBatchSize(t *testing.T) {
	factors := []struct {
		name        string
		batchSize   []string
		expected    int
		expectedErr bool
	}{
		{"Valid", []string{"128"}, 128, false},
		{"not given", []string{}, DefaultBatchSize, false},
		{"zero", []string{"0"}, -1, true},
		{"negative", []string{"-5"}, -1, true},
		{"not parsable", []string{"I'm not a number"}, -1, true},
	}
	for _, tt := range factors {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.batchSize) == 1 {
				t.Setenv("EXPORT_BATCH_SIZE", tt.batchSize[0])
			}
			conf := Defaults()
			err := FromEnv(&conf)

			if tt.expectedErr {
				require.NotNil(t, err)
			} else {
				require.Nil(t, err)
				require.Equal(t, tt.expected, conf.BatchSize)
			}
		})
	}
}

func TestEnvironmentLockRetries(t *testing.T) {
	factors := []struct {
		name        string
		retries     []string
		interval    []string
		expected    int
		expectedDur time.Duration
		expectedErr bool
	}{
		{"Valid", []string{"5"}, []string{"1s"}, 5, time.Second, false},
		{"not given", []string{}, []string{}, DefaultLockRetries, DefaultLockRetryInterval, false},
		{"zero retries", []string{"0"}, []string{}, 0, DefaultLockRetryInterval, false},
		{"negative retries", []string{"-1"}, []string{}, -1, 0, true},
		{"invalid interval", []string{}, []string{"soon"}, -1, 0, true},
	}
	for _, tt := range factors {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.retries) == 1 {
				t.Setenv("EXPORT_LOCK_RETRIES", tt.retries[0])
			}
			if len(tt.interval) == 1 {
				t.Setenv("EXPORT_LOCK_RETRY_INTERVAL", tt.interval[0])
			}
			conf := Defaults()
			err := FromEnv(&conf)

			if tt.expectedErr {
				require.NotNil(t, err)
			} else {
				require.Nil(t, err)
				require.Equal(t, tt.expected, conf.LockRetries)
				require.Equal(t, tt.expectedDur, conf.LockRetryInterval)
			}
		})
	}
}

func TestEnvironmentEncryption(t *testing.T) {
	t.Run("settings without a key are ignored", func(t *testing.T) {
		t.Setenv("EXPORT_ENCRYPTION_ALGORITHM", "chacha20-poly1305")
		t.Setenv("EXPORT_ENCRYPT_INDEXES", "true")
		conf := Defaults()
		require.Nil(t, FromEnv(&conf))
		assert.Equal(t, "aes-gcm", conf.Encryption.Algorithm)
		assert.False(t, conf.Encryption.EncryptIndexes)
	})

	t.Run("key with settings", func(t *testing.T) {
		t.Setenv("EXPORT_ENCRYPTION_KEY", "a2V5")
		t.Setenv("EXPORT_ENCRYPTION_ALGORITHM", "chacha20-poly1305")
		t.Setenv("EXPORT_ENCRYPT_INDEXES", "on")
		t.Setenv("EXPORT_ENCRYPTION_KEY_BITS", "128")
		conf := Defaults()
		require.Nil(t, FromEnv(&conf))
		assert.Equal(t, Encryption{
			Key:            "a2V5",
			Algorithm:      "chacha20-poly1305",
			EncryptIndexes: true,
			KeyBits:        128,
		}, conf.Encryption)
	})

	t.Run("invalid key bits", func(t *testing.T) {
		t.Setenv("EXPORT_ENCRYPTION_KEY", "a2V5")
		t.Setenv("EXPORT_ENCRYPTION_KEY_BITS", "many")
		conf := Defaults()
		require.NotNil(t, FromEnv(&conf))
	})
}

func TestEnvironmentPlainValues(t *testing.T) {
	t.Setenv("EXPORT_DATA_DIR", "/data")
	t.Setenv("EXPORT_OUTPUT", "/tmp/out.json.gz")
	t.Setenv("EXPORT_START_ETAG", "00000000-0000-0001-0000-000000000001")
	t.Setenv("EXPORT_COMPRESSION", "1")
	t.Setenv("EXPORT_GZIP_LEVEL", "9")
	t.Setenv("EXPORT_METRICS_TEXTFILE", "/tmp/export.prom")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	conf := Defaults()
	require.Nil(t, FromEnv(&conf))
	assert.Equal(t, "/data", conf.DataDir)
	assert.Equal(t, "/tmp/out.json.gz", conf.Output)
	assert.Equal(t, "00000000-0000-0001-0000-000000000001", conf.StartEtag)
	assert.True(t, conf.Compression)
	assert.Equal(t, 9, conf.GzipLevel)
	assert.Equal(t, "/tmp/export.prom", conf.MetricsTextfile)
	assert.Equal(t, Logging{Level: "debug", Format: "json"}, conf.Logging)
}

func TestEnabled(t *testing.T) {
	for _, v := range []string{"on", "enabled", "1", "true"} {
		assert.True(t, enabled(v), v)
	}
	for _, v := range []string{"", "off", "0", "false", "yes"} {
		assert.False(t, enabled(v), v)
	}
}
