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

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// OpenFunc opens an engine read-only. Implementations return an error
// wrapping ErrLocked when the file lock is held and ErrLockedOrCorrupt when
// the files fail validation.
type OpenFunc func(path string, opts Options) (Storage, error)

// Engine describes an engine implementation.
type Engine struct {
	Name string
	// Marker is the file whose presence in the data directory selects the
	// engine.
	Marker string
	// Priority orders detection when several markers are present; lower
	// wins.
	Priority int
	Open     OpenFunc
}

var (
	enginesMu sync.RWMutex
	engines   = map[string]Engine{}
)

// Register makes an engine available to Open. Registering the same marker
// twice panics.
func Register(e Engine) {
	enginesMu.Lock()
	defer enginesMu.Unlock()

	if e.Open == nil {
		panic("storage: Register engine " + e.Name + " without open func")
	}
	if _, dup := engines[e.Marker]; dup {
		panic("storage: Register called twice for marker " + e.Marker)
	}
	engines[e.Marker] = e
}

// Engines lists the registered engines in detection order.
func Engines() []Engine {
	enginesMu.RLock()
	defer enginesMu.RUnlock()

	out := make([]Engine, 0, len(engines))
	for _, e := range engines {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Detect returns the engine whose marker file exists in dir.
func Detect(dir string) (Engine, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Engine{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if !info.IsDir() {
		return Engine{}, fmt.Errorf("%w: %q is not a directory", ErrNotFound, dir)
	}

	for _, e := range Engines() {
		marker, err := os.Stat(filepath.Join(dir, e.Marker))
		if err == nil && marker.Mode().IsRegular() {
			return e, nil
		}
	}
	return Engine{}, fmt.Errorf("%w: no recognized data file in %q", ErrNotFound, dir)
}

// Open detects the engine in dir and opens it read-only. The returned error
// wraps ErrNotFound, ErrLockedOrCorrupt or ErrInitialization.
func Open(ctx context.Context, dir string, opts Options) (Storage, error) {
	logger := opts.logger().WithField("action", "storage_open")

	e, err := Detect(dir)
	if err != nil {
		return nil, err
	}
	logger = logger.WithFields(logrus.Fields{"engine": e.Name, "path": dir})

	var st Storage
	attempt := 0
	op := func() error {
		attempt++
		s, err := e.Open(dir, opts)
		if err == nil {
			st = s
			return nil
		}
		if !isLockErr(err) {
			return backoff.Permanent(err)
		}
		logger.WithField("attempt", attempt).WithError(err).Warn("storage is locked, retrying")
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(lockBackoff(opts), ctx)); err != nil {
		return nil, classify(err)
	}

	logger.WithField("codec", opts.Codec.Name()).Debug("storage opened")
	return st, nil
}

func lockBackoff(opts Options) backoff.BackOff {
	interval := opts.LockRetryInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	retries := opts.LockRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(retries))
}

func isLockErr(err error) bool {
	return errors.Is(err, ErrLocked) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EWOULDBLOCK)
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrLockedOrCorrupt), errors.Is(err, ErrInitialization):
		return err
	case isLockErr(err):
		return fmt.Errorf("%w: %w", ErrLockedOrCorrupt, err)
	default:
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	}
}
