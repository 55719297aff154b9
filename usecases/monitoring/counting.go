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

package monitoring

import (
	"io"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// CountingWriter counts the bytes that pass through it, both locally and,
// when count is set, in a prometheus counter.
type CountingWriter struct {
	w     io.Writer
	n     atomic.Int64
	count prometheus.Counter
}

func NewCountingWriter(w io.Writer, count prometheus.Counter) *CountingWriter {
	return &CountingWriter{w: w, count: count}
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n.Add(int64(n))
	if c.count != nil {
		c.count.Add(float64(n))
	}
	return n, err
}

// Written is the number of bytes written so far.
func (c *CountingWriter) Written() int64 {
	return c.n.Load()
}
