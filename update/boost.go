// Copyright 2026 The Indexfeed Authors
// SPDX-License-Identifier: Apache-2.0

package update

import (
	"log/slog"
	"sync/atomic"
)

// boostWarner gates legacy index-time boost warnings. Boost values still
// arrive from old clients but have no effect on indexing; the first one
// observed in the process logs at Warn, every later one at Debug. The
// transition is a compare-and-set, so a concurrent race costs at most one
// extra Warn — never a lost warning.
//
// The shared instance is never reset in production. Tests inject their own
// instance via Codec.warner and reset it between cases.
type boostWarner struct {
	warned atomic.Bool
}

var sharedBoostWarner boostWarner

func (w *boostWarner) observe(logger *slog.Logger, kind string, boost float64) {
	message := "ignoring " + kind + " boost: index-time boosts are not supported anymore"
	if w.warned.CompareAndSwap(false, true) {
		logger.Warn(message, "boost", boost)
		return
	}
	logger.Debug(message, "boost", boost)
}

// reset clears the gate. Test hook only.
func (w *boostWarner) reset() {
	w.warned.Store(false)
}

func (c *Codec) boostWarner() *boostWarner {
	if c.warner != nil {
		return c.warner
	}
	return &sharedBoostWarner
}

func (c *Codec) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
