// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts time reads for testability. Production code injects
// Real(); tests inject Fake() with deterministic time control.
//
// Fluxkit never schedules timers — analysis is synchronous — so the
// interface is deliberately read-only: wall-clock timestamps and
// elapsed-time measurement.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the time elapsed since t, per this clock's notion
	// of now. Equivalent to Now().Sub(t).
	Since(t time.Time) time.Duration
}
