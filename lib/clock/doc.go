// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of calling
// time.Now or time.Since directly. In production, Real() provides the
// standard library behavior. In tests, Fake() provides a deterministic
// clock that advances only when Advance is called, so elapsed-time
// accounting (capture timestamps, analysis duration) is exact.
//
// # Wiring Pattern
//
// Add a Clock field to structs that read time:
//
//	type Analyzer struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In production:
//
//	a := &Analyzer{clock: clock.Real()}
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	a := &Analyzer{clock: c}
//	// ... run the operation under test, advancing time at known points ...
//	c.Advance(250 * time.Millisecond)
package clock
