// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// RequireReceive reads one value from ch within timeout, or fails the
// test. This encapsulates the timeout safety valve pattern so that
// individual tests do not need direct time.After calls.
//
//	result := testutil.RequireReceive(t, done, 5*time.Second, "waiting for analyzer")
func RequireReceive[T any](t interface {
	Helper()
	Fatalf(format string, args ...any)
}, ch <-chan T, timeout time.Duration, msgAndArgs ...any) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without sending a value: %s", formatMessage(msgAndArgs))
		}
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out after %v: %s", timeout, formatMessage(msgAndArgs))
	}
	panic("unreachable")
}

// RequireEqual fails the test when got differs from want.
func RequireEqual[T comparable](t interface {
	Helper()
	Fatalf(format string, args ...any)
}, got, want T, msgAndArgs ...any) {
	t.Helper()
	if got != want {
		t.Fatalf("got %v, want %v: %s", got, want, formatMessage(msgAndArgs))
	}
}

// RequireNoError fails the test when err is non-nil.
func RequireNoError(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error %v: %s", err, formatMessage(msgAndArgs))
	}
}

// RequireTrue fails the test when condition is false.
func RequireTrue(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, condition bool, msgAndArgs ...any) {
	t.Helper()
	if !condition {
		t.Fatalf("condition is false: %s", formatMessage(msgAndArgs))
	}
}

// RequireInDelta fails the test when got is further than delta from
// want. Use it for float comparisons where exact equality is hostage
// to rounding.
func RequireInDelta(t interface {
	Helper()
	Fatalf(format string, args ...any)
}, got, want, delta float64, msgAndArgs ...any) {
	t.Helper()
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	if diff > delta {
		t.Fatalf("got %v, want %v within %v: %s", got, want, delta, formatMessage(msgAndArgs))
	}
}

// formatMessage formats optional message arguments into a string.
// Accepts either a single string or a format string followed by args.
func formatMessage(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return "(no message)"
	}
	if len(msgAndArgs) == 1 {
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%v", msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprintf("%v", msgAndArgs)
}
