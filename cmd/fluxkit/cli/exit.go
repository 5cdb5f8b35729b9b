// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals that the process should exit with a specific code
// without printing an additional error message. Commands with boolean
// outcomes (like "protect analyze --fail-on-protection") return this
// after printing their own output.
type ExitError struct {
	Code int
}

func (e ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the process exit code. main looks for this method
// via an anonymous interface to decide the exit status.
func (e ExitError) ExitCode() int {
	return e.Code
}
