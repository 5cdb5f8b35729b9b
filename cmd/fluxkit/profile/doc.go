// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile implements the "fluxkit profile" command group for
// platform profiles: the per-platform track layout tables that
// classification and analysis check captures against. "list" and
// "show" cover the builtin table plus any configured overrides;
// "check" validates an overrides file on its own.
package profile
