// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package flux

import "fmt"

// EstimateDataRate guesses the data rate in bits/s from a raw
// interval stream. Most intervals in a self-clocking encoding are one
// or two bit cells wide, so the shortest common interval approximates
// one cell. Intervals below half the running average are treated as
// noise spikes and ignored.
//
// Needs at least 10 intervals to say anything useful.
func EstimateDataRate(intervals []float64, sampleRate float64) (float64, error) {
	if len(intervals) < 10 {
		return 0, fmt.Errorf("rate estimation needs at least 10 intervals, got %d", len(intervals))
	}
	if sampleRate <= 0 {
		return 0, fmt.Errorf("invalid sample rate %g", sampleRate)
	}

	sum := 0.0
	for _, interval := range intervals {
		sum += interval
	}
	average := sum / float64(len(intervals))

	shortest := average
	for _, interval := range intervals {
		if interval > 0.5*average && interval < shortest {
			shortest = interval
		}
	}

	cellSeconds := shortest / sampleRate
	if cellSeconds <= 0 {
		return 0, fmt.Errorf("intervals yield non-positive cell time")
	}
	return 1.0 / cellSeconds, nil
}

// CalcBitCell converts a data rate to a bit-cell width in sample
// ticks: a 250 kbit/s stream sampled at 24 MHz has 96-tick cells.
func CalcBitCell(dataRate, sampleRate float64) (float64, error) {
	if dataRate <= 0 {
		return 0, fmt.Errorf("invalid data rate %g", dataRate)
	}
	return sampleRate / dataRate, nil
}
