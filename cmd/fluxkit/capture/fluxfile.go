// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"encoding/binary"
	"fmt"
)

// fluxIntervals decodes a raw flux file: little-endian 32-bit
// sample-tick intervals, nothing else.
func fluxIntervals(data []byte) ([]int32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%d bytes is not a whole number of 32-bit intervals", len(data))
	}
	intervals := make([]int32, len(data)/4)
	for i := range intervals {
		intervals[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return intervals, nil
}

// fluxFileBytes is the inverse of fluxIntervals.
func fluxFileBytes(intervals []int32) []byte {
	out := make([]byte, 4*len(intervals))
	for i, v := range intervals {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out
}
