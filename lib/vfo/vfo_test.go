// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package vfo

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/bureau-foundation/fluxkit/lib/flux"
)

// newTestVFO builds a VFO for MFM at 4 MHz, giving a nominal cell of
// exactly 8 sample ticks.
func newTestVFO(t *testing.T, alg Algorithm) *VFO {
	t.Helper()
	v, err := New(alg, flux.MFM, 4e6)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestNominalCell(t *testing.T) {
	v := newTestVFO(t, Simple())
	if v.NominalCell() != 8.0 {
		t.Errorf("MFM at 4MHz: NominalCell = %g, want 8.0", v.NominalCell())
	}

	fm, err := New(Simple(), flux.FM, 4e6)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if fm.NominalCell() != 16.0 {
		t.Errorf("FM at 4MHz: NominalCell = %g, want 16.0", fm.NominalCell())
	}

	custom, err := NewWithCellTime(Simple(), 24e6, 2000)
	if err != nil {
		t.Fatalf("NewWithCellTime: %v", err)
	}
	if custom.NominalCell() != 48.0 {
		t.Errorf("2000ns at 24MHz: NominalCell = %g, want 48.0", custom.NominalCell())
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(nil, flux.MFM, 4e6); err == nil {
		t.Error("New accepted nil algorithm")
	}
	if _, err := New(Simple(), flux.MFM, 0); err == nil {
		t.Error("New accepted zero sample rate")
	}
	if _, err := NewWithCellTime(Simple(), 4e6, -1); err == nil {
		t.Error("NewWithCellTime accepted negative cell time")
	}
}

func TestOpenLoopQuantization(t *testing.T) {
	tests := []struct {
		name     string
		interval float64
		wantBits int
		wantByte byte
	}{
		{"one cell", 8, 1, 0b10000000},
		{"two cells", 16, 2, 0b01000000},
		{"three cells", 24, 3, 0b00100000},
		{"four cells", 32, 4, 0b00010000},
		{"dropout clamps to four", 800, 4, 0b00010000},
		{"glitch rounds up to one", 2, 1, 0b10000000},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v := newTestVFO(t, Simple())
			n, err := v.ProcessPulse(test.interval)
			if err != nil {
				t.Fatalf("ProcessPulse: %v", err)
			}
			if n != test.wantBits {
				t.Errorf("bits = %d, want %d", n, test.wantBits)
			}
			if v.BitLen() != test.wantBits {
				t.Errorf("BitLen = %d, want %d", v.BitLen(), test.wantBits)
			}
			if got := v.Bits()[0]; got != test.wantByte {
				t.Errorf("Bits[0] = %08b, want %08b", got, test.wantByte)
			}
		})
	}
}

func TestProcessPulseRejectsNonPositive(t *testing.T) {
	v := newTestVFO(t, PID(DefaultP, DefaultI, DefaultD))
	for _, interval := range []float64{0, -8} {
		if _, err := v.ProcessPulse(interval); !errors.Is(err, ErrInterval) {
			t.Errorf("ProcessPulse(%g) error = %v, want ErrInterval", interval, err)
		}
	}
	if v.BitLen() != 0 {
		t.Errorf("rejected pulses emitted %d bits", v.BitLen())
	}
}

func TestNominalStreamDecodesToOnes(t *testing.T) {
	v := newTestVFO(t, PID(DefaultP, DefaultI, DefaultD))

	for i := 0; i < 32; i++ {
		if _, err := v.ProcessPulse(8); err != nil {
			t.Fatalf("pulse %d: %v", i, err)
		}
	}

	if v.BitLen() != 32 {
		t.Fatalf("BitLen = %d, want 32", v.BitLen())
	}
	want := bytes.Repeat([]byte{0xFF}, 4)
	if !bytes.Equal(v.Bits(), want) {
		t.Errorf("Bits = %x, want %x", v.Bits(), want)
	}

	stats := v.Stats()
	if stats.PulsesValid != 32 || stats.PulsesTotal != 32 {
		t.Errorf("valid/total = %d/%d, want 32/32", stats.PulsesValid, stats.PulsesTotal)
	}
	if stats.ValidPercent != 100 {
		t.Errorf("ValidPercent = %g, want 100", stats.ValidPercent)
	}
	if stats.AvgPhaseErr != 0 {
		t.Errorf("AvgPhaseErr = %g, want 0 for an exact stream", stats.AvgPhaseErr)
	}
	if v.Cell() != v.NominalCell() {
		t.Errorf("Cell drifted to %g on an exact stream", v.Cell())
	}
	if !v.Synced() {
		t.Error("not synced after 32 exact pulses")
	}
}

func TestCellStaysBounded(t *testing.T) {
	// A hostile interval stream must never push the cell estimate
	// outside 20% of nominal, for any tracking variant.
	intervals := []float64{1, 500, 3, 80, 8, 11.9, 4.1, 100, 2, 31, 8, 0.5, 63, 7, 9000, 12}

	for _, alg := range []Algorithm{
		PID(DefaultP, DefaultI, DefaultD),
		PID2(),
		PID3(),
		Adaptive(),
		DPLL(),
	} {
		t.Run(alg.Name(), func(t *testing.T) {
			v := newTestVFO(t, alg)
			lo, hi := v.NominalCell()*0.8, v.NominalCell()*1.2

			for round := 0; round < 50; round++ {
				for _, interval := range intervals {
					if _, err := v.ProcessPulse(interval); err != nil {
						t.Fatalf("ProcessPulse(%g): %v", interval, err)
					}
					if cell := v.Cell(); cell < lo || cell > hi {
						t.Fatalf("cell %g outside [%g, %g] after interval %g",
							cell, lo, hi, interval)
					}
				}
			}
		})
	}
}

func TestPulseBitBudget(t *testing.T) {
	// No single interval may decode to more than 4 bits, whatever
	// the variant.
	for _, alg := range []Algorithm{Simple(), PID2(), Adaptive(), DPLL()} {
		t.Run(alg.Name(), func(t *testing.T) {
			v := newTestVFO(t, alg)
			for _, interval := range []float64{8, 100, 8000, 0.1, 64} {
				n, err := v.ProcessPulse(interval)
				if err != nil {
					t.Fatalf("ProcessPulse(%g): %v", interval, err)
				}
				if n < 1 || n > 4 {
					t.Errorf("interval %g decoded to %d bits, want 1..4", interval, n)
				}
			}
		})
	}
}

func TestSyncAcquisitionAndLoss(t *testing.T) {
	v := newTestVFO(t, PID(DefaultP, DefaultI, DefaultD))

	for i := 0; i < DefaultSyncThreshold; i++ {
		if v.Synced() {
			t.Fatalf("synced after only %d pulses", i)
		}
		if _, err := v.ProcessPulse(8); err != nil {
			t.Fatalf("ProcessPulse: %v", err)
		}
	}
	if !v.Synced() {
		t.Fatal("not synced after threshold clean pulses")
	}

	// A pulse landing halfway between cell counts has phase error
	// 0.5, past the 0.4 drop threshold.
	if _, err := v.ProcessPulse(12); err != nil {
		t.Fatalf("ProcessPulse: %v", err)
	}
	if v.Synced() {
		t.Fatal("still synced after a 0.5-cell phase error")
	}

	// Reacquisition needs the full threshold again.
	for i := 0; i < DefaultSyncThreshold-1; i++ {
		if _, err := v.ProcessPulse(8); err != nil {
			t.Fatalf("ProcessPulse: %v", err)
		}
	}
	if v.Synced() {
		t.Error("resynced one pulse early")
	}
	if _, err := v.ProcessPulse(8); err != nil {
		t.Fatalf("ProcessPulse: %v", err)
	}
	if !v.Synced() {
		t.Error("not resynced after threshold clean pulses")
	}
}

func TestSetSyncThreshold(t *testing.T) {
	v := newTestVFO(t, PID(DefaultP, DefaultI, DefaultD))
	v.SetSyncThreshold(2)

	v.ProcessPulse(8)
	if v.Synced() {
		t.Error("synced after one pulse with threshold 2")
	}
	v.ProcessPulse(8)
	if !v.Synced() {
		t.Error("not synced after two pulses with threshold 2")
	}
}

func TestForceSync(t *testing.T) {
	v := newTestVFO(t, Adaptive())
	if v.Synced() {
		t.Fatal("synced before any input")
	}
	v.ForceSync()
	if !v.Synced() {
		t.Error("ForceSync did not set lock")
	}
}

func TestAdaptiveRampsGainAfterSyncLoss(t *testing.T) {
	// After losing lock, plain PID jumps straight back to the high
	// acquisition gain while Adaptive climbs from the low gain at 1%
	// per pulse. The same off-frequency pulse therefore moves the
	// Adaptive cell estimate less.
	run := func(alg Algorithm) float64 {
		v := newTestVFO(t, alg)
		for i := 0; i < 10; i++ {
			v.ProcessPulse(8)
		}
		if !v.Synced() {
			t.Fatalf("%s: not synced on clean stream", alg.Name())
		}
		v.ProcessPulse(12) // drop lock
		if v.Synced() {
			t.Fatalf("%s: still synced", alg.Name())
		}
		v.ProcessPulse(8.8)
		return math.Abs(v.Cell() - v.NominalCell())
	}

	pidMove := run(PID(DefaultP, DefaultI, DefaultD))
	adaptiveMove := run(Adaptive())

	if adaptiveMove >= pidMove {
		t.Errorf("adaptive moved cell by %g, pid by %g; adaptive should be gentler right after sync loss",
			adaptiveMove, pidMove)
	}
}

func TestPIDHoldsLockOnSmallDrift(t *testing.T) {
	// Media running 1% fast: every interval is 1.01 cells. The error
	// stays inside both windows, so the loop must hold lock, count
	// every pulse valid, and creep the estimate upward.
	v := newTestVFO(t, PID(DefaultP, DefaultI, DefaultD))

	for i := 0; i < 100; i++ {
		if _, err := v.ProcessPulse(8.08); err != nil {
			t.Fatalf("ProcessPulse: %v", err)
		}
	}

	if !v.Synced() {
		t.Error("lost sync on a 1% drift")
	}
	stats := v.Stats()
	if stats.PulsesValid != stats.PulsesTotal {
		t.Errorf("valid = %d of %d, want all", stats.PulsesValid, stats.PulsesTotal)
	}
	if stats.AvgPhaseErr <= 0 {
		t.Errorf("AvgPhaseErr = %g, want positive for late media", stats.AvgPhaseErr)
	}
	if cell := v.Cell(); cell <= 8.0 || cell > 8.2 {
		t.Errorf("cell = %g, want nudged into (8.0, 8.2]", cell)
	}
}

func TestDPLLSteadyState(t *testing.T) {
	v := newTestVFO(t, DPLL())

	// Three-cell intervals: each should decode to zeros plus the
	// pulse bit, honouring the per-pulse budget.
	for i := 0; i < 100; i++ {
		n, err := v.ProcessPulse(24)
		if err != nil {
			t.Fatalf("ProcessPulse: %v", err)
		}
		if n < 1 || n > 4 {
			t.Fatalf("pulse %d decoded to %d bits", i, n)
		}
	}

	stats := v.Stats()
	if stats.PulsesTotal != 100 {
		t.Errorf("PulsesTotal = %d, want 100", stats.PulsesTotal)
	}
	if stats.Frequency < 0.8 || stats.Frequency > 1.2 {
		t.Errorf("Frequency = %g outside bounds", stats.Frequency)
	}
}

func TestFluctuatorDeterministic(t *testing.T) {
	intervals := []float64{8, 16, 24, 8, 8, 16, 32, 8, 24, 16}

	run := func() []byte {
		v := newTestVFO(t, PID(DefaultP, DefaultI, DefaultD))
		v.SetFluctuation(0.1)
		for round := 0; round < 10; round++ {
			v.ProcessIntervals(intervals)
		}
		return append([]byte(nil), v.Bits()...)
	}

	first, second := run(), run()
	if !bytes.Equal(first, second) {
		t.Error("fluctuator output differs between identical runs")
	}
}

func TestFluctuationClamped(t *testing.T) {
	v := newTestVFO(t, PID(DefaultP, DefaultI, DefaultD))

	v.SetFluctuation(5)
	if got := v.Fluctuation(); got != 0.2 {
		t.Errorf("Fluctuation = %g, want clamp to 0.2", got)
	}
	v.SetFluctuation(-1)
	if got := v.Fluctuation(); got != 0 {
		t.Errorf("Fluctuation = %g, want clamp to 0", got)
	}
}

func TestProcessFlux(t *testing.T) {
	v := newTestVFO(t, Simple())

	// Timestamps 100, 108, 124, 132: intervals 8, 16, 8 giving bits
	// 1, 01, 1.
	n, err := v.ProcessFlux([]uint32{100, 108, 124, 132})
	if err != nil {
		t.Fatalf("ProcessFlux: %v", err)
	}
	if n != 4 {
		t.Errorf("bits = %d, want 4", n)
	}
	if got := v.Bits()[0]; got != 0b10110000 {
		t.Errorf("Bits[0] = %08b, want 10110000", got)
	}
}

func TestProcessFluxWrapsTimestamps(t *testing.T) {
	v := newTestVFO(t, Simple())

	// Counter wraps between the two samples; the interval is still 16.
	n, err := v.ProcessFlux([]uint32{0xFFFFFFF8, 8})
	if err != nil {
		t.Fatalf("ProcessFlux: %v", err)
	}
	if n != 2 {
		t.Errorf("bits = %d, want 2 from a wrapped 16-tick interval", n)
	}
}

func TestProcessFluxTooShort(t *testing.T) {
	v := newTestVFO(t, Simple())
	if _, err := v.ProcessFlux([]uint32{42}); err == nil {
		t.Error("ProcessFlux accepted a single timestamp")
	}
}

func TestProcessIntervalsSkipsGlitches(t *testing.T) {
	v := newTestVFO(t, Simple())
	n := v.ProcessIntervals([]float64{8, 0, -3, 8})
	if n != 2 {
		t.Errorf("bits = %d, want 2 with glitches skipped", n)
	}
	stats := v.Stats()
	if stats.PulsesTotal != 2 {
		t.Errorf("PulsesTotal = %d, want 2", stats.PulsesTotal)
	}
}

func TestMaxBitsBound(t *testing.T) {
	v := newTestVFO(t, Simple())
	v.SetMaxBits(4)

	n := v.ProcessIntervals([]float64{8, 8, 8, 8, 8, 8, 8, 8})
	if n != 8 {
		t.Errorf("decoded = %d, want 8 attempted", n)
	}
	if v.BitLen() != 4 {
		t.Errorf("BitLen = %d, want stored bits capped at 4", v.BitLen())
	}
	if len(v.Bits()) != 1 {
		t.Errorf("buffer = %d bytes, want 1", len(v.Bits()))
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	v := newTestVFO(t, PID2())
	v.SetFluctuation(0.05)

	v.ProcessIntervals([]float64{8, 12, 31, 8, 8, 8, 8, 8, 8, 8, 8, 8})
	if v.BitLen() == 0 {
		t.Fatal("no bits before reset")
	}

	v.Reset()

	if v.BitLen() != 0 || len(v.Bits()) != 0 {
		t.Error("Reset left bits behind")
	}
	if v.Cell() != v.NominalCell() {
		t.Errorf("Reset left cell at %g", v.Cell())
	}
	if v.Synced() {
		t.Error("Reset left lock set")
	}
	stats := v.Stats()
	if stats.PulsesTotal != 0 || stats.AvgPhaseErr != 0 {
		t.Error("Reset left statistics behind")
	}
	if v.Fluctuation() != 0.05 {
		t.Error("Reset cleared the configured fluctuation amount")
	}
}

func TestResetBitsKeepsLoopState(t *testing.T) {
	v := newTestVFO(t, PID(DefaultP, DefaultI, DefaultD))
	for i := 0; i < 12; i++ {
		v.ProcessPulse(8)
	}
	if !v.Synced() {
		t.Fatal("not synced")
	}

	v.ResetBits()
	if v.BitLen() != 0 {
		t.Error("ResetBits left bits")
	}
	if !v.Synced() {
		t.Error("ResetBits dropped lock")
	}
}

func TestStatsEarlyLate(t *testing.T) {
	v := newTestVFO(t, PID(DefaultP, DefaultI, DefaultD))

	// 11.2 ticks is 1.4 cells: rounds to one cell, error +0.4, late.
	v.ProcessPulse(11.2)
	// 4.8 ticks is 0.6 cells of the adjusted cell; safely early.
	v.ProcessPulse(4.8)

	stats := v.Stats()
	if stats.PulsesLate != 1 {
		t.Errorf("PulsesLate = %d, want 1", stats.PulsesLate)
	}
	if stats.PulsesEarly != 1 {
		t.Errorf("PulsesEarly = %d, want 1", stats.PulsesEarly)
	}
	if stats.PulsesValid != 0 {
		t.Errorf("PulsesValid = %d, want 0", stats.PulsesValid)
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, name := range AlgorithmNames() {
		alg, err := ParseAlgorithm(name)
		if err != nil {
			t.Fatalf("ParseAlgorithm(%q): %v", name, err)
		}
		if alg.Name() != name {
			t.Errorf("ParseAlgorithm(%q).Name() = %q", name, alg.Name())
		}
	}

	if _, err := ParseAlgorithm("kalman"); err == nil {
		t.Error("ParseAlgorithm accepted unknown name")
	}
}

func TestPIDGainClamps(t *testing.T) {
	alg := PID(5, 9, -3).(*pid)
	if alg.p != 2 || alg.i != 1 || alg.d != 0 {
		t.Errorf("gains = %g/%g/%g, want 2/1/0", alg.p, alg.i, alg.d)
	}
}

func TestSetGainClamps(t *testing.T) {
	v := newTestVFO(t, PID(DefaultP, DefaultI, DefaultD))
	v.SetGain(0, 7)
	if v.gainLow != 0.01 || v.gainHigh != 1.0 {
		t.Errorf("gains = %g/%g, want 0.01/1.0", v.gainLow, v.gainHigh)
	}
}
