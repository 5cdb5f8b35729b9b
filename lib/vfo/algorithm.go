// Copyright 2026 The Fluxkit Authors
// SPDX-License-Identifier: Apache-2.0

package vfo

import (
	"fmt"
	"math"
)

// Default PID controller gains, applied by ParseAlgorithm("pid") and
// the preset constructors where they leave a term untouched.
const (
	DefaultP = 0.3
	DefaultI = 0.05
	DefaultD = 0.05
)

// Algorithm is one clock-recovery strategy. Implementations live in
// this package; construct them with Simple, Fixed, PID, PID2, PID3,
// Adaptive, or DPLL. An Algorithm holds per-instance controller state
// and must not be shared between VFOs.
type Algorithm interface {
	// Name reports the strategy's short name, e.g. "pid2" or "dpll".
	Name() string

	// process consumes one positive interval, mutates the VFO, and
	// returns the number of bits decoded.
	process(v *VFO, interval float64) int

	// reset clears controller accumulators (integral windup, error
	// history, ramped gain).
	reset()

	// forceSync clears the accumulators that would fight a caller
	// declaring lock, without discarding error history.
	forceSync()
}

// Simple returns the fixed-window sampler: each interval is quantised
// against the nominal cell with no frequency tracking. Every pulse
// counts as valid.
func Simple() Algorithm { return &openLoop{name: "simple"} }

// Fixed returns the fixed-frequency reference. It behaves identically
// to Simple; the distinct name mirrors controller hardware that tells
// a crystal reference apart from a free-running window.
func Fixed() Algorithm { return &openLoop{name: "fixed"} }

// PID returns a closed-loop controller with explicit gains. The
// proportional gain is clamped to [0, 2], integral and derivative to
// [0, 1].
func PID(p, i, d float64) Algorithm {
	return &pid{
		name: "pid",
		p:    clamp(p, 0, 2),
		i:    clamp(i, 0, 1),
		d:    clamp(d, 0, 1),
	}
}

// PID2 returns the fast-convergence PID preset (p 0.5, i 0.1). It
// locks quickly at the cost of chasing jitter harder.
func PID2() Algorithm {
	a := PID(0.5, 0.1, DefaultD).(*pid)
	a.name = "pid2"
	return a
}

// PID3 returns the damped PID preset (p 0.2, d 0.1) for noisy or
// degraded media.
func PID3() Algorithm {
	a := PID(0.2, DefaultI, 0.1).(*pid)
	a.name = "pid3"
	return a
}

// Adaptive returns a PID controller whose gain ramps toward the
// acquisition gain by 1% per pulse while unlocked and drops to the
// tracking gain once locked.
func Adaptive() Algorithm {
	return &adaptive{pid: pid{name: "adaptive", p: DefaultP, i: DefaultI, d: DefaultD}}
}

// DPLL returns the digital phase-locked loop: phase accumulates
// continuously across pulses and the frequency is nudged by the phase
// offset from the cell midpoint.
func DPLL() Algorithm { return &dpll{} }

// ParseAlgorithm maps a strategy name to a fresh instance. "pid" gets
// the default gains; use PID directly for custom ones.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "simple":
		return Simple(), nil
	case "fixed":
		return Fixed(), nil
	case "pid":
		return PID(DefaultP, DefaultI, DefaultD), nil
	case "pid2":
		return PID2(), nil
	case "pid3":
		return PID3(), nil
	case "adaptive":
		return Adaptive(), nil
	case "dpll":
		return DPLL(), nil
	}
	return nil, fmt.Errorf("unknown vfo algorithm %q (choices: simple, fixed, pid, pid2, pid3, adaptive, dpll)", name)
}

// AlgorithmNames lists the accepted ParseAlgorithm names in display
// order.
func AlgorithmNames() []string {
	return []string{"simple", "fixed", "pid", "pid2", "pid3", "adaptive", "dpll"}
}

// quantize rounds an interval-to-cell ratio to a whole cell count,
// clamped to [1, 4]. The upper clamp bounds the bits a single dropout
// can inject.
func quantize(cells float64) int {
	n := int(math.Round(cells))
	if n < 1 {
		return 1
	}
	if n > 4 {
		return 4
	}
	return n
}

// openLoop quantises against the nominal cell and never adjusts.
type openLoop struct {
	name string
}

func (a *openLoop) Name() string { return a.name }
func (a *openLoop) reset()       {}
func (a *openLoop) forceSync()   {}

func (a *openLoop) process(v *VFO, interval float64) int {
	cells := quantize(interval / v.cellNom)
	for i := 0; i < cells-1; i++ {
		v.emit(0)
	}
	v.emit(1)

	v.pulsesTotal++
	v.pulsesValid++
	return cells
}

// pid drives the cell estimate from the per-pulse phase error through
// a proportional-integral-derivative law.
type pid struct {
	name     string
	p, i, d  float64
	integral float64
	prevErr  float64
}

func (a *pid) Name() string { return a.name }

func (a *pid) reset() {
	a.integral = 0
	a.prevErr = 0
}

func (a *pid) forceSync() {
	a.integral = 0
}

func (a *pid) process(v *VFO, interval float64) int {
	return a.step(v, interval, v.activeGain())
}

func (a *pid) step(v *VFO, interval, gain float64) int {
	cell := v.cell + v.jitter()

	cells := quantize(interval / cell)
	err := (interval - float64(cells)*cell) / cell

	v.pulsesTotal++
	switch {
	case math.Abs(err) < 0.3:
		v.pulsesValid++
	case err < 0:
		v.pulsesEarly++
	default:
		v.pulsesLate++
	}
	v.avgPhaseErr = v.avgPhaseErr*0.99 + err*0.01

	a.integral = clamp(a.integral+err, -10, 10)
	adjust := a.p*err + a.i*a.integral + a.d*(err-a.prevErr)
	a.prevErr = err

	v.setCell(v.cell + adjust*gain*v.cellNom*0.01)

	if math.Abs(err) < 0.2 {
		v.syncCount++
		if v.syncCount >= v.syncThreshold {
			v.synced = true
		}
	} else {
		v.syncCount = 0
		if math.Abs(err) > 0.4 {
			v.synced = false
		}
	}

	for i := 0; i < cells-1; i++ {
		v.emit(0)
	}
	v.emit(1)
	return cells
}

// adaptive wraps pid with a gain that climbs 1% per pulse toward the
// acquisition gain while unlocked.
type adaptive struct {
	pid
	gain float64
}

func (a *adaptive) Name() string { return "adaptive" }

func (a *adaptive) reset() {
	a.pid.reset()
	a.gain = 0
}

func (a *adaptive) process(v *VFO, interval float64) int {
	switch {
	case v.synced:
		a.gain = v.gainLow
	case a.gain == 0:
		a.gain = v.gainHigh
	default:
		a.gain = math.Min(a.gain*1.01, v.gainHigh)
	}
	return a.step(v, interval, a.gain)
}

// dpll accumulates phase continuously, emitting a zero per whole cell
// crossed and tuning frequency from the pulse's offset within its
// cell.
type dpll struct{}

func (dpll) Name() string { return "dpll" }
func (dpll) reset()       {}
func (dpll) forceSync()   {}

func (dpll) process(v *VFO, interval float64) int {
	bits := 0

	v.phase += interval / v.cell
	for v.phase >= 1 && bits < 3 {
		v.phase--
		v.emit(0)
		bits++
	}
	// A dropout can leave whole cells beyond the per-pulse bit
	// budget; discard them so the phase error below stays a
	// fraction of one cell.
	if v.phase >= 1 {
		v.phase -= math.Floor(v.phase)
	}

	phaseErr := v.phase - 0.5

	v.freq = clamp(1-phaseErr*v.activeGain()*0.1, 0.8, 1.2)
	v.setCell(v.cellNom / v.freq)

	v.emit(1)
	bits++

	v.pulsesTotal++
	if math.Abs(phaseErr) < 0.2 {
		v.pulsesValid++
		v.syncCount++
		if v.syncCount >= v.syncThreshold {
			v.synced = true
		}
	} else {
		if phaseErr < 0 {
			v.pulsesEarly++
		} else {
			v.pulsesLate++
		}
		v.syncCount = 0
	}

	v.phase = 0
	return bits
}
