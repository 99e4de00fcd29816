// Package audioperf is a real-time audio scheduling and parallel
// synthesis core. An Engine drives a bank of sinusoidal partials
// across a pool of real-time worker threads and ships per-buffer
// measurements to the embedder, together with a set of mechanisms
// (busy threads, workgroup membership, an artificial load floor) for
// keeping the CPU's performance controller from throttling audio
// threads.
package audioperf

import "time"

// MaxNumThreads is the hard upper bound on processing threads,
// including the driver thread when it participates.
const MaxNumThreads = 8

// DefaultNumWorkerThreads is the worker count before the embedder
// configures one.
const DefaultNumWorkerThreads = 1

// DefaultNumSines is the number of active partials at startup.
const DefaultNumSines = 18

// AmpSmoothingDuration is the one-pole smoothing time applied when
// partials turn on and off.
const AmpSmoothingDuration = 100 * time.Millisecond

// NumPartialsPerProcessingChunk is the number of partials a worker
// claims per atomic increment. Large enough to amortize the atomic and
// to resemble coarse real-world DSP units; small enough to balance
// load across workers.
const NumPartialsPerProcessingChunk = 256

// NumUnrandomizedPhases keeps the lowest partials phase-aligned so the
// chord has a clear attack; the rest start at random phases to avoid a
// click.
const NumUnrandomizedPhases = 15

// DriveMeasurementQueueSize bounds the measurement queue between the
// audio thread and the embedder.
const DriveMeasurementQueueSize = 1024

// Busy thread defaults: long enough periods to stay under background
// CPU-usage limits, busy enough to hold the clock up.
const (
	DefaultBusyThreadPeriod   = 35 * time.Millisecond
	DefaultBusyThreadCpuUsage = 0.5
	DefaultNumBusyThreads     = 0
)

// chordNoteNumbers is the chord rendered by the engine, as fractional
// MIDI note numbers.
var chordNoteNumbers = []float32{53, 56, 60}
