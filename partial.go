package audioperf

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/Lundis/go-audioperf/audio"
)

const twoPi = float32(2 * math.Pi)

// Partial is a single sinusoidal voice. Amp follows TargetAmp through
// a one-pole smoother so partials fade in and out without clicks.
// |Amp| and |TargetAmp| never exceed |AmpWhenActive|.
type Partial struct {
	AmpWhenActive     float32
	TargetAmp         float32
	Amp               float32
	AmpSmoothingCoeff float32

	Pan float32 // -1 (left) .. +1 (right)

	PhaseIncrement float32 // radians per sample
	Phase          float32 // radians, [0, 2π)
}

// equalPowerPanGains returns the left and right gains for a pan
// position in [-1, 1]. The law loses 3 dB at center.
func equalPowerPanGains(pan float32) (left, right float32) {
	const quarterPi = float32(math.Pi / 4)
	return sinf(quarterPi * (1 - pan)), sinf(quarterPi * (pan + 1))
}

// makeOnePole derives the one-pole coefficient for a smoothing time in
// seconds at a sample rate.
func makeOnePole(tau, fs float32) float32 {
	return 1 - float32(math.Exp(-1/math.Max(float64(tau*fs), 1e-6)))
}

func lerp(a, b, x float32) float32 {
	return (1-x)*a + x*b
}

func sinf(x float32) float32 {
	return float32(math.Sin(float64(x)))
}

const noteA3 = 69

// NoteToFrequency converts a fractional MIDI note number to Hz with
// A3 = 440 Hz.
func NoteToFrequency(note float32) float32 {
	return float32(math.Exp2(float64(note-noteA3)/12)) * 440
}

// GenerateSaw builds the partials of a band-limited sawtooth at the
// given fundamental: every harmonic up to Nyquist with amplitude
// (2·amp/π)·(1/i) and alternating sign.
func GenerateSaw(sampleRate, amp float32, ampSmoothingDuration time.Duration, pan, frequency float32) []Partial {
	ampSmoothingCoeff := makeOnePole(float32(ampSmoothingDuration.Seconds()), sampleRate)
	nyquistFrequency := sampleRate / 2
	numHarmonics := int(nyquistFrequency / frequency)

	result := make([]Partial, 0, numHarmonics)
	for i := 1; i <= numHarmonics; i++ {
		sign := float32(-1)
		if i%2 == 0 {
			sign = 1
		}
		partialFrequency := float32(i) * frequency
		samplesPerCycle := sampleRate / partialFrequency
		result = append(result, Partial{
			AmpWhenActive:     (2 * amp / math.Pi) * (1 / float32(i)) * sign,
			AmpSmoothingCoeff: ampSmoothingCoeff,
			Pan:               pan,
			PhaseIncrement:    twoPi / samplesPerCycle,
		})
	}
	return result
}

// GenerateChord layers five detuned saws per note, spread hard left to
// hard right, and sorts the result ascending by phase increment so
// that active work sits at the front of the list.
func GenerateChord(sampleRate float32, ampSmoothingDuration time.Duration, noteNumbers []float32) []Partial {
	var result []Partial

	amp := 1 / float32(len(noteNumbers)*5)
	for _, noteNumber := range noteNumbers {
		frequency := NoteToFrequency(noteNumber)

		appendPartials := func(pan, detune float32) {
			result = append(result,
				GenerateSaw(sampleRate, amp, ampSmoothingDuration, pan, frequency+detune)...)
		}
		appendPartials(-1, -4)
		appendPartials(-1, -2)
		appendPartials(0, 0)
		appendPartials(1, 2)
		appendPartials(1, 4)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PhaseIncrement < result[j].PhaseIncrement
	})
	return result
}

// RandomizePhases assigns normally distributed phases (σ = 2π, fixed
// seed), wrapped into [0, 2π), to all partials beyond the first
// partialsToSkip, so that a large bank does not start as a
// synchronized click.
func RandomizePhases(partials []Partial, partialsToSkip int) []Partial {
	generator := rand.New(rand.NewSource(42))
	if partialsToSkip > len(partials) {
		partialsToSkip = len(partials)
	}
	for i := partialsToSkip; i < len(partials); i++ {
		phase := float32(math.Mod(generator.NormFloat64()*2*math.Pi, 2*math.Pi))
		if phase < 0 {
			phase += twoPi
		}
		if phase >= twoPi {
			phase = 0
		}
		partials[i].Phase = phase
	}
	return partials
}

const silenceThreshold = 0.00001

// processPartial renders numFrames samples of one partial into output,
// accumulating onto the existing contents. Silent partials (current
// and target amplitude below the threshold) are skipped entirely.
func processPartial(partial *Partial, numFrames int, output audio.StereoBuffer) {
	if abs32(partial.TargetAmp) <= silenceThreshold && abs32(partial.Amp) <= silenceThreshold {
		return
	}

	gainLeft, gainRight := equalPowerPanGains(partial.Pan)
	amp := partial.Amp
	phase := partial.Phase
	for frameIndex := 0; frameIndex < numFrames; frameIndex++ {
		sample := sinf(phase) * amp
		output.Left[frameIndex] += sample * gainLeft
		output.Right[frameIndex] += sample * gainRight

		amp = lerp(amp, partial.TargetAmp, partial.AmpSmoothingCoeff)

		phase += partial.PhaseIncrement
		if phase >= twoPi {
			phase -= twoPi
		}
	}
	partial.Amp = amp
	partial.Phase = phase
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
