package audioperf

import (
	"math"
	"testing"
	"time"

	"github.com/Lundis/go-audioperf/audio"
)

const testSampleRate = 48000

func TestNoteToFrequency(t *testing.T) {
	cases := []struct {
		note float32
		freq float64
	}{
		{69, 440},
		{81, 880},
		{57, 220},
		{60, 261.6255653},
	}
	for _, c := range cases {
		if got := float64(NoteToFrequency(c.note)); math.Abs(got-c.freq) > 1e-3 {
			t.Errorf("NoteToFrequency(%v) = %v, want %v", c.note, got, c.freq)
		}
	}
}

func TestGenerateSawHarmonics(t *testing.T) {
	const frequency = 440
	partials := GenerateSaw(testSampleRate, 1, AmpSmoothingDuration, 0, frequency)

	wantCount := int(testSampleRate / 2 / frequency)
	if len(partials) != wantCount {
		t.Fatalf("len = %d, want %d harmonics below Nyquist", len(partials), wantCount)
	}

	for i, p := range partials {
		harmonic := i + 1
		wantAmp := 2 / math.Pi / float64(harmonic)
		if harmonic%2 != 0 {
			wantAmp = -wantAmp
		}
		if math.Abs(float64(p.AmpWhenActive)-wantAmp) > 1e-6 {
			t.Fatalf("harmonic %d: AmpWhenActive = %v, want %v", harmonic, p.AmpWhenActive, wantAmp)
		}
		wantIncrement := 2 * math.Pi * float64(harmonic) * frequency / testSampleRate
		if math.Abs(float64(p.PhaseIncrement)-wantIncrement) > 1e-4 {
			t.Fatalf("harmonic %d: PhaseIncrement = %v, want %v", harmonic, p.PhaseIncrement, wantIncrement)
		}
	}
}

func TestGenerateChordIsSorted(t *testing.T) {
	partials := GenerateChord(testSampleRate, AmpSmoothingDuration, chordNoteNumbers)
	if len(partials) == 0 {
		t.Fatal("empty chord")
	}
	for i := 1; i < len(partials); i++ {
		if partials[i].PhaseIncrement < partials[i-1].PhaseIncrement {
			t.Fatalf("partial %d out of order", i)
		}
	}
}

func TestRandomizePhasesIsDeterministic(t *testing.T) {
	a := RandomizePhases(GenerateChord(testSampleRate, AmpSmoothingDuration, chordNoteNumbers), NumUnrandomizedPhases)
	b := RandomizePhases(GenerateChord(testSampleRate, AmpSmoothingDuration, chordNoteNumbers), NumUnrandomizedPhases)

	for i := 0; i < NumUnrandomizedPhases && i < len(a); i++ {
		if a[i].Phase != 0 {
			t.Fatalf("partial %d: phase %v, want 0 (unrandomized)", i, a[i].Phase)
		}
	}
	for i := range a {
		if a[i].Phase != b[i].Phase {
			t.Fatalf("partial %d: phases differ between runs", i)
		}
	}
}

// S2: a single partial at center pan converges to full amplitude and
// renders identically on both channels.
func TestProcessPartialCenterPan(t *testing.T) {
	p := Partial{
		AmpWhenActive:     1,
		TargetAmp:         1,
		AmpSmoothingCoeff: makeOnePole(0.0002, testSampleRate),
		Pan:               0,
		PhaseIncrement:    2 * math.Pi * 440 / testSampleRate,
	}
	out := audio.NewStereoBuffer()
	const numFrames = 128
	processPartial(&p, numFrames, out)

	if math.Abs(float64(p.Amp)-1) > 1e-3 {
		t.Fatalf("Amp = %v after %d frames, want ~1", p.Amp, numFrames)
	}

	peak := float32(0)
	for i := 0; i < numFrames; i++ {
		if out.Left[i] != out.Right[i] {
			t.Fatalf("frame %d: L %v != R %v at center pan", i, out.Left[i], out.Right[i])
		}
		if v := abs32(out.Left[i]); v > peak {
			peak = v
		}
	}
	want := math.Sin(math.Pi / 4)
	if math.Abs(float64(peak)-want) > 0.05 {
		t.Fatalf("peak = %v, want ~%v", peak, want)
	}
}

// S3: hard-panned partials land on exactly one channel at unity gain.
func TestProcessPartialPanExtremes(t *testing.T) {
	makePartial := func(pan float32) Partial {
		return Partial{
			AmpWhenActive:     0.5,
			TargetAmp:         0.5,
			Amp:               0.5,
			AmpSmoothingCoeff: 0.1,
			Pan:               pan,
			PhaseIncrement:    2 * math.Pi * 440 / testSampleRate,
		}
	}

	left := makePartial(-1)
	outLeft := audio.NewStereoBuffer()
	processPartial(&left, 64, outLeft)
	for i := 0; i < 64; i++ {
		if outLeft.Right[i] != 0 {
			t.Fatalf("frame %d: pan=-1 leaked %v into the right channel", i, outLeft.Right[i])
		}
	}

	right := makePartial(1)
	outRight := audio.NewStereoBuffer()
	processPartial(&right, 64, outRight)
	for i := 0; i < 64; i++ {
		if outRight.Left[i] != 0 {
			t.Fatalf("frame %d: pan=+1 leaked %v into the left channel", i, outRight.Left[i])
		}
		if outRight.Right[i] != outLeft.Left[i] {
			t.Fatalf("frame %d: hard pans are not symmetric", i)
		}
	}
}

func TestProcessPartialSkipsSilence(t *testing.T) {
	p := Partial{
		AmpWhenActive:     1,
		AmpSmoothingCoeff: 0.1,
		PhaseIncrement:    0.1,
		Phase:             1,
	}
	out := audio.NewStereoBuffer()
	processPartial(&p, 64, out)

	if p.Phase != 1 {
		t.Fatal("a silent partial should not advance")
	}
	for i := 0; i < 64; i++ {
		if out.Left[i] != 0 || out.Right[i] != 0 {
			t.Fatal("a silent partial should not write")
		}
	}
}

// The one-pole smoother converges monotonically towards the target.
func TestProcessPartialAmpConverges(t *testing.T) {
	out := audio.NewStereoBuffer()
	p := Partial{
		AmpWhenActive:     1,
		TargetAmp:         1,
		Amp:               0.001,
		AmpSmoothingCoeff: makeOnePole(0.1, testSampleRate),
		PhaseIncrement:    0.01,
	}

	distance := abs32(p.Amp - p.TargetAmp)
	for i := 0; i < 50; i++ {
		processPartial(&p, 64, out)
		newDistance := abs32(p.Amp - p.TargetAmp)
		if newDistance > distance {
			t.Fatalf("pass %d: |amp - target| grew from %v to %v", i, distance, newDistance)
		}
		distance = newDistance
	}

	// And back down when deactivated.
	p.TargetAmp = 0
	for i := 0; i < 50; i++ {
		processPartial(&p, 64, out)
		newDistance := abs32(p.Amp - p.TargetAmp)
		if newDistance > distance && distance > silenceThreshold {
			t.Fatalf("release pass %d: |amp - target| grew", i)
		}
		distance = newDistance
	}
}

// Phase stays in [0, 2π + increment) and wraps by exactly 2π.
func TestProcessPartialPhaseWraps(t *testing.T) {
	p := Partial{
		AmpWhenActive:     1,
		TargetAmp:         1,
		Amp:               1,
		AmpSmoothingCoeff: 0.01,
		PhaseIncrement:    1.9, // close to a third of a cycle per sample
	}
	out := audio.NewStereoBuffer()
	for pass := 0; pass < 10; pass++ {
		processPartial(&p, 64, out)
		if p.Phase < 0 || float64(p.Phase) >= 2*math.Pi+float64(p.PhaseIncrement) {
			t.Fatalf("phase %v out of range", p.Phase)
		}
	}
}

func TestMakeOnePole(t *testing.T) {
	coeff := makeOnePole(float32((100 * time.Millisecond).Seconds()), testSampleRate)
	want := 1 - math.Exp(-1/(0.1*testSampleRate))
	if math.Abs(float64(coeff)-want) > 1e-6 {
		t.Fatalf("makeOnePole = %v, want %v", coeff, want)
	}

	// Degenerate smoothing times clamp instead of dividing by zero.
	if c := makeOnePole(0, testSampleRate); c <= 0 || c > 1 {
		t.Fatalf("makeOnePole(0, fs) = %v", c)
	}
}

func TestEqualPowerPanGains(t *testing.T) {
	l, r := equalPowerPanGains(0)
	if math.Abs(float64(l)-math.Sin(math.Pi/4)) > 1e-6 || l != r {
		t.Fatalf("center: (%v, %v)", l, r)
	}
	l, r = equalPowerPanGains(-1)
	if math.Abs(float64(l)-1) > 1e-6 || math.Abs(float64(r)) > 1e-6 {
		t.Fatalf("hard left: (%v, %v)", l, r)
	}
	l, r = equalPowerPanGains(1)
	if math.Abs(float64(l)) > 1e-6 || math.Abs(float64(r)-1) > 1e-6 {
		t.Fatalf("hard right: (%v, %v)", l, r)
	}
}
