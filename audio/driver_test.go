package audio

import (
	"testing"
	"time"
)

func newTestDriver(t *testing.T, callback RenderCallback, config Config) (*Driver, *ManualOutput) {
	t.Helper()
	out := NewManualOutput()
	config.Output = out
	d, err := NewDriver(callback, config)
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	return d, out
}

func TestRenderIsNoOpWhileStopped(t *testing.T) {
	fired := false
	d, out := newTestDriver(t, func(hostTime float64, numFrames int, input, output StereoBuffer) error {
		fired = true
		return nil
	}, Config{})

	buf := out.Render(128)
	if fired {
		t.Fatal("render callback fired while stopped")
	}
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("sample %d = %v, want silence while stopped", i, v)
		}
	}

	d.Start()
	out.Render(128)
	if !fired {
		t.Fatal("render callback did not fire after Start")
	}

	fired = false
	d.Stop()
	out.Render(128)
	if fired {
		t.Fatal("render callback fired after Stop")
	}
}

func TestStartStopIdempotent(t *testing.T) {
	d, _ := newTestDriver(t, nil, Config{})
	d.Start()
	d.Start()
	d.Stop()
	d.Stop()
	d.Start()
	if d.Status() != StatusStarted {
		t.Fatalf("Status() = %v, want started", d.Status())
	}
	d.Stop()
}

func TestRenderChunksToPreferredBufferSize(t *testing.T) {
	var sizes []int
	d, out := newTestDriver(t, func(hostTime float64, numFrames int, input, output StereoBuffer) error {
		sizes = append(sizes, numFrames)
		return nil
	}, Config{PreferredBufferSize: 128})
	d.Start()

	out.Render(300)
	want := []int{128, 128, 44}
	if len(sizes) != len(want) {
		t.Fatalf("render blocks = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("render blocks = %v, want %v", sizes, want)
		}
	}
}

func TestSetPreferredBufferSizeValidation(t *testing.T) {
	d, _ := newTestDriver(t, nil, Config{})
	for _, invalid := range []int{0, 32, 100, 8192, -128} {
		if err := d.SetPreferredBufferSize(invalid); err == nil {
			t.Errorf("SetPreferredBufferSize(%d) accepted", invalid)
		}
	}
	if err := d.SetPreferredBufferSize(256); err != nil {
		t.Fatalf("SetPreferredBufferSize(256): %v", err)
	}
	if d.PreferredBufferSize() != 256 {
		t.Fatalf("PreferredBufferSize() = %d, want 256", d.PreferredBufferSize())
	}
	frames := 256.0
	if d.NominalBufferDuration() != time.Duration(frames/48000.0*float64(time.Second)) {
		t.Fatalf("NominalBufferDuration() = %v", d.NominalBufferDuration())
	}
}

// S6: a fade posted from a non-audio thread must reach silence within
// the commanded number of frames, monotonically.
func TestOutputVolumeFadeReachesSilence(t *testing.T) {
	d, out := newTestDriver(t, func(hostTime float64, numFrames int, input, output StereoBuffer) error {
		for i := 0; i < numFrames; i++ {
			output.Left[i] = 1
			output.Right[i] = 1
		}
		return nil
	}, Config{PreferredBufferSize: 128})
	d.Start()

	const fade = 10 * time.Millisecond
	d.SetOutputVolume(0, fade)
	if d.OutputVolume() != 0 {
		t.Fatalf("OutputVolume() = %v, want 0", d.OutputVolume())
	}

	numBuffers := int(fade.Seconds()*d.SampleRate())/128 + 1
	lastPeak := float32(2)
	for i := 0; i < numBuffers; i++ {
		buf := out.Render(128)
		peak := float32(0)
		for _, v := range buf {
			if v > peak {
				peak = v
			}
		}
		if peak > lastPeak {
			t.Fatalf("buffer %d: peak %v rose above %v during fade-out", i, peak, lastPeak)
		}
		lastPeak = peak
	}

	buf := out.Render(128)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("sample %d = %v after fade completed, want 0", i, v)
		}
	}
}

func TestInputSourceFeedsCallback(t *testing.T) {
	data := []float32{0.5, -0.5, 0.25, -0.25} // two frames
	var peak float32
	d, out := newTestDriver(t, func(hostTime float64, numFrames int, input, output StereoBuffer) error {
		for i := 0; i < numFrames; i++ {
			if v := input.Left[i]; v > peak {
				peak = v
			}
		}
		return nil
	}, Config{
		IsInputEnabled: true,
		InputSource:    NewLoopingInputSource(data),
	})
	d.Start()
	out.Render(128)
	if peak != 0.5 {
		t.Fatalf("input peak = %v, want 0.5", peak)
	}

	// Disabling input zeroes the capture buffer.
	d.SetIsInputEnabled(false)
	peak = 0
	out.Render(128)
	if peak != 0 {
		t.Fatalf("input peak = %v after disabling input, want 0", peak)
	}
}

func TestHostTimeAdvances(t *testing.T) {
	var times []float64
	d, out := newTestDriver(t, func(hostTime float64, numFrames int, input, output StereoBuffer) error {
		times = append(times, hostTime)
		return nil
	}, Config{})
	d.Start()
	out.Render(128)
	time.Sleep(time.Millisecond)
	out.Render(128)
	if len(times) != 2 || times[1] <= times[0] {
		t.Fatalf("host times = %v, want strictly increasing", times)
	}
}
