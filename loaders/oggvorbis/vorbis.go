// Package oggvorbis provides an Ogg Vorbis decoder producing the
// interleaved stereo float material used to feed the engine's capture
// path.
package oggvorbis

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
	"golang.org/x/tools/godoc/vfs"
)

// LoadVFSFile loads a stereo Ogg Vorbis file from a virtual
// filesystem.
func LoadVFSFile(fileSystem vfs.Opener, path string, expectedSampleRate int) ([]float32, error) {
	file, err := fileSystem.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open: %w", path, err)
	}
	defer file.Close()

	rawData, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	data, err := Load(rawData, expectedSampleRate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// LoadFile loads a stereo Ogg Vorbis file from the OS filesystem.
func LoadFile(path string, expectedSampleRate int) ([]float32, error) {
	rawData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open: %w", path, err)
	}

	data, err := Load(rawData, expectedSampleRate)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

// Load decodes stereo Ogg Vorbis data at the expected sample rate into
// interleaved float32 samples.
func Load(oggData []byte, expectedSampleRate int) ([]float32, error) {
	data, format, err := oggvorbis.ReadAll(bytes.NewReader(oggData))
	if err != nil {
		return nil, err
	}
	if format.Channels != 2 {
		return nil, fmt.Errorf("number of channels must be 2 but was %d", format.Channels)
	}
	if format.SampleRate != expectedSampleRate {
		return nil, fmt.Errorf("sample rate must be %d but was %d", expectedSampleRate, format.SampleRate)
	}
	return data, nil
}
