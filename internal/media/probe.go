package media

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"podscribe/internal/domain"
)

// WAVInfo is the subset of a WAVE header the pipeline checks.
type WAVInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// ProbeWAV reads the RIFF header of path.
func ProbeWAV(path string) (WAVInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WAVInfo{}, err
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return WAVInfo{}, fmt.Errorf("%w: %s is not a valid WAV file", domain.ErrFormatMismatch, path)
	}
	return WAVInfo{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}, nil
}

// checkWAVFormat verifies that the header of path matches want.
func checkWAVFormat(path string, want domain.AudioFormat) error {
	info, err := ProbeWAV(path)
	if err != nil {
		return err
	}
	if info.SampleRate != want.SampleRate || info.Channels != want.Channels {
		return fmt.Errorf("%w: got %dHz/%dch, want %dHz/%dch",
			domain.ErrFormatMismatch, info.SampleRate, info.Channels, want.SampleRate, want.Channels)
	}
	return nil
}
