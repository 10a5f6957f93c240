package media

import (
	"fmt"
	"strings"

	"podscribe/internal/domain"
)

// codecExtensions maps ffmpeg audio encoders to the container extension
// their output is written with.
var codecExtensions = map[string]string{
	"pcm_s16le":  ".wav",
	"pcm_s24le":  ".wav",
	"pcm_s32le":  ".wav",
	"pcm_f32le":  ".wav",
	"pcm_u8":     ".wav",
	"flac":       ".flac",
	"libmp3lame": ".mp3",
	"mp3":        ".mp3",
	"aac":        ".m4a",
	"libopus":    ".opus",
	"opus":       ".opus",
	"libvorbis":  ".ogg",
	"vorbis":     ".ogg",
}

var standardSampleRates = map[int]bool{
	8000:  true,
	11025: true,
	16000: true,
	22050: true,
	24000: true,
	32000: true,
	44100: true,
	48000: true,
	96000: true,
}

const maxChannels = 8

// ExtensionForCodec returns the file extension for codec's family.
func ExtensionForCodec(codec string) (string, error) {
	ext, ok := codecExtensions[strings.ToLower(strings.TrimSpace(codec))]
	if !ok {
		return "", fmt.Errorf("%w: unknown codec %q", domain.ErrInvalidAudioFormat, codec)
	}
	return ext, nil
}

// IsWAV reports whether codec is written into a RIFF/WAVE container.
func IsWAV(codec string) bool {
	ext, err := ExtensionForCodec(codec)
	return err == nil && ext == ".wav"
}

// ValidateFormat checks that ffmpeg can produce the requested format.
func ValidateFormat(format domain.AudioFormat) error {
	if _, err := ExtensionForCodec(format.Codec); err != nil {
		return err
	}
	if !standardSampleRates[format.SampleRate] {
		return fmt.Errorf("%w: unsupported sample rate %d", domain.ErrInvalidAudioFormat, format.SampleRate)
	}
	if format.Channels < 1 || format.Channels > maxChannels {
		return fmt.Errorf("%w: channel count %d out of range 1..%d", domain.ErrInvalidAudioFormat, format.Channels, maxChannels)
	}
	return nil
}
