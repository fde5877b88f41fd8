package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
)

// DecodePCM runs FFmpeg to decode an audio file to raw PCM int16 samples.
// Returns interleaved stereo samples at 48kHz.
func DecodePCM(ctx context.Context, ffmpegBin, path string) ([]int16, error) {
	cmd := exec.CommandContext(ctx, ffmpegBin,
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", "48000",
		"-ac", "2",
		"-loglevel", "error",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	return bytesToSamples(out), nil
}

// bytesToSamples converts little-endian bytes to int16 samples, dropping a
// trailing odd byte.
func bytesToSamples(buf []byte) []int16 {
	if len(buf)%2 != 0 {
		buf = buf[:len(buf)-1]
	}

	samples := make([]int16, len(buf)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
	}
	return samples
}
