package audio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// DurationReader measures audio duration. MP3 and WAV are decoded in-process,
// anything else goes through ffprobe.
type DurationReader struct {
	bin string
}

// NewDurationReader creates a reader using the given ffprobe binary.
func NewDurationReader(ffprobeBin string) *DurationReader {
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	return &DurationReader{bin: ffprobeBin}
}

// Duration returns the length of the audio file in seconds.
func (p *DurationReader) Duration(ctx context.Context, path string) (float64, error) {
	var (
		d   float64
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		d, err = mp3Duration(path)
	case ".wav", ".wave":
		d, err = wavDuration(path)
	default:
		return p.runFFprobe(ctx, path)
	}
	if err == nil && d > 0 {
		return d, nil
	}

	// Mislabeled files still get a chance with ffprobe.
	pd, perr := p.runFFprobe(ctx, path)
	if perr != nil {
		if err == nil {
			err = fmt.Errorf("zero-length audio")
		}
		return 0, fmt.Errorf("decode %s: %v; ffprobe: %w", path, err, perr)
	}
	return pd, nil
}

func mp3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, fmt.Errorf("mp3: %w", err)
	}
	if dec.SampleRate() <= 0 || dec.Length() <= 0 {
		return 0, fmt.Errorf("mp3: unknown length")
	}
	// Decoded stream is 16-bit stereo: 4 bytes per sample frame.
	return float64(dec.Length()) / 4 / float64(dec.SampleRate()), nil
}

func wavDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("wav: invalid file")
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, fmt.Errorf("wav: %w", err)
	}
	return d.Seconds(), nil
}

type ffprobeOutput struct {
	Format ffprobeFormat `json:"format"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

func (p *DurationReader) runFFprobe(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, p.bin,
		"-v", "error",
		"-show_format",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseFFprobeDuration(output)
}

func parseFFprobeDuration(output []byte) (float64, error) {
	var ff ffprobeOutput
	if err := json.Unmarshal(output, &ff); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	d, err := strconv.ParseFloat(ff.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", ff.Format.Duration, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("non-positive duration %v", d)
	}
	return d, nil
}
