// Package video assembles rendered frames and audio into an MP4 with ffmpeg.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/satindergrewal/shadercast/internal/audio"
)

// ErrEncoding is returned when ffmpeg fails or produces no output.
var ErrEncoding = errors.New("video encoding failed")

// Executor runs an external command and returns its diagnostic output.
type Executor interface {
	Run(ctx context.Context, name string, args []string) ([]byte, error)
}

// ExecRunner runs commands with os/exec, capturing stderr.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// Input is what the encoder needs from a finished render.
type Input struct {
	FramePattern string
	FrameCount   int
	FPS          int
	Audio        audio.Track
	Output       string
}

// Result describes a written video.
type Result struct {
	Path     string
	Duration float64
	Frames   int
	HasAudio bool
}

// Encoder runs ffmpeg through an Executor.
type Encoder struct {
	bin     string
	builder *CommandBuilder
	exec    Executor
}

// NewEncoder creates an encoder. A nil executor uses ExecRunner.
func NewEncoder(ffmpegBin string, builder *CommandBuilder, runner Executor) *Encoder {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if builder == nil {
		builder = NewCommandBuilder("", "")
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Encoder{bin: ffmpegBin, builder: builder, exec: runner}
}

// Encode writes the video to in.Output. ffmpeg writes to a temporary file in
// the same directory which is renamed on success and removed on failure.
func (e *Encoder) Encode(ctx context.Context, in Input) (*Result, error) {
	if in.FrameCount <= 0 || in.FPS <= 0 {
		return nil, fmt.Errorf("%w: %d frames at %d fps", ErrEncoding, in.FrameCount, in.FPS)
	}

	dir := filepath.Dir(in.Output)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output dir: %v", ErrEncoding, err)
	}

	ext := filepath.Ext(in.Output)
	tmp, err := os.CreateTemp(dir, "."+strings.TrimSuffix(filepath.Base(in.Output), ext)+"-*.partial"+ext)
	if err != nil {
		return nil, fmt.Errorf("%w: create temp output: %v", ErrEncoding, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	duration := float64(in.FrameCount) / float64(in.FPS)
	p := Params{
		FramePattern: in.FramePattern,
		FPS:          in.FPS,
		Duration:     duration,
		Output:       tmpPath,
	}
	if in.Audio.Present {
		p.AudioPath = in.Audio.Path
	}

	log.Printf("Encoding %d frames (%.2fs, audio=%v) to %s", in.FrameCount, duration, in.Audio.Present, in.Output)
	out, err := e.exec.Run(ctx, e.bin, e.builder.Build(p))
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: %v: %s", ErrEncoding, err, tail(out, 512))
	}

	if fi, err := os.Stat(tmpPath); err != nil || fi.Size() == 0 {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: ffmpeg produced no output", ErrEncoding)
	}
	if err := os.Rename(tmpPath, in.Output); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	return &Result{
		Path:     in.Output,
		Duration: duration,
		Frames:   in.FrameCount,
		HasAudio: in.Audio.Present,
	}, nil
}

// tail returns the last n bytes of b, trimmed.
func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return strings.TrimSpace(string(b))
}
