package video

import (
	"strconv"
)

// Params describes one encode: an image sequence plus optional audio.
type Params struct {
	FramePattern string // printf-style, e.g. frames/frame_%04d.png
	FPS          int
	Duration     float64 // seconds of video to produce
	AudioPath    string  // empty for a silent video
	Output       string
}

// CommandBuilder turns Params into ffmpeg arguments.
type CommandBuilder struct {
	VideoCodec string
	AudioCodec string
}

// NewCommandBuilder returns a builder, defaulting to libx264 and aac.
func NewCommandBuilder(videoCodec, audioCodec string) *CommandBuilder {
	if videoCodec == "" {
		videoCodec = "libx264"
	}
	if audioCodec == "" {
		audioCodec = "aac"
	}
	return &CommandBuilder{VideoCodec: videoCodec, AudioCodec: audioCodec}
}

// Build returns the ffmpeg arguments. With audio, the track is padded with
// silence and cut so it lasts exactly Duration, matching the frames.
func (b *CommandBuilder) Build(p Params) []string {
	dur := strconv.FormatFloat(p.Duration, 'f', -1, 64)

	args := []string{
		"-y", "-nostats", "-hide_banner", "-loglevel", "error",
		"-framerate", strconv.Itoa(p.FPS),
		"-i", p.FramePattern,
	}

	if p.AudioPath != "" {
		args = append(args, "-i", p.AudioPath)
		args = append(args, "-map", "0:v:0", "-map", "1:a:0")
	} else {
		args = append(args, "-map", "0:v:0")
	}

	args = append(args,
		"-c:v", b.VideoCodec,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(p.FPS),
	)

	if p.AudioPath != "" {
		args = append(args, "-c:a", b.AudioCodec, "-af", "apad")
	} else {
		args = append(args, "-an")
	}

	args = append(args,
		"-t", dur,
		"-movflags", "+faststart",
		p.Output,
	)
	return args
}
