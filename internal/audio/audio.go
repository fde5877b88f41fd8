package audio

import "errors"

const (
	SampleRate = 48000
	Channels   = 2

	// FallbackDuration is used when a request has no usable audio (seconds).
	FallbackDuration = 5
)

// ErrFetch marks a download or decode failure. The analyzer recovers from it
// by falling back to a silent track.
var ErrFetch = errors.New("audio fetch failed")

// Track is the audio a video is timed to. When Present is false the video is
// silent and Duration is the fallback length.
type Track struct {
	Path     string
	Duration int // whole seconds, always >= 1
	Present  bool
}

// Fallback returns a silent track of the given length.
func Fallback(seconds int) Track {
	return Track{Duration: max(seconds, 1)}
}
