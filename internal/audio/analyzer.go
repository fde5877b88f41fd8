package audio

import (
	"context"
	"log"
	"math"
	"time"
)

// AnalyzerConfig configures an Analyzer.
type AnalyzerConfig struct {
	FFprobeBin       string
	FallbackDuration int
	FetchTimeout     time.Duration
}

// Analyzer resolves a request's audio source to a Track.
type Analyzer struct {
	fetcher   *Fetcher
	durations *DurationReader
	fallback  int
}

// NewAnalyzer creates an analyzer.
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	if cfg.FallbackDuration <= 0 {
		cfg.FallbackDuration = FallbackDuration
	}
	return &Analyzer{
		fetcher:   NewFetcher(cfg.FetchTimeout),
		durations: NewDurationReader(cfg.FFprobeBin),
		fallback:  cfg.FallbackDuration,
	}
}

// Analyze downloads src into dir and measures it. It never fails: an empty
// source, a failed download or an undecodable file all yield a silent
// fallback track.
func (a *Analyzer) Analyze(ctx context.Context, src, dir string) Track {
	if src == "" {
		log.Printf("No audio source, using %ds fallback", a.fallback)
		return Fallback(a.fallback)
	}

	path, err := a.fetcher.Fetch(ctx, src, dir)
	if err != nil {
		log.Printf("Audio unavailable, using %ds fallback: %v", a.fallback, err)
		return Fallback(a.fallback)
	}

	secs, err := a.durations.Duration(ctx, path)
	if err != nil {
		log.Printf("Audio unreadable, using %ds fallback: %v", a.fallback, err)
		return Fallback(a.fallback)
	}

	d := WholeSeconds(secs)
	log.Printf("Audio duration: %.2fs (rendering %ds)", secs, d)
	return Track{Path: path, Duration: d, Present: true}
}

// WholeSeconds floors a duration to whole seconds, never below 1.
func WholeSeconds(secs float64) int {
	return max(int(math.Floor(secs)), 1)
}
