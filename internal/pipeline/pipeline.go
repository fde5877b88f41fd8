// Package pipeline runs one shader video generation end to end:
// audio analysis, shader validation, frame rendering, then encoding.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satindergrewal/shadercast/internal/audio"
	"github.com/satindergrewal/shadercast/internal/config"
	"github.com/satindergrewal/shadercast/internal/events"
	"github.com/satindergrewal/shadercast/internal/gpu"
	"github.com/satindergrewal/shadercast/internal/render"
	"github.com/satindergrewal/shadercast/internal/shader"
	"github.com/satindergrewal/shadercast/internal/video"
)

// ErrMissingResource is returned when staged frames or audio are gone at encode time.
var ErrMissingResource = errors.New("missing staged resource")

// Analyzer resolves a request's audio into a track staged under dir.
type Analyzer interface {
	Analyze(ctx context.Context, src, dir string) audio.Track
}

// Encoder assembles frames and audio into the output video.
type Encoder interface {
	Encode(ctx context.Context, in video.Input) (*video.Result, error)
}

// Deps are the collaborators of a pipeline. Generator and Opener are
// required; Analyzer and Encoder default to the config-driven implementations.
type Deps struct {
	Generator shader.TextGenerator
	Opener    gpu.Opener
	Analyzer  Analyzer
	Encoder   Encoder
	Progress  func(done, total int)
	Notify    func(events.Event) // must not block

	// Thread, when set, runs the GPU section of each run. Servers use it
	// to keep GL on the main OS thread.
	Thread *gpu.Thread
}

// Result describes a finished run.
type Result struct {
	RunID      string
	VideoPath  string
	ShaderPath string
	Attempts   int
	Frames     int
	Duration   int
	HasAudio   bool
	Elapsed    time.Duration
}

// Pipeline executes runs one at a time.
type Pipeline struct {
	cfg  config.Config
	deps Deps

	mu sync.Mutex
}

// New creates a pipeline.
func New(cfg config.Config, deps Deps) *Pipeline {
	if deps.Analyzer == nil {
		deps.Analyzer = audio.NewAnalyzer(audio.AnalyzerConfig{
			FFprobeBin:       cfg.FFprobeBin,
			FallbackDuration: cfg.FallbackDuration,
			FetchTimeout:     cfg.FetchTimeout,
		})
	}
	if deps.Encoder == nil {
		deps.Encoder = video.NewEncoder(cfg.FFmpegBin, video.NewCommandBuilder(cfg.VideoCodec, cfg.AudioCodec), nil)
	}
	return &Pipeline{cfg: cfg, deps: deps}
}

// staging holds the per-run paths.
type staging struct {
	frames string
	shader string
	audio  string
}

func (p *Pipeline) stagingFor(runID string) staging {
	return staging{
		frames: filepath.Join(p.cfg.FramesDir, runID),
		shader: filepath.Join(filepath.Dir(p.cfg.ShaderPath), runID, filepath.Base(p.cfg.ShaderPath)),
		audio:  filepath.Join(p.cfg.AudioDir, runID),
	}
}

// Run generates one video. Runs on the same Pipeline are serialized. The GPU
// context is opened for this run only and released before encoding starts.
func (p *Pipeline) Run(ctx context.Context, req shader.Request) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runID := uuid.NewString()
	res, err := p.run(ctx, runID, req)
	if err != nil {
		p.emit(events.Event{RunID: runID, Stage: events.StageFailed, Message: err.Error()})
		return nil, err
	}
	p.emit(events.Event{RunID: runID, Stage: events.StageDone, Message: res.VideoPath})
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, runID string, req shader.Request) (*Result, error) {
	start := time.Now()
	st := p.stagingFor(runID)
	log.Printf("Run %s: moods=%v genres=%v themes=%v audio=%q", runID, req.Moods, req.Genres, req.Themes, req.AudioSource)

	if !p.cfg.KeepStaging {
		defer p.cleanup(runID, st)
	}

	p.emit(events.Event{RunID: runID, Stage: events.StageAudio})
	track := p.deps.Analyzer.Analyze(ctx, req.AudioSource, st.audio)

	intensity := p.intensity(ctx, track)
	total := render.FrameCount(track.Duration, p.cfg.FPS)

	var (
		gres *gpuResult
		err  error
	)
	if terr := p.onGPUThread(func() {
		gres, err = p.renderOnGPU(ctx, runID, st, req, track, intensity, total)
	}); terr != nil {
		return nil, fmt.Errorf("open gpu: %w", terr)
	}
	if err != nil {
		return nil, err
	}

	if err := checkStaged(gres.sink, total, track); err != nil {
		return nil, err
	}

	p.emit(events.Event{RunID: runID, Stage: events.StageEncode, Total: gres.frames})
	out, err := p.deps.Encoder.Encode(ctx, video.Input{
		FramePattern: gres.sink.Pattern(),
		FrameCount:   gres.frames,
		FPS:          p.cfg.FPS,
		Audio:        track,
		Output:       p.cfg.VideoPath,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		RunID:      runID,
		VideoPath:  out.Path,
		ShaderPath: gres.shaderPath,
		Attempts:   gres.attempts,
		Frames:     gres.frames,
		Duration:   track.Duration,
		HasAudio:   track.Present,
		Elapsed:    time.Since(start),
	}
	log.Printf("Run %s: %d frames, %d attempt(s), video at %s (%s)", runID, res.Frames, res.Attempts, res.VideoPath, res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// gpuResult is what the GPU section of a run hands to encoding.
type gpuResult struct {
	sink       *render.DiskSink
	frames     int
	shaderPath string
	attempts   int
}

// onGPUThread runs fn on Deps.Thread when set, otherwise on the calling
// goroutine locked to its OS thread. GL contexts are bound to the thread
// that created them.
func (p *Pipeline) onGPUThread(fn func()) error {
	if p.deps.Thread != nil {
		return p.deps.Thread.Call(fn)
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	fn()
	return nil
}

// renderOnGPU opens a context, validates a shader and renders every frame.
// The context is released before returning.
func (p *Pipeline) renderOnGPU(ctx context.Context, runID string, st staging, req shader.Request, track audio.Track, intensity render.IntensityFunc, total int) (*gpuResult, error) {
	gctx, err := p.deps.Opener.Open(p.cfg.Width, p.cfg.Height)
	if err != nil {
		return nil, fmt.Errorf("open gpu: %w", err)
	}
	defer gctx.Release()

	validator := shader.NewValidator(p.deps.Generator, gctx, shader.ValidatorConfig{
		MaxRetries: p.cfg.MaxRetries,
		StagePath:  st.shader,
	})
	validator.SetTransitionFunc(func(from, to shader.State, attempt int) {
		if to == shader.StateRequesting {
			p.emit(events.Event{RunID: runID, Stage: events.StageShader, Attempt: attempt + 1, Total: p.cfg.MaxRetries})
		}
	})
	p.emit(events.Event{RunID: runID, Stage: events.StageShader, Attempt: 1, Total: p.cfg.MaxRetries})
	compiled, err := validator.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	defer compiled.Program.Release()

	sink, err := render.NewDiskSink(st.frames, p.cfg.FrameFormat, total)
	if err != nil {
		return nil, err
	}
	renderer := &render.Renderer{
		Intensity: intensity,
		Progress:  p.progress(runID),
	}
	frames, err := renderer.Render(ctx, compiled.Program, track.Duration, p.cfg.FPS, sink)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return &gpuResult{sink: sink, frames: frames, shaderPath: compiled.Path, attempts: compiled.Attempts}, nil
}

func (p *Pipeline) emit(ev events.Event) {
	if p.deps.Notify != nil {
		p.deps.Notify(ev)
	}
}

// progress reports every frame to Deps.Progress and about once per second
// of video to Notify.
func (p *Pipeline) progress(runID string) func(done, total int) {
	return func(done, total int) {
		if p.deps.Progress != nil {
			p.deps.Progress(done, total)
		}
		if done%p.cfg.FPS == 0 || done == total {
			p.emit(events.Event{RunID: runID, Stage: events.StageRender, Done: done, Total: total})
		}
	}
}

// intensity picks the per-frame intensity signal. The audio envelope is used
// only when configured and the track decodes; otherwise the synthetic curve.
func (p *Pipeline) intensity(ctx context.Context, track audio.Track) render.IntensityFunc {
	if p.cfg.IntensitySource != "audio" || !track.Present {
		return audio.SyntheticIntensity
	}
	samples, err := audio.DecodePCM(ctx, p.cfg.FFmpegBin, track.Path)
	if err != nil || len(samples) == 0 {
		log.Printf("Audio envelope unavailable, using synthetic intensity: %v", err)
		return audio.SyntheticIntensity
	}
	return audio.EnvelopeIntensity(samples, audio.SampleRate, audio.Channels, 1/float64(p.cfg.FPS))
}

// checkStaged verifies the encoder inputs are still on disk.
func checkStaged(sink *render.DiskSink, total int, track audio.Track) error {
	if sink.Count() != total {
		return fmt.Errorf("%w: %d of %d frames staged", ErrMissingResource, sink.Count(), total)
	}
	for _, i := range []int{0, total - 1} {
		path := sink.Path(i)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: frame %s: %v", ErrMissingResource, path, err)
		}
	}
	if track.Present {
		if _, err := os.Stat(track.Path); err != nil {
			return fmt.Errorf("%w: audio %s: %v", ErrMissingResource, track.Path, err)
		}
	}
	return nil
}

func (p *Pipeline) cleanup(runID string, st staging) {
	for _, dir := range []string{st.frames, st.audio} {
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("Run %s: cleanup %s: %v", runID, dir, err)
		}
	}
}
