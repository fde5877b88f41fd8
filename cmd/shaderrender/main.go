// Command shaderrender runs a single generation from the command line.
//
//	shaderrender -moods calm -genres ambient -themes ocean -audio https://example.com/song.mp3
//	shaderrender -shader my.frag -out clip.mp4
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"

	"github.com/satindergrewal/shadercast/internal/config"
	"github.com/satindergrewal/shadercast/internal/gpu/opengl"
	"github.com/satindergrewal/shadercast/internal/pipeline"
	"github.com/satindergrewal/shadercast/internal/shader"
)

// fileGenerator serves a shader from disk instead of asking a model.
type fileGenerator struct {
	path string
}

func (g fileGenerator) Generate(ctx context.Context, system, prompt string) (string, error) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Runs execute on the main goroutine, which must stay on the main thread for GLFW.
func init() {
	runtime.LockOSThread()
}

func main() {
	var (
		moods      = flag.String("moods", "happy", "comma-separated moods")
		genres     = flag.String("genres", "funk", "comma-separated genres")
		themes     = flag.String("themes", "travel", "comma-separated themes")
		audioURL   = flag.String("audio", "", "audio URL to time the video to")
		shaderFile = flag.String("shader", "", "render this fragment shader instead of generating one")
		out        = flag.String("out", "", "output video path (default VIDEO_PATH)")
		quiet      = flag.Bool("quiet", false, "no progress bar")
	)
	flag.Parse()

	cfg := config.Load()
	if *out != "" {
		cfg.VideoPath = *out
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var gen shader.TextGenerator
	if *shaderFile != "" {
		gen = fileGenerator{path: *shaderFile}
		cfg.MaxRetries = 1
	} else {
		g, err := pipeline.NewGenerator(cfg)
		if err != nil {
			log.Fatalf("Text generator: %v", err)
		}
		gen = g
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total), "Rendering")
		}
		bar.Set(done)
	}
	if *quiet {
		progress = nil
	}

	pipe := pipeline.New(cfg, pipeline.Deps{
		Generator: gen,
		Opener:    opengl.NewOpener(shader.VertexAttrib),
		Progress:  progress,
	})

	res, err := pipe.Run(ctx, shader.Request{
		Moods:       splitList(*moods),
		Genres:      splitList(*genres),
		Themes:      splitList(*themes),
		AudioSource: *audioURL,
	})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		log.Fatalf("Video generation failed: %v", err)
	}

	fmt.Printf("%s (%d frames, %ds, shader %s)\n", res.VideoPath, res.Frames, res.Duration, res.ShaderPath)
}
