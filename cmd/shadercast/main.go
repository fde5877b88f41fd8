package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/satindergrewal/shadercast/internal/api"
	"github.com/satindergrewal/shadercast/internal/config"
	"github.com/satindergrewal/shadercast/internal/events"
	"github.com/satindergrewal/shadercast/internal/gpu"
	"github.com/satindergrewal/shadercast/internal/gpu/opengl"
	"github.com/satindergrewal/shadercast/internal/ollama"
	"github.com/satindergrewal/shadercast/internal/pipeline"
	"github.com/satindergrewal/shadercast/internal/shader"
)

func init() {
	// GLFW needs the main thread on macOS; main serves GPU calls from it.
	runtime.LockOSThread()
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Println("shadercast starting up...")

	gen, err := pipeline.NewGenerator(cfg)
	if err != nil {
		log.Fatalf("Text generator: %v", err)
	}

	// Ollama is optional to have running at startup; requests retry on their own.
	if c, ok := gen.(*ollama.Client); ok {
		readyCtx, readyCancel := context.WithTimeout(ctx, 30*time.Second)
		if c.WaitForReady(readyCtx) {
			log.Printf("Ollama connected: %s", c.Model())
		} else {
			log.Printf("Ollama not reachable at %s yet", cfg.OllamaURL)
		}
		readyCancel()
	} else {
		log.Printf("Using OpenAI-compatible generator (model: %s)", cfg.OpenAIModel)
	}

	// Progress fan-out for /api/events
	feed := events.NewBroadcaster()
	progress := make(chan events.Event, 256)
	thread := gpu.NewThread()

	pipe := pipeline.New(cfg, pipeline.Deps{
		Generator: gen,
		Opener:    opengl.NewOpener(shader.VertexAttrib),
		Thread:    thread,
		Notify: func(ev events.Event) {
			select {
			case progress <- ev:
			default:
			}
		},
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(ctx, pipe, feed).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end when the process is told to stop.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		feed.Run(gctx, progress)
		return nil
	})
	g.Go(func() error {
		log.Printf("shadercast live on %s (%dx%d @ %d fps)", addr, cfg.Width, cfg.Height, cfg.FPS)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	// Blocks until shutdown, running each request's GL work.
	thread.Serve(gctx)

	if err := g.Wait(); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}
