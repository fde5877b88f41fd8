// Package api exposes the pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/satindergrewal/shadercast/internal/events"
	"github.com/satindergrewal/shadercast/internal/pipeline"
	"github.com/satindergrewal/shadercast/internal/shader"
)

// Runner executes one generation.
type Runner interface {
	Run(ctx context.Context, req shader.Request) (*pipeline.Result, error)
}

// Defaults applied to fields missing from a request.
var (
	DefaultMoods  = []string{"happy"}
	DefaultGenres = []string{"funk"}
	DefaultThemes = []string{"travel"}
)

// GenerateRequest is the /generate-video body.
type GenerateRequest struct {
	Moods       []string `json:"moods"`
	Genres      []string `json:"genres"`
	Themes      []string `json:"themes"`
	MusicURL    string   `json:"music_url"`
	AudioSource string   `json:"audioSource"`
}

// ToShader applies defaults and returns the pipeline request.
func (g GenerateRequest) ToShader() shader.Request {
	req := shader.Request{
		Moods:       g.Moods,
		Genres:      g.Genres,
		Themes:      g.Themes,
		AudioSource: g.MusicURL,
	}
	if len(req.Moods) == 0 {
		req.Moods = DefaultMoods
	}
	if len(req.Genres) == 0 {
		req.Genres = DefaultGenres
	}
	if len(req.Themes) == 0 {
		req.Themes = DefaultThemes
	}
	if req.AudioSource == "" {
		req.AudioSource = g.AudioSource
	}
	return req
}

// Server handles HTTP requests. Runs use the server's base context, so they
// stop on shutdown but not when a client disconnects.
type Server struct {
	base   context.Context
	runner Runner
	feed   *events.Broadcaster

	mu       sync.Mutex
	inFlight int
	runs     int
	failed   int
	last     *pipeline.Result
	lastErr  string
}

// NewServer creates a server. feed may be nil, which disables /api/events.
func NewServer(base context.Context, runner Runner, feed *events.Broadcaster) *Server {
	return &Server{base: base, runner: runner, feed: feed}
}

// Handler returns the route mux wrapped with CORS handling.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate-video", s.handleGenerate)
	mux.HandleFunc("/api/status", s.handleStatus)
	if s.feed != nil {
		mux.Handle("/api/events", NewEventsHandler(s.feed))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	return withCORS(mux)
}

// withCORS allows any origin and answers preflight requests itself.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		if r.Method != http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
			h.Set("Access-Control-Allow-Headers", req)
		} else {
			h.Set("Access-Control-Allow-Headers", "Content-Type")
		}
		h.Set("Access-Control-Max-Age", "600")
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var body GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request: " + err.Error()})
		return
	}

	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()

	res, err := s.runner.Run(s.base, body.ToShader())

	s.mu.Lock()
	s.inFlight--
	s.runs++
	if err != nil {
		s.failed++
		s.lastErr = err.Error()
	} else {
		s.last = res
		s.lastErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("Video generation failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "Video generation failed: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Shader video generated successfully",
		"videoPath": res.VideoPath,
		"runId":     res.RunID,
		"attempts":  res.Attempts,
		"frames":    res.Frames,
		"duration":  res.Duration,
		"hasAudio":  res.HasAudio,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := map[string]any{
		"running":   s.inFlight > 0,
		"in_flight": s.inFlight,
		"runs":      s.runs,
		"failed":    s.failed,
	}
	if s.feed != nil {
		status["event_listeners"] = s.feed.ListenerCount()
	}
	if s.last != nil {
		status["last_run"] = map[string]any{
			"run_id":     s.last.RunID,
			"video_path": s.last.VideoPath,
			"attempts":   s.last.Attempts,
			"frames":     s.last.Frames,
			"elapsed":    s.last.Elapsed.Round(time.Millisecond).String(),
		}
	}
	if s.lastErr != "" {
		status["last_error"] = s.lastErr
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
