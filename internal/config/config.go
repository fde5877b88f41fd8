package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
// It is read once at startup and passed by value into each component.
type Config struct {
	// Rendering
	Width       int
	Height      int
	FPS         int
	FrameFormat string // png or bmp

	// Staging and output
	FramesDir   string // per-run frame directories are created under this root
	ShaderPath  string // sanitized shader source, namespaced per run
	AudioDir    string // downloaded audio, namespaced per run
	VideoPath   string
	KeepStaging bool

	// Generation
	MaxRetries       int
	FallbackDuration int    // seconds, used when no audio is usable
	IntensitySource  string // synthetic or audio

	// Text generation
	LLMProvider   string // openai or ollama
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	OllamaURL     string
	OllamaModel   string

	// Encoding
	FFmpegBin  string
	FFprobeBin string
	VideoCodec string
	AudioCodec string

	// Server
	Port         int
	FetchTimeout time.Duration
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is applied first when present;
// variables already set in the environment win.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Ignoring unreadable .env: %v", err)
	}

	return Config{
		Width:       envInt("WIDTH", 512),
		Height:      envInt("HEIGHT", 512),
		FPS:         envInt("FPS", 30),
		FrameFormat: strings.ToLower(envStr("FRAME_FORMAT", "png")),

		FramesDir:   envStr("OUTPUT_DIR", "temp/frames"),
		ShaderPath:  envStr("SHADER_PATH", "temp/shader.frag"),
		AudioDir:    envStr("AUDIO_DIR", "temp/audio"),
		VideoPath:   envStr("VIDEO_PATH", "temp/generated_video.mp4"),
		KeepStaging: envBool("KEEP_STAGING", false),

		MaxRetries:       envInt("MAX_RETRIES", 3),
		FallbackDuration: envInt("FALLBACK_DURATION", 5),
		IntensitySource:  strings.ToLower(envStr("INTENSITY_SOURCE", "synthetic")),

		LLMProvider:   strings.ToLower(envStr("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:  envStr("OPENAI_API_KEY", ""),
		OpenAIBaseURL: envStr("OPENAI_BASE_URL", ""),
		OpenAIModel:   envStr("OPENAI_MODEL", "gpt-4"),
		OllamaURL:     envStr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:   envStr("OLLAMA_MODEL", "qwen2.5-coder"),

		FFmpegBin:  envStr("FFMPEG_BIN", "ffmpeg"),
		FFprobeBin: envStr("FFPROBE_BIN", "ffprobe"),
		VideoCodec: envStr("VIDEO_CODEC", "libx264"),
		AudioCodec: envStr("AUDIO_CODEC", "aac"),

		Port:         envInt("PORT", 5000),
		FetchTimeout: time.Duration(envFloat("FETCH_TIMEOUT", 60) * float64(time.Second)),
	}
}

// Validate reports the first setting that would make a pipeline run impossible.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("frame size %dx%d must be positive", c.Width, c.Height)
	case c.FPS <= 0:
		return fmt.Errorf("fps %d must be positive", c.FPS)
	case c.MaxRetries <= 0:
		return fmt.Errorf("max retries %d must be positive", c.MaxRetries)
	case c.FallbackDuration <= 0:
		return fmt.Errorf("fallback duration %d must be positive", c.FallbackDuration)
	}

	switch c.FrameFormat {
	case "png", "bmp":
	default:
		return fmt.Errorf("unknown frame format %q", c.FrameFormat)
	}
	switch c.IntensitySource {
	case "synthetic", "audio":
	default:
		return fmt.Errorf("unknown intensity source %q", c.IntensitySource)
	}
	switch c.LLMProvider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown LLM provider %q", c.LLMProvider)
	}

	if c.FramesDir == "" || c.ShaderPath == "" || c.AudioDir == "" || c.VideoPath == "" {
		return errors.New("staging and output paths must be set")
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
