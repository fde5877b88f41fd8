package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var allVars = []string{
	"WIDTH", "HEIGHT", "FPS", "FRAME_FORMAT",
	"OUTPUT_DIR", "SHADER_PATH", "AUDIO_DIR", "VIDEO_PATH", "KEEP_STAGING",
	"MAX_RETRIES", "FALLBACK_DURATION", "INTENSITY_SOURCE",
	"LLM_PROVIDER", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	"OLLAMA_URL", "OLLAMA_MODEL",
	"FFMPEG_BIN", "FFPROBE_BIN", "VIDEO_CODEC", "AUDIO_CODEC",
	"PORT", "FETCH_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allVars {
		// t.Setenv registers restoration; Unsetenv then makes the variable absent.
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Width != 512 || cfg.Height != 512 {
		t.Errorf("size = %dx%d, want 512x512", cfg.Width, cfg.Height)
	}
	if cfg.FPS != 30 {
		t.Errorf("FPS = %d, want 30", cfg.FPS)
	}
	if cfg.FrameFormat != "png" {
		t.Errorf("FrameFormat = %q, want 'png'", cfg.FrameFormat)
	}
	if cfg.FramesDir != "temp/frames" {
		t.Errorf("FramesDir = %q, want default", cfg.FramesDir)
	}
	if cfg.ShaderPath != "temp/shader.frag" {
		t.Errorf("ShaderPath = %q, want default", cfg.ShaderPath)
	}
	if cfg.AudioDir != "temp/audio" {
		t.Errorf("AudioDir = %q, want default", cfg.AudioDir)
	}
	if cfg.VideoPath != "temp/generated_video.mp4" {
		t.Errorf("VideoPath = %q, want default", cfg.VideoPath)
	}
	if cfg.KeepStaging {
		t.Error("KeepStaging = true, want false")
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.FallbackDuration != 5 {
		t.Errorf("FallbackDuration = %d, want 5", cfg.FallbackDuration)
	}
	if cfg.IntensitySource != "synthetic" {
		t.Errorf("IntensitySource = %q, want 'synthetic'", cfg.IntensitySource)
	}
	if cfg.LLMProvider != "openai" {
		t.Errorf("LLMProvider = %q, want 'openai'", cfg.LLMProvider)
	}
	if cfg.OpenAIModel != "gpt-4" {
		t.Errorf("OpenAIModel = %q, want 'gpt-4'", cfg.OpenAIModel)
	}
	if cfg.VideoCodec != "libx264" || cfg.AudioCodec != "aac" {
		t.Errorf("codecs = %q/%q, want libx264/aac", cfg.VideoCodec, cfg.AudioCodec)
	}
	if cfg.Port != 5000 {
		t.Errorf("Port = %d, want 5000", cfg.Port)
	}
	if cfg.FetchTimeout != 60*time.Second {
		t.Errorf("FetchTimeout = %v, want 60s", cfg.FetchTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("WIDTH", "1280")
	t.Setenv("HEIGHT", "720")
	t.Setenv("FPS", "24")
	t.Setenv("FRAME_FORMAT", "BMP")
	t.Setenv("OUTPUT_DIR", "/tmp/frames")
	t.Setenv("VIDEO_PATH", "/tmp/out.mp4")
	t.Setenv("KEEP_STAGING", "true")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("INTENSITY_SOURCE", "audio")
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("OLLAMA_MODEL", "llama3")
	t.Setenv("PORT", "8081")
	t.Setenv("FETCH_TIMEOUT", "2.5")

	cfg := Load()

	if cfg.Width != 1280 || cfg.Height != 720 {
		t.Errorf("size = %dx%d, want 1280x720", cfg.Width, cfg.Height)
	}
	if cfg.FPS != 24 {
		t.Errorf("FPS = %d, want 24", cfg.FPS)
	}
	if cfg.FrameFormat != "bmp" {
		t.Errorf("FrameFormat = %q, want lowercased 'bmp'", cfg.FrameFormat)
	}
	if cfg.FramesDir != "/tmp/frames" {
		t.Errorf("FramesDir = %q, want env override", cfg.FramesDir)
	}
	if cfg.VideoPath != "/tmp/out.mp4" {
		t.Errorf("VideoPath = %q, want env override", cfg.VideoPath)
	}
	if !cfg.KeepStaging {
		t.Error("KeepStaging = false, want true")
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.MaxRetries)
	}
	if cfg.IntensitySource != "audio" {
		t.Errorf("IntensitySource = %q, want 'audio'", cfg.IntensitySource)
	}
	if cfg.LLMProvider != "ollama" || cfg.OllamaModel != "llama3" {
		t.Errorf("provider = %q/%q, want ollama/llama3", cfg.LLMProvider, cfg.OllamaModel)
	}
	if cfg.Port != 8081 {
		t.Errorf("Port = %d, want 8081", cfg.Port)
	}
	if cfg.FetchTimeout != 2500*time.Millisecond {
		t.Errorf("FetchTimeout = %v, want 2.5s", cfg.FetchTimeout)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("FPS", "not-a-number")
	cfg := Load()
	if cfg.FPS != 30 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 30", cfg.FPS)
	}
}

func TestEnvBoolInvalidFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("KEEP_STAGING", "maybe")
	if Load().KeepStaging {
		t.Error("Invalid bool env should fallback to false")
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base := Load()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero width", func(c *Config) { c.Width = 0 }, "frame size"},
		{"negative fps", func(c *Config) { c.FPS = -1 }, "fps"},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, "max retries"},
		{"zero fallback", func(c *Config) { c.FallbackDuration = 0 }, "fallback duration"},
		{"bad format", func(c *Config) { c.FrameFormat = "gif" }, "frame format"},
		{"bad intensity", func(c *Config) { c.IntensitySource = "fft" }, "intensity source"},
		{"bad provider", func(c *Config) { c.LLMProvider = "bard" }, "LLM provider"},
		{"empty video path", func(c *Config) { c.VideoPath = "" }, "paths"},
	}
	for _, tt := range tests {
		cfg := base
		tt.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: Validate() = nil, want error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: Validate() = %q, want mention of %q", tt.name, err, tt.want)
		}
	}
}
