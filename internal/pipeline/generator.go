package pipeline

import (
	"errors"
	"fmt"

	"github.com/satindergrewal/shadercast/internal/config"
	"github.com/satindergrewal/shadercast/internal/ollama"
	"github.com/satindergrewal/shadercast/internal/openai"
	"github.com/satindergrewal/shadercast/internal/shader"
)

// NewGenerator returns the text generator selected by cfg.LLMProvider.
func NewGenerator(cfg config.Config) (shader.TextGenerator, error) {
	switch cfg.LLMProvider {
	case "ollama":
		return ollama.NewClient(cfg.OllamaURL, cfg.OllamaModel), nil
	case "openai", "":
		// A custom base URL may point at a server that needs no key.
		if cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == "" {
			return nil, errors.New("OPENAI_API_KEY is required for the openai provider")
		}
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
