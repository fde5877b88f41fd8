package shader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/satindergrewal/shadercast/internal/gpu"
)

// DefaultMaxRetries bounds generation attempts when the config leaves it unset.
const DefaultMaxRetries = 3

// ErrGenerationExhausted is returned when every attempt produced a shader the GPU rejected.
var ErrGenerationExhausted = errors.New("all shader generation attempts failed")

// Request describes the music a shader should visualize.
type Request struct {
	Moods       []string
	Genres      []string
	Themes      []string
	AudioSource string // URL; empty when the request has no audio
}

// Candidate is one unvalidated generator response.
type Candidate struct {
	Text    string
	Attempt int
}

// TextGenerator produces shader source from a system message and prompt.
// Responses carry no validity guarantee.
type TextGenerator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// State is a step of the validator's retry loop.
type State int

const (
	StateRequesting State = iota
	StateSanitizing
	StateCompiling
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRequesting:
		return "requesting"
	case StateSanitizing:
		return "sanitizing"
	case StateCompiling:
		return "compiling"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TransitionFunc observes every state change of a validation run.
type TransitionFunc func(from, to State, attempt int)

// ValidatorConfig holds retry and staging parameters.
type ValidatorConfig struct {
	MaxRetries int
	StagePath  string // sanitized source of the accepted shader is written here
}

// Result is a validated shader ready for rendering.
type Result struct {
	Program  gpu.Program
	Source   string
	Attempts int
	Path     string
}

// Validator asks for shaders until one compiles or the retry bound is reached.
type Validator struct {
	gen      TextGenerator
	compiler gpu.Compiler
	cfg      ValidatorConfig

	onTransition TransitionFunc
}

// NewValidator creates a validator compiling on the given compiler.
func NewValidator(gen TextGenerator, compiler gpu.Compiler, cfg ValidatorConfig) *Validator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	return &Validator{gen: gen, compiler: compiler, cfg: cfg}
}

// SetTransitionFunc registers an observer for state changes. Pass nil to remove it.
func (v *Validator) SetTransitionFunc(fn TransitionFunc) {
	v.onTransition = fn
}

// Run drives Requesting -> Sanitizing -> Compiling until Success or Failed.
// It makes exactly one generation call per attempt: N calls when attempt N
// succeeds, MaxRetries calls when all fail.
func (v *Validator) Run(ctx context.Context, req Request) (*Result, error) {
	prompt := BuildPrompt(req)
	maxRetries := v.cfg.MaxRetries

	var (
		state     = StateRequesting
		attempt   int
		candidate Candidate
		source    string
		program   gpu.Program
		lastErr   error
	)

	move := func(to State) {
		if v.onTransition != nil {
			v.onTransition(state, to, attempt)
		}
		state = to
	}
	failAttempt := func(err error) {
		lastErr = err
		if attempt >= maxRetries {
			move(StateFailed)
			return
		}
		move(StateRequesting)
	}

	for {
		switch state {
		case StateRequesting:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			attempt++
			log.Printf("Attempting shader generation (try %d/%d)", attempt, maxRetries)

			text, err := v.gen.Generate(ctx, SystemPrompt(), prompt)
			if err != nil {
				log.Printf("Shader generation failed on attempt %d: %v", attempt, err)
				failAttempt(fmt.Errorf("generate: %w", err))
				continue
			}
			candidate = Candidate{Text: text, Attempt: attempt}
			move(StateSanitizing)

		case StateSanitizing:
			source = Sanitize(candidate.Text)
			move(StateCompiling)

		case StateCompiling:
			p, err := v.compiler.Compile(VertexSource, source)
			if err != nil {
				log.Printf("Shader failed on attempt %d: %v", attempt, err)
				failAttempt(err)
				continue
			}
			program = p
			log.Printf("Shader compiled successfully on attempt %d", attempt)
			move(StateSuccess)

		case StateSuccess:
			if err := v.stage(source); err != nil {
				program.Release()
				return nil, err
			}
			return &Result{
				Program:  program,
				Source:   source,
				Attempts: attempt,
				Path:     v.cfg.StagePath,
			}, nil

		case StateFailed:
			return nil, fmt.Errorf("%w (%d attempts): %v", ErrGenerationExhausted, attempt, lastErr)
		}
	}
}

func (v *Validator) stage(source string) error {
	if v.cfg.StagePath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(v.cfg.StagePath), 0o755); err != nil {
		return fmt.Errorf("stage shader: %w", err)
	}
	if err := os.WriteFile(v.cfg.StagePath, []byte(source), 0o644); err != nil {
		return fmt.Errorf("stage shader: %w", err)
	}
	return nil
}
