// Package gpu defines the GPU collaborator used to compile and run generated
// fragment shaders. A Context is owned by exactly one pipeline run and is not
// safe for concurrent use: every call must come from the goroutine (and OS
// thread) that opened it.
package gpu

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned by an Opener when no rendering context can be created.
var ErrUnavailable = errors.New("gpu context unavailable")

// CompileError reports a shader the driver rejected.
type CompileError struct {
	Stage string // vertex, fragment or link
	Log   string // driver info log
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s shader compile failed: %s", e.Stage, strings.TrimSpace(e.Log))
}

// Uniform describes one active uniform of a linked program.
type Uniform struct {
	Name       string
	Components int  // 1 for scalars, 2-4 for vectors
	Float      bool // false for int, bool and sampler uniforms
}

// Program is a compiled and linked shader program bound to its Context.
type Program interface {
	// Uniform reports whether the program declares an active uniform with this name.
	Uniform(name string) (Uniform, bool)
	// SetFloat uploads a float or float vector; len(values) must match the arity.
	SetFloat(name string, values ...float32) error
	// Draw clears the target and draws a full-screen quad as a 4-vertex triangle strip.
	Draw() error
	// ReadRGB returns the color buffer as tightly packed RGB rows, bottom row first.
	ReadRGB() ([]byte, error)
	// Size returns the render target size in pixels.
	Size() (width, height int)
	Release()
}

// Compiler builds programs from vertex and fragment source.
type Compiler interface {
	Compile(vertex, fragment string) (Program, error)
}

// Context is a scoped GPU rendering context.
type Context interface {
	Compiler
	// Release frees every program and native handle. Safe to call more than once.
	Release()
}

// Opener creates fresh contexts, one per pipeline run.
type Opener interface {
	Open(width, height int) (Context, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(width, height int) (Context, error)

func (f OpenerFunc) Open(width, height int) (Context, error) {
	return f(width, height)
}
