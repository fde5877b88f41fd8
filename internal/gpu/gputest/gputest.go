// Package gputest provides an in-memory gpu.Context for tests. Programs render
// a deterministic pattern: every pixel of bottom-up row y has bytes (y, y, y),
// so tests can check the vertical flip and the pixel layout.
package gputest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/satindergrewal/shadercast/internal/gpu"
)

var uniformDecl = regexp.MustCompile(`(?m)^\s*uniform\s+(float|vec2|vec3|vec4|int)\s+(\w+)\s*;`)

// Context is a fake gpu.Context. A fragment source containing Reject fails to compile.
type Context struct {
	Width, Height int
	Reject        string

	Compiles []string // fragment sources in call order
	Programs []*Program
	Released bool
}

// NewContext returns a fake context that rejects sources containing "INVALID".
func NewContext(width, height int) *Context {
	return &Context{Width: width, Height: height, Reject: "INVALID"}
}

// Opener returns a gpu.Opener that hands out ctx and records the requested size.
func Opener(ctx *Context) gpu.Opener {
	return gpu.OpenerFunc(func(width, height int) (gpu.Context, error) {
		ctx.Width, ctx.Height = width, height
		return ctx, nil
	})
}

func (c *Context) Compile(vertex, fragment string) (gpu.Program, error) {
	if c.Released {
		return nil, fmt.Errorf("%w: context released", gpu.ErrUnavailable)
	}
	c.Compiles = append(c.Compiles, fragment)
	if c.Reject != "" && strings.Contains(fragment, c.Reject) {
		return nil, &gpu.CompileError{Stage: "fragment", Log: "0:1: syntax error"}
	}

	p := &Program{
		Source:   fragment,
		width:    c.Width,
		height:   c.Height,
		uniforms: make(map[string]gpu.Uniform),
		Values:   make(map[string][][]float32),
	}
	for _, m := range uniformDecl.FindAllStringSubmatch(fragment, -1) {
		u := gpu.Uniform{Name: m[2], Components: 1, Float: m[1] != "int"}
		if strings.HasPrefix(m[1], "vec") {
			u.Components = int(m[1][3] - '0')
		}
		p.uniforms[u.Name] = u
	}
	c.Programs = append(c.Programs, p)
	return p, nil
}

func (c *Context) Release() {
	c.Released = true
	for _, p := range c.Programs {
		p.Release()
	}
}

// Program records uniform uploads and draw calls.
type Program struct {
	Source   string
	Values   map[string][][]float32 // every upload per uniform, in order
	Draws    int
	Reads    int
	Released bool

	width, height int
	uniforms      map[string]gpu.Uniform
}

func (p *Program) Uniform(name string) (gpu.Uniform, bool) {
	u, ok := p.uniforms[name]
	return u, ok
}

func (p *Program) SetFloat(name string, values ...float32) error {
	u, ok := p.uniforms[name]
	if !ok {
		return fmt.Errorf("uniform %q not declared", name)
	}
	if !u.Float || u.Components != len(values) {
		return fmt.Errorf("uniform %q arity %d, got %d", name, u.Components, len(values))
	}
	p.Values[name] = append(p.Values[name], append([]float32(nil), values...))
	return nil
}

func (p *Program) Draw() error {
	if p.Released {
		return fmt.Errorf("program released")
	}
	p.Draws++
	return nil
}

func (p *Program) ReadRGB() ([]byte, error) {
	if p.Released {
		return nil, fmt.Errorf("program released")
	}
	p.Reads++
	data := make([]byte, p.width*p.height*3)
	for y := 0; y < p.height; y++ {
		row := data[y*p.width*3 : (y+1)*p.width*3]
		for i := range row {
			row[i] = byte(y)
		}
	}
	return data, nil
}

func (p *Program) Size() (width, height int) {
	return p.width, p.height
}

func (p *Program) Release() {
	p.Released = true
}
