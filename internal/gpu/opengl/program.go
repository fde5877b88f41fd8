package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v3.3-core/gl"

	"github.com/satindergrewal/shadercast/internal/gpu"
)

type activeUniform struct {
	gpu.Uniform
	location int32
}

// Program is a linked GL program owned by a Context.
type Program struct {
	ctx      *Context
	id       uint32
	uniforms map[string]activeUniform
}

func (p *Program) Uniform(name string) (gpu.Uniform, bool) {
	u, ok := p.uniforms[name]
	return u.Uniform, ok
}

func (p *Program) SetFloat(name string, values ...float32) error {
	u, ok := p.uniforms[name]
	if !ok {
		return fmt.Errorf("uniform %q not declared", name)
	}
	if !u.Float || u.Components != len(values) {
		return fmt.Errorf("uniform %q has %d components (float=%t), got %d floats", name, u.Components, u.Float, len(values))
	}

	gl.UseProgram(p.id)
	switch len(values) {
	case 1:
		gl.Uniform1f(u.location, values[0])
	case 2:
		gl.Uniform2f(u.location, values[0], values[1])
	case 3:
		gl.Uniform3f(u.location, values[0], values[1], values[2])
	case 4:
		gl.Uniform4f(u.location, values[0], values[1], values[2], values[3])
	}
	return nil
}

func (p *Program) Draw() error {
	if p.id == 0 {
		return fmt.Errorf("program released")
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, p.ctx.fbo)
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	gl.UseProgram(p.id)
	gl.BindVertexArray(p.ctx.vao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	return nil
}

func (p *Program) ReadRGB() ([]byte, error) {
	if p.id == 0 {
		return nil, fmt.Errorf("program released")
	}
	w, h := p.Size()
	data := make([]byte, w*h*3)

	gl.Finish()
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, p.ctx.fbo)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGB, gl.UNSIGNED_BYTE, gl.Ptr(data))

	if code := gl.GetError(); code != gl.NO_ERROR {
		return nil, fmt.Errorf("read pixels: gl error 0x%x", code)
	}
	return data, nil
}

func (p *Program) Size() (width, height int) {
	return p.ctx.width, p.ctx.height
}

func (p *Program) Release() {
	if p.id == 0 {
		return
	}
	gl.DeleteProgram(p.id)
	p.id = 0
}
