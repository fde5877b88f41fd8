// Package opengl implements the gpu collaborator on an OpenGL 3.3 core
// context hosted by a hidden GLFW window. Rendering goes to an offscreen
// framebuffer so the output size does not depend on the window system.
//
// GLFW keeps process-wide state, so at most one Context exists at a time.
// Callers must lock the OS thread for the lifetime of a Context.
package opengl

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/satindergrewal/shadercast/internal/gpu"
)

// vertexAttrib is the attribute location bound to the quad's position input.
const vertexAttrib = 0

var quadVertices = []float32{
	-1.0, -1.0,
	1.0, -1.0,
	-1.0, 1.0,
	1.0, 1.0,
}

// glfwMu serializes contexts; glfw.Init/Terminate are global.
var glfwMu sync.Mutex

// Opener opens hidden-window OpenGL contexts.
type Opener struct {
	// AttribName is the vertex input the fixed vertex stage reads positions from.
	AttribName string
}

// NewOpener returns an Opener whose programs receive quad positions through attrib.
func NewOpener(attrib string) *Opener {
	return &Opener{AttribName: attrib}
}

// Context owns the window, the offscreen framebuffer and every program compiled on it.
type Context struct {
	window *glfw.Window
	attrib string
	width  int
	height int

	fbo, rbo uint32
	vao, vbo uint32

	programs []*Program
	released bool
}

// Open creates a fresh context with a width x height color target.
func (o *Opener) Open(width, height int) (gpu.Context, error) {
	glfwMu.Lock()

	if err := glfw.Init(); err != nil {
		glfwMu.Unlock()
		return nil, fmt.Errorf("%w: glfw init: %v", gpu.ErrUnavailable, err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(width, height, "shadercast", nil, nil)
	if err != nil {
		glfw.Terminate()
		glfwMu.Unlock()
		return nil, fmt.Errorf("%w: create window: %v", gpu.ErrUnavailable, err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		glfwMu.Unlock()
		return nil, fmt.Errorf("%w: gl init: %v", gpu.ErrUnavailable, err)
	}

	c := &Context{
		window: window,
		attrib: o.AttribName,
		width:  width,
		height: height,
	}
	if err := c.setupTarget(); err != nil {
		c.Release()
		return nil, err
	}
	c.setupQuad()

	log.Printf("OpenGL context ready: %s (%dx%d)", gl.GoStr(gl.GetString(gl.RENDERER)), width, height)
	return c, nil
}

func (c *Context) setupTarget() error {
	gl.GenFramebuffers(1, &c.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, c.fbo)

	gl.GenRenderbuffers(1, &c.rbo)
	gl.BindRenderbuffer(gl.RENDERBUFFER, c.rbo)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.RGBA8, int32(c.width), int32(c.height))
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.RENDERBUFFER, c.rbo)

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		return fmt.Errorf("%w: framebuffer incomplete (0x%x)", gpu.ErrUnavailable, status)
	}

	gl.Viewport(0, 0, int32(c.width), int32(c.height))
	gl.Disable(gl.DEPTH_TEST)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	return nil
}

func (c *Context) setupQuad() {
	gl.GenVertexArrays(1, &c.vao)
	gl.BindVertexArray(c.vao)

	gl.GenBuffers(1, &c.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, c.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)

	gl.VertexAttribPointer(vertexAttrib, 2, gl.FLOAT, false, 0, nil)
	gl.EnableVertexAttribArray(vertexAttrib)
}

// Compile builds and links a program. Driver rejections come back as *gpu.CompileError.
func (c *Context) Compile(vertex, fragment string) (gpu.Program, error) {
	if c.released {
		return nil, fmt.Errorf("%w: context released", gpu.ErrUnavailable)
	}

	vs, err := compileShader(vertex, gl.VERTEX_SHADER)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(vs)

	fs, err := compileShader(fragment, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, err
	}
	defer gl.DeleteShader(fs)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	if c.attrib != "" {
		gl.BindAttribLocation(program, vertexAttrib, gl.Str(c.attrib+"\x00"))
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := readInfoLog(logLength, func(buf *uint8) {
			gl.GetProgramInfoLog(program, logLength, nil, buf)
		})
		gl.DeleteProgram(program)
		return nil, &gpu.CompileError{Stage: "link", Log: infoLog}
	}

	p := &Program{
		ctx:      c,
		id:       program,
		uniforms: activeUniforms(program),
	}
	c.programs = append(c.programs, p)
	return p, nil
}

// Release deletes all GL objects, destroys the window and terminates GLFW.
func (c *Context) Release() {
	if c.released {
		return
	}
	c.released = true

	for _, p := range c.programs {
		p.Release()
	}
	c.programs = nil

	if c.vbo != 0 {
		gl.DeleteBuffers(1, &c.vbo)
	}
	if c.vao != 0 {
		gl.DeleteVertexArrays(1, &c.vao)
	}
	if c.rbo != 0 {
		gl.DeleteRenderbuffers(1, &c.rbo)
	}
	if c.fbo != 0 {
		gl.DeleteFramebuffers(1, &c.fbo)
	}

	glfw.DetachCurrentContext()
	c.window.Destroy()
	glfw.Terminate()
	glfwMu.Unlock()
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := readInfoLog(logLength, func(buf *uint8) {
			gl.GetShaderInfoLog(shader, logLength, nil, buf)
		})
		gl.DeleteShader(shader)

		stage := "vertex"
		if shaderType == gl.FRAGMENT_SHADER {
			stage = "fragment"
		}
		return 0, &gpu.CompileError{Stage: stage, Log: infoLog}
	}
	return shader, nil
}

func readInfoLog(length int32, read func(*uint8)) string {
	if length <= 0 {
		return "no info log"
	}
	buf := make([]uint8, length+1)
	read(&buf[0])
	return strings.TrimRight(string(buf), "\x00")
}

// activeUniforms enumerates the uniforms the linker kept. Array uniforms are
// reported under their base name.
func activeUniforms(program uint32) map[string]activeUniform {
	var count int32
	gl.GetProgramiv(program, gl.ACTIVE_UNIFORMS, &count)

	uniforms := make(map[string]activeUniform, count)
	nameBuf := make([]uint8, 256)
	for i := uint32(0); i < uint32(count); i++ {
		var length, size int32
		var xtype uint32
		gl.GetActiveUniform(program, i, int32(len(nameBuf)), &length, &size, &xtype, &nameBuf[0])

		name := strings.TrimSuffix(string(nameBuf[:length]), "[0]")
		components, isFloat := describeType(xtype)
		uniforms[name] = activeUniform{
			Uniform: gpu.Uniform{
				Name:       name,
				Components: components,
				Float:      isFloat,
			},
			location: gl.GetUniformLocation(program, gl.Str(name+"\x00")),
		}
	}
	return uniforms
}

func describeType(xtype uint32) (components int, isFloat bool) {
	switch xtype {
	case gl.FLOAT:
		return 1, true
	case gl.FLOAT_VEC2:
		return 2, true
	case gl.FLOAT_VEC3:
		return 3, true
	case gl.FLOAT_VEC4:
		return 4, true
	case gl.INT_VEC2:
		return 2, false
	case gl.INT_VEC3:
		return 3, false
	case gl.INT_VEC4:
		return 4, false
	default:
		return 1, false
	}
}
