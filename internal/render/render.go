// Package render drives a compiled shader program over a timeline and hands
// each frame to a Sink.
package render

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/satindergrewal/shadercast/internal/audio"
	"github.com/satindergrewal/shadercast/internal/gpu"
	"github.com/satindergrewal/shadercast/internal/shader"
)

// IntensityFunc maps elapsed seconds to an intensity in [0,1].
type IntensityFunc func(t float64) float64

// Frame is one rendered image, stored top-down.
type Frame struct {
	Index     int
	Timestamp float64
	Image     *image.RGBA
}

// Sink receives frames in index order.
type Sink interface {
	WriteFrame(f Frame) error
}

// Renderer renders duration*fps frames of a program.
type Renderer struct {
	// Intensity defaults to audio.SyntheticIntensity.
	Intensity IntensityFunc
	// Progress is called after every frame when set.
	Progress func(done, total int)
}

// FrameCount returns the number of frames for a duration.
func FrameCount(duration, fps int) int {
	if duration <= 0 || fps <= 0 {
		return 0
	}
	return duration * fps
}

// Render draws every frame and returns how many reached the sink. Uniforms
// the program does not declare are skipped. The context is checked between
// frames.
func (r *Renderer) Render(ctx context.Context, prog gpu.Program, duration, fps int, sink Sink) (int, error) {
	total := FrameCount(duration, fps)
	if total == 0 {
		return 0, fmt.Errorf("render: invalid duration %d or fps %d", duration, fps)
	}

	intensity := r.Intensity
	if intensity == nil {
		intensity = audio.SyntheticIntensity
	}

	w, h := prog.Size()
	if err := bindResolution(prog, w, h); err != nil {
		return 0, err
	}
	_, hasTime := prog.Uniform(shader.UniformTime)
	_, hasIntensity := prog.Uniform(shader.UniformIntensity)

	log.Printf("Rendering %d frames (%ds @ %d fps, %dx%d)", total, duration, fps, w, h)

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		t := float64(i) / float64(fps)
		if hasTime {
			if err := prog.SetFloat(shader.UniformTime, float32(t)); err != nil {
				return i, fmt.Errorf("frame %d: %w", i, err)
			}
		}
		if hasIntensity {
			if err := prog.SetFloat(shader.UniformIntensity, float32(intensity(t))); err != nil {
				return i, fmt.Errorf("frame %d: %w", i, err)
			}
		}

		if err := prog.Draw(); err != nil {
			return i, fmt.Errorf("frame %d: draw: %w", i, err)
		}
		pix, err := prog.ReadRGB()
		if err != nil {
			return i, fmt.Errorf("frame %d: read: %w", i, err)
		}
		img, err := flipRGB(pix, w, h)
		if err != nil {
			return i, fmt.Errorf("frame %d: %w", i, err)
		}

		if err := sink.WriteFrame(Frame{Index: i, Timestamp: t, Image: img}); err != nil {
			return i, fmt.Errorf("frame %d: %w", i, err)
		}
		if r.Progress != nil {
			r.Progress(i+1, total)
		}
	}
	return total, nil
}

func bindResolution(prog gpu.Program, w, h int) error {
	u, ok := prog.Uniform(shader.UniformResolution)
	if !ok {
		return nil
	}
	switch {
	case u.Float && u.Components == 2:
		return prog.SetFloat(u.Name, float32(w), float32(h))
	case u.Float && u.Components == 3:
		return prog.SetFloat(u.Name, float32(w), float32(h), 0)
	default:
		log.Printf("Skipping %s: unsupported arity %d", u.Name, u.Components)
		return nil
	}
}

// flipRGB converts bottom-up packed RGB rows into a top-down RGBA image.
func flipRGB(pix []byte, w, h int) (*image.RGBA, error) {
	if len(pix) != w*h*3 {
		return nil, fmt.Errorf("pixel buffer is %d bytes, want %d", len(pix), w*h*3)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := pix[(h-1-y)*w*3 : (h-y)*w*3]
		dst := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			dst[x*4] = src[x*3]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xff
		}
	}
	return img, nil
}
