package render

import (
	"context"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/satindergrewal/shadercast/internal/audio"
	"github.com/satindergrewal/shadercast/internal/gpu/gputest"
)

const fullShader = `#version 330 core
out vec4 fragColor;
uniform float iTime;
uniform vec2 iResolution;
uniform float u_audioIntensity;
void main() { fragColor = vec4(1.0); }`

func compile(t *testing.T, w, h int, src string) *gputest.Program {
	t.Helper()
	ctx := gputest.NewContext(w, h)
	p, err := ctx.Compile("", src)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	return p.(*gputest.Program)
}

func TestRenderFrameCountAndUniforms(t *testing.T) {
	prog := compile(t, 4, 3, fullShader)
	sink := &MemorySink{}

	n, err := (&Renderer{}).Render(context.Background(), prog, 2, 3, sink)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if n != 6 || len(sink.Frames) != 6 {
		t.Fatalf("frames = %d (sink %d), want 6", n, len(sink.Frames))
	}
	if prog.Draws != 6 || prog.Reads != 6 {
		t.Errorf("draws = %d, reads = %d, want 6 each", prog.Draws, prog.Reads)
	}

	res := prog.Values["iResolution"]
	if len(res) != 1 || res[0][0] != 4 || res[0][1] != 3 {
		t.Errorf("iResolution uploads = %v, want one (4,3)", res)
	}

	times := prog.Values["iTime"]
	levels := prog.Values["u_audioIntensity"]
	for i, f := range sink.Frames {
		wantT := float64(i) / 3
		if f.Index != i || f.Timestamp != wantT {
			t.Errorf("frame %d: index %d, t %v, want %d, %v", i, f.Index, f.Timestamp, i, wantT)
		}
		if times[i][0] != float32(wantT) {
			t.Errorf("frame %d: iTime = %v, want %v", i, times[i][0], wantT)
		}
		want := float32(audio.SyntheticIntensity(wantT))
		if math.Abs(float64(levels[i][0]-want)) > 1e-6 {
			t.Errorf("frame %d: intensity = %v, want %v", i, levels[i][0], want)
		}
	}
}

func TestRenderFlipsRows(t *testing.T) {
	prog := compile(t, 2, 5, fullShader)
	sink := &MemorySink{}
	if _, err := (&Renderer{}).Render(context.Background(), prog, 1, 1, sink); err != nil {
		t.Fatal(err)
	}
	img := sink.Frames[0].Image
	// Bottom-up row y is filled with byte(y), so top-down row 0 holds h-1.
	for y := 0; y < 5; y++ {
		c := img.RGBAAt(1, y)
		want := uint8(4 - y)
		if c.R != want || c.G != want || c.B != want || c.A != 0xff {
			t.Errorf("row %d = %v, want gray %d", y, c, want)
		}
	}
}

func TestRenderSkipsMissingUniforms(t *testing.T) {
	prog := compile(t, 2, 2, "void main() {}")
	n, err := (&Renderer{}).Render(context.Background(), prog, 1, 5, &MemorySink{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if n != 5 || len(prog.Values) != 0 {
		t.Errorf("n = %d, uploads = %v, want 5 and none", n, prog.Values)
	}
}

func TestRenderResolutionArity(t *testing.T) {
	tests := []struct {
		decl string
		want []float32
	}{
		{"uniform vec3 iResolution;", []float32{8, 6, 0}},
		{"uniform vec4 iResolution;", nil},
		{"uniform float iResolution;", nil},
	}
	for _, tt := range tests {
		prog := compile(t, 8, 6, tt.decl+"\nvoid main() {}")
		if _, err := (&Renderer{}).Render(context.Background(), prog, 1, 1, &MemorySink{}); err != nil {
			t.Fatalf("%s: Render() error = %v", tt.decl, err)
		}
		got := prog.Values["iResolution"]
		if tt.want == nil {
			if len(got) != 0 {
				t.Errorf("%s: uploads = %v, want skipped", tt.decl, got)
			}
			continue
		}
		if len(got) != 1 || len(got[0]) != len(tt.want) {
			t.Fatalf("%s: uploads = %v, want %v", tt.decl, got, tt.want)
		}
		for i := range tt.want {
			if got[0][i] != tt.want[i] {
				t.Errorf("%s: uploads = %v, want %v", tt.decl, got, tt.want)
			}
		}
	}
}

func TestRenderCustomIntensityAndProgress(t *testing.T) {
	prog := compile(t, 1, 1, fullShader)
	var calls [][2]int
	r := &Renderer{
		Intensity: func(t float64) float64 { return 0.25 },
		Progress:  func(done, total int) { calls = append(calls, [2]int{done, total}) },
	}
	if _, err := r.Render(context.Background(), prog, 1, 4, &MemorySink{}); err != nil {
		t.Fatal(err)
	}
	for _, v := range prog.Values["u_audioIntensity"] {
		if v[0] != 0.25 {
			t.Errorf("intensity = %v, want 0.25", v[0])
		}
	}
	if len(calls) != 4 || calls[3] != [2]int{4, 4} {
		t.Errorf("progress calls = %v", calls)
	}
}

func TestRenderCanceled(t *testing.T) {
	prog := compile(t, 1, 1, fullShader)
	ctx, cancel := context.WithCancel(context.Background())
	sink := &MemorySink{}
	r := &Renderer{Progress: func(done, total int) {
		if done == 2 {
			cancel()
		}
	}}
	n, err := r.Render(ctx, prog, 10, 10, sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if n != 2 || len(sink.Frames) != 2 {
		t.Errorf("frames = %d, want 2", n)
	}
}

func TestRenderInvalidTimeline(t *testing.T) {
	prog := compile(t, 1, 1, fullShader)
	if _, err := (&Renderer{}).Render(context.Background(), prog, 0, 30, &MemorySink{}); err == nil {
		t.Error("Render() with zero duration: error = nil")
	}
}

type failingSink struct{}

func (failingSink) WriteFrame(Frame) error { return errors.New("disk full") }

func TestRenderSinkError(t *testing.T) {
	prog := compile(t, 1, 1, fullShader)
	if n, err := (&Renderer{}).Render(context.Background(), prog, 1, 1, failingSink{}); err == nil || n != 0 {
		t.Errorf("n = %d, err = %v, want 0 and error", n, err)
	}
}

func TestFlipRGBSizeMismatch(t *testing.T) {
	if _, err := flipRGB(make([]byte, 5), 2, 1); err == nil {
		t.Error("flipRGB accepted a short buffer")
	}
}

// --- Sinks ---

func TestFrameName(t *testing.T) {
	tests := []struct {
		i, total int
		want     string
	}{
		{0, 150, "frame_0000.png"},
		{149, 150, "frame_0149.png"},
		{9999, 10000, "frame_9999.png"},
		{10000, 10001, "frame_10000.png"},
		{42, 123456, "frame_000042.png"},
	}
	for _, tt := range tests {
		if got := FrameName(tt.i, tt.total, FormatPNG); got != tt.want {
			t.Errorf("FrameName(%d, %d) = %q, want %q", tt.i, tt.total, got, tt.want)
		}
	}
}

func TestDiskSinkPNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	sink, err := NewDiskSink(dir, "", 3)
	if err != nil {
		t.Fatal(err)
	}
	prog := compile(t, 3, 2, fullShader)
	if _, err := (&Renderer{}).Render(context.Background(), prog, 1, 3, sink); err != nil {
		t.Fatal(err)
	}
	if sink.Count() != 3 {
		t.Errorf("Count() = %d, want 3", sink.Count())
	}
	if sink.Pattern() != filepath.Join(dir, "frame_%04d.png") {
		t.Errorf("Pattern() = %q", sink.Pattern())
	}

	f, err := os.Open(filepath.Join(dir, "frame_0002.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Errorf("bounds = %v, want 3x2", b)
	}
}

func TestDiskSinkBMP(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewDiskSink(dir, FormatBMP, 1)
	if err != nil {
		t.Fatal(err)
	}
	prog := compile(t, 2, 2, fullShader)
	if _, err := (&Renderer{}).Render(context.Background(), prog, 1, 1, sink); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(filepath.Join(dir, "frame_0000.bmp"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		t.Fatalf("bmp.Decode: %v", err)
	}
	if r, _, _, _ := img.At(0, 0).RGBA(); r>>8 != 1 {
		t.Errorf("top-left red = %d, want 1 (flipped)", r>>8)
	}
}

func TestDiskSinkRejectsFormat(t *testing.T) {
	if _, err := NewDiskSink(t.TempDir(), "gif", 1); err == nil {
		t.Error("NewDiskSink accepted gif")
	}
}
