package shader

import (
	"fmt"
	"strings"
)

// Uniform names the generated shader may use. The renderer binds whichever
// of them the compiled program actually declares.
const (
	UniformTime       = "iTime"
	UniformResolution = "iResolution"
	UniformIntensity  = "u_audioIntensity"
)

// VertexAttrib is the position input of VertexSource.
const VertexAttrib = "in_vert"

// VertexSource is the fixed vertex stage paired with every generated fragment shader.
const VertexSource = `#version 330
in vec2 in_vert;
void main() { gl_Position = vec4(in_vert, 0.0, 1.0); }`

// systemPrompt sets the role and output contract for the text generator.
const systemPrompt = `You are a GLSL shader artist. You write creative, abstract fragment shaders for music visualizers.

Output format: ONLY GLSL source code. No explanations, no Markdown, no preamble.`

// genreVisuals gives each genre a short visual direction for the shader.
// Genres without an entry get a generic hint built from the genre name.
var genreVisuals = map[string]string{
	"ambient":       "slow drifting gradients, soft glow, almost no hard edges",
	"chillwave":     "hazy pastel bands, gentle horizontal waves, sunset palette",
	"lofi hip hop":  "warm muted tones, subtle grain, lazy looping motion",
	"jazz":          "smoky blues and golds, curling smoke-like flow fields",
	"bossa nova":    "breezy teal and sand colors, swaying sinusoidal shapes",
	"acoustic folk": "earthy greens and browns, organic rings like wood grain",
	"classical":     "elegant symmetric patterns, luminous ivory and deep navy",
	"cinematic":     "wide sweeping light beams, high contrast, rising intensity",
	"synthwave":     "neon magenta and cyan grid, retro sun, scanlines",
	"electronic":    "crisp geometric pulses, prismatic colors, kinetic rhythm",
	"drum and bass": "fast rolling tunnels, dark palette with sharp bright accents",
	"disco funk":    "sparkling mirror-ball dots, saturated warm colors, bouncing rhythm",
	"funk":          "groovy wobbling blobs, saturated oranges and purples, bouncy motion",
	"indie rock":    "bright jangly stripes, slightly rough edges, optimistic colors",
	"rock":          "bold flaring shapes, fiery reds, heavy pulsing",
}

// VisualHint returns the visual direction for a genre.
func VisualHint(genre string) string {
	if v, ok := genreVisuals[strings.ToLower(strings.TrimSpace(genre))]; ok {
		return v
	}
	return "abstract shapes and colors that evoke " + genre
}

// SystemPrompt returns the system message sent with every generation request.
func SystemPrompt() string {
	return systemPrompt
}

// BuildPrompt embeds the request tags and the compile constraints the
// sanitizer and renderer rely on.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Generate a creative and abstract fragment shader for a music visualizer.\n\n")
	b.WriteString("The shader must reflect these musical characteristics:\n")
	fmt.Fprintf(&b, "- Mood: %s\n", strings.Join(req.Moods, ", "))
	fmt.Fprintf(&b, "- Genre: %s\n", strings.Join(req.Genres, ", "))
	fmt.Fprintf(&b, "- Theme: %s\n", strings.Join(req.Themes, ", "))

	if len(req.Genres) > 0 {
		b.WriteString("\nVisual direction:\n")
		for _, g := range req.Genres {
			fmt.Fprintf(&b, "- %s: %s\n", g, VisualHint(g))
		}
	}

	b.WriteString("\nConstraints:\n")
	fmt.Fprintf(&b, "- GLSL version: `%s`\n", DefaultVersion)
	fmt.Fprintf(&b, "- Use only: `%s`, `%s`, `%s`\n", UniformTime, UniformResolution, UniformIntensity)
	fmt.Fprintf(&b, "- Declare: `%s`\n", OutputDecl)
	b.WriteString("- Do NOT use: `noise()`, `texture2D()`, `gl_FragColor`\n")
	b.WriteString("- Do NOT use deprecated or undefined functions\n")
	b.WriteString("- No explanations. Return GLSL code only.\n")

	return b.String()
}
