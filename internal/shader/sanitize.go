package shader

import (
	"regexp"
	"strings"
)

// DefaultVersion is prepended when generated source lacks a version pragma.
const DefaultVersion = "#version 330 core"

// OutputDecl declares the fragment output the generated code writes to.
const OutputDecl = "out vec4 fragColor;"

var (
	// A fence alone on its line, with an optional language tag: ```glsl, ~~~GLSL, ```c++ ...
	fenceLine = regexp.MustCompile("(?im)^[ \\t]*(?:```|~~~)[a-z0-9_+#.-]*[ \\t\\r]*$")

	fragCoordRef   = regexp.MustCompile(`\bfragCoord\b`)
	glFragColorRef = regexp.MustCompile(`\bgl_FragColor\b`)
	fragColorRef   = regexp.MustCompile(`\bfragColor\b`)
	fragColorDecl  = regexp.MustCompile(`^(layout\s*\([^)]*\)\s*)?out\s+vec4\s+fragColor\s*;`)
)

// Sanitize turns raw generated text into source the GL backend can compile.
// The steps run in a fixed order: strip Markdown fences, rewrite Shadertoy-style
// identifiers to core-profile ones, drop blank and comment-only lines, ensure a
// version pragma and declare fragColor if it is used but never declared.
//
// Sanitize is pure and idempotent, and its output always starts with a
// version pragma.
func Sanitize(raw string) string {
	code := stripFences(raw)
	code = fragCoordRef.ReplaceAllString(code, "gl_FragCoord.xy")
	code = glFragColorRef.ReplaceAllString(code, "fragColor")

	var lines []string
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isCommentLine(line) {
			continue
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 || !strings.HasPrefix(lines[0], "#version") {
		lines = append([]string{DefaultVersion}, lines...)
	}

	if usesFragColor(lines) && !declaresFragColor(lines) {
		lines = append(lines[:1], append([]string{OutputDecl}, lines[1:]...)...)
	}

	return strings.Join(lines, "\n")
}

func stripFences(code string) string {
	code = fenceLine.ReplaceAllString(code, "")
	// Fences sharing a line with code lose only their backticks. Removing one
	// triple can join neighbouring backticks into a new one.
	for strings.Contains(code, "```") {
		code = strings.ReplaceAll(code, "```", "")
	}
	return code
}

func isCommentLine(line string) bool {
	if strings.HasPrefix(line, "//") {
		return true
	}
	return strings.HasPrefix(line, "/*") && strings.HasSuffix(line, "*/") &&
		strings.Count(line, "*/") == 1
}

func usesFragColor(lines []string) bool {
	for _, line := range lines {
		if fragColorRef.MatchString(line) {
			return true
		}
	}
	return false
}

func declaresFragColor(lines []string) bool {
	for _, line := range lines {
		if fragColorDecl.MatchString(line) {
			return true
		}
	}
	return false
}
