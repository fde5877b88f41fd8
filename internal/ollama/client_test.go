package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(generateResponse{
			Response: "<think>pondering</think>\nvoid main() {}\n",
			Done:     true,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "qwen2.5-coder")
	out, err := c.Generate(context.Background(), "sys", "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "void main() {}" {
		t.Errorf("Generate() = %q, want %q", out, "void main() {}")
	}
	if got.Model != "qwen2.5-coder" || got.System != "sys" || got.Prompt != "prompt" || got.Stream {
		t.Errorf("request = %+v", got)
	}
	if got.Options["num_predict"] != float64(800) {
		t.Errorf("num_predict = %v, want 800", got.Options["num_predict"])
	}
}

func TestGenerateStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "m").Generate(context.Background(), "", "p"); err == nil {
		t.Error("Generate() error = nil, want status error")
	}
}

func TestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	if !NewClient(srv.URL, "m").Available(context.Background()) {
		t.Error("Available() = false, want true")
	}
	if NewClient("http://127.0.0.1:1", "m").Available(context.Background()) {
		t.Error("Available() = true for unreachable host")
	}
}

func TestStripThinking(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  void main() {}  ", "void main() {}"},
		{"<think>x</think>code", "code"},
		{"preamble</think>\ncode", "code"},
		{"<think>never closed", ""},
	}
	for _, tt := range tests {
		if got := stripThinking(tt.in); got != tt.want {
			t.Errorf("stripThinking(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
