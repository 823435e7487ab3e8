package markdown

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	r := New()

	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "paragraph",
			input:    "hello **world**",
			contains: []string{"<p>hello <strong>world</strong></p>"},
		},
		{
			name:     "autolinks bare urls",
			input:    "see https://example.com/docs for more",
			contains: []string{`<a href="https://example.com/docs">https://example.com/docs</a>`},
		},
		{
			name:     "fenced code",
			input:    "```go\nfmt.Println(\"<hi>\")\n```",
			contains: []string{`<pre><code class="language-go">`, "&lt;hi&gt;"},
		},
		{
			name:     "images keep alt text",
			input:    "before ![a *cat*](https://example.com/cat.png) after",
			contains: []string{"before a cat after"},
			excludes: []string{"<img", "cat.png"},
		},
		{
			name:     "raw html is dropped",
			input:    "<div style=\"color:red\">boom</div>\n\ntext <span style=\"x\">inline</span>",
			excludes: []string{"<div", "<span", "style="},
		},
		{
			name:     "script tags are dropped",
			input:    "<script>alert(1)</script>",
			excludes: []string{"<script"},
		},
		{
			name:     "tables are not rendered",
			input:    "| a | b |\n|---|---|\n| 1 | 2 |",
			contains: []string{"<p>"},
			excludes: []string{"<table"},
		},
		{
			name:     "javascript links are not emitted",
			input:    "[click](javascript:alert(1))",
			excludes: []string{`href="javascript:`},
		},
		{
			name:     "javascript autolinks are not emitted",
			input:    "[x](javascript:alert(1)) and <javascript:alert(1)>",
			contains: []string{"and javascript:alert(1)</p>"},
			excludes: []string{`href="javascript:`},
		},
		{
			name:     "vbscript and data autolinks are not emitted",
			input:    "<vbscript:msgbox(1)> <data:text/html;base64,PHNjcmlwdD4=>",
			excludes: []string{`href="vbscript:`, `href="data:`},
		},
		{
			name:     "angle bracket autolinks",
			input:    "<https://example.com/a?b=1&c=2> and <dev@example.com>",
			contains: []string{`<a href="https://example.com/a?b=1&amp;c=2">`, `<a href="mailto:dev@example.com">dev@example.com</a>`},
		},
		{
			name:     "strikethrough",
			input:    "~~gone~~",
			contains: []string{"<del>gone</del>"},
		},
		{
			name:     "hard wraps",
			input:    "line one\nline two",
			contains: []string{"line one<br>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(r.Render(tt.input))
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected output to contain %q, got %q", want, got)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("expected output not to contain %q, got %q", bad, got)
				}
			}
		})
	}
}

func TestRenderEmpty(t *testing.T) {
	t.Run("nil renderer", func(t *testing.T) {
		var r *Renderer
		if got := r.Render("# hi"); got != "" {
			t.Errorf("expected empty output, got %q", got)
		}
	})

	t.Run("zero renderer", func(t *testing.T) {
		var r Renderer
		if got := r.Render("# hi"); got != "" {
			t.Errorf("expected empty output, got %q", got)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if got := Render(""); got != "" {
			t.Errorf("expected empty output, got %q", got)
		}
	})

	t.Run("shared instance", func(t *testing.T) {
		if Default() != Default() {
			t.Error("Default should return the same renderer")
		}
	})
}
