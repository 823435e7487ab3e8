// package markdown renders user-written markdown (descriptions, comments) to HTML.
//
// Output never contains raw HTML from the input, images, tables or links with dangerous
// schemes. Bare URLs become links, fenced code blocks and ~~strikethrough~~ are kept, and
// single newlines render as <br>.
package markdown

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Renderer converts markdown to sanitized HTML. The zero value and nil both render nothing.
type Renderer struct {
	md goldmark.Markdown
}

var (
	defaultRenderer *Renderer
	defaultOnce     sync.Once
)

// New builds a renderer. The goldmark instance is safe for concurrent use.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Linkify,
			extension.Strikethrough,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			renderer.WithNodeRenderers(
				util.Prioritized(&safeRenderer{}, 100),
			),
		),
	)
	return &Renderer{md: md}
}

// Default returns the shared renderer, building it on first use.
func Default() *Renderer {
	defaultOnce.Do(func() {
		defaultRenderer = New()
	})
	return defaultRenderer
}

// Render converts text to HTML. Empty input or an uninitialized renderer yields "".
func (r *Renderer) Render(text string) template.HTML {
	if r == nil || r.md == nil || text == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		log.Warnf("failed to render markdown: %v", err)
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

// Render converts text with the shared renderer.
func Render(text string) template.HTML {
	return Default().Render(text)
}

// safeRenderer replaces <img> output with the image's escaped alt text and renders autolinks
// with dangerous schemes as plain text.
type safeRenderer struct{}

func (r *safeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindImage, r.renderImage)
	reg.Register(ast.KindAutoLink, r.renderAutoLink)
}

func (r *safeRenderer) renderImage(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	_, _ = w.Write(util.EscapeHTML(plainText(node, source)))
	return ast.WalkSkipChildren, nil
}

func (r *safeRenderer) renderAutoLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.AutoLink)
	label := util.EscapeHTML(n.Label(source))

	url := n.URL(source)
	if n.AutoLinkType == ast.AutoLinkEmail && !bytes.HasPrefix(bytes.ToLower(url), []byte("mailto:")) {
		url = append([]byte("mailto:"), url...)
	}
	if html.IsDangerousURL(url) {
		_, _ = w.Write(label)
		return ast.WalkContinue, nil
	}

	_, _ = w.WriteString(`<a href="`)
	_, _ = w.Write(util.EscapeHTML(util.URLEscape(url, false)))
	_, _ = w.WriteString(`">`)
	_, _ = w.Write(label)
	_, _ = w.WriteString("</a>")
	return ast.WalkContinue, nil
}

// plainText concatenates the text beneath node, dropping any inline markup.
func plainText(node ast.Node, source []byte) []byte {
	var out []byte
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			out = append(out, t.Segment.Value(source)...)
			if t.SoftLineBreak() {
				out = append(out, ' ')
			}
		case *ast.String:
			out = append(out, t.Value...)
		}
		return ast.WalkContinue, nil
	})
	return out
}
