// Package markdown renders markdown documents to HTML with goldmark.
//
// When a package descriptor is supplied the output is adjusted the way the
// npm registry shows a README: relative links point into the GitHub
// repository, and a title and description repeating the package metadata
// are dropped.
package markdown

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// DefaultStyle is the chroma style used when none is configured.
const DefaultStyle = "github"

// Options configures a Renderer.
type Options struct {
	HighlightStyle string
	// Unsafe passes raw HTML in the source through to the output.
	Unsafe bool
}

// Renderer converts markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

var packageKey = parser.NewContextKey()

// New returns a Renderer with GFM, automatic heading ids and syntax
// highlighting enabled.
func New(opts Options) *Renderer {
	style := opts.HighlightStyle
	if style == "" {
		style = DefaultStyle
	}
	var rendererOpts []goldmark.Option
	if opts.Unsafe {
		rendererOpts = append(rendererOpts, goldmark.WithRendererOptions(html.WithUnsafe()))
	}
	md := goldmark.New(append([]goldmark.Option{
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle(style),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(packageTransformer{}, 100)),
		),
	}, rendererOpts...)...)
	return &Renderer{md: md}
}

// Render converts src to an HTML fragment. pkg may be nil.
func (r *Renderer) Render(src []byte, pkg *Package) ([]byte, error) {
	pc := parser.NewContext()
	if pkg != nil {
		pc.Set(packageKey, pkg)
	}
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf, parser.WithContext(pc)); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}
	return buf.Bytes(), nil
}

type packageTransformer struct{}

func (packageTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	pkg, ok := pc.Get(packageKey).(*Package)
	if !ok || pkg == nil {
		return
	}
	source := reader.Source()
	stripHeader(doc, pkg, source)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Link:
			if isRelative(string(n.Destination)) {
				if u, ok := pkg.BlobURL(string(n.Destination)); ok {
					n.Destination = []byte(u)
				}
			}
		case *ast.Image:
			if isRelative(string(n.Destination)) {
				if u, ok := pkg.RawURL(string(n.Destination)); ok {
					n.Destination = []byte(u)
				}
			}
		}
		return ast.WalkContinue, nil
	})
}

// stripHeader drops a leading level 1 heading that repeats the package name
// and the paragraph after it when it repeats the description.
func stripHeader(doc *ast.Document, pkg *Package, source []byte) {
	first := doc.FirstChild()
	if h, ok := first.(*ast.Heading); ok && h.Level == 1 && pkg.Name != "" &&
		strings.TrimSpace(plainText(h, source)) == strings.TrimSpace(pkg.Name) {
		doc.RemoveChild(doc, h)
		first = doc.FirstChild()
	}
	if p, ok := first.(*ast.Paragraph); ok && pkg.Description != "" &&
		strings.TrimSpace(plainText(p, source)) == strings.TrimSpace(pkg.Description) {
		doc.RemoveChild(doc, p)
	}
}

func plainText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			sb.Write(c.Segment.Value(source))
			if c.SoftLineBreak() || c.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// isRelative reports whether dest points into the repository rather than at
// another site or an anchor on the same page.
func isRelative(dest string) bool {
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "//") {
		return false
	}
	u, err := url.Parse(dest)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}
