package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"github.com/aymerick/douceur/inliner"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
)

var (
	// ErrRenderFailed indicates Markdown could not be rendered.
	ErrRenderFailed = errors.New("failed to render markdown")

	// ErrImageNotFound indicates a referenced local image is missing from the image root.
	ErrImageNotFound = errors.New("inline image not found")
)

// InlineImage is an image referenced from the HTML as cid:<Filename>.
type InlineImage struct {
	Filename string
	Data     io.Reader
}

// Content is the result of rendering one Markdown document.
type Content struct {
	Text         string
	HTML         string
	InlineImages []InlineImage
}

// Renderer turns Markdown plus optional CSS into email content.
type Renderer interface {
	Render(markdown, css string) (*Content, error)
}

// Options configures a GoldmarkRenderer.
type Options struct {
	// ImageRoot resolves local image references. When nil, images are left
	// untouched and nothing is embedded.
	ImageRoot fs.FS
	// DefaultCSS is used when Render is called without CSS.
	DefaultCSS string
	// HighlightStyle enables inline-styled code highlighting with the named
	// chroma style (e.g. "github").
	HighlightStyle string
	// AllowRawHTML passes raw HTML in the Markdown through to the output.
	AllowRawHTML bool
	// Sanitize filters the rendered body through a user-generated-content policy.
	Sanitize bool
}

// GoldmarkRenderer is the Renderer backed by goldmark.
type GoldmarkRenderer struct {
	md     goldmark.Markdown
	opts   Options
	policy *bluemonday.Policy
}

// New creates a GoldmarkRenderer.
func New(opts Options) *GoldmarkRenderer {
	extensions := []goldmark.Extender{extension.GFM}
	if opts.HighlightStyle != "" {
		extensions = append(extensions, highlighting.NewHighlighting(
			highlighting.WithStyle(opts.HighlightStyle),
		))
	}

	var rendererOpts []renderer.Option
	if opts.AllowRawHTML {
		rendererOpts = append(rendererOpts, html.WithUnsafe())
	}

	r := &GoldmarkRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extensions...),
			goldmark.WithRendererOptions(rendererOpts...),
		),
		opts: opts,
	}
	if opts.Sanitize {
		r.policy = bluemonday.UGCPolicy()
		r.policy.AllowURLSchemes("cid")
		r.policy.AllowAttrs("style").Globally()
	}
	return r
}

var layout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
{{- if .CSS}}
<style>{{.CSS}}</style>
{{- end}}
</head>
<body>
{{.Body}}</body>
</html>
`))

// Render converts markdown to text and HTML, embedding local images.
// An empty css falls back to Options.DefaultCSS.
func (r *GoldmarkRenderer) Render(markdown, css string) (*Content, error) {
	source := []byte(markdown)
	doc := r.md.Parser().Parse(text.NewReader(source))

	images, err := r.embedImages(doc)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	if err := r.md.Renderer().Render(&body, source, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	bodyHTML := body.String()
	if r.policy != nil {
		bodyHTML = r.policy.Sanitize(bodyHTML)
	}

	if css == "" {
		css = r.opts.DefaultCSS
	}

	var page bytes.Buffer
	err = layout.Execute(&page, map[string]any{
		"Body": template.HTML(bodyHTML),
		"CSS":  template.CSS(css),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute layout: %v", ErrRenderFailed, err)
	}

	out := page.String()
	if strings.TrimSpace(css) != "" {
		out, err = inliner.Inline(out)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to inline css: %v", ErrRenderFailed, err)
		}
	}

	return &Content{
		Text:         markdown,
		HTML:         out,
		InlineImages: images,
	}, nil
}

// embedImages rewrites local image destinations to cid: references and
// loads their data. Each distinct file is returned once.
func (r *GoldmarkRenderer) embedImages(doc ast.Node) ([]InlineImage, error) {
	if r.opts.ImageRoot == nil {
		return nil, nil
	}

	var images []InlineImage
	byName := make(map[string]string)

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		img, ok := n.(*ast.Image)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}

		name, ok := localPath(string(img.Destination))
		if !ok {
			return ast.WalkContinue, nil
		}
		base := path.Base(name)

		if prev, seen := byName[base]; seen {
			if prev != name {
				return ast.WalkStop, fmt.Errorf("%w: images %q and %q share the name %q", ErrRenderFailed, prev, name, base)
			}
			img.Destination = []byte("cid:" + base)
			return ast.WalkContinue, nil
		}

		data, err := fs.ReadFile(r.opts.ImageRoot, name)
		if err != nil {
			return ast.WalkStop, fmt.Errorf("%w: %w: %s: %v", ErrRenderFailed, ErrImageNotFound, name, err)
		}

		byName[base] = name
		images = append(images, InlineImage{Filename: base, Data: bytes.NewReader(data)})
		img.Destination = []byte("cid:" + base)
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

// localPath reports whether dest refers to a file under the image root and
// returns it as an fs.FS path.
func localPath(dest string) (string, bool) {
	if dest == "" || strings.HasPrefix(dest, "//") {
		return "", false
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}

	p := strings.TrimPrefix(path.Clean("/"+u.Path), "/")
	if !fs.ValidPath(p) || p == "." {
		return "", false
	}
	return p, true
}
