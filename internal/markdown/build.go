package markdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/ziadkadry99/pagekit/internal/dom"
	"github.com/ziadkadry99/pagekit/internal/jsoncss"
	"github.com/ziadkadry99/pagekit/internal/jsonml"
	"github.com/ziadkadry99/pagekit/internal/logger"
	"github.com/ziadkadry99/pagekit/internal/progress"
)

// ErrNoPages is returned by Build when no source file matches.
var ErrNoPages = errors.New("no markdown files matched")

// BuildOptions configures a batch build.
type BuildOptions struct {
	Include []string
	Exclude []string
	// SiteName is appended to every page title when set.
	SiteName string
	Package  *Package
	Reporter progress.Reporter
	Logger   *slog.Logger
}

var pageStyle = []jsoncss.Rule{
	jsoncss.Raw(`@charset "utf-8"`),
	jsoncss.Select("body",
		jsoncss.D("margin", "0"),
		jsoncss.D("display", "flex"),
		jsoncss.D("font-family", `-apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif`),
		jsoncss.D("color", "#24292e"),
	),
	jsoncss.Select("nav.sidebar",
		jsoncss.D("flex", "0 0 16rem"),
		jsoncss.D("padding", "1rem"),
		jsoncss.D("border-right", "1px solid #e1e4e8"),
	),
	jsoncss.Select("nav.sidebar ul", jsoncss.D("list-style", "none"), jsoncss.D("padding-left", "1rem")),
	jsoncss.Select("nav.sidebar a.active", jsoncss.D("font-weight", "600")),
	jsoncss.Select("article.markdown-body",
		jsoncss.D("max-width", "52rem"),
		jsoncss.D("padding", "2rem"),
		jsoncss.D("line-height", "1.6"),
	),
	jsoncss.Select("pre", jsoncss.D("padding", "1rem"), jsoncss.D("overflow", "auto")),
}

// Collect returns the slash separated paths in fsys matching any include
// pattern and no exclude pattern, sorted.
func Collect(fsys fs.FS, include, exclude []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	for _, pattern := range include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			skip, err := excluded(m, exclude)
			if err != nil {
				return nil, err
			}
			if !skip {
				paths = append(paths, m)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// excluded matches p, and its base name, against the exclude patterns.
func excluded(p string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		for _, name := range []string{p, path.Base(p)} {
			ok, err := doublestar.Match(pattern, name)
			if err != nil {
				return false, fmt.Errorf("exclude pattern %q: %w", pattern, err)
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}

type page struct {
	path    string
	title   string
	article *html.Node
}

// Build renders every matching markdown file under src into a standalone
// HTML page under out and returns the number of pages written.
func (r *Renderer) Build(ctx context.Context, src, out string, opts BuildOptions) (int, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = progress.Nop{}
	}

	paths, err := Collect(os.DirFS(src), opts.Include, opts.Exclude)
	if err != nil {
		return 0, err
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("%w in %s", ErrNoPages, src)
	}

	pages := make([]page, 0, len(paths))
	titles := make(map[string]string, len(paths))
	for _, rel := range paths {
		content, err := os.ReadFile(filepath.Join(src, filepath.FromSlash(rel)))
		if err != nil {
			return 0, err
		}
		fragment, err := r.Render(content, opts.Package)
		if err != nil {
			return 0, fmt.Errorf("rendering %s: %w", rel, err)
		}
		article, err := parseArticle(fragment)
		if err != nil {
			return 0, fmt.Errorf("parsing rendered %s: %w", rel, err)
		}
		rewriteLocalLinks(article)
		p := page{path: rel, title: pageTitle(article, rel), article: article}
		titles[rel] = p.title
		pages = append(pages, p)
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		return 0, err
	}
	tree := BuildTree(paths, titles)

	reporter.Start(len(pages))
	defer reporter.Finish()
	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		outPath := filepath.Join(out, filepath.FromSlash(htmlPath(p.path)))
		if err := writePage(outPath, tree, p, opts.SiteName); err != nil {
			return i, fmt.Errorf("writing %s: %w", p.path, err)
		}
		log.Debug("rendered page", "src", p.path, "out", outPath)
		reporter.Update(i+1, p.path)
	}
	return len(pages), nil
}

func parseArticle(fragment []byte) (*html.Node, error) {
	article := jsonml.MustBuild(jsonml.E("article", jsonml.Attrs{"class": "markdown-body"}))
	nodes, err := html.ParseFragment(bytes.NewReader(fragment), &html.Node{
		Type:     html.ElementNode,
		Data:     "article",
		DataAtom: atom.Article,
	})
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		dom.Append(article, n)
	}
	return article, nil
}

// pageTitle returns the text of the first h1, falling back to the file name.
func pageTitle(article *html.Node, rel string) string {
	if h := dom.First(article, "h1"); h != nil {
		if t := strings.TrimSpace(dom.Text(h)); t != "" {
			return t
		}
	}
	return strings.TrimSuffix(path.Base(rel), path.Ext(rel))
}

// rewriteLocalLinks points links at sibling markdown files to their rendered
// pages.
func rewriteLocalLinks(article *html.Node) {
	for _, a := range dom.Find(article, "a[href]") {
		href, _ := dom.Attr(a, "href")
		if !isRelative(href) {
			continue
		}
		file, frag, _ := strings.Cut(href, "#")
		rewritten := htmlPath(file)
		if rewritten == file {
			continue
		}
		if frag != "" {
			rewritten += "#" + frag
		}
		dom.SetAttr(a, "href", rewritten)
	}
}

func writePage(outPath string, tree *Tree, p page, siteName string) error {
	style, err := jsoncss.Build(pageStyle)
	if err != nil {
		return err
	}
	title := p.title
	if siteName != "" && siteName != title {
		title += " - " + siteName
	}
	root, err := jsonml.Build(jsonml.E("html", jsonml.Attrs{"lang": "en"},
		jsonml.E("head",
			jsonml.E("meta", jsonml.Attrs{"charset": "utf-8"}),
			jsonml.E("meta", jsonml.Attrs{"name": "viewport", "content": "width=device-width, initial-scale=1"}),
			jsonml.E("title", title),
			style,
		),
		jsonml.E("body", tree.Nav(p.path), p.article),
	))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte("<!DOCTYPE html>\n"+dom.Render(root)+"\n"), 0o644)
}
