package markdown

import (
	"path"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ziadkadry99/pagekit/internal/jsonml"
)

// Tree is a node in the navigation tree of a built site.
type Tree struct {
	Name     string
	Title    string // display name, from the page's first heading or the directory name
	Path     string // slash separated, relative to the source root
	IsDir    bool
	Children []*Tree
}

// BuildTree constructs a Tree from relative markdown paths. titles maps a
// path to its display title and may be nil.
func BuildTree(paths []string, titles map[string]string) *Tree {
	root := &Tree{Name: "", IsDir: true}

	for _, p := range paths {
		parts := strings.Split(p, "/")
		current := root
		for i, part := range parts {
			last := i == len(parts)-1
			var next *Tree
			for _, child := range current.Children {
				if child.Name == part && child.IsDir == !last {
					next = child
					break
				}
			}
			if next == nil {
				next = &Tree{Name: part, IsDir: !last}
				if last {
					next.Path = p
					next.Title = titles[p]
				} else {
					next.Path = strings.Join(parts[:i+1], "/")
					next.Title = dirTitle(part)
				}
				current.Children = append(current.Children, next)
			}
			current = next
		}
	}

	sortTree(root)
	return root
}

// sortTree orders directories before files, each alphabetically.
func sortTree(t *Tree) {
	sort.Slice(t.Children, func(i, j int) bool {
		if t.Children[i].IsDir != t.Children[j].IsDir {
			return t.Children[i].IsDir
		}
		return t.Children[i].Name < t.Children[j].Name
	})
	for _, child := range t.Children {
		if child.IsDir {
			sortTree(child)
		}
	}
}

// Nav returns the sidebar descriptor for the page at activePath. Links are
// relative to that page.
func (t *Tree) Nav(activePath string) jsonml.Node {
	base := strings.Repeat("../", strings.Count(activePath, "/"))
	open := make(map[string]bool)
	parts := strings.Split(activePath, "/")
	for i := 1; i < len(parts); i++ {
		open[strings.Join(parts[:i], "/")] = true
	}
	return jsonml.E("nav", jsonml.Attrs{"class": "sidebar"}, t.list(activePath, base, open))
}

func (t *Tree) list(activePath, base string, open map[string]bool) jsonml.Node {
	items := make([]any, 0, len(t.Children))
	for _, child := range t.Children {
		if child.IsDir {
			class := "dir"
			if open[child.Path] {
				class += " expanded"
			}
			items = append(items, jsonml.E("li", jsonml.Attrs{"class": class},
				jsonml.E("span", jsonml.Attrs{"class": "dir-toggle"}, child.Title),
				child.list(activePath, base, open),
			))
			continue
		}
		title := child.Title
		if title == "" {
			title = strings.TrimSuffix(child.Name, path.Ext(child.Name))
		}
		attrs := jsonml.Attrs{"href": base + htmlPath(child.Path)}
		if child.Path == activePath {
			attrs["class"] = "active"
		}
		items = append(items, jsonml.E("li", jsonml.Attrs{"class": "file"}, jsonml.E("a", attrs, title)))
	}
	return jsonml.E("ul", items...)
}

// htmlPath maps a markdown path to the page it is rendered to.
func htmlPath(p string) string {
	if ext := path.Ext(p); ext == ".md" || ext == ".markdown" {
		return strings.TrimSuffix(p, ext) + ".html"
	}
	return p
}

// dirTitle turns a directory slug such as "getting-started" into
// "Getting Started".
func dirTitle(name string) string {
	words := strings.FieldsFunc(name, func(c rune) bool {
		return c == '-' || c == '_'
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
