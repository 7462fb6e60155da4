package dom

import (
	"bytes"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NewElement creates a detached element node.
func NewElement(tag string) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
}

// NewText creates a detached text node.
func NewText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// Attr returns the value of the named attribute.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces the named attribute.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes the named attribute if present.
func RemoveAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

// Data returns the value of the data-<name> attribute.
func Data(n *html.Node, name string) string {
	v, _ := Attr(n, "data-"+name)
	return v
}

// ID returns the id attribute of n.
func ID(n *html.Node) string {
	v, _ := Attr(n, "id")
	return v
}

// Classes returns the class list of n.
func Classes(n *html.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

// HasClass reports whether n carries the given class.
func HasClass(n *html.Node, class string) bool {
	return slices.Contains(Classes(n), class)
}

// AddClass adds class to n unless it is already present.
func AddClass(n *html.Node, class string) {
	classes := Classes(n)
	if slices.Contains(classes, class) {
		return
	}
	SetAttr(n, "class", strings.Join(append(classes, class), " "))
}

// RemoveClass removes every occurrence of class from n.
func RemoveClass(n *html.Node, class string) {
	classes := Classes(n)
	kept := slices.DeleteFunc(classes, func(c string) bool { return c == class })
	if len(kept) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(kept, " "))
}

// ToggleClass adds class when on is true and removes it otherwise.
func ToggleClass(n *html.Node, class string, on bool) {
	if on {
		AddClass(n, class)
	} else {
		RemoveClass(n, class)
	}
}

// Hide sets an inline display:none on n.
func Hide(n *html.Node) {
	setStyle(n, "display", "none")
}

// Show removes an inline display:none from n.
func Show(n *html.Node) {
	if style(n)["display"] == "none" {
		setStyle(n, "display", "")
	}
}

// Hidden reports whether n itself carries display:none.
func Hidden(n *html.Node) bool {
	return style(n)["display"] == "none"
}

// Visible reports whether n and all of its ancestors are displayed.
func Visible(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && Hidden(p) {
			return false
		}
	}
	return true
}

// style parses the inline style attribute into a property map.
func style(n *html.Node) map[string]string {
	out := map[string]string{}
	raw, ok := Attr(n, "style")
	if !ok {
		return out
	}
	for _, decl := range strings.Split(raw, ";") {
		prop, val, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		out[strings.TrimSpace(strings.ToLower(prop))] = strings.TrimSpace(val)
	}
	return out
}

// setStyle rewrites a single inline style property, keeping the others in place.
// An empty value removes the property.
func setStyle(n *html.Node, prop, val string) {
	raw, _ := Attr(n, "style")
	var decls []string
	replaced := false
	for _, decl := range strings.Split(raw, ";") {
		p, _, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		if strings.TrimSpace(strings.ToLower(p)) == prop {
			replaced = true
			if val != "" {
				decls = append(decls, prop+": "+val)
			}
			continue
		}
		decls = append(decls, strings.TrimSpace(decl))
	}
	if !replaced && val != "" {
		decls = append(decls, prop+": "+val)
	}
	if len(decls) == 0 {
		RemoveAttr(n, "style")
		return
	}
	SetAttr(n, "style", strings.Join(decls, "; "))
}

// Remove detaches n from its parent. Detached nodes are left untouched.
func Remove(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// Append attaches child as the last child of parent, detaching it first.
func Append(parent, child *html.Node) {
	Remove(child)
	parent.AppendChild(child)
}

// Prepend attaches child as the first child of parent, detaching it first.
func Prepend(parent, child *html.Node) {
	Remove(child)
	if parent.FirstChild == nil {
		parent.AppendChild(child)
		return
	}
	parent.InsertBefore(child, parent.FirstChild)
}

// Empty removes every child of n.
func Empty(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

// Contains reports whether n is ancestor or equal to other.
func Contains(n, other *html.Node) bool {
	for p := other; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of n, detached from any tree.
func Clone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      slices.Clone(n.Attr),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// Render serializes n as HTML.
func Render(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}
