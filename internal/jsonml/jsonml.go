// Package jsonml turns nested tag/attributes/children descriptors into
// detached html node trees.
//
// A descriptor is either the array form used on the wire,
//
//	[]any{"a", map[string]any{"href": "/about"}, "About ", []any{"b", "us"}}
//
// or the struct form built with E. Strings and numbers become text nodes,
// already built *html.Node values are appended as they are.
package jsonml

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/net/html"

	"github.com/ziadkadry99/pagekit/internal/dom"
)

// ErrInvalidDescriptor is returned for descriptors without a usable tag or
// with children of an unsupported type.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// Attrs is an attribute mapping. Values may be strings, numbers or bools.
type Attrs map[string]any

// Node is the struct form of a descriptor.
type Node struct {
	Tag      string
	Attrs    Attrs
	Children []any
}

// E builds a Node. When the first argument is an Attrs (or any string-keyed
// map) it becomes the attribute set; everything else is a child.
func E(tag string, args ...any) Node {
	n := Node{Tag: tag}
	if len(args) > 0 {
		if attrs, ok := asAttrs(args[0]); ok {
			n.Attrs = attrs
			args = args[1:]
		}
	}
	n.Children = args
	return n
}

// Build materializes desc into a detached node tree. The whole descriptor
// is checked before any node is created, so on error no already built node
// passed as a child has been moved.
func Build(desc any) (*html.Node, error) {
	if err := validate(desc); err != nil {
		return nil, err
	}
	return build(desc)
}

func build(desc any) (*html.Node, error) {
	switch d := desc.(type) {
	case Node:
		return buildNode(d)
	case *Node:
		if d == nil {
			return nil, fmt.Errorf("%w: nil node", ErrInvalidDescriptor)
		}
		return buildNode(*d)
	case []any:
		return buildArray(d)
	case []string:
		arr := make([]any, len(d))
		for i, s := range d {
			arr[i] = s
		}
		return buildArray(arr)
	default:
		return nil, fmt.Errorf("%w: expected array or node, got %T", ErrInvalidDescriptor, desc)
	}
}

// MustBuild is Build for descriptors known to be valid at compile time.
func MustBuild(desc any) *html.Node {
	n, err := Build(desc)
	if err != nil {
		panic(err)
	}
	return n
}

// Parse decodes a JSON descriptor. Numbers are kept as json.Number.
func Parse(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding descriptor: %w", err)
	}
	return v, nil
}

func buildArray(arr []any) (*html.Node, error) {
	if len(arr) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrInvalidDescriptor)
	}
	tag, ok := arr[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: tag must be a string, got %T", ErrInvalidDescriptor, arr[0])
	}
	n := Node{Tag: tag}
	rest := arr[1:]
	if len(rest) > 0 {
		if attrs, ok := asAttrs(rest[0]); ok {
			n.Attrs = attrs
			rest = rest[1:]
		}
	}
	n.Children = rest
	return buildNode(n)
}

func buildNode(d Node) (*html.Node, error) {
	if d.Tag == "" {
		return nil, fmt.Errorf("%w: missing tag", ErrInvalidDescriptor)
	}
	el := dom.NewElement(d.Tag)

	keys := make([]string, 0, len(d.Attrs))
	for k := range d.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		val, set, err := attrValue(d.Attrs[k])
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		if set {
			el.Attr = append(el.Attr, html.Attribute{Key: k, Val: val})
		}
	}

	for i, child := range d.Children {
		c, err := buildChild(child)
		if err != nil {
			return nil, fmt.Errorf("<%s> child %d: %w", d.Tag, i, err)
		}
		if c != nil {
			dom.Append(el, c)
		}
	}
	return el, nil
}

func buildChild(child any) (*html.Node, error) {
	switch c := child.(type) {
	case nil:
		return nil, nil
	case *html.Node:
		return c, nil
	case string:
		return dom.NewText(c), nil
	case Node, *Node, []any, []string:
		return build(c)
	}
	if s, ok := number(child); ok {
		return dom.NewText(s), nil
	}
	return nil, fmt.Errorf("%w: unsupported child type %T", ErrInvalidDescriptor, child)
}

func attrValue(v any) (val string, set bool, err error) {
	switch a := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return a, true, nil
	case bool:
		return "", a, nil
	}
	if s, ok := number(v); ok {
		return s, true, nil
	}
	return "", false, fmt.Errorf("%w: unsupported attribute type %T", ErrInvalidDescriptor, v)
}

func number(v any) (string, bool) {
	switch n := v.(type) {
	case json.Number:
		return n.String(), true
	case int:
		return strconv.Itoa(n), true
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(n), true
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
	return "", false
}

func asAttrs(v any) (Attrs, bool) {
	switch m := v.(type) {
	case Attrs:
		return m, true
	case map[string]any:
		return Attrs(m), true
	case map[string]string:
		out := make(Attrs, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

// validate walks desc without creating nodes.
func validate(desc any) error {
	var n Node
	switch d := desc.(type) {
	case Node:
		n = d
	case *Node:
		if d == nil {
			return fmt.Errorf("%w: nil node", ErrInvalidDescriptor)
		}
		n = *d
	case []string:
		if len(d) == 0 || d[0] == "" {
			return fmt.Errorf("%w: missing tag", ErrInvalidDescriptor)
		}
		return nil
	case []any:
		if len(d) == 0 {
			return fmt.Errorf("%w: empty array", ErrInvalidDescriptor)
		}
		tag, ok := d[0].(string)
		if !ok {
			return fmt.Errorf("%w: tag must be a string, got %T", ErrInvalidDescriptor, d[0])
		}
		n = Node{Tag: tag, Children: d[1:]}
		if len(n.Children) > 0 {
			if attrs, ok := asAttrs(n.Children[0]); ok {
				n.Attrs = attrs
				n.Children = n.Children[1:]
			}
		}
	default:
		return fmt.Errorf("%w: expected array or node, got %T", ErrInvalidDescriptor, desc)
	}

	if n.Tag == "" {
		return fmt.Errorf("%w: missing tag", ErrInvalidDescriptor)
	}
	for k, v := range n.Attrs {
		if _, _, err := attrValue(v); err != nil {
			return fmt.Errorf("attribute %q: %w", k, err)
		}
	}
	for i, child := range n.Children {
		switch c := child.(type) {
		case nil, string, *html.Node:
			continue
		case Node, *Node, []any, []string:
			if err := validate(c); err != nil {
				return fmt.Errorf("<%s> child %d: %w", n.Tag, i, err)
			}
			continue
		}
		if _, ok := number(child); !ok {
			return fmt.Errorf("<%s> child %d: %w: unsupported child type %T", n.Tag, i, ErrInvalidDescriptor, child)
		}
	}
	return nil
}
