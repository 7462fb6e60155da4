// Package jsoncss builds <style> elements from selector/declaration rules.
package jsoncss

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/net/html"

	"github.com/ziadkadry99/pagekit/internal/jsonml"
)

// Decl is a single property declaration.
type Decl struct {
	Property string
	Value    string
}

// D is shorthand for a Decl.
func D(property, value string) Decl { return Decl{Property: property, Value: value} }

// Rule is either a raw statement or a selector block.
type Rule struct {
	raw      string
	isRaw    bool
	selector string
	decls    []Decl
}

// Raw returns a rule emitted verbatim and terminated with ";".
func Raw(statement string) Rule { return Rule{raw: statement, isRaw: true} }

// Select returns a selector block. Declarations keep their order.
func Select(selector string, decls ...Decl) Rule {
	return Rule{selector: selector, decls: decls}
}

func (r Rule) write(sb *strings.Builder) {
	if r.isRaw {
		sb.WriteString(r.raw)
		sb.WriteByte(';')
		return
	}
	sb.WriteString(r.selector)
	sb.WriteByte('{')
	for _, d := range r.decls {
		sb.WriteString(d.Property)
		sb.WriteByte(':')
		sb.WriteString(d.Value)
		sb.WriteByte(';')
	}
	sb.WriteByte('}')
}

// Text renders rules as CSS text.
func Text(rules []Rule) string {
	var sb strings.Builder
	for _, r := range rules {
		r.write(&sb)
	}
	return sb.String()
}

// Build renders rules into a detached <style> element.
func Build(rules []Rule) (*html.Node, error) {
	return jsonml.Build([]any{"style", Text(rules)})
}

// Parse reads the JSON form: an array whose items are either raw strings or
// arrays of a selector followed by one or more declaration objects.
func Parse(data []byte) ([]Rule, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	rules := make([]Rule, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return nil, fmt.Errorf("rule %d: %w", i, err)
			}
			rules = append(rules, Raw(s))
			continue
		}

		var parts []json.RawMessage
		if err := json.Unmarshal(item, &parts); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if len(parts) == 0 {
			return nil, fmt.Errorf("rule %d: empty block", i)
		}
		var selector string
		if err := json.Unmarshal(parts[0], &selector); err != nil {
			return nil, fmt.Errorf("rule %d: selector: %w", i, err)
		}
		r := Select(selector)
		for _, part := range parts[1:] {
			om := orderedmap.New[string, json.RawMessage]()
			if err := json.Unmarshal(part, om); err != nil {
				return nil, fmt.Errorf("rule %d: declarations: %w", i, err)
			}
			for pair := om.Oldest(); pair != nil; pair = pair.Next() {
				val, err := declValue(pair.Value)
				if err != nil {
					return nil, fmt.Errorf("rule %d: %q: %w", i, pair.Key, err)
				}
				r.decls = append(r.decls, D(pair.Key, val))
			}
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// declValue returns strings unquoted and numbers exactly as written.
func declValue(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == "" {
		return "", fmt.Errorf("value must be a string or number, got %s", raw)
	}
	return string(raw), nil
}
