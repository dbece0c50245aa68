package extraction

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// node is a minimal element tree; lookups go by local name so namespaced
// and plain documents resolve the same way.
type node struct {
	name     xml.Name
	attrs    []xml.Attr
	text     strings.Builder
	children []*node
}

func (n *node) local() string { return n.name.Local }

func (n *node) value() string { return strings.TrimSpace(n.text.String()) }

// child returns the first direct child with the given local name.
func (n *node) child(local string) *node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.local() == local {
			return c
		}
	}
	return nil
}

// find returns the first descendant (depth-first) with the given local name.
func (n *node) find(local string) *node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.local() == local {
			return c
		}
		if found := c.find(local); found != nil {
			return found
		}
	}
	return nil
}

// findByType returns the first descendant whose xsi:type names typeName.
func (n *node) findByType(typeName string) *node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.xsiType() == typeName {
			return c
		}
		if found := c.findByType(typeName); found != nil {
			return found
		}
	}
	return nil
}

func (n *node) xsiType() string {
	for _, attr := range n.attrs {
		if attr.Name.Local != "type" {
			continue
		}
		if attr.Name.Space != xsiNamespace && attr.Name.Space != "i" && attr.Name.Space != "xsi" {
			continue
		}
		value := attr.Value
		if idx := strings.LastIndex(value, ":"); idx >= 0 {
			value = value[idx+1:]
		}
		return value
	}
	return ""
}

// parseTree decodes a document, checking ctx between tokens.
func parseTree(ctx context.Context, r io.Reader) (*node, error) {
	decoder := xml.NewDecoder(r)
	root := &node{}
	stack := []*node{root}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			el := &node{name: t.Name, attrs: append([]xml.Attr(nil), t.Attr...)}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, el)
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			stack[len(stack)-1].text.Write(t)
		}
	}
	if len(root.children) == 0 {
		return nil, errors.New("empty document")
	}
	return root, nil
}
