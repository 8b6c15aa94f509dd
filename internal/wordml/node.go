// Package wordml holds an order-preserving tree model for WordprocessingML
// (word/document.xml). The parser keeps prefixes, attribute order, comments
// and unknown markup intact so that a document can be reserialized without
// disturbing anything the segmentation engine did not touch.
package wordml

import "strings"

// Node is one node in the document tree: *Element, CharData, Comment or ProcInst.
type Node interface {
	node()
}

// Attr is a single attribute with its name as written (prefix included).
type Attr struct {
	Name  string
	Value string
}

// Element is an XML element with its name as written, e.g. "w:p".
type Element struct {
	Name     string
	Attrs    []Attr
	Children []Node
}

// CharData is literal character content (entities already resolved).
type CharData string

// Comment is an XML comment body, without the <!-- --> delimiters.
type Comment string

// ProcInst is a processing instruction such as the XML declaration.
type ProcInst struct {
	Target string
	Inst   string
}

func (*Element) node()  {}
func (CharData) node()  {}
func (Comment) node()   {}
func (ProcInst) node()  {}

// Document is a parsed document part: the root element plus any nodes that
// precede it (XML declaration, comments).
type Document struct {
	Preamble []Node
	Root     *Element
}

// Local returns the local part of a prefixed name: Local("w:p") == "p".
func Local(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Attr returns the value of the attribute whose local name matches, and
// whether it was present.
func (e *Element) Attr(local string) (string, bool) {
	for _, a := range e.Attrs {
		if Local(a.Name) == local {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr replaces the attribute with the given local name, or appends it.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.Attrs {
		if Local(a.Name) == Local(name) {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

// Elements returns the element children in order.
func (e *Element) Elements() []*Element {
	var out []*Element
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// ChildrenNamed returns direct element children with the given local name.
func (e *Element) ChildrenNamed(local string) []*Element {
	var out []*Element
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok && Local(el.Name) == local {
			out = append(out, el)
		}
	}
	return out
}

// FirstChild returns the first direct element child with the given local name.
func (e *Element) FirstChild(local string) *Element {
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok && Local(el.Name) == local {
			return el
		}
	}
	return nil
}

// Text concatenates the direct character data of the element.
func (e *Element) Text() string {
	var b strings.Builder
	for _, c := range e.Children {
		if cd, ok := c.(CharData); ok {
			b.WriteString(string(cd))
		}
	}
	return b.String()
}

// SetText replaces the element's children with a single character-data node.
func (e *Element) SetText(s string) {
	e.Children = []Node{CharData(s)}
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	out := &Element{Name: e.Name}
	if len(e.Attrs) > 0 {
		out.Attrs = make([]Attr, len(e.Attrs))
		copy(out.Attrs, e.Attrs)
	}
	for _, c := range e.Children {
		out.Children = append(out.Children, cloneNode(c))
	}
	return out
}

func cloneNode(n Node) Node {
	if el, ok := n.(*Element); ok {
		return el.Clone()
	}
	return n // CharData, Comment and ProcInst are values
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{}
	for _, n := range d.Preamble {
		out.Preamble = append(out.Preamble, cloneNode(n))
	}
	if d.Root != nil {
		out.Root = d.Root.Clone()
	}
	return out
}
