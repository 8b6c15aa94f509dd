package wordml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Parse reads a document part into a tree. RawToken is used so that
// namespace prefixes survive exactly as written; entity references in
// character data are resolved by the decoder and re-escaped on output.
func Parse(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	doc := &Document{}
	var stack []*Element

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: rawName(t.Name)}
			for _, a := range t.Attr {
				el.Attrs = append(el.Attrs, Attr{Name: rawName(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if doc.Root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				doc.Root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected end element %s", rawName(t.Name))
			}
			top := stack[len(stack)-1]
			if top.Name != rawName(t.Name) {
				return nil, fmt.Errorf("mismatched end element %s, want %s", rawName(t.Name), top.Name)
			}
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) == 0 {
				continue // inter-element whitespace outside the root
			}
			top := stack[len(stack)-1]
			top.Children = append(top.Children, CharData(string(t)))

		case xml.Comment:
			appendMisc(doc, stack, Comment(string(t)))

		case xml.ProcInst:
			appendMisc(doc, stack, ProcInst{Target: t.Target, Inst: string(t.Inst)})
		}
	}

	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed element %s", stack[len(stack)-1].Name)
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("no root element")
	}
	return doc, nil
}

// ParseBytes is Parse over a byte slice.
func ParseBytes(data []byte) (*Document, error) {
	return Parse(bytes.NewReader(data))
}

func appendMisc(doc *Document, stack []*Element, n Node) {
	if len(stack) == 0 {
		if doc.Root == nil {
			doc.Preamble = append(doc.Preamble, n)
		}
		return
	}
	top := stack[len(stack)-1]
	top.Children = append(top.Children, n)
}

// rawName rebuilds the name as written. With RawToken the decoder leaves the
// prefix in Name.Space unresolved.
func rawName(n xml.Name) string {
	if n.Space != "" {
		return n.Space + ":" + n.Local
	}
	return n.Local
}
