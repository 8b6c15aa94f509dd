package wordml

import "bytes"

// Marshal serializes the document deterministically: the same tree always
// yields the same bytes. This canonical form is what the integrity digest is
// computed over.
func Marshal(d *Document) []byte {
	var b bytes.Buffer
	for _, n := range d.Preamble {
		writeNode(&b, n)
	}
	if d.Root != nil {
		writeElement(&b, d.Root)
	}
	return b.Bytes()
}

func writeNode(b *bytes.Buffer, n Node) {
	switch t := n.(type) {
	case *Element:
		writeElement(b, t)
	case CharData:
		escapeText(b, string(t))
	case Comment:
		b.WriteString("<!--")
		b.WriteString(string(t))
		b.WriteString("-->")
	case ProcInst:
		b.WriteString("<?")
		b.WriteString(t.Target)
		if t.Inst != "" {
			b.WriteByte(' ')
			b.WriteString(t.Inst)
		}
		b.WriteString("?>")
	}
}

func writeElement(b *bytes.Buffer, e *Element) {
	b.WriteByte('<')
	b.WriteString(e.Name)
	for _, a := range e.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		escapeAttr(b, a.Value)
		b.WriteByte('"')
	}
	if len(e.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	for _, c := range e.Children {
		writeNode(b, c)
	}
	b.WriteString("</")
	b.WriteString(e.Name)
	b.WriteByte('>')
}

func escapeText(b *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '\r':
			b.WriteString("&#xD;")
		default:
			b.WriteRune(r)
		}
	}
}

func escapeAttr(b *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\t':
			b.WriteString("&#x9;")
		case '\n':
			b.WriteString("&#xA;")
		case '\r':
			b.WriteString("&#xD;")
		default:
			b.WriteRune(r)
		}
	}
}

// ValidText reports whether s contains only code points representable in an
// XML 1.0 document. Replacement text failing this check cannot be written
// into a text node.
func ValidText(s string) bool {
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}
