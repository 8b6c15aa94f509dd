package wordml

import "strconv"

// Typed views over the generic tree. Matching is on local names only; some
// converters emit nonstandard prefixes for the wordprocessing namespace.

// IsParagraph reports whether the element is a paragraph.
func IsParagraph(e *Element) bool { return Local(e.Name) == "p" }

// IsRun reports whether the element is a run.
func IsRun(e *Element) bool { return Local(e.Name) == "r" }

// Body returns the document body element, or nil.
func (d *Document) Body() *Element {
	if d == nil || d.Root == nil {
		return nil
	}
	return d.Root.FirstChild("body")
}

// StyleID returns the paragraph's style identifier (w:pPr/w:pStyle/@w:val).
func StyleID(p *Element) string {
	pr := p.FirstChild("pPr")
	if pr == nil {
		return ""
	}
	st := pr.FirstChild("pStyle")
	if st == nil {
		return ""
	}
	v, _ := st.Attr("val")
	return v
}

// PreserveSpace reports whether a text element declares xml:space="preserve".
func PreserveSpace(t *Element) bool {
	v, ok := t.Attr("space")
	return ok && v == "preserve"
}

// RunFormat is the formatting carried by a run's properties.
type RunFormat struct {
	Bold           bool
	Italic         bool
	Underline      bool
	SizeHalfPoints int
}

// Format reads a run's formatting flags and font size from w:rPr.
func Format(run *Element) RunFormat {
	var f RunFormat
	pr := run.FirstChild("rPr")
	if pr == nil {
		return f
	}
	f.Bold = toggleOn(pr.FirstChild("b"))
	f.Italic = toggleOn(pr.FirstChild("i"))
	if u := pr.FirstChild("u"); u != nil {
		v, ok := u.Attr("val")
		f.Underline = !ok || v != "none"
	}
	if sz := pr.FirstChild("sz"); sz != nil {
		if v, ok := sz.Attr("val"); ok {
			if n, err := strconv.Atoi(v); err == nil {
				f.SizeHalfPoints = n
			}
		}
	}
	return f
}

// toggleOn interprets an OOXML toggle property: present means on unless
// val says otherwise.
func toggleOn(e *Element) bool {
	if e == nil {
		return false
	}
	v, ok := e.Attr("val")
	if !ok {
		return true
	}
	return v != "0" && v != "false" && v != "off"
}

// AllText concatenates every character-data node in document order under e.
func AllText(e *Element) string {
	var out []byte
	var walk func(*Element)
	walk = func(el *Element) {
		for _, c := range el.Children {
			switch t := c.(type) {
			case CharData:
				out = append(out, string(t)...)
			case *Element:
				walk(t)
			}
		}
	}
	walk(e)
	return string(out)
}
