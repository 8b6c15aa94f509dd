package engine

import "github.com/oxylab/docseg/internal/wordml"

// LocateParagraphs returns every paragraph element under root in document
// order, descending through non-paragraph containers (tables, text boxes,
// drawings) of any depth. It never descends into a found paragraph, so
// paragraphs nested inside another paragraph's text box are not counted
// twice; their text is reached by the extractor's recursive run search
// instead. A nil or empty root yields an empty list.
func LocateParagraphs(root *wordml.Element) []*wordml.Element {
	var out []*wordml.Element
	if root == nil {
		return out
	}
	var walk func(e *wordml.Element)
	walk = func(e *wordml.Element) {
		for _, child := range e.Elements() {
			if wordml.IsParagraph(child) {
				out = append(out, child)
				continue
			}
			walk(child)
		}
	}
	walk(root)
	return out
}
