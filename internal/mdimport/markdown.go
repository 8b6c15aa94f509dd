// Package mdimport segments markdown sources for translation. Markdown has no
// reconstruction metadata: export regenerates the file from translated
// segments, so only the flat segment list is produced here.
package mdimport

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/oxylab/docseg/internal/engine"
)

// Parse walks the markdown AST and emits segments: headings stay whole, body
// paragraphs are sentence-split with the engine's default strategy. Code
// blocks and thematic breaks carry no translatable text and are skipped.
func Parse(src []byte) []engine.Segment {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var strat engine.DefaultStrategy
	var segments []engine.Segment
	index := uint32(0)

	emit := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		segments = append(segments, engine.Segment{Index: index, SourceText: s})
		index++
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			emit(string(node.Text(src)))
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.ThematicBreak, *ast.HTMLBlock:
			// not translatable
		default:
			for _, sentence := range strat.SplitSentences(blockText(n, src)) {
				emit(sentence)
			}
		}
	}

	return segments
}

// blockText flattens a block node's inline text, joining soft line breaks
// with single spaces.
func blockText(n ast.Node, src []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(node ast.Node) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				b.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					b.WriteByte(' ')
				}
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return b.String()
}
