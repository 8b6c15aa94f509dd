package engine

import (
	"strings"

	"github.com/oxylab/docseg/internal/wordml"
)

// RunTextInfo indexes one text node's span within the paragraph-wide string.
// Start and End are paragraph-wide offsets; node-local offsets are computed
// later when a segment's range is clipped against this record.
type RunTextInfo struct {
	RunIndex      int
	TextIndex     int
	Text          string
	Start         int
	End           int
	PreserveSpace bool
	Synthetic     bool // fallback record not backed by an addressable text node
}

// LineBreak records an explicit break's position in the paragraph-wide string.
type LineBreak struct {
	RunIndex   int
	BreakIndex int
	Offset     int
}

// ExtractParagraph walks one paragraph's runs in document order and returns
// the concatenated paragraph text, the per-text-node position index, and the
// explicit line breaks. A tab contributes exactly one character; a break
// contributes exactly one newline.
func ExtractParagraph(p *wordml.Element) (string, []RunTextInfo, []LineBreak) {
	runs := CollectRuns(p)

	if len(runs) == 0 {
		// No runs anywhere: fall back to every bit of text under the
		// paragraph as a single synthetic record. Segmentation still works;
		// reconstruction for such a paragraph degrades (no addressable node).
		all := wordml.AllText(p)
		if all == "" {
			return "", nil, nil
		}
		return all, []RunTextInfo{{
			RunIndex:  -1,
			TextIndex: -1,
			Text:      all,
			Start:     0,
			End:       len(all),
			Synthetic: true,
		}}, nil
	}

	var b strings.Builder
	var infos []RunTextInfo
	var breaks []LineBreak

	for ri, run := range runs {
		textIndex := 0
		breakIndex := 0
		for _, child := range run.Elements() {
			switch wordml.Local(child.Name) {
			case "t":
				content := child.Text()
				start := b.Len()
				b.WriteString(content)
				infos = append(infos, RunTextInfo{
					RunIndex:      ri,
					TextIndex:     textIndex,
					Text:          content,
					Start:         start,
					End:           b.Len(),
					PreserveSpace: wordml.PreserveSpace(child),
				})
				textIndex++
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				breaks = append(breaks, LineBreak{
					RunIndex:   ri,
					BreakIndex: breakIndex,
					Offset:     b.Len(),
				})
				b.WriteByte('\n')
				breakIndex++
			}
		}
	}

	return b.String(), infos, breaks
}

// CollectRuns returns the paragraph's runs in document order: direct run
// children if any exist, otherwise runs found recursively inside nested
// containers (third-party converters wrap runs in extra elements). The same
// ordering is used at reconstruction time, so RunIndex values stay valid.
func CollectRuns(p *wordml.Element) []*wordml.Element {
	direct := p.ChildrenNamed("r")
	if len(direct) > 0 {
		return direct
	}

	var nested []*wordml.Element
	var walk func(e *wordml.Element)
	walk = func(e *wordml.Element) {
		for _, child := range e.Elements() {
			if wordml.IsRun(child) {
				nested = append(nested, child)
				continue
			}
			walk(child)
		}
	}
	walk(p)
	return nested
}

// summarizeFormatting derives the paragraph-level formatting summary: a flag
// is reported only when every text-bearing run declares it; the font size is
// the largest one seen. Returns nil when nothing is set.
func summarizeFormatting(runs []*wordml.Element) *Formatting {
	var f Formatting
	bold, italic, underline := true, true, true
	sawText := false

	for _, run := range runs {
		hasText := false
		for _, child := range run.ChildrenNamed("t") {
			if child.Text() != "" {
				hasText = true
				break
			}
		}
		if !hasText {
			continue
		}
		sawText = true
		rf := wordml.Format(run)
		bold = bold && rf.Bold
		italic = italic && rf.Italic
		underline = underline && rf.Underline
		if rf.SizeHalfPoints > f.FontSize {
			f.FontSize = rf.SizeHalfPoints
		}
	}

	if !sawText {
		return nil
	}
	f.Bold = bold
	f.Italic = italic
	f.Underline = underline
	if !f.Bold && !f.Italic && !f.Underline && f.FontSize == 0 {
		return nil
	}
	return &f
}
