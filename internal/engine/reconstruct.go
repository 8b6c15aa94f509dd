package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/oxylab/docseg/internal/wordml"
)

// Reconstruct produces a new document tree in which only the text-node ranges
// addressed by meta carry replacement text; everything else is preserved. The
// stored digest is verified first: on mismatch the original document is
// returned unchanged with an IntegrityError. The input document is never
// mutated; all changes happen on a clone, so the operation is all-or-nothing.
//
// Segments whose replacement is absent, empty, or equal to the recorded
// original text are left untouched. A replacement containing code points XML
// cannot represent skips that one segment with a warning.
func Reconstruct(ctx context.Context, doc *wordml.Document, meta *StructureMetadata, replacements map[uint32]string) (*wordml.Document, []Warning, error) {
	if meta == nil {
		return doc, nil, fmt.Errorf("nil structure metadata")
	}
	if actual := DigestHex(doc); actual != meta.DocumentXMLHash {
		return doc, nil, &IntegrityError{Expected: meta.DocumentXMLHash, Actual: actual}
	}

	clone := doc.Clone()
	body := clone.Body()
	if body == nil {
		return doc, nil, ErrNoBody
	}
	paras := LocateParagraphs(body)
	runCache := make(map[int][]*wordml.Element)

	var warnings []Warning

	// Mutations run in reverse document order: splicing a range or inserting
	// break elements never disturbs offsets or text indices that precede it,
	// so segments sharing a text node stay addressable.
	lastPara := -1
	for i := len(meta.SegmentMappings) - 1; i >= 0; i-- {
		m := meta.SegmentMappings[i]

		if firstPara(m) != lastPara {
			if err := ctx.Err(); err != nil {
				return doc, nil, err
			}
			lastPara = firstPara(m)
		}

		repl, ok := replacements[m.SegmentIndex]
		if !ok || repl == "" || repl == m.OriginalText {
			continue
		}
		if !wordml.ValidText(repl) {
			warnings = append(warnings, Warning{
				SegmentIndex: m.SegmentIndex,
				Reason:       "replacement contains characters not representable in the document encoding; segment skipped",
			})
			continue
		}
		if len(m.TextNodes) == 0 {
			warnings = append(warnings, Warning{
				SegmentIndex: m.SegmentIndex,
				Reason:       "segment has no addressable text nodes; left unmodified",
			})
			continue
		}

		if w := applySegment(paras, runCache, m, repl); w != nil {
			warnings = append(warnings, *w)
		}
	}

	return clone, warnings, nil
}

func firstPara(m SegmentTextMapping) int {
	if len(m.TextNodes) == 0 {
		return -1
	}
	return m.TextNodes[0].ParagraphIndex
}

// applySegment writes one segment's replacement. The full text goes into the
// first location; any further locations have their recorded ranges cleared so
// run-level formatting anchors stay in place without duplicating content.
func applySegment(paras []*wordml.Element, runCache map[int][]*wordml.Element, m SegmentTextMapping, repl string) *Warning {
	// Clear trailing locations first (reverse order within the segment too).
	for i := len(m.TextNodes) - 1; i >= 1; i-- {
		loc := m.TextNodes[i]
		_, t, err := resolveText(paras, runCache, loc)
		if err != nil {
			return &Warning{SegmentIndex: m.SegmentIndex, Reason: err.Error()}
		}
		content := t.Text()
		if loc.CharStart < 0 || loc.CharStart > loc.CharEnd || loc.CharEnd > len(content) {
			return &Warning{SegmentIndex: m.SegmentIndex, Reason: "recorded offsets exceed text node bounds; segment skipped"}
		}
		t.SetText(content[:loc.CharStart] + content[loc.CharEnd:])
	}

	loc := m.TextNodes[0]
	run, t, err := resolveText(paras, runCache, loc)
	if err != nil {
		return &Warning{SegmentIndex: m.SegmentIndex, Reason: err.Error()}
	}
	content := t.Text()
	if loc.CharStart < 0 || loc.CharStart > loc.CharEnd || loc.CharEnd > len(content) {
		return &Warning{SegmentIndex: m.SegmentIndex, Reason: "recorded offsets exceed text node bounds; segment skipped"}
	}
	pre := content[:loc.CharStart]
	post := content[loc.CharEnd:]

	// The recorded ranges cover the trimmed text only, so the whitespace
	// captured in LeadingWhitespace/TrailingWhitespace still sits in pre and
	// post and is restored by keeping them in place.
	if len(m.LineBreaks) == 0 {
		setNodeText(t, pre+repl+post)
		return nil
	}

	// The recorded breaks are reinserted at their segment-relative offsets,
	// so the original break elements they describe must go first or the
	// segment would gain breaks on every reconstruction.
	removeBreaks(paras, runCache, m.LineBreaks)

	// Reinsert recorded breaks as explicit break elements at their
	// segment-relative offsets, splitting the replacement text around them.
	offsets := make([]int, 0, len(m.LineBreaks))
	for _, br := range m.LineBreaks {
		offsets = append(offsets, clamp(br.CharOffset, 0, len(repl)))
	}
	sort.Ints(offsets)

	parts := splitAt(repl, offsets)
	setNodeText(t, pre+parts[0])

	brName := siblingName(t.Name, "br")
	pos := childIndex(run, t)
	var inserted []wordml.Node
	for k := 1; k < len(parts); k++ {
		part := parts[k]
		if k == len(parts)-1 {
			part += post
		}
		nt := &wordml.Element{Name: t.Name}
		setNodeText(nt, part)
		inserted = append(inserted, &wordml.Element{Name: brName}, nt)
	}
	run.Children = append(run.Children[:pos+1], append(inserted, run.Children[pos+1:]...)...)
	return nil
}

// removeBreaks deletes the break elements the locations describe, highest
// break index first so earlier indices stay valid. Out-of-range locations are
// ignored; the reinserted breaks still carry the line structure.
func removeBreaks(paras []*wordml.Element, runCache map[int][]*wordml.Element, breaks []LineBreakLocation) {
	byRun := make(map[*wordml.Element][]int)
	for _, br := range breaks {
		if br.ParagraphIndex < 0 || br.ParagraphIndex >= len(paras) {
			continue
		}
		runs, ok := runCache[br.ParagraphIndex]
		if !ok {
			runs = CollectRuns(paras[br.ParagraphIndex])
			runCache[br.ParagraphIndex] = runs
		}
		if br.RunIndex < 0 || br.RunIndex >= len(runs) {
			continue
		}
		run := runs[br.RunIndex]
		byRun[run] = append(byRun[run], br.BreakIndex)
	}

	for run, indices := range byRun {
		sort.Sort(sort.Reverse(sort.IntSlice(indices)))
		for _, want := range indices {
			seen := 0
			for i, c := range run.Children {
				el, ok := c.(*wordml.Element)
				if !ok {
					continue
				}
				local := wordml.Local(el.Name)
				if local != "br" && local != "cr" {
					continue
				}
				if seen == want {
					run.Children = append(run.Children[:i], run.Children[i+1:]...)
					break
				}
				seen++
			}
		}
	}
}

// resolveText finds the run and text element a location addresses, using the
// same run ordering the extractor used.
func resolveText(paras []*wordml.Element, runCache map[int][]*wordml.Element, loc TextNodeLocation) (*wordml.Element, *wordml.Element, error) {
	if loc.ParagraphIndex < 0 || loc.ParagraphIndex >= len(paras) {
		return nil, nil, fmt.Errorf("paragraph %d out of range; segment skipped", loc.ParagraphIndex)
	}
	runs, ok := runCache[loc.ParagraphIndex]
	if !ok {
		runs = CollectRuns(paras[loc.ParagraphIndex])
		runCache[loc.ParagraphIndex] = runs
	}
	if loc.RunIndex < 0 || loc.RunIndex >= len(runs) {
		return nil, nil, fmt.Errorf("run %d out of range in paragraph %d; segment skipped", loc.RunIndex, loc.ParagraphIndex)
	}
	run := runs[loc.RunIndex]
	texts := run.ChildrenNamed("t")
	if loc.TextIndex < 0 || loc.TextIndex >= len(texts) {
		return nil, nil, fmt.Errorf("text node %d out of range in run %d; segment skipped", loc.TextIndex, loc.RunIndex)
	}
	return run, texts[loc.TextIndex], nil
}

// setNodeText writes the text node's content and marks xml:space="preserve"
// when the content carries edge whitespace that would otherwise be dropped.
func setNodeText(t *wordml.Element, content string) {
	t.SetText(content)
	if content != strings.TrimSpace(content) {
		t.SetAttr("xml:space", "preserve")
	}
}

func childIndex(parent, child *wordml.Element) int {
	for i, c := range parent.Children {
		if el, ok := c.(*wordml.Element); ok && el == child {
			return i
		}
	}
	return -1
}

// siblingName builds an element name with the same prefix as ref.
func siblingName(ref, local string) string {
	if i := strings.IndexByte(ref, ':'); i >= 0 {
		return ref[:i+1] + local
	}
	return local
}

func splitAt(s string, offsets []int) []string {
	parts := make([]string, 0, len(offsets)+1)
	prev := 0
	for _, off := range offsets {
		if off < prev {
			off = prev
		}
		parts = append(parts, s[prev:off])
		prev = off
	}
	return append(parts, s[prev:])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
