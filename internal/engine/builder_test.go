package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/oxylab/docseg/internal/wordml"
)

const wordmlNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func parseBody(t *testing.T, body string) *wordml.Document {
	t.Helper()
	src := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document ` + wordmlNS + `><w:body>` + body + `</w:body></w:document>`
	doc, err := wordml.ParseBytes([]byte(src))
	if err != nil {
		t.Fatalf("parse test document: %v", err)
	}
	return doc
}

func mustParse(t *testing.T, doc *wordml.Document) *ParseResult {
	t.Helper()
	var b Builder
	res, err := b.Parse(context.Background(), doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return res
}

func TestParse_TwoSentencesSplitWithExactRanges(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>Hello world. This is Oxy.</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	if len(res.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(res.Segments))
	}
	if res.Segments[0].SourceText != "Hello world." {
		t.Errorf("segment 0: got %q", res.Segments[0].SourceText)
	}
	if res.Segments[1].SourceText != "This is Oxy." {
		t.Errorf("segment 1: got %q", res.Segments[1].SourceText)
	}

	m0 := res.Metadata.SegmentMappings[0]
	if len(m0.TextNodes) != 1 || m0.TextNodes[0].CharStart != 0 || m0.TextNodes[0].CharEnd != 12 {
		t.Errorf("segment 0 mapping: %+v", m0.TextNodes)
	}
	m1 := res.Metadata.SegmentMappings[1]
	if len(m1.TextNodes) != 1 || m1.TextNodes[0].CharStart != 13 || m1.TextNodes[0].CharEnd != 25 {
		t.Errorf("segment 1 mapping: %+v", m1.TextNodes)
	}
	if m1.LeadingWhitespace != " " {
		t.Errorf("segment 1 leading whitespace: %q", m1.LeadingWhitespace)
	}
}

func TestParse_HeadingStyleKeepsParagraphWhole(t *testing.T) {
	doc := parseBody(t, `<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr>`+
		`<w:r><w:t>Chapter One</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	if len(res.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(res.Segments))
	}
	if res.Segments[0].SourceText != "Chapter One" {
		t.Errorf("got %q", res.Segments[0].SourceText)
	}
	if res.Metadata.Paragraphs[0].Style != "Heading1" {
		t.Errorf("style: got %q", res.Metadata.Paragraphs[0].Style)
	}
}

func TestParse_BoldShortParagraphTreatedAsHeading(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>Quarterly Results</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	if len(res.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(res.Segments))
	}
	f := res.Metadata.Paragraphs[0].Formatting
	if f == nil || !f.Bold {
		t.Errorf("formatting summary: %+v", f)
	}
}

func TestParse_LargeFontShortParagraphTreatedAsHeading(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:rPr><w:sz w:val="28"/></w:rPr>`+
		`<w:t>Big print but two. Sentences here</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	if len(res.Segments) != 1 {
		t.Fatalf("expected 1 unsplit segment, got %d", len(res.Segments))
	}
}

func TestParse_DuplicateTextBoxContentSuppressed(t *testing.T) {
	box := `<w:drawing><w:txbx><w:txbxContent>` +
		`<w:p><w:r><w:t>Confidential</w:t></w:r></w:p>` +
		`</w:txbxContent></w:txbx></w:drawing>`
	doc := parseBody(t, box+box)
	res := mustParse(t, doc)

	if len(res.Segments) != 1 {
		t.Fatalf("expected duplicate suppressed, got %d segments", len(res.Segments))
	}
	if res.Segments[0].SourceText != "Confidential" {
		t.Errorf("got %q", res.Segments[0].SourceText)
	}
}

func TestParse_BoilerplateParagraphsFiltered(t *testing.T) {
	cases := []string{
		"Page 3 of 10",
		"Page 7",
		"- 4 -",
		"12",
		"Reserved",
		"placeholder",
		"   ",
	}
	for _, text := range cases {
		doc := parseBody(t, `<w:p><w:r><w:t xml:space="preserve">`+text+`</w:t></w:r></w:p>`)
		res := mustParse(t, doc)
		if len(res.Segments) != 0 {
			t.Errorf("%q: expected 0 segments, got %d", text, len(res.Segments))
		}
	}
}

func TestParse_IndicesContiguousAndLocationsDisjoint(t *testing.T) {
	doc := parseBody(t,
		`<w:p><w:r><w:t>First one. Second one. Third one.</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Another paragraph here. And more. Even more text follows.</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	if len(res.Segments) != 6 {
		t.Fatalf("expected 6 segments, got %d", len(res.Segments))
	}
	for i, s := range res.Segments {
		if s.Index != uint32(i) {
			t.Errorf("segment %d has index %d", i, s.Index)
		}
	}

	type span struct{ start, end int }
	used := make(map[string][]span)
	for _, m := range res.Metadata.SegmentMappings {
		for _, loc := range m.TextNodes {
			key := fmt.Sprintf("%d/%d/%d", loc.ParagraphIndex, loc.RunIndex, loc.TextIndex)
			for _, prev := range used[key] {
				if loc.CharStart < prev.end && prev.start < loc.CharEnd {
					t.Errorf("overlapping locations at %s: [%d,%d) vs [%d,%d)",
						key, loc.CharStart, loc.CharEnd, prev.start, prev.end)
				}
			}
			used[key] = append(used[key], span{loc.CharStart, loc.CharEnd})
		}
	}
}

func TestParse_NodeSliceConcatenationReproducesOriginalText(t *testing.T) {
	doc := parseBody(t,
		`<w:p><w:r><w:t>Hello </w:t></w:r>`+
			`<w:r><w:rPr><w:b/></w:rPr><w:t>bold</w:t></w:r>`+
			`<w:r><w:t> world. Next sentence too.</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	body := doc.Body()
	paras := LocateParagraphs(body)

	for _, m := range res.Metadata.SegmentMappings {
		if len(m.TextNodes) == 0 {
			continue
		}
		var got string
		for _, loc := range m.TextNodes {
			runs := CollectRuns(paras[loc.ParagraphIndex])
			content := runs[loc.RunIndex].ChildrenNamed("t")[loc.TextIndex].Text()
			got += content[loc.CharStart:loc.CharEnd]
		}
		if got != m.OriginalText {
			t.Errorf("segment %d: node slices %q != original %q", m.SegmentIndex, got, m.OriginalText)
		}
	}
}

func TestParse_TabContributesOneCharacter(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>a</w:t><w:tab/><w:t>b after tab</w:t></w:r></w:p>`)
	full, infos, _ := ExtractParagraph(LocateParagraphs(doc.Body())[0])

	if full != "a\tb after tab" {
		t.Fatalf("full text: %q", full)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 text records, got %d", len(infos))
	}
	if infos[1].Start != 2 {
		t.Errorf("second node start: got %d, want 2", infos[1].Start)
	}
}

func TestParse_LineBreakRecordedWithSegmentRelativeOffset(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>line one</w:t><w:br/><w:t>line two</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	if len(res.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(res.Segments))
	}
	m := res.Metadata.SegmentMappings[0]
	if m.OriginalText != "line one\nline two" {
		t.Fatalf("original text: %q", m.OriginalText)
	}
	if len(m.LineBreaks) != 1 || m.LineBreaks[0].CharOffset != 8 {
		t.Errorf("line breaks: %+v", m.LineBreaks)
	}
	if len(m.TextNodes) != 2 {
		t.Errorf("expected 2 text nodes, got %d", len(m.TextNodes))
	}
}

func TestParse_NestedRunContainersFound(t *testing.T) {
	doc := parseBody(t, `<w:p><w:smartTag><w:r><w:t>Nested runs still count.</w:t></w:r></w:smartTag></w:p>`)
	res := mustParse(t, doc)

	if len(res.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(res.Segments))
	}
	if len(res.Metadata.SegmentMappings[0].TextNodes) != 1 {
		t.Errorf("expected mapped text node, got %+v", res.Metadata.SegmentMappings[0].TextNodes)
	}
}

func TestParse_SyntheticFallbackYieldsSegmentWithoutNodes(t *testing.T) {
	doc := parseBody(t, `<w:p><w:customXml><w:t>Loose text with no runs.</w:t></w:customXml></w:p>`)
	res := mustParse(t, doc)

	if len(res.Segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(res.Segments))
	}
	if res.Segments[0].SourceText != "Loose text with no runs." {
		t.Errorf("got %q", res.Segments[0].SourceText)
	}
	if len(res.Metadata.SegmentMappings[0].TextNodes) != 0 {
		t.Errorf("expected no addressable nodes, got %+v", res.Metadata.SegmentMappings[0].TextNodes)
	}
}

func TestParse_MissingBodyIsFatal(t *testing.T) {
	doc, err := wordml.ParseBytes([]byte(`<w:document ` + wordmlNS + `/>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var b Builder
	if _, err := b.Parse(context.Background(), doc); !errors.Is(err, ErrNoBody) {
		t.Fatalf("expected ErrNoBody, got %v", err)
	}
}

func TestParse_DigestStableAcrossReparses(t *testing.T) {
	body := `<w:p><w:r><w:t>Stable content.</w:t></w:r></w:p>`
	first := mustParse(t, parseBody(t, body))
	second := mustParse(t, parseBody(t, body))

	if first.Metadata.DocumentXMLHash == "" {
		t.Fatal("empty digest")
	}
	if first.Metadata.DocumentXMLHash != second.Metadata.DocumentXMLHash {
		t.Errorf("digest changed between parses: %s vs %s",
			first.Metadata.DocumentXMLHash, second.Metadata.DocumentXMLHash)
	}
}

func TestParse_CanceledContextStopsBetweenParagraphs(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>Some text.</w:t></w:r></w:p>`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var b Builder
	if _, err := b.Parse(ctx, doc); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
