package engine

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/oxylab/docseg/internal/wordml"
)

func TestReconstruct_RoundTripWithOriginalTextIsByteIdentical(t *testing.T) {
	doc := parseBody(t,
		`<w:p><w:r><w:t>Hello world. This is Oxy.</w:t></w:r></w:p>`+
			`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Chapter One</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	replacements := make(map[uint32]string)
	for _, s := range res.Segments {
		replacements[s.Index] = s.SourceText
	}

	out, warnings, err := Reconstruct(context.Background(), doc, res.Metadata, replacements)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if !bytes.Equal(wordml.Marshal(out), wordml.Marshal(doc)) {
		t.Errorf("round trip is not byte-identical:\n%s\nvs\n%s", wordml.Marshal(out), wordml.Marshal(doc))
	}
}

func TestReconstruct_SingleNodeSpliceReplacesOnlyTheRange(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>Hello world. This is Oxy.</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	out, warnings, err := Reconstruct(context.Background(), doc, res.Metadata, map[uint32]string{
		0: "Bonjour le monde.",
	})
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	para := LocateParagraphs(out.Body())[0]
	got := wordml.AllText(para)
	if got != "Bonjour le monde. This is Oxy." {
		t.Errorf("paragraph text: %q", got)
	}
}

func TestReconstruct_BothSegmentsInOneNode(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>Hello world. This is Oxy.</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	out, _, err := Reconstruct(context.Background(), doc, res.Metadata, map[uint32]string{
		0: "Bonjour le monde.",
		1: "Voici Oxy.",
	})
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}

	got := wordml.AllText(LocateParagraphs(out.Body())[0])
	if got != "Bonjour le monde. Voici Oxy." {
		t.Errorf("paragraph text: %q", got)
	}
}

func TestReconstruct_MultiNodeSegmentKeepsFormattingAnchors(t *testing.T) {
	doc := parseBody(t,
		`<w:p><w:r><w:t>Hello </w:t></w:r>`+
			`<w:r><w:rPr><w:b/></w:rPr><w:t>bold</w:t></w:r>`+
			`<w:r><w:t> world.</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	if len(res.Metadata.SegmentMappings[0].TextNodes) != 3 {
		t.Fatalf("expected 3 text nodes, got %+v", res.Metadata.SegmentMappings[0].TextNodes)
	}

	out, warnings, err := Reconstruct(context.Background(), doc, res.Metadata, map[uint32]string{
		0: "Bonjour le monde.",
	})
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	para := LocateParagraphs(out.Body())[0]
	if got := wordml.AllText(para); got != "Bonjour le monde." {
		t.Errorf("paragraph text: %q", got)
	}

	// The bold run and its properties must survive with emptied text.
	runs := CollectRuns(para)
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs preserved, got %d", len(runs))
	}
	if runs[1].FirstChild("rPr") == nil || runs[1].FirstChild("rPr").FirstChild("b") == nil {
		t.Error("bold run properties were lost")
	}
	if got := runs[1].ChildrenNamed("t")[0].Text(); got != "" {
		t.Errorf("second node should be cleared, has %q", got)
	}
}

func TestReconstruct_DigestMismatchRefusesWithoutMutation(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>Original text here.</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	// Drift: the document changes after parsing.
	para := LocateParagraphs(doc.Body())[0]
	para.ChildrenNamed("r")[0].ChildrenNamed("t")[0].SetText("Tampered text here.")
	before := wordml.Marshal(doc)

	out, _, err := Reconstruct(context.Background(), doc, res.Metadata, map[uint32]string{0: "New text."})
	var ie *IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IntegrityError, got %v", err)
	}
	if !bytes.Equal(wordml.Marshal(out), before) {
		t.Error("document was mutated despite integrity failure")
	}
}

func TestReconstruct_UnsupportedCharactersSkipSegmentOnly(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>First one. Second one.</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	out, warnings, err := Reconstruct(context.Background(), doc, res.Metadata, map[uint32]string{
		0: "bad\x00value",
		1: "Deuxieme phrase.",
	})
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if len(warnings) != 1 || warnings[0].SegmentIndex != 0 {
		t.Fatalf("expected one warning for segment 0, got %v", warnings)
	}

	got := wordml.AllText(LocateParagraphs(out.Body())[0])
	if got != "First one. Deuxieme phrase." {
		t.Errorf("paragraph text: %q", got)
	}
}

func TestReconstruct_LineBreaksReinsertedAtRelativeOffsets(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>line one</w:t><w:br/><w:t>line two</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	// Break offset 8 within the 16-character replacement.
	out, warnings, err := Reconstruct(context.Background(), doc, res.Metadata, map[uint32]string{
		0: "premiere seconde",
	})
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	para := LocateParagraphs(out.Body())[0]
	run := CollectRuns(para)[0]

	var brCount int
	for _, el := range run.Elements() {
		if wordml.Local(el.Name) == "br" {
			brCount++
		}
	}
	if brCount != 1 {
		t.Errorf("expected exactly 1 break element, got %d", brCount)
	}
	if got := wordml.AllText(para); got != "premiere seconde" {
		t.Errorf("paragraph text: %q", got)
	}
}

func TestReconstruct_UntranslatedSegmentsUntouched(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>Keep this. Change that.</w:t></w:r></w:p>`)
	res := mustParse(t, doc)

	out, _, err := Reconstruct(context.Background(), doc, res.Metadata, map[uint32]string{
		1: "Changed indeed.",
	})
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}

	got := wordml.AllText(LocateParagraphs(out.Body())[0])
	if got != "Keep this. Changed indeed." {
		t.Errorf("paragraph text: %q", got)
	}
}

func TestReconstruct_InputDocumentNeverMutated(t *testing.T) {
	doc := parseBody(t, `<w:p><w:r><w:t>Immutable source.</w:t></w:r></w:p>`)
	res := mustParse(t, doc)
	before := wordml.Marshal(doc)

	if _, _, err := Reconstruct(context.Background(), doc, res.Metadata, map[uint32]string{0: "Changed."}); err != nil {
		t.Fatalf("reconstruct: %v", err)
	}
	if !bytes.Equal(wordml.Marshal(doc), before) {
		t.Error("input document was mutated")
	}
}

func TestReconstruct_CanceledContextReturnsOriginalUnchanged(t *testing.T) {
	doc := parseBody(t,
		`<w:p><w:r><w:t>First one. Second one.</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Third one. Fourth one.</w:t></w:r></w:p>`)
	res := mustParse(t, doc)
	before := wordml.Marshal(doc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, warnings, err := Reconstruct(ctx, doc, res.Metadata, map[uint32]string{0: "Premier."})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if warnings != nil {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if out != doc {
		t.Error("expected the original document back")
	}
	if !bytes.Equal(wordml.Marshal(doc), before) {
		t.Error("input document was mutated")
	}
}
