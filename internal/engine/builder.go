package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/oxylab/docseg/internal/wordml"
)

// ParseResult is the full output of one parse: the flat ordered segment list,
// the persistable descriptor, and any non-fatal warnings.
type ParseResult struct {
	Segments []Segment
	Metadata *StructureMetadata
	Warnings []Warning
}

// Builder runs the segmentation pipeline over a whole document. The zero
// value uses DefaultStrategy.
type Builder struct {
	Strategy Strategy
}

// Parse decomposes the document into segments and builds the structure
// metadata. The integrity digest is computed over the canonical serialization
// captured before any traversal. It fails only when the document has no body
// container, or when ctx is canceled; cancellation is checked between
// paragraphs so a paragraph's segments are emitted atomically or not at all.
func (b *Builder) Parse(ctx context.Context, doc *wordml.Document) (*ParseResult, error) {
	strat := b.Strategy
	if strat == nil {
		strat = DefaultStrategy{}
	}

	digest := DigestHex(doc)
	body := doc.Body()
	if body == nil {
		return nil, ErrNoBody
	}

	res := &ParseResult{
		Metadata: &StructureMetadata{
			Version:         MetadataVersion,
			DocumentXMLHash: digest,
		},
	}
	seen := make(map[string]struct{})
	nextIndex := uint32(0)

	for paraIndex, p := range LocateParagraphs(body) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fullText, infos, breaks := ExtractParagraph(p)
		trimmed := strings.TrimSpace(fullText)
		if skipParagraph(trimmed, seen) {
			continue
		}

		runs := CollectRuns(p)
		style := wordml.StyleID(p)
		formatting := summarizeFormatting(runs)

		var sentences []string
		if strat.IsHeading(style, fullText, formatting) {
			sentences = []string{fullText}
		} else {
			sentences = strat.SplitSentences(fullText)
		}

		desc := ParagraphDescriptor{
			Index:      paraIndex,
			Style:      style,
			Formatting: formatting,
		}
		searchFrom := 0
		for _, sentence := range sentences {
			if strings.TrimSpace(sentence) == "" {
				continue
			}
			m, next, ok := mapSentence(nextIndex, paraIndex, sentence, fullText, searchFrom, infos, breaks)
			if !ok {
				res.Warnings = append(res.Warnings, Warning{
					SegmentIndex: nextIndex,
					Reason:       "sentence text not locatable in paragraph; reconstruction will degrade for this segment",
				})
			} else {
				searchFrom = next
			}

			res.Segments = append(res.Segments, Segment{Index: nextIndex, SourceText: m.OriginalText})
			res.Metadata.SegmentMappings = append(res.Metadata.SegmentMappings, m)
			desc.SegmentIndices = append(desc.SegmentIndices, nextIndex)
			nextIndex++
		}

		if len(desc.SegmentIndices) > 0 {
			res.Metadata.Paragraphs = append(res.Metadata.Paragraphs, desc)
		}
	}

	return res, nil
}

// DigestHex computes the hex SHA-256 digest of the document's canonical
// serialization. Reconstruct recomputes it the same way.
func DigestHex(doc *wordml.Document) string {
	sum := sha256.Sum256(wordml.Marshal(doc))
	return hex.EncodeToString(sum[:])
}
