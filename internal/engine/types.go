// Package engine decomposes a WordprocessingML document into translatable
// segments with exact node/offset bookkeeping, and rewrites the document from
// translated segments without disturbing any other markup.
package engine

import "fmt"

// MetadataVersion is the current StructureMetadata format version.
const MetadataVersion = 2

// Segment is one independently translatable unit of source text.
type Segment struct {
	Index      uint32 `json:"index"`
	SourceText string `json:"sourceText"`
}

// Formatting is a paragraph-level formatting summary derived from its runs.
type Formatting struct {
	Bold      bool `json:"bold,omitempty"`
	Italic    bool `json:"italic,omitempty"`
	Underline bool `json:"underline,omitempty"`
	FontSize  int  `json:"fontSize,omitempty"` // half-points
}

// ParagraphDescriptor records one paragraph that produced segments.
type ParagraphDescriptor struct {
	Index          int         `json:"index"`
	SegmentIndices []uint32    `json:"segmentIndices"`
	Style          string      `json:"style,omitempty"`
	Formatting     *Formatting `json:"formatting,omitempty"`
}

// TextNodeLocation addresses a slice of one text node. CharStart and CharEnd
// are offsets into that node's own content.
type TextNodeLocation struct {
	ParagraphIndex int  `json:"paragraphIndex"`
	RunIndex       int  `json:"runIndex"`
	TextIndex      int  `json:"textIndex"`
	CharStart      int  `json:"charStart"`
	CharEnd        int  `json:"charEnd"`
	PreserveSpace  bool `json:"preserveSpace,omitempty"`
}

// LineBreakLocation records an explicit line break inside a segment.
// CharOffset is relative to the segment's (trimmed) start.
type LineBreakLocation struct {
	ParagraphIndex int `json:"paragraphIndex"`
	RunIndex       int `json:"runIndex"`
	BreakIndex     int `json:"breakIndex"`
	CharOffset     int `json:"charOffset"`
}

// SegmentTextMapping ties a segment back to the exact node slices that held
// its text, plus the whitespace trimmed away during segmentation.
type SegmentTextMapping struct {
	SegmentIndex       uint32              `json:"segmentIndex"`
	TextNodes          []TextNodeLocation  `json:"textNodes"`
	OriginalText       string              `json:"originalText"`
	LineBreaks         []LineBreakLocation `json:"lineBreaks,omitempty"`
	LeadingWhitespace  string              `json:"leadingWhitespace,omitempty"`
	TrailingWhitespace string              `json:"trailingWhitespace,omitempty"`
}

// StructureMetadata is the persistable descriptor produced by one parse.
// It is read-only after creation and consumed by Reconstruct.
type StructureMetadata struct {
	Version         int                   `json:"version"`
	Paragraphs      []ParagraphDescriptor `json:"paragraphs"`
	SegmentMappings []SegmentTextMapping  `json:"segmentMappings"`
	DocumentXMLHash string                `json:"documentXmlHash"`
}

// Warning is a non-fatal per-segment anomaly surfaced alongside a result.
type Warning struct {
	SegmentIndex uint32 `json:"segmentIndex"`
	Reason       string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("segment %d: %s", w.SegmentIndex, w.Reason)
}

// IntegrityError reports a digest mismatch between stored metadata and the
// candidate document. Reconstruction never proceeds past it.
type IntegrityError struct {
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("document digest mismatch: metadata %s, document %s", e.Expected, e.Actual)
}

// ErrNoBody is returned when the document has no locatable body container.
var ErrNoBody = fmt.Errorf("document has no body element")
