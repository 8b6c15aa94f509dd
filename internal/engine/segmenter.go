package engine

import (
	"regexp"
	"strings"
	"unicode"
)

// Strategy supplies the replaceable segmentation heuristics: what counts as a
// heading (kept whole) and where sentences end. Implementations must be pure;
// the position-tracking core never depends on their internals.
type Strategy interface {
	// IsHeading reports whether the paragraph should stay a single segment.
	IsHeading(style, text string, f *Formatting) bool
	// SplitSentences splits text into sentences whose concatenation equals
	// text exactly. It returns at least one element for non-empty input.
	SplitSentences(text string) []string
}

// DefaultStrategy implements the stock heading and sentence heuristics.
type DefaultStrategy struct{}

var headingStyleRe = regexp.MustCompile(`(?i)(heading|title|subtitle|toc)`)

const (
	shortHeadingLimit  = 100 // runes
	headingSizeHalfPts = 28  // 14pt
)

func (DefaultStrategy) IsHeading(style, text string, f *Formatting) bool {
	if style != "" && headingStyleRe.MatchString(style) {
		return true
	}
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) >= shortHeadingLimit || hasTerminalPunctuation(trimmed) {
		return false
	}
	if f == nil {
		return false
	}
	return f.Bold || f.FontSize >= headingSizeHalfPts
}

func hasTerminalPunctuation(s string) bool {
	if s == "" {
		return false
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

// SplitSentences scans left to right. A boundary occurs after '.', '!' or '?'
// when followed by end of text, or by a space and an upper-case letter
// (Latin-1 Supplement and Extended-A capitals included).
func (DefaultStrategy) SplitSentences(text string) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i == len(runes)-1 {
			break // end of text; remainder flushed below
		}
		if runes[i+1] == ' ' && i+2 < len(runes) && isSentenceCapital(runes[i+2]) {
			sentences = append(sentences, string(runes[start:i+1]))
			start = i + 1
		}
	}
	sentences = append(sentences, string(runes[start:]))
	return sentences
}

// isSentenceCapital covers ASCII capitals plus the accented capitals of
// Latin-1 Supplement and Latin Extended-A.
func isSentenceCapital(r rune) bool {
	if r >= 'A' && r <= 'Z' {
		return true
	}
	if r >= 0x00C0 && r <= 0x017F {
		return unicode.IsUpper(r)
	}
	return false
}

// Paragraph filters, applied in order before any splitting.

var (
	pageNumberRe  = regexp.MustCompile(`^-*\s*\d+\s*-*$`)
	pageOfRe      = regexp.MustCompile(`(?i)^page\s+\d+(\s+of\s+\d+)?$`)
	placeholderRe = regexp.MustCompile(`(?i)^(preserve|reserved|placeholder)$`)
)

// skipParagraph decides whether a paragraph's trimmed text is boilerplate
// that produces no segments. The seen set carries per-parse dedup state and
// is updated here for text that passes the other filters.
func skipParagraph(trimmed string, seen map[string]struct{}) bool {
	if trimmed == "" {
		return true
	}
	if _, dup := seen[trimmed]; dup {
		return true
	}
	if pageNumberRe.MatchString(trimmed) || pageOfRe.MatchString(trimmed) {
		return true
	}
	if placeholderRe.MatchString(trimmed) {
		return true
	}
	seen[trimmed] = struct{}{}
	return false
}

// mapSentence locates sentence within fullText starting at searchFrom and
// builds the segment mapping: trimmed text, node selections clipped to
// node-local offsets, contained line breaks, and the trimmed whitespace. The
// second return is the offset to resume the monotonic scan from, and ok=false
// means the sentence could not be located.
func mapSentence(segIndex uint32, paraIndex int, sentence, fullText string, searchFrom int, infos []RunTextInfo, breaks []LineBreak) (SegmentTextMapping, int, bool) {
	rel := strings.Index(fullText[searchFrom:], sentence)
	if rel < 0 {
		return SegmentTextMapping{
			SegmentIndex: segIndex,
			OriginalText: strings.TrimSpace(sentence),
		}, searchFrom, false
	}
	absStart := searchFrom + rel
	absEnd := absStart + len(sentence)

	leading := sentence[:len(sentence)-len(strings.TrimLeft(sentence, " \t\n\r"))]
	trailing := sentence[len(strings.TrimRight(sentence, " \t\n\r")):]
	trimStart := absStart + len(leading)
	trimEnd := absEnd - len(trailing)

	m := SegmentTextMapping{
		SegmentIndex:       segIndex,
		OriginalText:       fullText[trimStart:trimEnd],
		LeadingWhitespace:  leading,
		TrailingWhitespace: trailing,
	}

	for _, info := range infos {
		if info.Synthetic || info.Start == info.End {
			continue
		}
		if info.End <= trimStart || info.Start >= trimEnd {
			continue
		}
		clipStart := max(trimStart, info.Start)
		clipEnd := min(trimEnd, info.End)
		m.TextNodes = append(m.TextNodes, TextNodeLocation{
			ParagraphIndex: paraIndex,
			RunIndex:       info.RunIndex,
			TextIndex:      info.TextIndex,
			CharStart:      clipStart - info.Start,
			CharEnd:        clipEnd - info.Start,
			PreserveSpace:  info.PreserveSpace,
		})
	}

	for _, br := range breaks {
		if br.Offset < trimStart || br.Offset >= trimEnd {
			continue
		}
		m.LineBreaks = append(m.LineBreaks, LineBreakLocation{
			ParagraphIndex: paraIndex,
			RunIndex:       br.RunIndex,
			BreakIndex:     br.BreakIndex,
			CharOffset:     br.Offset - trimStart,
		})
	}

	return m, absEnd, true
}
