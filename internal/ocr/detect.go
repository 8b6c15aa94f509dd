// Package ocr hands scanned sources to the remote structure-extraction
// service and extracts text locally when a PDF already carries a text layer.
package ocr

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// DefaultMinCharsPerPage is the text-layer threshold below which a PDF is
// treated as scanned.
const DefaultMinCharsPerPage = 32

// Detection summarizes a PDF's text layer.
type Detection struct {
	PageCount int
	TextRunes int
	Scanned   bool   // needs remote OCR
	Text      string // extracted text, page-separated by form feeds
}

// Detect inspects a PDF and decides whether it needs the remote OCR service
// or its text layer can be used directly. minCharsPerPage <= 0 uses the
// default threshold.
func Detect(data []byte, minCharsPerPage int) (*Detection, error) {
	if minCharsPerPage <= 0 {
		minCharsPerPage = DefaultMinCharsPerPage
	}

	// ledongthuc/pdf needs a ReadSeeker+size, so write to a temp file.
	tmp, err := os.CreateTemp("", "docseg-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	f, reader, err := pdflib.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f")
		}
		buf.WriteString(text)
	}

	d := &Detection{
		PageCount: numPages,
		Text:      buf.String(),
	}
	d.TextRunes = len([]rune(strings.TrimSpace(d.Text)))
	if numPages > 0 {
		d.Scanned = d.TextRunes/numPages < minCharsPerPage
	} else {
		d.Scanned = d.TextRunes < minCharsPerPage
	}
	return d, nil
}

// Pages splits extracted text back into per-page strings.
func (d *Detection) Pages() []string {
	return strings.Split(d.Text, "\f")
}
