package wordml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
)

const documentPart = "word/document.xml"

// Archive is an opened .docx container: the parsed main document part plus
// every other ZIP entry kept verbatim for rewriting.
type Archive struct {
	Document *Document
	entries  []archiveEntry
}

type archiveEntry struct {
	name string
	data []byte
}

// OpenArchive reads a .docx file from memory and parses its main document
// part. All other entries are retained untouched.
func OpenArchive(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}

	a := &Archive{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		if f.Name == documentPart {
			doc, err := ParseBytes(content)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", f.Name, err)
			}
			a.Document = doc
			continue
		}
		a.entries = append(a.entries, archiveEntry{name: f.Name, data: content})
	}

	if a.Document == nil {
		return nil, fmt.Errorf("%s not found in archive", documentPart)
	}
	return a, nil
}

// Save writes a new .docx with the given document in place of the original
// main part. Every other entry is copied byte-for-byte in its original order.
func (a *Archive) Save(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name string, data []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	}

	if err := write(documentPart, Marshal(doc)); err != nil {
		return nil, err
	}
	for _, e := range a.entries {
		if err := write(e.name, e.data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx: %w", err)
	}
	return buf.Bytes(), nil
}
