package wordml

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entries := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0"?><Types/>`,
		"_rels/.rels":         `<?xml version="1.0"?><Relationships/>`,
		"word/document.xml":   documentXML,
		"word/styles.xml":     `<?xml version="1.0"?><w:styles xmlns:w="ns"/>`,
	}
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestOpenArchive_ParsesDocumentPart(t *testing.T) {
	data := buildDocx(t, sample)
	a, err := OpenArchive(data)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if a.Document == nil || a.Document.Body() == nil {
		t.Fatal("document part not parsed")
	}
}

func TestOpenArchive_MissingDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	w.Write([]byte("<styles/>"))
	zw.Close()

	if _, err := OpenArchive(buf.Bytes()); err == nil {
		t.Fatal("expected error for archive without document part")
	}
}

func TestSave_KeepsOtherEntriesVerbatim(t *testing.T) {
	data := buildDocx(t, sample)
	a, err := OpenArchive(data)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}

	out, err := a.Save(a.Document)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("reopen saved docx: %v", err)
	}

	got := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		content, _ := io.ReadAll(rc)
		rc.Close()
		got[f.Name] = content
	}

	if !bytes.Equal(got["word/styles.xml"], []byte(`<?xml version="1.0"?><w:styles xmlns:w="ns"/>`)) {
		t.Errorf("styles entry changed: %s", got["word/styles.xml"])
	}
	if _, ok := got["word/document.xml"]; !ok {
		t.Error("document part missing from saved archive")
	}
	if len(got) != 4 {
		t.Errorf("expected 4 entries, got %d", len(got))
	}
}
