package dictionary

import (
	"strings"
	"testing"
)

func TestImport_TMX(t *testing.T) {
	src := `<?xml version="1.0"?>
<tmx version="1.4"><header srclang="en"/><body>
  <tu>
    <tuv xml:lang="en"><seg>Hello world</seg></tuv>
    <tuv xml:lang="de"><seg>Hallo Welt</seg></tuv>
  </tu>
  <tu>
    <tuv xml:lang="en"><seg>Lonely segment</seg></tuv>
  </tu>
  <tu>
    <tuv xml:lang="en"><seg>Inline <bpt i="1">tags</bpt> stripped</seg></tuv>
    <tuv xml:lang="de"><seg>Inline-Tags entfernt</seg></tuv>
  </tu>
</body></tmx>`

	res, err := Import(strings.NewReader(src))
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}
	if res.Entries[0].Source != "Hello world" || res.Entries[0].Target != "Hallo Welt" {
		t.Errorf("entry 0: %+v", res.Entries[0])
	}
	if res.Entries[1].Source != "Inline tags stripped" {
		t.Errorf("inline markup not stripped: %q", res.Entries[1].Source)
	}
	if res.SourceLanguage != "en" || res.TargetLanguage != "de" {
		t.Errorf("languages: %q -> %q", res.SourceLanguage, res.TargetLanguage)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("expected 1 warning for single-variant tu, got %v", res.Warnings)
	}
}

func TestImport_TermBase(t *testing.T) {
	src := `<?xml version="1.0"?>
<dictionary sourceLanguage="en" targetLanguage="fr">
  <entry><source>cat</source><target>chat</target>
    <definition>A small <b>feline</b> animal</definition></entry>
  <entry><term>dog</term><translation>chien</translation></entry>
  <entry><source>orphan</source></entry>
</dictionary>`

	res, err := Import(strings.NewReader(src))
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(res.Entries), res.Entries)
	}
	if res.Entries[0].Definition != "A small feline animal" {
		t.Errorf("definition markup not stripped: %q", res.Entries[0].Definition)
	}
	if res.Entries[1].Source != "dog" || res.Entries[1].Target != "chien" {
		t.Errorf("term/translation aliases not handled: %+v", res.Entries[1])
	}
	if len(res.Warnings) != 1 {
		t.Errorf("expected 1 warning for incomplete entry, got %v", res.Warnings)
	}
	if res.SourceLanguage != "en" || res.TargetLanguage != "fr" {
		t.Errorf("languages: %q -> %q", res.SourceLanguage, res.TargetLanguage)
	}
}

func TestImport_MalformedXML(t *testing.T) {
	if _, err := Import(strings.NewReader("not xml at all")); err == nil {
		t.Fatal("expected error for malformed input")
	}
}
