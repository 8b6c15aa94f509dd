// Package dictionary imports bidirectional dictionary XML exchange files:
// TMX translation memories and a simple term-base form. Malformed entries
// become warnings, never a failed import.
package dictionary

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Entry is one bidirectional dictionary entry.
type Entry struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Definition string `json:"definition,omitempty"`
}

// Result is the outcome of one import.
type Result struct {
	Entries        []Entry  `json:"entries"`
	SourceLanguage string   `json:"sourceLanguage,omitempty"`
	TargetLanguage string   `json:"targetLanguage,omitempty"`
	Warnings       []string `json:"warnings"`
}

// Import reads a dictionary exchange file, dispatching on the root element:
// <tmx> for translation memories, anything else is treated as the simple
// term-base form with <entry> records.
func Import(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dictionary file: %w", err)
	}

	root, err := rootElement(data)
	if err != nil {
		return nil, fmt.Errorf("parse dictionary file: %w", err)
	}

	if strings.EqualFold(root, "tmx") {
		return importTMX(data)
	}
	return importTermBase(data)
}

func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se.Name.Local, nil
		}
	}
}

type tmxFile struct {
	Header struct {
		SrcLang string `xml:"srclang,attr"`
	} `xml:"header"`
	Units []struct {
		Variants []struct {
			Lang string `xml:"lang,attr"`
			Seg  struct {
				Inner string `xml:",innerxml"`
			} `xml:"seg"`
		} `xml:"tuv"`
	} `xml:"body>tu"`
}

func importTMX(data []byte) (*Result, error) {
	var f tmxFile
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse tmx: %w", err)
	}

	res := &Result{Warnings: []string{}}
	if f.Header.SrcLang != "" && f.Header.SrcLang != "*all*" {
		res.SourceLanguage = f.Header.SrcLang
	}

	for i, tu := range f.Units {
		if len(tu.Variants) < 2 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("tu %d: fewer than two language variants, skipped", i))
			continue
		}
		src := stripMarkup(tu.Variants[0].Seg.Inner)
		tgt := stripMarkup(tu.Variants[1].Seg.Inner)
		if src == "" || tgt == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("tu %d: empty segment, skipped", i))
			continue
		}
		if res.SourceLanguage == "" {
			res.SourceLanguage = tu.Variants[0].Lang
		}
		if res.TargetLanguage == "" {
			res.TargetLanguage = tu.Variants[1].Lang
		}
		res.Entries = append(res.Entries, Entry{Source: src, Target: tgt})
	}

	return res, nil
}

type termBaseFile struct {
	SourceLanguage string `xml:"sourceLanguage,attr"`
	TargetLanguage string `xml:"targetLanguage,attr"`
	Entries        []struct {
		Source      string `xml:"source"`
		Target      string `xml:"target"`
		Term        string `xml:"term"`
		Translation string `xml:"translation"`
		Definition  struct {
			Inner string `xml:",innerxml"`
		} `xml:"definition"`
	} `xml:"entry"`
}

func importTermBase(data []byte) (*Result, error) {
	var f termBaseFile
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse term base: %w", err)
	}

	res := &Result{
		SourceLanguage: f.SourceLanguage,
		TargetLanguage: f.TargetLanguage,
		Warnings:       []string{},
	}

	for i, e := range f.Entries {
		src := strings.TrimSpace(e.Source)
		if src == "" {
			src = strings.TrimSpace(e.Term)
		}
		tgt := strings.TrimSpace(e.Target)
		if tgt == "" {
			tgt = strings.TrimSpace(e.Translation)
		}
		if src == "" || tgt == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("entry %d: missing source or target term, skipped", i))
			continue
		}
		res.Entries = append(res.Entries, Entry{
			Source:     src,
			Target:     tgt,
			Definition: stripMarkup(e.Definition.Inner),
		})
	}

	return res, nil
}

// stripMarkup flattens inline HTML/XML markup (tool-generated definitions and
// TMX inline tags) down to its text content.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	node, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(node)
	return strings.TrimSpace(buf.String())
}
