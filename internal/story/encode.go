// Package story reads and writes story documents: a metadata header followed by
// verses interleaved with section markers, each verse carrying its translations.
package story

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/maktabah-search-api/internal/models"
)

// xmlEscaper escapes the five reserved XML characters. Carriage returns are written
// as references so the parser does not fold them into line feeds.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
	"\r", "&#xD;",
)

// Escape escapes s for XML text and attribute values. Invalid UTF-8 becomes U+FFFD
// and characters outside the XML 1.0 Char production are dropped.
func Escape(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	return xmlEscaper.Replace(strings.Map(xmlChar, s))
}

func xmlChar(r rune) rune {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return r
	case r < 0x20, r == 0xFFFE, r == 0xFFFF:
		return -1
	}
	return r
}

// Marshal renders the story document
func Marshal(s *models.Story) []byte {
	var w bytes.Buffer
	w.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&w, "<story query=\"%s\" generated=\"%s\">\n", Escape(s.Query), s.GeneratedAt.UTC().Format(time.RFC3339))

	w.WriteString("  <metadata>\n")
	element(&w, 4, "title", s.Title)
	element(&w, 4, "verses_count", strconv.Itoa(s.VersesCount()))
	element(&w, 4, "translations_count", strconv.Itoa(s.TranslationsCount()))
	if s.Reorder != nil {
		element(&w, 4, "reordered", s.Reorder.ReorderedAt.UTC().Format(time.RFC3339))
		element(&w, 4, "reorder_source", s.Reorder.Manifest)
	}
	w.WriteString("  </metadata>\n\n")

	w.WriteString("  <verses>\n")
	next := 0
	for i, v := range s.Verses {
		for ; next < len(s.Sections) && s.Sections[next].Start <= i; next++ {
			section(&w, s.Sections[next].Name)
		}
		verse(&w, v)
	}
	for ; next < len(s.Sections); next++ {
		section(&w, s.Sections[next].Name)
	}
	w.WriteString("  </verses>\n")
	w.WriteString("</story>\n")
	return w.Bytes()
}

// Encode writes the story document to w
func Encode(w io.Writer, s *models.Story) error {
	if _, err := w.Write(Marshal(s)); err != nil {
		return fmt.Errorf("write story: %w", err)
	}
	return nil
}

// WriteFile writes the story document to path through a temporary file in the same directory
func WriteFile(path string, s *models.Story) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".story-*.xml")
	if err != nil {
		return fmt.Errorf("create story file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close story file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename story file: %w", err)
	}
	return nil
}

func section(w *bytes.Buffer, name string) {
	fmt.Fprintf(w, "    <section name=\"%s\"/>\n", Escape(name))
}

func verse(w *bytes.Buffer, v models.AggregatedVerse) {
	rep := v.Representative
	fmt.Fprintf(w, "    <verse chapter=\"%d\" verse=\"%d\" type=\"%s\" author=\"%s\">\n",
		v.Chapter, v.Verse, Escape(string(v.Type)), Escape(rep.Author))
	element(w, 6, "chapter_name", rep.ChapterName)
	element(w, 6, "book_id", rep.BookID)
	element(w, 6, "score", strconv.FormatFloat(rep.Score, 'f', -1, 64))
	element(w, 6, "text", rep.Text)

	w.WriteString("      <translations>\n")
	for _, t := range v.Translations {
		fmt.Fprintf(w, "        <translation book_id=\"%s\" author=\"%s\"", Escape(t.BookID), Escape(t.Author))
		if t.Volume != nil {
			fmt.Fprintf(w, " volume=\"%d\"", *t.Volume)
		}
		fmt.Fprintf(w, ">%s</translation>\n", Escape(t.Text))
	}
	w.WriteString("      </translations>\n")
	w.WriteString("    </verse>\n")
}

func element(w *bytes.Buffer, indent int, name, value string) {
	fmt.Fprintf(w, "%s<%s>%s</%s>\n", strings.Repeat(" ", indent), name, Escape(value), name)
}
