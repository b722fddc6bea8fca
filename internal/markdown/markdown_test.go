package markdown

import (
	"errors"
	"strings"
	"testing"

	"github.com/basicmemory/basic-memory/internal/syncerr"
)

func TestParse_FrontmatterAndTitle(t *testing.T) {
	src := []byte(`---
title: Coffee Brewing Methods
type: knowledge
tags:
  - coffee
  - brewing
---
# Coffee Brewing Methods

Some prose.
`)
	entity, err := Parse(src, "notes/coffee.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity.Title != "Coffee Brewing Methods" {
		t.Fatalf("expected frontmatter title, got %q", entity.Title)
	}
	if entity.EntityType != "knowledge" {
		t.Fatalf("expected entity_type knowledge, got %q", entity.EntityType)
	}
	if len(entity.Tags) != 2 || entity.Tags[0] != "coffee" {
		t.Fatalf("unexpected tags: %v", entity.Tags)
	}
	if entity.ContentType != "text/markdown" {
		t.Fatalf("expected text/markdown, got %q", entity.ContentType)
	}
}

func TestParse_TitleFallsBackToHeading(t *testing.T) {
	src := []byte("# My Heading\n\nbody text\n")
	entity, err := Parse(src, "notes/untitled.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity.Title != "My Heading" {
		t.Fatalf("expected heading fallback, got %q", entity.Title)
	}
}

func TestParse_TitleFallsBackToFilenameStem(t *testing.T) {
	src := []byte("just some prose with no heading\n")
	entity, err := Parse(src, "notes/plain-note.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity.Title != "plain-note" {
		t.Fatalf("expected filename stem, got %q", entity.Title)
	}
}

func TestParse_Observations(t *testing.T) {
	src := []byte(`# Note

## Observations
- [method] pour-over extracts more clarity
- [fact] water temp matters
- not an observation, no category
`)
	entity, err := Parse(src, "notes/n.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entity.Observations) != 2 {
		t.Fatalf("expected 2 observations, got %d: %+v", len(entity.Observations), entity.Observations)
	}
	if entity.Observations[0].Category != "method" || entity.Observations[0].Content != "pour-over extracts more clarity" {
		t.Fatalf("unexpected first observation: %+v", entity.Observations[0])
	}
}

func TestParse_Relations(t *testing.T) {
	src := []byte(`# Note

## Relations
- relates_to [[espresso-basics]]
- cites [[water-chemistry|Water Chemistry]] # see chapter 3
- ignored line without wikilink
`)
	entity, err := Parse(src, "notes/n.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entity.Relations) != 2 {
		t.Fatalf("expected 2 relations, got %d: %+v", len(entity.Relations), entity.Relations)
	}
	if entity.Relations[0].RelationType != "relates_to" || entity.Relations[0].Target != "espresso-basics" {
		t.Fatalf("unexpected first relation: %+v", entity.Relations[0])
	}
	second := entity.Relations[1]
	if second.Target != "water-chemistry" {
		t.Fatalf("expected alias stripped, got target %q", second.Target)
	}
	if second.Context != "see chapter 3" {
		t.Fatalf("expected trailing comment captured, got %q", second.Context)
	}
}

func TestParse_SectionsEndAtNextHeading(t *testing.T) {
	src := []byte(`## Observations
- [a] one
## Relations
- rel [[target]]
## Something Else
- [b] should not count as an observation
`)
	entity, err := Parse(src, "notes/n.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entity.Observations) != 1 {
		t.Fatalf("expected section scanning to stop at next heading, got %+v", entity.Observations)
	}
	if len(entity.Relations) != 1 {
		t.Fatalf("expected 1 relation, got %+v", entity.Relations)
	}
}

func TestParse_OpaqueFile(t *testing.T) {
	data := []byte{0x25, 0x50, 0x44, 0x46, 0x2d, 0x31, 0x2e, 0x34} // "%PDF-1.4"
	entity, err := Parse(data, "attachments/report.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity.Title != "report" {
		t.Fatalf("expected filename stem title, got %q", entity.Title)
	}
	if entity.ContentType != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", entity.ContentType)
	}
	if len(entity.Observations) != 0 || len(entity.Relations) != 0 {
		t.Fatalf("opaque files must carry no observations or relations")
	}
}

func TestParse_OpaqueFileSniffsUnknownExtension(t *testing.T) {
	data := []byte("\x89PNG\r\n\x1a\n" + strings.Repeat("x", 32))
	entity, err := Parse([]byte(data), "attachments/blob.unknownext")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity.ContentType != "image/png" {
		t.Fatalf("expected sniffed image/png, got %q", entity.ContentType)
	}
}

func TestParse_MalformedFrontmatterIsParseError(t *testing.T) {
	src := []byte("---\ntitle: [unterminated\n---\nbody\n")
	_, err := Parse(src, "notes/bad.md")
	if err == nil {
		t.Fatalf("expected a parse error for malformed frontmatter")
	}
	var parseErr *syncerr.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *syncerr.ParseError, got %T", err)
	}
}
