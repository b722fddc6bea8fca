// Package markdown parses a repository file into a ParsedEntity: the
// frontmatter, resolved title, and the Observations/Relations sections of
// Markdown notes. Opaque (non-Markdown) files are probed for a content
// type and carry no observations or relations.
package markdown

import (
	"bytes"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/frontmatter"

	"github.com/basicmemory/basic-memory/internal/syncerr"
)

// Observation is a single `- [category] text` bullet under an
// `## Observations` heading.
type Observation struct {
	Category string
	Content  string
}

// Relation is a single `- relation_type [[target]]` bullet under a
// `## Relations` heading.
type Relation struct {
	RelationType string
	Target       string // the pre-`|` portion of the wikilink target
	Context      string // trailing `# comment`, if any
}

// ParsedEntity is the output of parsing one repository file.
type ParsedEntity struct {
	Title        string
	EntityType   string // "" if unspecified by frontmatter; caller defaults to "note"
	Permalink    string // "" if not set in frontmatter
	Tags         []string
	Created      *time.Time // nil unless frontmatter carried a parseable value
	Modified     *time.Time
	ContentType  string
	Body         string // Markdown body with frontmatter stripped; "" for opaque files
	Observations []Observation
	Relations    []Relation
}

type frontMatterEnvelope struct {
	Title     string         `yaml:"title"`
	Type      string         `yaml:"type"`
	Permalink string         `yaml:"permalink"`
	Tags      []string       `yaml:"tags"`
	Created   string         `yaml:"created"`
	Modified  string         `yaml:"modified"`
	Custom    map[string]any `yaml:",inline"`
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// Parse parses a single repository file's bytes. path is used for
// extension sniffing and for deriving a title when none is otherwise
// available.
func Parse(data []byte, path string) (ParsedEntity, error) {
	if !strings.EqualFold(filepath.Ext(path), ".md") {
		return parseOpaque(data, path)
	}
	return parseMarkdown(data, path)
}

func parseOpaque(data []byte, path string) (ParsedEntity, error) {
	ct, err := probeContentType(data, path)
	if err != nil {
		return ParsedEntity{}, &syncerr.ParseError{Path: path, Err: err}
	}
	return ParsedEntity{
		Title:       stem(path),
		ContentType: ct,
	}, nil
}

func probeContentType(data []byte, path string) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		if idx := strings.Index(ct, ";"); idx >= 0 {
			ct = ct[:idx]
		}
		return ct, nil
	}
	n := len(data)
	if n > 512 {
		n = 512
	}
	return http.DetectContentType(data[:n]), nil
}

func parseMarkdown(data []byte, path string) (ParsedEntity, error) {
	var env frontMatterEnvelope
	body, err := frontmatter.Parse(bytes.NewReader(data), &env)
	if err != nil {
		return ParsedEntity{}, &syncerr.ParseError{Path: path, Err: err}
	}

	bodyStr := string(body)
	entity := ParsedEntity{
		EntityType:  env.Type,
		Permalink:   env.Permalink,
		Tags:        env.Tags,
		Created:     parseTimestamp(env.Created),
		Modified:    parseTimestamp(env.Modified),
		ContentType: "text/markdown",
		Body:        bodyStr,
	}

	entity.Title = resolveTitle(env.Title, bodyStr, path)
	entity.Observations = parseObservations(bodyStr)
	entity.Relations = parseRelations(bodyStr)

	return entity, nil
}

func resolveTitle(frontmatterTitle, body, path string) string {
	if frontmatterTitle != "" {
		return frontmatterTitle
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return stem(path)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sectionLines returns the bullet lines (trimmed, "- " stripped) found
// directly under the given "## Heading" before the next "## " heading.
func sectionLines(body, heading string) []string {
	var lines []string
	inSection := false
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			inSection = trimmed == heading
			continue
		}
		if !inSection {
			continue
		}
		if !strings.HasPrefix(trimmed, "- ") {
			continue
		}
		lines = append(lines, strings.TrimSpace(strings.TrimPrefix(trimmed, "- ")))
	}
	return lines
}

func parseObservations(body string) []Observation {
	var observations []Observation
	for _, line := range sectionLines(body, "## Observations") {
		if !strings.HasPrefix(line, "[") {
			continue
		}
		end := strings.Index(line, "]")
		if end < 0 {
			continue
		}
		category := line[1:end]
		content := strings.TrimSpace(line[end+1:])
		if category == "" {
			continue
		}
		observations = append(observations, Observation{Category: category, Content: content})
	}
	return observations
}

func parseRelations(body string) []Relation {
	var relations []Relation
	for _, line := range sectionLines(body, "## Relations") {
		start := strings.Index(line, "[[")
		end := strings.Index(line, "]]")
		if start < 0 || end < 0 || end < start {
			continue
		}
		relationType := strings.TrimSpace(line[:start])
		if relationType == "" {
			continue
		}
		target := line[start+2 : end]
		if idx := strings.Index(target, "|"); idx >= 0 {
			target = target[:idx]
		}
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}

		context := ""
		rest := strings.TrimSpace(line[end+2:])
		if strings.HasPrefix(rest, "#") {
			context = strings.TrimSpace(strings.TrimPrefix(rest, "#"))
		}

		relations = append(relations, Relation{
			RelationType: relationType,
			Target:       target,
			Context:      context,
		})
	}
	return relations
}
