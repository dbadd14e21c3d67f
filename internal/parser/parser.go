// Package parser extracts frontmatter, titles, and descriptions from raw
// library documents and builds their normalized search blobs.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/models"
)

const descriptionLimit = 200

var (
	headingRe  = regexp.MustCompile(`^#{1,6}\s+`)
	markupRe   = regexp.MustCompile(`^[#>*\-\s]+`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9 ]+`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Result holds the output of parsing a raw document.
type Result struct {
	Metadata models.Metadata
	Body     string
}

// Parse splits raw content into metadata and body. A malformed frontmatter
// block never fails the parse: it degrades to empty metadata with the whole
// trimmed text as body. Title and description fall back to values extracted
// from the body when the frontmatter omits them.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)
	meta := fromFrontmatter(fm)

	if meta.Title == "" {
		meta.Title = extractTitle(body)
	}
	if meta.Description == "" {
		meta.Description = extractDescription(body)
	}

	return &Result{Metadata: meta, Body: strings.TrimSpace(body)}
}

// splitFrontmatter separates a YAML frontmatter block (between leading ---
// delimiters) from the body. Missing or invalid frontmatter yields nil and
// the entire content as body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter, treat everything as body.
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: return body only, no error.
		return nil, string(data)
	}
	return fm, body
}

// fromFrontmatter maps the loose frontmatter record onto typed metadata.
// Unknown keys are preserved under Extra.
func fromFrontmatter(fm map[string]any) models.Metadata {
	var meta models.Metadata
	if fm == nil {
		return meta
	}
	for k, v := range fm {
		switch k {
		case "title":
			if s, ok := v.(string); ok {
				meta.Title = s
			}
		case "description":
			if s, ok := v.(string); ok {
				meta.Description = s
			}
		case "tags":
			meta.Tags = stringList(v)
		case "aliases":
			meta.Aliases = stringList(v)
		default:
			if meta.Extra == nil {
				meta.Extra = make(map[string]any)
			}
			meta.Extra[k] = v
		}
	}
	return meta
}

// stringList accepts both "a, b" scalar and YAML list forms.
func stringList(v any) []string {
	var out []string
	switch t := v.(type) {
	case string:
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// extractTitle returns the first heading line, else the first non-blank line
// stripped of leading markup.
func extractTitle(body string) string {
	var fallback string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if headingRe.MatchString(trimmed) {
			return strings.TrimSpace(headingRe.ReplaceAllString(trimmed, ""))
		}
		if fallback == "" {
			fallback = strings.TrimSpace(markupRe.ReplaceAllString(trimmed, ""))
		}
	}
	return fallback
}

// extractDescription returns the first blockquote line, else the first
// paragraph following a heading (skipping fenced code), capped at 200 runes.
func extractDescription(body string) string {
	inFence := false
	sawHeading := false
	var paragraph []string

	flush := func() string {
		return truncate(strings.Join(paragraph, " "), descriptionLimit)
	}

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if strings.HasPrefix(trimmed, "> ") {
			return truncate(strings.TrimPrefix(trimmed, "> "), descriptionLimit)
		}

		if headingRe.MatchString(trimmed) {
			if len(paragraph) > 0 {
				return flush()
			}
			sawHeading = true
			continue
		}

		if trimmed == "" {
			if len(paragraph) > 0 {
				return flush()
			}
			continue
		}

		if sawHeading {
			paragraph = append(paragraph, trimmed)
		}
	}

	if len(paragraph) > 0 {
		return flush()
	}
	return ""
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// Blob concatenates the given parts into the normalized search blob:
// lowercase, letters/digits/spaces only, single-space separated.
func Blob(parts ...string) string {
	joined := strings.ToLower(strings.Join(parts, " "))
	joined = nonAlnumRe.ReplaceAllString(joined, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(joined, " "))
}
