package storage

import (
	"regexp"
	"strings"
)

const maxSegmentLen = 64

var (
	separatorRe = regexp.MustCompile(`[/\\]+`)
	invalidRe   = regexp.MustCompile(`[<>:"|?*\x00-\x1f]`)
	dashRunRe   = regexp.MustCompile(`-{2,}`)
)

// Sanitize rewrites a user-supplied name or subcategory into a single safe
// path segment: lowercase, spaces and path separators in both slash forms
// become dashes, characters invalid in file names, control bytes, and
// leading dots are stripped, repeated dashes are collapsed, and the result
// is capped in length. An input that sanitizes to nothing becomes "unnamed"
// (or empty when allowEmpty is set, for optional fields such as
// subcategory).
func Sanitize(raw string, allowEmpty bool) string {
	s := strings.ToLower(raw)
	s = strings.ReplaceAll(s, " ", "-")
	s = separatorRe.ReplaceAllString(s, "-")
	s = invalidRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "..", "")
	s = strings.TrimLeft(s, ".")
	s = dashRunRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "- ")
	if len(s) > maxSegmentLen {
		s = strings.Trim(s[:maxSegmentLen], "- ")
	}
	if s == "" && !allowEmpty {
		return "unnamed"
	}
	return s
}
