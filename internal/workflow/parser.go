// Package workflow parses chain documents into stepped workflows.
//
// Chain documents are free-form Markdown. The parser is a state machine over
// section headings; any section it cannot find yields an empty value, never
// an error.
package workflow

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/starford/raido/internal/models"
)

var (
	stepHeadingRe = regexp.MustCompile(`(?i)^#{1,6}\s+Step\s+(\d+)\s*:\s*(.+)$`)
	headingRe     = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	bulletRe      = regexp.MustCompile(`^[-*+]\s+(.+)$`)
	hruleRe       = regexp.MustCompile(`^(-{3,}|\*{3,}|_{3,})$`)
)

// Parse builds a Workflow from an already-parsed chain item. Step numbers in
// the result are positional (1..N in source order) regardless of the labels
// in the source headings.
func Parse(item *models.Item) *models.Workflow {
	wf := &models.Workflow{
		ID:          item.ID,
		Name:        item.Metadata.Title,
		Description: item.Metadata.Description,
		Source:      item,
	}
	if wf.Name == "" {
		wf.Name = item.Name
	}

	lines := strings.Split(item.Body, "\n")

	wf.Overview = fencedBlockAfter(lines, "overview")
	wf.Prerequisites = bulletsUnder(lines, "prerequisites")
	wf.Tips = bulletsUnder(lines, "tips")
	wf.Steps = parseSteps(lines)

	return wf
}

// parseSteps collects every "Step <n>: <title>" section. A step's body runs
// until the next step heading or end of document.
func parseSteps(lines []string) []models.Step {
	var steps []models.Step
	start := -1
	var title string

	flush := func(end int) {
		if start < 0 {
			return
		}
		body := lines[start:end]
		steps = append(steps, models.Step{
			Number:         len(steps) + 1,
			Title:          title,
			Instruction:    fencedBlockAfterLabel(body, "prompt:"),
			ExpectedOutput: bulletsAfterLabel(body, "expected output:"),
			DecisionPoint:  textAfterLabel(body, "decision point:"),
		})
	}

	for i, line := range lines {
		if m := stepHeadingRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush(i)
			title = strings.TrimSpace(m[2])
			start = i + 1
		}
	}
	flush(len(lines))

	return steps
}

// SourceStepNumber parses the numeric label of a step heading line, used by
// tests to confirm labels are read but not trusted for ordering.
func SourceStepNumber(line string) (int, bool) {
	m := stepHeadingRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// fencedBlockAfter returns the content of the first ``` fence inside the
// section whose heading contains name (case-insensitive).
func fencedBlockAfter(lines []string, name string) string {
	body := sectionBody(lines, name)
	return firstFence(body)
}

// sectionBody returns the lines between the heading containing name and the
// next heading or horizontal rule.
func sectionBody(lines []string, name string) []string {
	start := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		m := headingRe.FindStringSubmatch(trimmed)
		if start < 0 {
			if m != nil && strings.Contains(strings.ToLower(m[1]), name) {
				start = i + 1
			}
			continue
		}
		if m != nil || hruleRe.MatchString(trimmed) {
			return lines[start:i]
		}
	}
	if start < 0 {
		return nil
	}
	return lines[start:]
}

// bulletsUnder returns the bullet items inside the named section.
func bulletsUnder(lines []string, name string) []string {
	var out []string
	for _, line := range sectionBody(lines, name) {
		if m := bulletRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	return out
}

// firstFence returns the content of the first ``` fenced block in lines.
func firstFence(lines []string) string {
	var block []string
	open := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if open {
				return strings.TrimSpace(strings.Join(block, "\n"))
			}
			open = true
			continue
		}
		if open {
			block = append(block, line)
		}
	}
	if open {
		return strings.TrimSpace(strings.Join(block, "\n"))
	}
	return ""
}

// labelIndex finds the line whose trimmed lowercase form starts with label,
// matching both plain "Prompt:" and emphasised "**Prompt:**" forms.
func labelIndex(lines []string, label string) int {
	for i, line := range lines {
		norm := strings.ToLower(strings.Trim(strings.TrimSpace(line), "*_"))
		if strings.HasPrefix(norm, label) {
			return i
		}
	}
	return -1
}

// fencedBlockAfterLabel returns the first fenced block following the label.
func fencedBlockAfterLabel(lines []string, label string) string {
	i := labelIndex(lines, label)
	if i < 0 {
		return ""
	}
	return firstFence(lines[i+1:])
}

// bulletsAfterLabel returns the bullet run immediately following the label.
func bulletsAfterLabel(lines []string, label string) []string {
	i := labelIndex(lines, label)
	if i < 0 {
		return nil
	}
	var out []string
	for _, line := range lines[i+1:] {
		trimmed := strings.TrimSpace(line)
		if m := bulletRe.FindStringSubmatch(trimmed); m != nil {
			out = append(out, strings.TrimSpace(m[1]))
			continue
		}
		if trimmed == "" && len(out) == 0 {
			continue
		}
		break
	}
	return out
}

// textAfterLabel returns inline text on the label line, else the first
// non-blank line after it.
func textAfterLabel(lines []string, label string) string {
	i := labelIndex(lines, label)
	if i < 0 {
		return ""
	}
	norm := strings.Trim(strings.TrimSpace(lines[i]), "*_")
	if rest := strings.TrimSpace(strings.TrimLeft(norm[len(label):], "*_ ")); rest != "" {
		return rest
	}
	for _, line := range lines[i+1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if headingRe.MatchString(trimmed) {
			return ""
		}
		return trimmed
	}
	return ""
}
