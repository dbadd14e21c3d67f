package mcpserver

// ItemFormatContract describes the canonical Markdown item format that
// LLM consumers should follow when saving library items.
const ItemFormatContract = `# Raido Item Format Contract

Every Markdown item stored in Raido MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # OPTIONAL – falls back to the first heading
description: One-line summary       # OPTIONAL – shown in search and suggestions
tags:                               # OPTIONAL – YAML list; used for filtering
  - tag-one
  - tag-two
aliases:                            # OPTIONAL – alternative lookup names
  - alt-name
---

# Title

> Optional blockquote description.

Body text in standard Markdown.
` + "```" + `

## Rules

1. **Frontmatter is optional.** When present, the ` + "```" + `---` + "```" + ` fences must be the
   first thing in the file (no leading blank lines).
2. **Category** is the top-level directory: ` + "`" + `prompts` + "`" + `, ` + "`" + `templates` + "`" + `,
   ` + "`" + `skills` + "`" + `, or ` + "`" + `chains` + "`" + `. One optional subdirectory level is allowed.
3. **Tags and aliases** are lowercase, kebab-case (e.g. ` + "`" + `code-review` + "`" + `).
4. **File names** end with ` + "`" + `.md` + "`" + `, use forward slashes, and are derived from
   the item name (lowercase, dashes for spaces).
5. **Encoding** is UTF-8 with a trailing newline.

## Chains

Items under ` + "`" + `chains/` + "`" + ` are parsed as stepped workflows. Each step is a
heading of the form ` + "`" + `## Step N: Title` + "`" + ` followed by instruction text.
Optional labelled sections per step:

- ` + "`" + `**Prompt:**` + "`" + ` – the instruction to execute (fenced block or plain text)
- ` + "`" + `**Expected Output:**` + "`" + ` – what a completed step produces
- ` + "`" + `**Decision Point:**` + "`" + ` – a branching question for the operator

Placeholders ` + "`" + `[Some Name]` + "`" + ` and ` + "`" + `{{some_name}}` + "`" + ` in step text are filled
from the session context at traversal time.

## Example

` + "```" + `markdown
---
description: Structured pass over a pull request
tags:
  - review
---

# Code Review

> Walks a reviewer through diff triage.

## Step 1: Collect

Gather the diff for [Project Name].

**Expected Output:** A diff summary

## Step 2: Review

Review the changes and note findings.
` + "```" + `
`
