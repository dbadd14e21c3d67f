package library

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/storage"
)

// ValidateSaveRequest checks the fields that must fail closed before any
// write happens. Name and subcategory are sanitized rather than rejected,
// so only category and content are hard requirements.
func ValidateSaveRequest(req models.SaveRequest) error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Category, validation.Required, validation.By(func(v any) error {
			_, err := models.ParseCategory(v.(string))
			return err
		})),
		validation.Field(&req.Name, validation.Required),
		validation.Field(&req.Content, validation.Required),
	)
}

// Save validates the request, sanitizes its name and subcategory into safe
// path segments, writes the content beneath the library root, and registers
// the new item identically to a scan result. An invalid category fails
// without touching disk or index.
func (l *Library) Save(req models.SaveRequest) (*models.Item, error) {
	if err := ValidateSaveRequest(req); err != nil {
		return nil, fmt.Errorf("library: %w: %s", apperr.ErrInvalidRequest, err)
	}
	cat, err := models.ParseCategory(req.Category)
	if err != nil {
		return nil, apperr.ErrInvalidCategory
	}

	name := storage.Sanitize(req.Name, false)
	sub := storage.Sanitize(req.Subcategory, true)

	segs := []string{string(cat)}
	if sub != "" {
		segs = append(segs, sub)
	}
	segs = append(segs, name+".md")
	rel := strings.Join(segs, "/")

	if _, err := l.store.Read(rel); err == nil {
		return nil, apperr.ErrAlreadyExists
	}

	content := req.Content
	if block := frontmatterBlock(req.Metadata); block != "" {
		content = block + content
	}

	if err := l.store.Write(rel, []byte(content)); err != nil {
		return nil, err
	}
	if err := l.Upsert(rel); err != nil {
		return nil, err
	}

	id, _, _ := identify(rel)
	item, _ := l.Item(id)
	return item, nil
}

// frontmatterBlock reconstructs a YAML frontmatter block from caller-supplied
// metadata, or returns "" when there is nothing to declare.
func frontmatterBlock(meta models.Metadata) string {
	fm := make(map[string]any)
	if meta.Title != "" {
		fm["title"] = meta.Title
	}
	if meta.Description != "" {
		fm["description"] = meta.Description
	}
	if len(meta.Tags) > 0 {
		fm["tags"] = meta.Tags
	}
	if len(meta.Aliases) > 0 {
		fm["aliases"] = meta.Aliases
	}
	for k, v := range meta.Extra {
		fm[k] = v
	}
	if len(fm) == 0 {
		return ""
	}
	out, err := yaml.Marshal(fm)
	if err != nil {
		return ""
	}
	return "---\n" + string(out) + "---\n\n"
}
