// Package library owns the in-memory content index: items, category and tag
// partitions, search entries, and parsed workflows. All mutation goes through
// this package so the four substructures stay mutually consistent.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/raido/internal/checksum"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/parser"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/workflow"
)

// ChangeFunc is called after a watcher- or save-driven index change.
// kind is one of "created", "updated", "deleted".
type ChangeFunc func(kind string, id string)

// Library is the aggregate root of the content index.
type Library struct {
	store    storage.Provider
	logger   *slog.Logger
	onChange ChangeFunc

	mu         sync.RWMutex
	items      map[string]*models.Item
	byCategory map[models.Category][]string
	byTag      map[string][]string
	entries    []models.SearchEntry
	workflows  map[string]*models.Workflow

	ready     atomic.Bool
	initGroup singleflight.Group
}

// New creates a Library over the given storage provider. The index is empty
// until EnsureReady or Scan runs.
func New(store storage.Provider, logger *slog.Logger) *Library {
	l := &Library{
		store:  store,
		logger: logger,
	}
	l.reset()
	return l
}

// OnChange registers a callback invoked after every incremental mutation.
func (l *Library) OnChange(fn ChangeFunc) {
	l.onChange = fn
}

func (l *Library) reset() {
	l.items = make(map[string]*models.Item)
	l.byCategory = make(map[models.Category][]string)
	l.byTag = make(map[string][]string)
	l.entries = nil
	l.workflows = make(map[string]*models.Workflow)
}

// EnsureReady lazily runs the initial scan exactly once. Concurrent callers
// arriving before the first scan completes all await the same in-flight scan.
func (l *Library) EnsureReady(ctx context.Context) error {
	if l.ready.Load() {
		return nil
	}
	_, err, _ := l.initGroup.Do("scan", func() (any, error) {
		if l.ready.Load() {
			return nil, nil
		}
		if err := l.Scan(ctx); err != nil {
			return nil, err
		}
		l.ready.Store(true)
		return nil, nil
	})
	return err
}

// Item returns the item with the given identifier.
func (l *Library) Item(id string) (*models.Item, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	it, ok := l.items[id]
	return it, ok
}

// ByCategory returns every item in the given category.
func (l *Library) ByCategory(cat models.Category) []*models.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := l.byCategory[cat]
	out := make([]*models.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.items[id])
	}
	return out
}

// ByTag returns every item carrying the given tag.
func (l *Library) ByTag(tag string) []*models.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []*models.Item
	for _, id := range l.byTag[strings.ToLower(tag)] {
		out = append(out, l.items[id])
	}
	return out
}

// All returns every indexed item.
func (l *Library) All() []*models.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*models.Item, 0, len(l.items))
	for _, it := range l.items {
		out = append(out, it)
	}
	return out
}

// Entries returns a snapshot of the flat search-entry list.
func (l *Library) Entries() []models.SearchEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.SearchEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Workflow returns the parsed workflow with the given identifier.
func (l *Library) Workflow(id string) (*models.Workflow, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	wf, ok := l.workflows[id]
	return wf, ok
}

// Workflows returns every parsed workflow.
func (l *Library) Workflows() []*models.Workflow {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*models.Workflow, 0, len(l.workflows))
	for _, wf := range l.workflows {
		out = append(out, wf)
	}
	return out
}

// Stats summarises the index contents.
func (l *Library) Stats() models.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st := models.Stats{
		Total:      len(l.items),
		ByCategory: make(map[models.Category]int),
		Tags:       len(l.byTag),
		Chains:     len(l.workflows),
	}
	for cat, ids := range l.byCategory {
		st.ByCategory[cat] = len(ids)
	}
	return st
}

// Upsert re-parses the single file at rel and replaces any prior entry with
// the same identifier across all substructures. Used by the initial scan's
// merge phase, the watcher, and Save.
func (l *Library) Upsert(rel string) error {
	data, err := l.store.Read(rel)
	if err != nil {
		return err
	}
	item, err := buildItem(rel, data)
	if err != nil {
		return err
	}

	l.mu.Lock()
	_, existed := l.items[item.ID]
	l.insertLocked(item)
	l.mu.Unlock()

	kind := "created"
	if existed {
		kind = "updated"
	}
	if l.onChange != nil {
		l.onChange(kind, item.ID)
	}
	return nil
}

// Remove deletes the item for the file at rel from all substructures,
// including its parsed workflow when present.
func (l *Library) Remove(rel string) {
	id, _, err := identify(rel)
	if err != nil {
		return
	}

	l.mu.Lock()
	_, existed := l.items[id]
	if existed {
		l.removeLocked(id)
	}
	l.mu.Unlock()

	if existed && l.onChange != nil {
		l.onChange("deleted", id)
	}
}

// insertLocked replaces the item across items, byCategory, byTag, entries,
// and workflows. Caller holds the write lock.
func (l *Library) insertLocked(item *models.Item) {
	if _, ok := l.items[item.ID]; ok {
		l.removeLocked(item.ID)
	}
	l.items[item.ID] = item
	l.byCategory[item.Category] = append(l.byCategory[item.Category], item.ID)
	for _, tag := range item.Metadata.Tags {
		key := strings.ToLower(tag)
		l.byTag[key] = append(l.byTag[key], item.ID)
	}
	l.entries = append(l.entries, models.SearchEntry{
		ID:     item.ID,
		Blob:   item.SearchBlob,
		Weight: weight(item),
	})
	if item.Category == models.CategoryChains {
		l.workflows[item.ID] = workflow.Parse(item)
	}
}

// removeLocked drops id from every substructure. Caller holds the write lock.
func (l *Library) removeLocked(id string) {
	item := l.items[id]
	delete(l.items, id)
	l.byCategory[item.Category] = withoutID(l.byCategory[item.Category], id)
	for _, tag := range item.Metadata.Tags {
		key := strings.ToLower(tag)
		l.byTag[key] = withoutID(l.byTag[key], id)
		if len(l.byTag[key]) == 0 {
			delete(l.byTag, key)
		}
	}
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			break
		}
	}
	delete(l.workflows, id)
}

func withoutID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// identify derives (id, category) from a library-relative file path.
// Files outside the fixed category directories are rejected.
func identify(rel string) (string, models.Category, error) {
	rel = path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	parts := strings.Split(rel, "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("library: path outside category dirs: %s", rel)
	}
	cat, err := models.ParseCategory(parts[0])
	if err != nil {
		return "", "", err
	}
	parts[len(parts)-1] = strings.TrimSuffix(parts[len(parts)-1], ".md")
	return strings.Join(parts, "/"), cat, nil
}

// buildItem parses raw file content into a fully derived Item.
func buildItem(rel string, data []byte) (*models.Item, error) {
	id, cat, err := identify(rel)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(id, "/")
	name := parts[len(parts)-1]
	sub := strings.Join(parts[1:len(parts)-1], "/")

	res := parser.Parse(data)

	item := &models.Item{
		ID:          id,
		Name:        name,
		Category:    cat,
		Subcategory: sub,
		Path:        rel,
		Content:     string(data),
		Body:        res.Body,
		Metadata:    res.Metadata,
		Checksum:    checksum.Sum(data),
		UpdatedAt:   time.Now(),
	}
	item.SearchBlob = parser.Blob(
		item.Name,
		string(item.Category),
		item.Subcategory,
		item.Metadata.Title,
		item.Metadata.Description,
		strings.Join(item.Metadata.Tags, " "),
		strings.Join(item.Metadata.Aliases, " "),
		item.Body,
	)
	return item, nil
}
