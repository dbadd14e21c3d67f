package library

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/models"
)

// scanBatchLimit bounds how many files are read and parsed concurrently
// during a full scan. Parsing is independent per file; results are merged
// back into the index sequentially.
const scanBatchLimit = 16

// Category boosts applied to the base search weight. Items with tags or a
// description get a further small bonus for being better curated.
var categoryBoost = map[models.Category]float64{
	models.CategoryPrompts:   1.2,
	models.CategorySkills:    1.1,
	models.CategoryChains:    1.0,
	models.CategoryTemplates: 1.0,
}

func weight(item *models.Item) float64 {
	w := 1.0 * categoryBoost[item.Category]
	if len(item.Metadata.Tags) > 0 {
		w *= 1.1
	}
	if item.Metadata.Description != "" {
		w *= 1.1
	}
	return w
}

// skipFile reports whether a library file is excluded from indexing:
// directory indexes, readmes, and dotfiles.
func skipFile(rel string) bool {
	base := strings.ToLower(path.Base(rel))
	return base == "readme.md" || base == "index.md" || strings.HasPrefix(base, ".")
}

// Scan enumerates every file under the fixed category directories, parses
// them in bounded batches, and rebuilds all four substructures. A file that
// fails to parse is logged and skipped; it never aborts the scan.
func (l *Library) Scan(ctx context.Context) error {
	var metas []models.FileMeta
	for _, cat := range models.Categories() {
		catMetas, err := l.store.List(string(cat))
		if err != nil {
			l.logger.Warn("scan: list category failed",
				slog.String("category", string(cat)),
				slog.String("error", err.Error()))
			continue
		}
		metas = append(metas, catMetas...)
	}

	var (
		mu     sync.Mutex
		parsed []*models.Item
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanBatchLimit)
	for _, m := range metas {
		if skipFile(m.Path) {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := l.store.Read(m.Path)
			if err != nil {
				l.logger.Warn("scan: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
				return nil
			}
			item, err := buildItem(m.Path, data)
			if err != nil {
				l.logger.Warn("scan: skipped", slog.String("path", m.Path), slog.String("error", err.Error()))
				return nil
			}
			item.UpdatedAt = m.UpdatedAt
			mu.Lock()
			parsed = append(parsed, item)
			mu.Unlock()
			l.logger.Debug("scan: indexed", slog.String("id", item.ID))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Merge phase: swap in the freshly built substructures atomically.
	l.mu.Lock()
	l.reset()
	for _, item := range parsed {
		l.insertLocked(item)
	}
	chains := len(l.workflows)
	l.mu.Unlock()

	l.logger.Info("scan: complete",
		slog.Int("items", len(parsed)),
		slog.Int("chains", chains))
	return nil
}
