package loam

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/facet/pkg/domain"
	"github.com/aretw0/facet/pkg/registry"
	"github.com/aretw0/loam"
)

// watchPattern matches every document format Loam can decode.
const watchPattern = "**/*.{md,json,yaml,yml}"

// Catalog adapts a Loam repository to a read-only ports.AttributeStore.
// Every document is one category; categories are ordered by document name, which
// is also the stacking order of a random avatar.
type Catalog struct {
	Repo   *loam.TypedRepository[CategoryMetadata]
	logger *slog.Logger

	mu    sync.Mutex
	index map[string][]string // document ID -> variation IDs of the last load
}

// Option configures the catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// New creates a new Loam catalog.
func New(repo *loam.TypedRepository[CategoryMetadata], opts ...Option) *Catalog {
	c := &Catalog{
		Repo:   repo,
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		index:  make(map[string][]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open initializes a read-only Loam repository at dir.
func Open(dir string, opts ...Option) (*Catalog, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode keeps numeric metadata consistent across formats. The catalog is
	// only ever read.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	return New(loam.NewTypedRepository[CategoryMetadata](repo), opts...), nil
}

// Create is not supported.
func (c *Catalog) Create(ctx context.Context, category domain.Category) (*domain.Category, error) {
	return nil, domain.ErrReadOnly
}

// AppendVariations is not supported.
func (c *Catalog) AppendVariations(ctx context.Context, id string, variations []domain.Variation) (*domain.Category, error) {
	return nil, domain.ErrReadOnly
}

// AddColors is not supported.
func (c *Catalog) AddColors(ctx context.Context, id string, colors []string) (*domain.Category, error) {
	return nil, domain.ErrReadOnly
}

// ReplaceVariation is not supported.
func (c *Catalog) ReplaceVariation(ctx context.Context, id string, variation domain.Variation) (*domain.Category, error) {
	return nil, domain.ErrReadOnly
}

// Get retrieves a category by ID.
func (c *Catalog) Get(ctx context.Context, id string) (*domain.Category, error) {
	categories, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if categories[i].ID == id {
			return &categories[i], nil
		}
	}
	return nil, domain.NewAttributeNotFound(id)
}

// KeyExists reports whether a category uses the given key.
func (c *Catalog) KeyExists(ctx context.Context, key string) (bool, error) {
	categories, err := c.List(ctx)
	if err != nil {
		return false, err
	}
	for _, cat := range categories {
		if cat.Key == key {
			return true, nil
		}
	}
	return false, nil
}

// FindVariations returns the variations for ids, in order.
func (c *Catalog) FindVariations(ctx context.Context, ids []string) ([]domain.Variation, error) {
	categories, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Variation)
	for _, cat := range categories {
		for _, v := range cat.Variations {
			byID[v.ID] = v
		}
	}

	out := make([]domain.Variation, 0, len(ids))
	var missing []string
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, v)
	}
	if len(missing) > 0 {
		return nil, domain.NewVariationNotFound(missing...)
	}
	return out, nil
}

// List loads every category document, ordered by document name.
func (c *Catalog) List(ctx context.Context) ([]domain.Category, error) {
	docs, err := c.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	categories := make([]domain.Category, 0, len(docs))
	index := make(map[string][]string, len(docs))
	keys := make(map[string]string)
	variations := make(map[string]string)

	for _, doc := range docs {
		docID := trimExtension(doc.ID)
		cat, err := decodeCategory(docID, doc.Data)
		if err != nil {
			return nil, err
		}

		// Collision Detection
		if other, ok := keys[cat.Key]; ok {
			return nil, fmt.Errorf("collision detected: key '%s' is defined in both '%s' and '%s'", cat.Key, other, docID)
		}
		keys[cat.Key] = docID

		ids := make([]string, len(cat.Variations))
		for i, v := range cat.Variations {
			if other, ok := variations[v.ID]; ok {
				return nil, fmt.Errorf("collision detected: variation '%s' is defined in both '%s' and '%s'", v.ID, other, docID)
			}
			variations[v.ID] = docID
			ids[i] = v.ID
		}
		index[docID] = ids
		categories = append(categories, cat)
	}

	c.mu.Lock()
	c.index = index
	c.mu.Unlock()

	return categories, nil
}

func decodeCategory(docID string, meta CategoryMetadata) (domain.Category, error) {
	id := docID
	if meta.ID != "" {
		id = trimExtension(meta.ID)
	}
	key := meta.Key
	if key == "" {
		key = id
	}

	cat := domain.Category{
		ID:         id,
		Key:        key,
		Colors:     append([]string{}, meta.Colors...),
		Variations: make([]domain.Variation, 0, len(meta.Variations)),
	}
	for i, vm := range meta.Variations {
		if vm.Name == "" && vm.ID == "" {
			return domain.Category{}, fmt.Errorf("document %s: variation %d has neither id nor name", docID, i)
		}
		vid := vm.ID
		if vid == "" {
			vid = key + "-" + vm.Name
		}
		tree, err := registry.SanitizeSVG(vm.SVG)
		if err != nil {
			return domain.Category{}, fmt.Errorf("document %s: variation %q: %w", docID, vid, err)
		}
		cat.Variations = append(cat.Variations, domain.Variation{
			ID:          vid,
			Name:        vm.Name,
			CategoryKey: key,
			Fragment:    tree,
		})
	}
	return cat, nil
}

// WatchFragments implements ports.FragmentWatcher. Each batch holds the variation
// ids a changed document declared before and after the change.
func (c *Catalog) WatchFragments(ctx context.Context) (<-chan []string, error) {
	// Prime the index so the first change knows what was there before.
	if _, err := c.List(ctx); err != nil {
		c.logger.Warn("initial catalog load failed", "err", err)
	}

	events, err := c.Repo.Watch(ctx, watchPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan []string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				ids := c.affected(ctx, trimExtension(evt.ID))
				if len(ids) == 0 {
					continue
				}
				select {
				case ch <- ids:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

func (c *Catalog) affected(ctx context.Context, docID string) []string {
	before := c.indexed(docID)
	if _, err := c.List(ctx); err != nil {
		c.logger.Warn("catalog reload failed", "document", docID, "err", err)
		return before
	}
	after := c.indexed(docID)

	seen := make(map[string]bool, len(before)+len(after))
	out := make([]string, 0, len(before)+len(after))
	for _, id := range append(before, after...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (c *Catalog) indexed(docID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.index[docID]...)
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
