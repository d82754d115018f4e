package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/stepgraph/pkg/domain"
)

// Registrar stores a graph definition and returns its new ID.
// stepgraph.Engine satisfies it.
type Registrar interface {
	CreateGraph(ctx context.Context, def domain.GraphDefinition) (string, error)
}

// Catalog reads graph definitions from a Loam repository.
// Each document (Markdown frontmatter, YAML or JSON) describes one graph; its name
// defaults to the file name without extension.
type Catalog struct {
	Repo *loam.TypedRepository[GraphDocument]
}

// New creates a catalog over an existing typed repository.
func New(repo *loam.TypedRepository[GraphDocument]) *Catalog {
	return &Catalog{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at dir.
// Strict mode keeps integers as json.Number instead of float64.
func Open(dir string) (*Catalog, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[GraphDocument](repo)), nil
}

// Get reads a single graph definition by name.
func (c *Catalog) Get(ctx context.Context, name string) (Entry, error) {
	doc, err := c.Repo.Get(ctx, name)
	if err != nil {
		return Entry{}, fmt.Errorf("loam get failed for %s: %w", name, err)
	}
	return entryOf(doc.ID, doc.Data), nil
}

// Entries lists every graph in the catalog, sorted by name.
// Two documents resolving to the same name are rejected.
func (c *Catalog) Entries(ctx context.Context) ([]Entry, error) {
	docs, err := c.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string, len(docs))
	entries := make([]Entry, 0, len(docs))
	for _, doc := range docs {
		entry := entryOf(doc.ID, doc.Data)
		if existing, ok := seen[entry.Name]; ok {
			return nil, fmt.Errorf("collision detected: graph '%s' is defined in both '%s' and '%s'", entry.Name, existing, doc.ID)
		}
		seen[entry.Name] = doc.ID
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Load registers every catalog graph and returns a map from graph name to the new graph ID.
func (c *Catalog) Load(ctx context.Context, r Registrar) (map[string]string, error) {
	entries, err := c.Entries(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]string, len(entries))
	for _, entry := range entries {
		id, err := r.CreateGraph(ctx, entry.Definition)
		if err != nil {
			return nil, fmt.Errorf("failed to register graph %s: %w", entry.Name, err)
		}
		ids[entry.Name] = id
	}
	return ids, nil
}

func entryOf(docID string, doc GraphDocument) Entry {
	name := doc.Name
	if name == "" {
		name = trimExtension(docID)
	}
	return Entry{
		Name:        name,
		Description: doc.Description,
		Definition:  doc.Definition(),
	}
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
