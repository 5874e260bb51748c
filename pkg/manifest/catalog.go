package manifest

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/espforge/espforge/pkg/engine"
)

//go:embed data
var builtinFS embed.FS

// BuiltinFS returns the manifests shipped with the binary, rooted so that
// components/, globals/ and devices/ are top-level directories.
func BuiltinFS() fs.FS {
	sub, err := fs.Sub(builtinFS, "data")
	if err != nil {
		panic(fmt.Sprintf("embedded manifests: %v", err))
	}
	return sub
}

// Catalog is the merged, read-only set of manifests for one invocation.
type Catalog struct {
	manifests map[string]*Manifest
}

// NewCatalog merges manifest sets into a catalog. Two manifests with the same
// name are a DUPLICATE_MANIFEST error naming both sources.
func NewCatalog(sets ...[]*Manifest) (*Catalog, error) {
	c := &Catalog{manifests: make(map[string]*Manifest)}
	for _, set := range sets {
		for _, m := range set {
			if err := c.add(m); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Catalog) add(m *Manifest) error {
	if prev, exists := c.manifests[m.Name]; exists {
		return engine.Errorf(engine.ErrCodeDuplicateManifest,
			"manifest %q already registered from %s", m.Name, prev.Source).
			WithResource(m.Source).
			WithDetail("first", prev.Source).
			WithDetail("second", m.Source)
	}
	c.manifests[m.Name] = m
	return nil
}

// LoadFS loads the components, globals and devices directories of fsys.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	loader := NewLoader()
	sets := make([][]*Manifest, 0, len(Categories))
	for _, category := range Categories {
		set, err := loader.LoadCategory(fsys, string(category), category)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return NewCatalog(sets...)
}

// LoadBuiltin loads the embedded manifests.
func LoadBuiltin() (*Catalog, error) {
	return LoadFS(BuiltinFS())
}

// Extend returns a new catalog holding c plus the manifests of extra.
// Name collisions with c are errors, never overrides.
func (c *Catalog) Extend(extra fs.FS) (*Catalog, error) {
	other, err := LoadFS(extra)
	if err != nil {
		return nil, err
	}
	merged := &Catalog{manifests: make(map[string]*Manifest, len(c.manifests)+len(other.manifests))}
	for _, name := range c.Names() {
		merged.manifests[name] = c.manifests[name]
	}
	for _, name := range other.Names() {
		if err := merged.add(other.manifests[name]); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// Get returns the manifest called name.
func (c *Catalog) Get(name string) (*Manifest, bool) {
	if c == nil {
		return nil, false
	}
	m, ok := c.manifests[name]
	return m, ok
}

// Names returns all manifest names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.manifests))
	for name := range c.manifests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns manifests sorted by category order then name. An empty
// category returns every manifest.
func (c *Catalog) List(category Category) []*Manifest {
	rank := make(map[Category]int, len(Categories))
	for i, cat := range Categories {
		rank[cat] = i
	}
	out := make([]*Manifest, 0, len(c.manifests))
	for _, m := range c.manifests {
		if category != "" && m.Category != category {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return rank[out[i].Category] < rank[out[j].Category]
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Len returns the number of manifests.
func (c *Catalog) Len() int {
	return len(c.manifests)
}
