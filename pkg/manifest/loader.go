package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Loader reads manifest files from a filesystem.
type Loader struct {
	validator *validator.Validate
}

// NewLoader creates a new manifest loader.
func NewLoader() *Loader {
	return &Loader{validator: validator.New()}
}

// LoadCategory reads every *.yaml file under dir, sorted by file name.
// A missing directory yields no manifests.
func (l *Loader) LoadCategory(fsys fs.FS, dir string, category Category) ([]*Manifest, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read manifest directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := path.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	manifests := make([]*Manifest, 0, len(names))
	for _, name := range names {
		source := path.Join(dir, name)
		data, err := fs.ReadFile(fsys, source)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest file %s: %w", source, err)
		}
		m, err := l.Parse(data, source)
		if err != nil {
			return nil, err
		}
		m.Category = category
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// Parse decodes and validates a single manifest.
func (l *Loader) Parse(data []byte, source string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", source, err)
	}
	if err := l.validateManifest(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", source, err)
	}
	m.Source = source
	if m.Methods == nil {
		m.Methods = make(map[string]MethodDef)
	}
	return &m, nil
}

// validateManifest validates tags and parameter name uniqueness.
func (l *Loader) validateManifest(m *Manifest) error {
	if err := l.validator.Struct(m); err != nil {
		return err
	}
	if strings.ContainsAny(m.Name, ". $") {
		return fmt.Errorf("name %q must not contain '.', '$' or spaces", m.Name)
	}
	seen := make(map[string]bool, len(m.Parameters))
	for _, p := range m.Parameters {
		if seen[p.Name] {
			return fmt.Errorf("parameter %q declared twice", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}
