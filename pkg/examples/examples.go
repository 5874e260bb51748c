package examples

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/templating"
)

const (
	// MetadataFile describes an example.
	MetadataFile = "example.yaml"

	// ScriptFile is the example's script template.
	ScriptFile = "app.star"
)

//go:embed data
var builtinFS embed.FS

// Example is a bundled project template: metadata, default properties and
// an optional script template rendered with those properties.
type Example struct {
	Name        string                 `yaml:"name" json:"name" validate:"required"`
	Description string                 `yaml:"description" json:"description"`
	Async       bool                   `yaml:"async" json:"async"`
	Props       map[string]interface{} `yaml:"props" json:"props"`

	// Script is the raw app.star template, empty when the example has none.
	Script string `yaml:"-" json:"-"`
	Source string `yaml:"-" json:"source"`
}

// HasScript reports whether the example ships an app.star.
func (e *Example) HasScript() bool {
	return e.Script != ""
}

// MergeProps returns the example defaults overridden by props.
func (e *Example) MergeProps(props map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(e.Props)+len(props))
	for k, v := range e.Props {
		merged[k] = v
	}
	for k, v := range props {
		merged[k] = v
	}
	return merged
}

// MissingProps lists, sorted, the default properties props does not set.
func (e *Example) MissingProps(props map[string]interface{}) []string {
	var missing []string
	for k := range e.Props {
		if _, ok := props[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

// RenderScript renders the script template with the merged properties.
func (e *Example) RenderScript(templates *templating.Engine, props map[string]interface{}) (string, error) {
	if !e.HasScript() {
		return "", nil
	}
	out, err := templates.Render(e.Script, e.MergeProps(props))
	if err != nil {
		return "", engine.NewParseError(fmt.Sprintf("failed to render script of example %q", e.Name), err).
			WithResource(path.Join(e.Source, ScriptFile))
	}
	return out, nil
}

// Registry holds the examples of one invocation, keyed by name.
type Registry struct {
	examples map[string]*Example
}

// Load reads every directory of fsys that carries an example.yaml.
func Load(fsys fs.FS) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read examples: %w", err)
	}

	validate := validator.New()
	r := &Registry{examples: make(map[string]*Example)}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		ex, err := loadExample(fsys, entry.Name(), validate)
		if err != nil {
			return nil, err
		}
		if ex == nil {
			continue
		}
		r.examples[ex.Name] = ex
	}
	return r, nil
}

// LoadBuiltin loads the embedded examples.
func LoadBuiltin() (*Registry, error) {
	sub, err := fs.Sub(builtinFS, "data")
	if err != nil {
		return nil, fmt.Errorf("embedded examples: %w", err)
	}
	return Load(sub)
}

func loadExample(fsys fs.FS, dir string, validate *validator.Validate) (*Example, error) {
	data, err := fs.ReadFile(fsys, path.Join(dir, MetadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read example %s: %w", dir, err)
	}

	var ex Example
	if err := yaml.Unmarshal(data, &ex); err != nil {
		return nil, engine.NewParseError(fmt.Sprintf("failed to parse example %s", dir), err)
	}
	if err := validate.Struct(&ex); err != nil {
		return nil, engine.NewParseError(fmt.Sprintf("invalid example %s", dir), err)
	}
	// Directory names are the lookup key of embedded templates.
	if ex.Name != dir {
		return nil, engine.Errorf(engine.ErrCodeParse, "example %q lives in directory %q", ex.Name, dir)
	}
	if ex.Props == nil {
		ex.Props = make(map[string]interface{})
	}
	ex.Source = dir

	script, err := fs.ReadFile(fsys, path.Join(dir, ScriptFile))
	switch {
	case err == nil:
		ex.Script = string(script)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read script of example %s: %w", dir, err)
	}
	return &ex, nil
}

// Get returns the example called name.
func (r *Registry) Get(name string) (*Example, bool) {
	if r == nil {
		return nil, false
	}
	ex, ok := r.examples[name]
	return ex, ok
}

// Names returns example names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.examples))
	for name := range r.examples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
