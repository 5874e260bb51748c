package manifest

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Category is the directory a manifest was loaded from.
type Category string

const (
	CategoryComponent Category = "components"
	CategoryGlobal    Category = "globals"
	CategoryDevice    Category = "devices"
)

// Categories lists categories in load order.
var Categories = []Category{CategoryComponent, CategoryGlobal, CategoryDevice}

// ParameterType tags how a parameter value is resolved.
type ParameterType string

const (
	ParamGpioRef         ParameterType = "GpioRef"
	ParamSpiRef          ParameterType = "SpiRef"
	ParamSpiComponentRef ParameterType = "SpiComponentRef"
	ParamI2cRef          ParameterType = "I2cRef"
	ParamI2cComponentRef ParameterType = "I2cComponentRef"
	ParamUartRef         ParameterType = "UartRef"
	ParamString          ParameterType = "String"
	ParamInteger         ParameterType = "Integer"
	ParamBoolean         ParameterType = "Boolean"
)

// ParameterTypes is the closed set of parameter tags.
var ParameterTypes = []ParameterType{
	ParamGpioRef,
	ParamSpiRef,
	ParamSpiComponentRef,
	ParamI2cRef,
	ParamI2cComponentRef,
	ParamUartRef,
	ParamString,
	ParamInteger,
	ParamBoolean,
}

// Valid reports whether t is one of ParameterTypes.
func (t ParameterType) Valid() bool {
	for _, known := range ParameterTypes {
		if t == known {
			return true
		}
	}
	return false
}

// UnmarshalYAML rejects tags outside the closed set.
func (t *ParameterType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	pt := ParameterType(s)
	if !pt.Valid() {
		return fmt.Errorf("line %d: unknown parameter type %q", node.Line, s)
	}
	*t = pt
	return nil
}

// Manifest describes a component, global helper or device type.
type Manifest struct {
	// Name is the unique key referenced by instance `using` fields and global actions.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Requires lists dependency identifiers added to the render context includes.
	Requires []string `yaml:"requires" json:"requires"`

	// Parameters is the parameter schema for instances.
	Parameters []ParameterDef `yaml:"parameters" json:"parameters" validate:"dive"`

	// SetupTemplate renders instance initialization with {name, params}.
	SetupTemplate string `yaml:"setup_template" json:"setup_template"`

	// Methods are action templates rendered with {target, args}.
	Methods map[string]MethodDef `yaml:"methods" json:"methods" validate:"dive"`

	// Category and Source record where the manifest was loaded from.
	Category Category `yaml:"-" json:"category"`
	Source   string   `yaml:"-" json:"source"`
}

// ParameterDef is one entry of a manifest's parameter schema.
type ParameterDef struct {
	Name     string        `yaml:"name" json:"name" validate:"required"`
	Type     ParameterType `yaml:"type" json:"type" validate:"required"`
	Required bool          `yaml:"required" json:"required"`
}

// MethodDef is an action template.
type MethodDef struct {
	Template string `yaml:"template" json:"template" validate:"required"`
}

// HasMethod reports whether the manifest defines method.
func (m *Manifest) HasMethod(method string) bool {
	_, ok := m.Methods[method]
	return ok
}

// MethodNames returns method names in sorted order.
func (m *Manifest) MethodNames() []string {
	names := make([]string, 0, len(m.Methods))
	for name := range m.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parameter returns the parameter definition called name.
func (m *Manifest) Parameter(name string) (ParameterDef, bool) {
	for _, p := range m.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterDef{}, false
}
