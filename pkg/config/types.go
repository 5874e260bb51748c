package config

import (
	"sort"

	"gopkg.in/yaml.v3"
)

// Pin numbers and electrical defaults applied when a field is omitted.
const (
	// UnusedPin marks an optional SPI line (MISO, CS) that is not wired.
	UnusedPin = 255

	DefaultSPIFrequency = 1_000_000
	DefaultI2CFrequency = 100
	DefaultUARTBaud     = 115200
)

// ProjectConfig is the root of a project document.
type ProjectConfig struct {
	// Espforge holds project metadata.
	Espforge ProjectMeta `yaml:"espforge" json:"espforge"`

	// Example selects a bundled example template.
	Example *ExampleConfig `yaml:"example,omitempty" json:"example,omitempty"`

	// Hardware is the board peripheral namespace that $name references resolve against.
	Hardware *HardwareConfig `yaml:"esp32,omitempty" json:"esp32,omitempty"`

	// Components are logical components built on hardware resources.
	Components map[string]Instance `yaml:"components,omitempty" json:"components,omitempty" validate:"omitempty,dive"`

	// Devices are drivers built on components.
	Devices map[string]Instance `yaml:"devices,omitempty" json:"devices,omitempty" validate:"omitempty,dive"`

	// App describes application behavior as declarative action lists.
	App *AppConfig `yaml:"app,omitempty" json:"app,omitempty"`
}

// ProjectMeta is the espforge: section.
type ProjectMeta struct {
	Name        string       `yaml:"name" json:"name" validate:"required"`
	Platform    Platform     `yaml:"platform" json:"platform" validate:"required,platform"`
	EnableAsync bool         `yaml:"enable_async,omitempty" json:"enable_async,omitempty"`
	Wokwi       *WokwiConfig `yaml:"wokwi,omitempty" json:"wokwi,omitempty"`
}

// WokwiConfig points at simulator files shipped with the project.
type WokwiConfig struct {
	Diagram string `yaml:"diagram,omitempty" json:"diagram,omitempty"`
	Config  string `yaml:"config,omitempty" json:"config,omitempty"`
}

// ExampleConfig selects an embedded example and its properties.
type ExampleConfig struct {
	Name  string                 `yaml:"name" json:"name" validate:"required"`
	Props map[string]interface{} `yaml:"props,omitempty" json:"props,omitempty"`
}

// HardwareConfig holds the name-keyed peripheral maps.
type HardwareConfig struct {
	GPIO map[string]GPIOConfig `yaml:"gpio,omitempty" json:"gpio,omitempty" validate:"omitempty,dive"`
	SPI  map[string]SPIConfig  `yaml:"spi,omitempty" json:"spi,omitempty" validate:"omitempty,dive"`
	I2C  map[string]I2CConfig  `yaml:"i2c,omitempty" json:"i2c,omitempty" validate:"omitempty,dive"`
	UART map[string]UARTConfig `yaml:"uart,omitempty" json:"uart,omitempty" validate:"omitempty,dive"`
}

// GPIOConfig describes one pin.
type GPIOConfig struct {
	Pin       int    `yaml:"pin" json:"pin" validate:"gte=0"`
	Direction string `yaml:"direction,omitempty" json:"direction,omitempty" validate:"omitempty,oneof=input output"`
	Pullup    bool   `yaml:"pullup,omitempty" json:"pullup,omitempty"`
	Pulldown  bool   `yaml:"pulldown,omitempty" json:"pulldown,omitempty"`
}

// SPIConfig describes one SPI bus.
type SPIConfig struct {
	SPI       int `yaml:"spi" json:"spi" validate:"gte=0"`
	MISO      int `yaml:"miso" json:"miso" validate:"gte=0"`
	MOSI      int `yaml:"mosi" json:"mosi" validate:"gte=0"`
	SCK       int `yaml:"sck" json:"sck" validate:"gte=0"`
	CS        int `yaml:"cs" json:"cs" validate:"gte=0"`
	Frequency int `yaml:"frequency" json:"frequency" validate:"gt=0"`
	Mode      int `yaml:"mode" json:"mode" validate:"gte=0,lte=3"`
}

// UnmarshalYAML applies bus defaults before decoding.
func (s *SPIConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain SPIConfig
	v := plain{MISO: UnusedPin, CS: UnusedPin, Frequency: DefaultSPIFrequency}
	if err := node.Decode(&v); err != nil {
		return err
	}
	*s = SPIConfig(v)
	return nil
}

// I2CConfig describes one I2C bus. Frequency is in kHz.
type I2CConfig struct {
	I2C       int `yaml:"i2c" json:"i2c" validate:"gte=0"`
	SDA       int `yaml:"sda" json:"sda" validate:"gte=0"`
	SCL       int `yaml:"scl" json:"scl" validate:"gte=0"`
	Frequency int `yaml:"frequency" json:"frequency" validate:"gt=0"`
}

// UnmarshalYAML applies bus defaults before decoding.
func (c *I2CConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain I2CConfig
	v := plain{Frequency: DefaultI2CFrequency}
	if err := node.Decode(&v); err != nil {
		return err
	}
	*c = I2CConfig(v)
	return nil
}

// UARTConfig describes one UART port.
type UARTConfig struct {
	UART int `yaml:"uart" json:"uart" validate:"gte=0"`
	TX   int `yaml:"tx" json:"tx" validate:"gte=0"`
	RX   int `yaml:"rx" json:"rx" validate:"gte=0"`
	Baud int `yaml:"baud" json:"baud" validate:"gt=0"`
}

// UnmarshalYAML applies port defaults before decoding.
func (u *UARTConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain UARTConfig
	v := plain{Baud: DefaultUARTBaud}
	if err := node.Decode(&v); err != nil {
		return err
	}
	*u = UARTConfig(v)
	return nil
}

// Instance is a component or device: a manifest name plus parameter values.
// With values are literals or $name references.
type Instance struct {
	Using string                 `yaml:"using" json:"using" validate:"required"`
	With  map[string]interface{} `yaml:"with,omitempty" json:"with,omitempty"`
}

// AppConfig is the app: section.
type AppConfig struct {
	Variables map[string]VariableDef `yaml:"variables,omitempty" json:"variables,omitempty"`
	Setup     []Action               `yaml:"setup,omitempty" json:"setup,omitempty"`
	Loop      []Action               `yaml:"loop,omitempty" json:"loop,omitempty"`
}

// VariableDef declares one state variable.
type VariableDef struct {
	Type    string      `yaml:"type" json:"type"`
	Initial interface{} `yaml:"initial,omitempty" json:"initial,omitempty"`
}

// Action is one entry of an action list: a mapping expected to hold a single key.
type Action map[string]interface{}

// Single returns the action's only key and value. ok is false when the
// mapping is empty or has more than one key.
func (a Action) Single() (key string, value interface{}, ok bool) {
	if len(a) != 1 {
		return "", nil, false
	}
	for k, v := range a {
		return k, v, true
	}
	return "", nil, false
}

// ComponentNames returns component instance names in sorted order.
func (c *ProjectConfig) ComponentNames() []string {
	return sortedKeys(c.Components)
}

// DeviceNames returns device instance names in sorted order.
func (c *ProjectConfig) DeviceNames() []string {
	return sortedKeys(c.Devices)
}

// LookupInstance finds a component or device by name. Components shadow devices.
func (c *ProjectConfig) LookupInstance(name string) (Instance, bool) {
	if inst, ok := c.Components[name]; ok {
		return inst, true
	}
	inst, ok := c.Devices[name]
	return inst, ok
}

// VariableDeclared reports whether name is declared in app.variables.
func (c *ProjectConfig) VariableDeclared(name string) bool {
	if c.App == nil {
		return false
	}
	_, ok := c.App.Variables[name]
	return ok
}

// VariableNames returns app.variables names in sorted order.
func (c *ProjectConfig) VariableNames() []string {
	if c.App == nil {
		return nil
	}
	return sortedKeys(c.App.Variables)
}

// HasResource reports whether name exists in any hardware map.
func (h *HardwareConfig) HasResource(name string) bool {
	if h == nil {
		return false
	}
	if _, ok := h.GPIO[name]; ok {
		return true
	}
	if _, ok := h.SPI[name]; ok {
		return true
	}
	if _, ok := h.I2C[name]; ok {
		return true
	}
	_, ok := h.UART[name]
	return ok
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
