package resolver

import (
	"fmt"
	"strings"

	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/manifest"
)

// ParameterStrategy resolves one raw `with` value for a parameter type.
type ParameterStrategy interface {
	Resolve(raw interface{}, rc *ResolutionContext) (interface{}, error)
}

// ParameterStrategyFunc adapts a function to ParameterStrategy.
type ParameterStrategyFunc func(raw interface{}, rc *ResolutionContext) (interface{}, error)

// Resolve calls f.
func (f ParameterStrategyFunc) Resolve(raw interface{}, rc *ResolutionContext) (interface{}, error) {
	return f(raw, rc)
}

// ParameterRegistry maps each parameter type to its strategy.
type ParameterRegistry struct {
	strategies map[manifest.ParameterType]ParameterStrategy
}

// NewParameterRegistry returns a registry holding every built-in strategy.
func NewParameterRegistry() *ParameterRegistry {
	r := NewEmptyParameterRegistry()
	r.Register(manifest.ParamGpioRef, hardwareRef("GPIO", lookupGPIO))
	r.Register(manifest.ParamSpiRef, hardwareRef("SPI", lookupSPI))
	r.Register(manifest.ParamI2cRef, hardwareRef("I2C", lookupI2C))
	r.Register(manifest.ParamUartRef, hardwareRef("UART", lookupUART))
	r.Register(manifest.ParamSpiComponentRef, componentRef("SPI"))
	r.Register(manifest.ParamI2cComponentRef, componentRef("I2C"))
	r.Register(manifest.ParamString, passthrough)
	r.Register(manifest.ParamInteger, passthrough)
	r.Register(manifest.ParamBoolean, passthrough)
	return r
}

// NewEmptyParameterRegistry returns a registry with no strategies.
func NewEmptyParameterRegistry() *ParameterRegistry {
	return &ParameterRegistry{strategies: make(map[manifest.ParameterType]ParameterStrategy)}
}

// Register sets the strategy for t, replacing any previous one.
func (r *ParameterRegistry) Register(t manifest.ParameterType, s ParameterStrategy) {
	r.strategies[t] = s
}

// Resolve dispatches raw to the strategy registered for t.
func (r *ParameterRegistry) Resolve(t manifest.ParameterType, raw interface{}, rc *ResolutionContext) (interface{}, error) {
	s, ok := r.strategies[t]
	if !ok {
		return nil, engine.Errorf(engine.ErrCodeInternal, "no strategy registered for parameter type %s", t)
	}
	return s.Resolve(raw, rc)
}

// stripReference returns the name of a "$name" reference.
func stripReference(raw interface{}) (string, error) {
	s, ok := raw.(string)
	if !ok || !strings.HasPrefix(s, "$") {
		return "", engine.Errorf(engine.ErrCodeUndefinedReference,
			"Reference must start with '$', got %s", describe(raw))
	}
	name := strings.TrimPrefix(s, "$")
	if name == "" {
		return "", engine.NewError(engine.ErrCodeUndefinedReference, "Reference '$' names nothing")
	}
	return name, nil
}

func describe(raw interface{}) string {
	if s, ok := raw.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", raw)
}

type hardwareLookup func(hw *config.HardwareConfig, name string) (map[string]interface{}, bool)

func hardwareRef(kind string, lookup hardwareLookup) ParameterStrategy {
	return ParameterStrategyFunc(func(raw interface{}, rc *ResolutionContext) (interface{}, error) {
		name, err := stripReference(raw)
		if err != nil {
			return nil, err
		}
		if rc == nil || rc.Hardware == nil {
			return nil, engine.NewError(engine.ErrCodeUndefinedReference,
				"Hardware configuration (esp32) is missing")
		}
		resolved, ok := lookup(rc.Hardware, name)
		if !ok {
			return nil, engine.Errorf(engine.ErrCodeUndefinedReference,
				"Hardware resource '$%s' not found", name).WithDetail("kind", kind)
		}
		return resolved, nil
	})
}

func lookupGPIO(hw *config.HardwareConfig, name string) (map[string]interface{}, bool) {
	g, ok := hw.GPIO[name]
	if !ok {
		return nil, false
	}
	return map[string]interface{}{
		"pin":      g.Pin,
		"pullup":   g.Pullup,
		"pulldown": g.Pulldown,
	}, true
}

func lookupSPI(hw *config.HardwareConfig, name string) (map[string]interface{}, bool) {
	s, ok := hw.SPI[name]
	if !ok {
		return nil, false
	}
	return map[string]interface{}{
		"spi":       s.SPI,
		"miso":      s.MISO,
		"mosi":      s.MOSI,
		"sck":       s.SCK,
		"cs":        s.CS,
		"frequency": s.Frequency,
		"mode":      s.Mode,
	}, true
}

func lookupI2C(hw *config.HardwareConfig, name string) (map[string]interface{}, bool) {
	c, ok := hw.I2C[name]
	if !ok {
		return nil, false
	}
	return map[string]interface{}{
		"i2c":       c.I2C,
		"sda":       c.SDA,
		"scl":       c.SCL,
		"frequency": c.Frequency,
	}, true
}

func lookupUART(hw *config.HardwareConfig, name string) (map[string]interface{}, bool) {
	u, ok := hw.UART[name]
	if !ok {
		return nil, false
	}
	return map[string]interface{}{
		"uart": u.UART,
		"tx":   u.TX,
		"rx":   u.RX,
		"baud": u.Baud,
	}, true
}

// componentRef resolves "$name" to the bare instance name.
func componentRef(kind string) ParameterStrategy {
	return ParameterStrategyFunc(func(raw interface{}, rc *ResolutionContext) (interface{}, error) {
		name, err := stripReference(raw)
		if err != nil {
			return nil, err
		}
		if rc != nil {
			if exists, known := rc.HasComponent(name); known && !exists {
				return nil, engine.Errorf(engine.ErrCodeUndefinedReference,
					"%s component '$%s' not found", kind, name)
			}
		}
		return name, nil
	})
}

var passthrough = ParameterStrategyFunc(func(raw interface{}, _ *ResolutionContext) (interface{}, error) {
	return raw, nil
})
