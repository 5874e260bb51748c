package nibblers

import (
	"context"

	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/policy"
)

// SchemaNibbler unifies the document with the CUE project schema.
type SchemaNibbler struct {
	schemas *config.SchemaRegistry
}

func (n *SchemaNibbler) Name() string  { return "schema" }
func (n *SchemaNibbler) Priority() int { return 5 }

func (n *SchemaNibbler) Process(ctx context.Context, cfg *config.ProjectConfig) engine.NibblerResult {
	f := newFindings(n.Name())
	if n.schemas == nil {
		return f.result
	}
	violations, err := n.schemas.ValidateProject(ctx, cfg)
	if err != nil {
		f.fail("Schema check failed: %v", err)
		return f.result
	}
	for _, v := range violations {
		f.fail("%s", v)
	}
	if len(violations) == 0 {
		f.info("Document matches schema '%s'.", config.SchemaProject)
	}
	return f.result
}

// HardwareNibbler checks pin ranges against the platform and summarizes buses.
type HardwareNibbler struct{}

func (n *HardwareNibbler) Name() string  { return "hardware" }
func (n *HardwareNibbler) Priority() int { return 10 }

func (n *HardwareNibbler) Process(_ context.Context, cfg *config.ProjectConfig) engine.NibblerResult {
	f := newFindings(n.Name())
	hw := cfg.Hardware
	if hw == nil {
		return f.result
	}

	ceiling := config.GPIOCeiling(cfg.Espforge.Platform)
	for _, name := range sortedKeys(hw.GPIO) {
		pin := hw.GPIO[name].Pin
		if pin > ceiling {
			f.fail("GPIO '%s' uses pin %d, which is out of range.", name, pin)
			continue
		}
		f.info("GPIO '%s' mapped to pin %d.", name, pin)
	}
	for _, name := range sortedKeys(hw.SPI) {
		spi := hw.SPI[name]
		f.info("SPI '%s' configured (SCK:%d, MOSI:%d, MISO:%d)", name, spi.SCK, spi.MOSI, spi.MISO)
	}
	for _, name := range sortedKeys(hw.I2C) {
		i2c := hw.I2C[name]
		f.info("I2C '%s' configured (SDA:%d, SCL:%d, %dkHz)", name, i2c.SDA, i2c.SCL, i2c.Frequency)
	}
	for _, name := range sortedKeys(hw.UART) {
		uart := hw.UART[name]
		f.info("UART '%s' configured (TX:%d, RX:%d, %d baud)", name, uart.TX, uart.RX, uart.Baud)
	}
	return f.result
}

// PolicyNibbler evaluates the Rego hardware policies.
type PolicyNibbler struct {
	engine *policy.Engine
}

func (n *PolicyNibbler) Name() string  { return "policy" }
func (n *PolicyNibbler) Priority() int { return 15 }

func (n *PolicyNibbler) Process(ctx context.Context, cfg *config.ProjectConfig) engine.NibblerResult {
	f := newFindings(n.Name())
	if n.engine == nil || cfg.Hardware == nil {
		return f.result
	}

	input := policy.BuildInput(cfg)
	input.Operation = "validate"
	result, err := n.engine.Evaluate(ctx, input)
	if err != nil {
		f.fail("Policy evaluation failed: %v", err)
		return f.result
	}
	for _, w := range result.Warnings {
		f.warn("%s", w)
	}
	for _, v := range result.Violations {
		switch v.Severity {
		case policy.SeverityError:
			f.fail("%s", v.Message)
		case policy.SeverityWarning:
			f.warn("%s", v.Message)
		default:
			f.info("%s", v.Message)
		}
	}
	return f.result
}
