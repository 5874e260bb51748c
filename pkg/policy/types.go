package policy

import (
	"time"

	"github.com/espforge/espforge/pkg/config"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError blocks code generation.
	SeverityError Severity = "error"
)

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the policy source. Violations are read from its deny set.
	Rego string `json:"rego"`

	// Severity is used for violations that do not carry their own.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Tags are labels for organizing policies.
	Tags []string `json:"tags,omitempty"`

	// Metadata contains additional policy metadata, such as the source file.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Resource is the pin owner involved, such as "gpio.LED_PIN" or "spi.BUS.sck".
	Resource string `json:"resource,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Result represents the result of policy evaluation.
type Result struct {
	// Allowed is false when any violation has error severity.
	Allowed bool `json:"allowed"`

	// Violations lists all policy violations, ordered by policy then message.
	Violations []Violation `json:"violations,omitempty"`

	// Warnings lists policies that failed to evaluate.
	Warnings []string `json:"warnings,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// Duration is how long the evaluation took.
	Duration time.Duration `json:"duration"`
}

// PinUse is one physical pin claimed by a hardware entry.
type PinUse struct {
	Owner string `json:"owner"`
	Pin   int    `json:"pin"`
}

// Input is the document policies are evaluated against.
type Input struct {
	// Platform is the target chip.
	Platform config.Platform `json:"platform"`

	// StrappingPins are the boot-mode pins of the platform.
	StrappingPins []int `json:"strapping_pins"`

	// Pins flattens every pin claimed by the hardware section.
	Pins []PinUse `json:"pins"`

	// Hardware is the esp32: section as written.
	Hardware *config.HardwareConfig `json:"hardware"`

	// Operation is the compile phase requesting evaluation.
	Operation string `json:"operation,omitempty"`
}

// BuildInput flattens the hardware section of cfg into a policy input.
// Unused SPI lines (pin 255) and chip-select lines are not pin claims.
func BuildInput(cfg *config.ProjectConfig) *Input {
	input := &Input{
		Platform:      cfg.Espforge.Platform,
		StrappingPins: []int{},
		Pins:          []PinUse{},
		Hardware:      cfg.Hardware,
		Operation:     "validate",
	}
	if info, err := config.LookupPlatform(cfg.Espforge.Platform); err == nil {
		input.StrappingPins = append(input.StrappingPins, info.StrappingPins...)
	}

	hw := cfg.Hardware
	if hw == nil {
		input.Hardware = &config.HardwareConfig{}
		return input
	}

	claim := func(owner string, pin int) {
		if pin == config.UnusedPin {
			return
		}
		input.Pins = append(input.Pins, PinUse{Owner: owner, Pin: pin})
	}
	for _, name := range sortedNames(hw.GPIO) {
		claim("gpio."+name, hw.GPIO[name].Pin)
	}
	for _, name := range sortedNames(hw.SPI) {
		s := hw.SPI[name]
		claim("spi."+name+".mosi", s.MOSI)
		claim("spi."+name+".sck", s.SCK)
		claim("spi."+name+".miso", s.MISO)
	}
	for _, name := range sortedNames(hw.I2C) {
		c := hw.I2C[name]
		claim("i2c."+name+".sda", c.SDA)
		claim("i2c."+name+".scl", c.SCL)
	}
	for _, name := range sortedNames(hw.UART) {
		u := hw.UART[name]
		claim("uart."+name+".tx", u.TX)
		claim("uart."+name+".rx", u.RX)
	}
	return input
}
