package engine

import (
	"encoding/json"
	"fmt"
)

// RenderContext is the bundle of generated code fragments handed to the
// project templating stage.
type RenderContext struct {
	// Includes are dependency identifiers in resolution order, duplicates kept.
	Includes []string `json:"includes"`

	// Initializations are rendered setup templates, components then devices.
	Initializations []string `json:"initializations"`

	// Variables are module-level state declarations.
	Variables []string `json:"variables"`

	// SetupCode holds statements placed in the setup section.
	SetupCode []string `json:"setup_code"`

	// LoopCode holds statements placed in the main loop.
	LoopCode []string `json:"loop_code"`

	// TaskDefinitions are async task functions.
	TaskDefinitions []string `json:"task_definitions"`

	// TaskSpawns are spawn statements for the task definitions.
	TaskSpawns []string `json:"task_spawns"`
}

// NewRenderContext returns a context with every list non-nil so the JSON
// handed to templates never carries null.
func NewRenderContext() *RenderContext {
	return &RenderContext{
		Includes:        []string{},
		Initializations: []string{},
		Variables:       []string{},
		SetupCode:       []string{},
		LoopCode:        []string{},
		TaskDefinitions: []string{},
		TaskSpawns:      []string{},
	}
}

// TemplateVars flattens the context into the variable map used by project
// templates ({{setup_code}}, {{loop_code}}, ...).
func (rc *RenderContext) TemplateVars() map[string]interface{} {
	return map[string]interface{}{
		"includes":         rc.Includes,
		"initializations":  rc.Initializations,
		"variables":        rc.Variables,
		"setup_code":       rc.SetupCode,
		"loop_code":        rc.LoopCode,
		"task_definitions": rc.TaskDefinitions,
		"task_spawns":      rc.TaskSpawns,
	}
}

// MarshalIndent renders the context as indented JSON.
func (rc *RenderContext) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(rc, "", "  ")
}

// Status is the severity of a nibbler result.
type Status string

const (
	StatusOk      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// NibblerResult is the outcome of one configuration checker.
type NibblerResult struct {
	Name     string   `json:"name"`
	Findings []string `json:"findings"`
	Status   Status   `json:"status"`
}

// Escalate raises the status to s when s is more severe.
func (r *NibblerResult) Escalate(s Status) {
	if severity(s) > severity(r.Status) {
		r.Status = s
	}
}

func severity(s Status) int {
	switch s {
	case StatusError:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// GateOpen reports whether generation may proceed: no result is an error.
func GateOpen(results []NibblerResult) bool {
	for i := range results {
		if results[i].Status == StatusError {
			return false
		}
	}
	return true
}

// ValidationKind is the outcome category of validating a single action.
type ValidationKind int

const (
	ValidationOk ValidationKind = iota
	ValidationWarning
	ValidationError
	// ValidationIgnored means the strategy declined the key.
	ValidationIgnored
)

// ValidationResult is the per-action validation verdict.
type ValidationResult struct {
	Kind    ValidationKind
	Message string
}

// Ok returns a passing result.
func Ok(format string, args ...interface{}) ValidationResult {
	return ValidationResult{Kind: ValidationOk, Message: fmt.Sprintf(format, args...)}
}

// Warning returns an advisory result.
func Warning(format string, args ...interface{}) ValidationResult {
	return ValidationResult{Kind: ValidationWarning, Message: fmt.Sprintf(format, args...)}
}

// Invalid returns an error result.
func Invalid(format string, args ...interface{}) ValidationResult {
	return ValidationResult{Kind: ValidationError, Message: fmt.Sprintf(format, args...)}
}

// Ignored returns a result meaning the strategy does not apply.
func Ignored() ValidationResult {
	return ValidationResult{Kind: ValidationIgnored}
}
