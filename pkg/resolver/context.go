package resolver

import (
	"github.com/espforge/espforge/pkg/config"
)

// ResolutionContext is the per-call view strategies resolve against.
type ResolutionContext struct {
	// Platform is the target chip.
	Platform config.Platform

	// Hardware is the esp32: section, nil when the document has none.
	Hardware *config.HardwareConfig

	// components is nil when component names are unknown to the caller.
	components map[string]struct{}
}

// NewResolutionContext builds a context from a project document.
func NewResolutionContext(cfg *config.ProjectConfig) *ResolutionContext {
	rc := &ResolutionContext{
		Platform:   cfg.Espforge.Platform,
		Hardware:   cfg.Hardware,
		components: make(map[string]struct{}, len(cfg.Components)),
	}
	for name := range cfg.Components {
		rc.components[name] = struct{}{}
	}
	return rc
}

// HasComponent reports whether name is a component instance. known is false
// when the context was built without component names.
func (rc *ResolutionContext) HasComponent(name string) (exists, known bool) {
	if rc.components == nil {
		return false, false
	}
	_, exists = rc.components[name]
	return exists, true
}
