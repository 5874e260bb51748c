package nibblers

import (
	"context"
	"strings"

	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
)

// ComponentNibbler checks that every $ref in an instance's with: block names
// something that exists. Component refs must name hardware resources; device
// refs may also name components.
type ComponentNibbler struct{}

func (n *ComponentNibbler) Name() string  { return "components" }
func (n *ComponentNibbler) Priority() int { return 20 }

func (n *ComponentNibbler) Process(_ context.Context, cfg *config.ProjectConfig) engine.NibblerResult {
	f := newFindings(n.Name())

	for _, name := range cfg.ComponentNames() {
		inst := cfg.Components[name]
		f.info("Checking component '%s' (using %s)", name, inst.Using)
		n.checkRefs(f, "Component", name, inst, func(ref string) bool {
			return cfg.Hardware.HasResource(ref)
		})
	}
	for _, name := range cfg.DeviceNames() {
		inst := cfg.Devices[name]
		f.info("Checking device '%s' (using %s)", name, inst.Using)
		n.checkRefs(f, "Device", name, inst, func(ref string) bool {
			if _, ok := cfg.Components[ref]; ok {
				return true
			}
			return cfg.Hardware.HasResource(ref)
		})
	}
	return f.result
}

func (n *ComponentNibbler) checkRefs(f *findings, kind, name string, inst config.Instance, exists func(string) bool) {
	for _, prop := range sortedKeys(inst.With) {
		s, ok := inst.With[prop].(string)
		if !ok || !strings.HasPrefix(s, "$") {
			continue
		}
		ref := strings.TrimPrefix(s, "$")
		if ref != "" && exists(ref) {
			f.info("  Validated reference '$%s'", ref)
			continue
		}
		f.add(engine.StatusError, "  Error: %s '%s' references undefined hardware resource '$%s' in property '%s'",
			kind, name, ref, prop)
	}
}
