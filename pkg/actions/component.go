package actions

import (
	"strings"

	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/manifest"
	"github.com/espforge/espforge/pkg/templating"
)

// componentStrategy handles "$instance.method" keys.
type componentStrategy struct{}

func (s *componentStrategy) Name() string { return "component" }

func (s *componentStrategy) CanHandle(key string) bool {
	return strings.HasPrefix(key, "$")
}

func splitComponentKey(key string) (instance, method string, ok bool) {
	instance, method, ok = strings.Cut(strings.TrimPrefix(key, "$"), ".")
	if !ok || instance == "" || method == "" {
		return "", "", false
	}
	return instance, method, true
}

func (s *componentStrategy) Validate(key string, _ interface{}, env *Env) engine.ValidationResult {
	instance, method, ok := splitComponentKey(key)
	if !ok {
		return engine.Invalid("Invalid component action '%s': expected '$instance.method'", key)
	}
	inst, ok := env.Config.LookupInstance(instance)
	if !ok {
		return engine.Invalid("Component '%s' not found in components or devices", instance)
	}
	m, ok := env.Catalog.Get(inst.Using)
	if !ok {
		return engine.Invalid("Component type '%s' not found in manifests", inst.Using)
	}
	if !m.HasMethod(method) {
		return engine.Invalid("Method '%s' not found in manifest '%s' (available: %s)",
			method, m.Name, strings.Join(m.MethodNames(), ", "))
	}
	return engine.Ok("Component action '%s' is valid", key)
}

func (s *componentStrategy) Render(key string, value interface{}, env *Env) (string, error) {
	instance, method, ok := splitComponentKey(key)
	if !ok {
		return "", engine.Errorf(engine.ErrCodeInvalidActionShape,
			"Invalid component action '%s': expected '$instance.method'", key)
	}
	inst, ok := env.Config.LookupInstance(instance)
	if !ok {
		return "", engine.Errorf(engine.ErrCodeUndefinedReference,
			"Component '%s' not found in components or devices", instance)
	}
	m, ok := env.Catalog.Get(inst.Using)
	if !ok {
		return "", engine.Errorf(engine.ErrCodeUnknownManifest,
			"Component type '%s' not found in manifests", inst.Using)
	}
	return renderMethod(env.Templates, m, method, instance, value)
}

// globalStrategy handles "module.method" keys against manifests that are
// not bound to an instance, such as logger and delay.
type globalStrategy struct{}

func (s *globalStrategy) Name() string { return "global" }

func (s *globalStrategy) CanHandle(key string) bool {
	return !strings.HasPrefix(key, "$") && strings.Contains(key, ".")
}

func (s *globalStrategy) Validate(key string, _ interface{}, env *Env) engine.ValidationResult {
	module, method, _ := strings.Cut(key, ".")
	m, ok := env.Catalog.Get(module)
	if !ok {
		return engine.Ignored()
	}
	if !m.HasMethod(method) {
		return engine.Invalid("Method '%s' not found in manifest '%s' (available: %s)",
			method, module, strings.Join(m.MethodNames(), ", "))
	}
	return engine.Ok("Global action '%s' is valid", key)
}

func (s *globalStrategy) Render(key string, value interface{}, env *Env) (string, error) {
	module, method, _ := strings.Cut(key, ".")
	m, ok := env.Catalog.Get(module)
	if !ok {
		return "", engine.Errorf(engine.ErrCodeUnknownManifest,
			"Global module '%s' not found in manifests", module)
	}
	return renderMethod(env.Templates, m, method, module, value)
}

func renderMethod(templates *templating.Engine, m *manifest.Manifest, method, target string, args interface{}) (string, error) {
	def, ok := m.Methods[method]
	if !ok {
		return "", engine.Errorf(engine.ErrCodeMethodNotFound,
			"Method '%s' not found in manifest '%s'", method, m.Name)
	}
	out, err := templates.Render(def.Template, templating.Vars{
		"target": target,
		"args":   args,
	})
	if err != nil {
		return "", engine.Errorf(engine.ErrCodeInternal, "render %s.%s", m.Name, method).WithCause(err)
	}
	return strings.TrimSpace(out), nil
}
