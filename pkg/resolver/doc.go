// Package resolver turns component and device instances into setup code and
// app action lists into setup/loop statements.
//
// Parameter values are resolved by a ParameterRegistry keyed by the
// manifest parameter type: hardware references ($LED_PIN) become the stored
// pin or bus settings, component references ($bus) become the bare instance
// name, and primitives pass through. Instances are processed components
// first, then devices, each group in sorted name order so that repeated runs
// produce identical output.
package resolver
