// Package engine provides the types shared across the espforge generator.
//
// # Overview
//
// A compile runs a YAML project document through these stages:
//
//  1. Load - decode and validate the document (pkg/config)
//  2. Nibble - run every configuration checker and gate on errors (pkg/nibblers)
//  3. Instantiate - render component and device setup code (pkg/resolver)
//  4. Lifecycle - turn app.setup and app.loop actions into statements (pkg/actions)
//  5. Script - transpile the optional embedded script (pkg/script)
//  6. Assemble - merge everything into a RenderContext (pkg/compile)
//
// # Errors
//
// Every failure raised by the generator is an *EngineError carrying a class
// and a code. Use errors.Is with Sentinel, or HasCode:
//
//	if engine.HasCode(err, engine.ErrCodeMissingParameter) {
//	    // ...
//	}
//
// Resolution errors abort the compile immediately. Nibbler findings are
// collected as NibblerResult values and only turned into an error
// (ErrCodeValidationFailed) after every checker has run.
package engine
