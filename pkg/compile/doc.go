// Package compile orchestrates one espforge compile run.
//
// Compile loads the project document, runs the nibbler gate, resolves
// instances, variables and lifecycle actions, then transpiles the app script
// (app.star next to the document, or the selected example's script) and
// merges it into the render context. Each phase is traced and timed; runs
// are recorded to the history store when one is configured.
package compile
