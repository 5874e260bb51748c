package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jhunt/go-ansi"

	"github.com/espforge/espforge/pkg/engine"
)

// RenderContextFile is the file compile writes into the output directory.
const RenderContextFile = "render_context.json"

func statusMarker(s engine.Status) string {
	switch s {
	case engine.StatusOk:
		return ansi.Sprintf("@G{ok}")
	case engine.StatusWarning:
		return ansi.Sprintf("@Y{warn}")
	case engine.StatusError:
		return ansi.Sprintf("@R{fail}")
	}
	return string(s)
}

// printFindings writes every nibbler's findings with a severity marker.
func printFindings(w io.Writer, results []engine.NibblerResult) {
	for _, r := range results {
		ansi.Fprintf(w, "@C{[%s]} %s\n", r.Name, statusMarker(r.Status))
		for _, finding := range r.Findings {
			ansi.Fprintf(w, "  %s\n", finding)
		}
	}
}

// printGate summarizes the validation gate.
func printGate(w io.Writer, results []engine.NibblerResult) {
	var warnings, errs int
	for _, r := range results {
		switch r.Status {
		case engine.StatusWarning:
			warnings++
		case engine.StatusError:
			errs++
		}
	}
	if engine.GateOpen(results) {
		ansi.Fprintf(w, "\n@G{Validation passed} (%d nibbler(s), %d with warnings)\n", len(results), warnings)
		return
	}
	ansi.Fprintf(w, "\n@R{Validation failed}: %d nibbler(s) reported errors\n", errs)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeRenderContext stores rc as indented JSON under dir.
func writeRenderContext(dir string, rc *engine.RenderContext) (string, error) {
	data, err := rc.MarshalIndent()
	if err != nil {
		return "", fmt.Errorf("failed to encode render context: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, RenderContextFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
