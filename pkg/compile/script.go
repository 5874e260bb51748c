package compile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/espforge/espforge/pkg/config"
	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/examples"
	"github.com/espforge/espforge/pkg/script"
)

// scriptSource finds the app script: app.star next to the project document
// wins over the selected example's script. An empty source means none.
func (c *Compiler) scriptSource(path string, cfg *config.ProjectConfig) (src, origin string, err error) {
	local := filepath.Join(filepath.Dir(path), examples.ScriptFile)
	data, err := os.ReadFile(local)
	switch {
	case err == nil:
		return string(data), local, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", "", engine.NewParseError("failed to read script", err).WithResource(local)
	}

	if cfg.Example == nil || cfg.Example.Name == "" {
		return "", "", nil
	}
	ex, ok := c.examples.Get(cfg.Example.Name)
	if !ok || !ex.HasScript() {
		return "", "", nil
	}
	src, err = ex.RenderScript(c.templates, cfg.Example.Props)
	if err != nil {
		return "", "", err
	}
	return src, "example:" + ex.Name, nil
}

// Merge appends transpiled script output to rc.
func Merge(rc *engine.RenderContext, out *script.Output) {
	if out.Setup != "" {
		rc.SetupCode = append(rc.SetupCode, out.Setup)
	}
	if out.LoopBody != "" {
		rc.LoopCode = append(rc.LoopCode, out.LoopBody)
	}
	rc.Variables = append(rc.Variables, out.Variables...)
	rc.TaskDefinitions = append(rc.TaskDefinitions, out.TaskDefinitions...)
	rc.TaskSpawns = append(rc.TaskSpawns, out.TaskSpawns...)
}
