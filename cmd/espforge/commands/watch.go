package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jhunt/go-ansi"
	"github.com/spf13/cobra"

	"github.com/espforge/espforge/pkg/compile"
	"github.com/espforge/espforge/pkg/engine"
	"github.com/espforge/espforge/pkg/examples"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 250 * time.Millisecond

func newWatchCommand() *cobra.Command {
	var (
		outputDir   string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch <config.yaml>",
		Short: "Recompile whenever the project or its script changes",
		Long: `Watch compiles the project once, then again each time the document or
the app.star next to it is written. Compiles never overlap. With
--metrics-addr the Prometheus metrics are served while watching.`,
		Example: `  espforge watch blink.yaml -o build
  espforge watch blink.yaml --metrics-addr :9464`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			compiler, err := a.compiler(ctx)
			if err != nil {
				return err
			}

			go func() {
				if err := a.tel.Metrics.Serve(ctx); err != nil {
					a.logger.Error().Err(err).Msg("Metrics server failed")
				}
			}()

			w := &watcher{
				compiler:  compiler,
				path:      args[0],
				outputDir: outputDir,
				out:       cmd.OutOrStdout(),
				app:       a,
			}
			return w.run(ctx)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "directory for "+RenderContextFile)
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while watching")

	return cmd
}

type watcher struct {
	compiler  *compile.Compiler
	path      string
	outputDir string
	out       io.Writer
	app       *app
}

// run compiles once and then on every relevant change until ctx is done.
func (w *watcher) run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	watched := map[string]bool{
		filepath.Clean(w.path):                  true,
		filepath.Join(dir, examples.ScriptFile): true,
	}

	w.compileOnce(ctx)
	ansi.Fprintf(w.out, "@C{Watching} %s (Ctrl-C to stop)\n", w.path)

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.app.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Change detected")
			debounce.Reset(watchDebounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.app.logger.Warn().Err(err).Msg("File watcher error")
		case <-debounce.C:
			w.compileOnce(ctx)
		}
	}
}

// compileOnce reports the outcome of one compile. Failures are printed and
// watching continues.
func (w *watcher) compileOnce(ctx context.Context) {
	ansi.Fprintf(w.out, "\n@M{==>} compiling %s at %s\n", w.path, time.Now().Format(time.TimeOnly))
	res, err := w.compiler.Compile(ctx, w.path)
	if res != nil && len(res.Findings) > 0 {
		printFindings(w.out, res.Findings)
		printGate(w.out, res.Findings)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		code := engine.CodeOf(err)
		if code == "" {
			code = "error"
		}
		ansi.Fprintf(w.out, "@R{%s}: %s\n", code, err)
		return
	}
	path, err := writeRenderContext(w.outputDir, res.RenderContext)
	if err != nil {
		ansi.Fprintf(w.out, "@R{%s}\n", err)
		return
	}
	ansi.Fprintf(w.out, "@G{Compiled} -> %s in %s\n", path, res.Duration.Round(time.Microsecond))
}
