package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/espforge/espforge/pkg/compile"
	"github.com/espforge/espforge/pkg/manifest"
	"github.com/espforge/espforge/pkg/policy"
	"github.com/espforge/espforge/pkg/stores"
	"github.com/espforge/espforge/pkg/telemetry"
)

// app holds what one command invocation needs.
type app struct {
	settings *settings
	tel      *telemetry.Telemetry
	history  *stores.SQLiteStore
	catalog  *manifest.Catalog
	logger   zerolog.Logger
}

// newApp reads the settings and opens telemetry, the catalog and, when
// configured, the history database.
func newApp(cmd *cobra.Command) (*app, error) {
	s, err := loadSettings(cmd, appVersion)
	if err != nil {
		return nil, err
	}

	tel, err := telemetry.NewTelemetry(&s.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a := &app{
		settings: s,
		tel:      tel,
		logger:   tel.Logger.NewComponentLogger("cli").Zerolog(),
	}

	a.catalog, err = manifest.LoadBuiltin()
	if err != nil {
		a.close(cmd.Context())
		return nil, err
	}
	if s.ManifestsDir != "" {
		a.catalog, err = a.catalog.Extend(os.DirFS(s.ManifestsDir))
		if err != nil {
			a.close(cmd.Context())
			return nil, fmt.Errorf("failed to load manifests from %s: %w", s.ManifestsDir, err)
		}
		a.logger.Debug().Str("dir", s.ManifestsDir).Int("manifests", a.catalog.Len()).Msg("Extended manifest catalog")
	}

	if s.HistoryDB != "" {
		a.history, err = stores.Open(cmd.Context(), s.HistoryDB)
		if err != nil {
			a.close(cmd.Context())
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
	}
	return a, nil
}

// compiler wires a compiler to the app's collaborators.
func (a *app) compiler(ctx context.Context) (*compile.Compiler, error) {
	logger := a.tel.Logger.Zerolog()
	policies, err := policy.NewEngine(logger)
	if err != nil {
		return nil, err
	}
	if len(a.settings.Policies) > 0 {
		if err := policies.LoadPolicies(ctx, a.settings.Policies); err != nil {
			return nil, err
		}
	}

	opts := compile.Options{
		Catalog:   a.catalog,
		Policies:  policies,
		Telemetry: a.tel,
		Logger:    logger,
	}
	if a.history != nil {
		opts.History = a.history
	}
	return compile.New(opts)
}

// requireHistory fails when no history database is configured.
func (a *app) requireHistory() error {
	if a.history == nil {
		return errors.New("no history database configured (use --history-db or ESPFORGE_HISTORY_DB)")
	}
	return nil
}

func (a *app) close(ctx context.Context) {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close history database")
		}
	}
	if err := a.tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to flush telemetry")
	}
}
