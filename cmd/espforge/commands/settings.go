package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/espforge/espforge/pkg/telemetry"
)

// settings are the tool settings, read from the --config file, ESPFORGE_*
// environment variables and flags, in increasing precedence.
type settings struct {
	Telemetry    telemetry.Config `mapstructure:",squash"`
	HistoryDB    string           `mapstructure:"history_db"`
	ManifestsDir string           `mapstructure:"manifests_dir"`
	Policies     []string         `mapstructure:"policies"`
}

// envKeys may be set as ESPFORGE_<KEY> with dots replaced by underscores.
var envKeys = []string{
	"history_db",
	"manifests_dir",
	"policies",
	"logging.level",
	"logging.format",
	"logging.output",
	"logging.no_color",
	"tracing.enabled",
	"tracing.exporter",
	"tracing.endpoint",
	"tracing.sampling_rate",
	"tracing.insecure",
	"metrics.enabled",
	"metrics.listen_address",
	"metrics.textfile_path",
}

func loadSettings(cmd *cobra.Command, version string) (*settings, error) {
	v := viper.New()
	v.SetEnvPrefix("ESPFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	flags := cmd.Flags()
	for key, flag := range map[string]string{
		"history_db":             "history-db",
		"manifests_dir":          "manifests",
		"policies":               "policy",
		"metrics.textfile_path":  "metrics-file",
		"metrics.listen_address": "metrics-addr",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind --%s: %w", flag, err)
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read settings %s: %w", configPath, err)
		}
	}
	if verbose {
		v.Set("logging.level", "debug")
	}

	s := &settings{Telemetry: *telemetry.DefaultConfig()}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	if version != "" {
		s.Telemetry.ServiceVersion = version
	}
	if err := s.Telemetry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}
