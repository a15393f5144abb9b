// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/nautilus/internal/app"
	"github.com/holomush/nautilus/internal/config"
	"github.com/holomush/nautilus/internal/hook"
	"github.com/holomush/nautilus/internal/logging"
	"github.com/holomush/nautilus/internal/xdg"
)

// globalConfig holds the flags shared by every subcommand.
type globalConfig struct {
	configFile string
	hooksRoot  string
	logFormat  string
	logLevel   string
	disable    []string
}

// flagKeys maps persistent flags onto configuration keys. Flags given on
// the command line override the config file.
var flagKeys = map[string]string{
	"hooks-root":   "engine.root",
	"log-format":   "engine.log_format",
	"timeout":      "engine.timeout",
	"metrics-addr": "engine.metrics_addr",
}

const defaultLogFormat = "text"

// NewRootCmd creates the root command for the nautilus CLI.
func NewRootCmd() *cobra.Command {
	g := &globalConfig{}

	cmd := &cobra.Command{
		Use:   "nautilus",
		Short: "Nautilus - convention-based hook loader",
		Long: `Nautilus assembles an application from hooks found by convention:
<root>/<category>/<name>.lua, .yaml or .json, or a directory with an
index entry. Hooks run in order and contribute to a shared context.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/nautilus/config.yaml)")
	flags.StringVar(&g.hooksRoot, "hooks-root", "", "hooks root directory (default: ./hooks)")
	flags.StringVar(&g.logFormat, "log-format", defaultLogFormat, "log format (json or text)")
	flags.StringVar(&g.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.Duration("timeout", 0, "per-hook execution limit (0 = none)")
	flags.StringSliceVar(&g.disable, "disable", nil, "hook names to disable (repeatable)")

	cmd.AddCommand(NewLoadCmd(g))
	cmd.AddCommand(NewPlanCmd(g))
	cmd.AddCommand(NewServeCmd(g))
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

// configPath returns the config file to read: the flag, or the XDG default.
func (g *globalConfig) configPath() string {
	if g.configFile != "" {
		return g.configFile
	}
	path, err := xdg.ConfigFile()
	if err != nil {
		slog.Debug("no default config file", "error", err)
		return ""
	}
	return path
}

// defaultRoot is ./hooks when it exists, otherwise XDG_DATA_HOME/nautilus/hooks.
func defaultRoot() string {
	if info, err := os.Stat(hook.DefaultRoot); err == nil && info.IsDir() {
		return hook.DefaultRoot
	}
	if dir, err := xdg.HooksDir(); err == nil {
		return dir
	}
	return hook.DefaultRoot
}

// setup loads configuration and installs the logger.
func setup(cmd *cobra.Command, g *globalConfig) (*config.Store, config.Engine, *slog.Logger, error) {
	cfg, err := config.Load(g.configPath(), cmd.Flags(), flagKeys)
	if err != nil {
		return nil, config.Engine{}, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Disable(g.disable...); err != nil {
		return nil, config.Engine{}, nil, fmt.Errorf("failed to disable hooks: %w", err)
	}

	settings, err := cfg.Engine(config.Engine{LogFormat: defaultLogFormat})
	if err != nil {
		return nil, config.Engine{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.Setup(logging.Options{
		Service: "nautilus",
		Version: version,
		Format:  settings.LogFormat,
		Level:   g.logLevel,
		Writer:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, config.Engine{}, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger)

	return cfg, settings, logger, nil
}

// assemble builds the app from loaded configuration.
func assemble(cfg *config.Store, logger *slog.Logger, opts ...app.Option) (*app.App, error) {
	base := []app.Option{
		app.WithLogger(logger),
		app.WithVersion(version),
		app.WithDefaultRoot(defaultRoot()),
	}
	a, err := app.New(cfg, append(base, opts...)...)
	if err != nil {
		return nil, oops.In("cli").Wrapf(err, "failed to start")
	}
	return a, nil
}

// newApp loads configuration, sets up logging, and assembles the app.
func newApp(cmd *cobra.Command, g *globalConfig) (*app.App, error) {
	cfg, _, logger, err := setup(cmd, g)
	if err != nil {
		return nil, err
	}
	return assemble(cfg, logger)
}
